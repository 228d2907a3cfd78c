package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/post-policy/internal/model"
)

type GroupRepository interface {
	GetByID(ctx context.Context, id string) (*model.Group, error)
	GetByName(ctx context.Context, name string) (*model.Group, error)
	Create(ctx context.Context, group *model.Group) error
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	ListMemberIDs(ctx context.Context, groupID string) ([]string, error)
}

type groupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository { return &groupRepository{db: db} }

// GetByID returns nil when no such group exists.
func (r *groupRepository) GetByID(ctx context.Context, id string) (*model.Group, error) {
	var g model.Group
	err := r.db.WithContext(ctx).First(&g, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetByName returns nil when no such group exists.
func (r *groupRepository) GetByName(ctx context.Context, name string) (*model.Group, error) {
	var g model.Group
	err := r.db.WithContext(ctx).First(&g, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *groupRepository) Create(ctx context.Context, group *model.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(group).Error
}

// AddMember is idempotent and keeps the denormalized user_count in step.
func (r *groupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		gu := &model.GroupUser{ID: uuid.New().String(), GroupID: groupID, UserID: userID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(gu)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&model.Group{}).Where("id = ?", groupID).
			Update("user_count", gorm.Expr("user_count + 1")).Error
	})
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("group_id = ? AND user_id = ?", groupID, userID).
			Delete(&model.GroupUser{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&model.Group{}).Where("id = ?", groupID).
			Update("user_count", gorm.Expr("user_count - 1")).Error
	})
}

func (r *groupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.GroupUser{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *groupRepository) ListMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.GroupUser{}).
		Where("group_id = ?", groupID).
		Order("created_at").
		Pluck("user_id", &ids).Error
	return ids, err
}
