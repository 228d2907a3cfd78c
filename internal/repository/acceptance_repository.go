package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/post-policy/internal/model"
)

// AcceptanceRepository is the per-post acceptance ledger.
type AcceptanceRepository interface {
	Add(ctx context.Context, postID, userID, version string) error
	Remove(ctx context.Context, postID, userID string) error
	ListUserIDs(ctx context.Context, postID string) ([]string, error)
	Clear(ctx context.Context, postID string) error
}

type acceptanceRepository struct {
	db *gorm.DB
}

func NewAcceptanceRepository(db *gorm.DB) AcceptanceRepository {
	return &acceptanceRepository{db: db}
}

// Add is idempotent: accepting a second time under the same (post, user)
// pair is a no-op.
func (r *acceptanceRepository) Add(ctx context.Context, postID, userID, version string) error {
	a := &model.PolicyAcceptance{
		ID:      uuid.New().String(),
		PostID:  postID,
		UserID:  userID,
		Version: version,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(a).Error
}

func (r *acceptanceRepository) Remove(ctx context.Context, postID, userID string) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&model.PolicyAcceptance{}).Error
}

func (r *acceptanceRepository) ListUserIDs(ctx context.Context, postID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.PolicyAcceptance{}).
		Where("post_id = ?", postID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *acceptanceRepository) Clear(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Delete(&model.PolicyAcceptance{}).Error
}
