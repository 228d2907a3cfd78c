package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/post-policy/internal/model"
)

type PolicyRepository interface {
	Get(ctx context.Context, postID string) (*model.PostPolicy, error)
	Upsert(ctx context.Context, policy *model.PostPolicy) error
	// Delete removes the policy for a post together with its acceptance
	// ledger entries.
	Delete(ctx context.Context, postID string) error
}

type policyRepository struct {
	db *gorm.DB
}

func NewPolicyRepository(db *gorm.DB) PolicyRepository { return &policyRepository{db: db} }

// Get returns nil when the post has no policy record.
func (r *policyRepository) Get(ctx context.Context, postID string) (*model.PostPolicy, error) {
	var p model.PostPolicy
	err := r.db.WithContext(ctx).First(&p, "post_id = ?", postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *policyRepository) Upsert(ctx context.Context, policy *model.PostPolicy) error {
	if policy.ID == "" {
		policy.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Save(policy).Error
}

func (r *policyRepository) Delete(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).
			Delete(&model.PolicyAcceptance{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", postID).
			Delete(&model.PostPolicy{}).Error
	})
}
