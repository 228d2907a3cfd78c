package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/post-policy/config"
	"github.com/d60-Lab/post-policy/internal/model"
	"github.com/d60-Lab/post-policy/internal/repository"
	"github.com/d60-Lab/post-policy/pkg/logger"
)

// AcceptanceService records and revokes a user's acknowledgment of a
// post's policy.
type AcceptanceService interface {
	Accept(ctx context.Context, postID, userID string) error
	Unaccept(ctx context.Context, postID, userID string) error
}

type acceptanceService struct {
	db       *gorm.DB
	cfg      config.PolicyConfig
	notifier Notifier
}

func NewAcceptanceService(db *gorm.DB, cfg config.PolicyConfig, notifier Notifier) AcceptanceService {
	return &acceptanceService{db: db, cfg: cfg, notifier: notifier}
}

func (s *acceptanceService) Accept(ctx context.Context, postID, userID string) error {
	return s.change(ctx, postID, userID, true)
}

func (s *acceptanceService) Unaccept(ctx context.Context, postID, userID string) error {
	return s.change(ctx, postID, userID, false)
}

// change runs the eligibility checks in order, short-circuiting on the
// first failure, then mutates the ledger. The observer notification goes
// out only after the transaction commits and never fails the call.
func (s *acceptanceService) change(ctx context.Context, postID, userID string, add bool) error {
	if !s.cfg.Enabled {
		return ErrFeatureDisabled
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.Post
		if err := forUpdate(tx).First(&post, "id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		policies := repository.NewPolicyRepository(tx)
		groups := repository.NewGroupRepository(tx)

		policy, err := policies.Get(ctx, postID)
		if err != nil {
			return err
		}
		if policy == nil {
			return ErrNoPolicy
		}
		if policy.GroupID == nil {
			return ErrGroupNotFound
		}

		group, err := groups.GetByID(ctx, *policy.GroupID)
		if err != nil {
			return err
		}
		if group == nil {
			return ErrGroupNotFound
		}

		member, err := groups.IsMember(ctx, group.ID, userID)
		if err != nil {
			return err
		}
		if !member {
			return ErrUserNotInGroup
		}

		if group.UserCount > int64(s.cfg.MaxGroupSize) {
			return ErrGroupTooLarge
		}

		if s.cfg.RestrictToStaffPosts {
			var author model.User
			err := tx.Select("staff").First(&author, "id = ?", post.AuthorID).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if !author.Staff {
				return ErrStaffOnly
			}
		}

		ledger := repository.NewAcceptanceRepository(tx)
		if add {
			return ledger.Add(ctx, postID, userID, policy.EffectiveVersion())
		}
		return ledger.Remove(ctx, postID, userID)
	})
	if err != nil {
		return err
	}

	// at most one delivery attempt; a lost notification is acceptable, but
	// a caller hanging up right after commit should not cancel it
	if err := s.notifier.PublishChange(context.WithoutCancel(ctx), postID); err != nil {
		logger.Warn("policy change publish failed",
			zap.String("post", postID), zap.Error(err))
	}
	return nil
}
