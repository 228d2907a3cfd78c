package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/post-policy/config"
	"github.com/d60-Lab/post-policy/internal/model"
	"github.com/d60-Lab/post-policy/internal/repository"
	"github.com/d60-Lab/post-policy/pkg/logger"
)

// RenewalSweeper periodically walks every active policy: when a renewal
// boundary has passed it resets acceptance and schedules the next boundary,
// and on a separate cadence it reminds members who have not accepted yet.
// Each record commits on its own, so one bad record neither blocks the
// sweep nor loses the others, and a crashed sweep simply retries next tick.
type RenewalSweeper struct {
	db       *gorm.DB
	cfg      config.PolicyConfig
	notifier Notifier
	now      func() time.Time
}

func NewRenewalSweeper(db *gorm.DB, cfg config.PolicyConfig, notifier Notifier) *RenewalSweeper {
	return &RenewalSweeper{db: db, cfg: cfg, notifier: notifier, now: time.Now}
}

// Start launches the sweep loop; the returned function stops it.
func (w *RenewalSweeper) Start() func(context.Context) error {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(w.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				w.SweepOnce(context.Background())
			}
		}
	}()
	return func(ctx context.Context) error { close(stop); return nil }
}

// SweepOnce runs one full pass: renewals first, then reminders.
func (w *RenewalSweeper) SweepOnce(ctx context.Context) {
	now := w.now().UTC()

	var due []string
	err := w.db.WithContext(ctx).
		Model(&model.PostPolicy{}).
		Where("group_id IS NOT NULL AND next_renew_at IS NOT NULL AND next_renew_at <= ?", now).
		Pluck("post_id", &due).Error
	if err != nil {
		logger.Error("renewal scan failed", zap.Error(err))
	}
	for _, postID := range due {
		if err := w.renewOne(ctx, postID, now); err != nil {
			logger.Error("policy renewal failed",
				zap.String("post", postID), zap.Error(err))
		}
	}

	var reminders []string
	err = w.db.WithContext(ctx).
		Model(&model.PostPolicy{}).
		Where("group_id IS NOT NULL AND reminder IS NOT NULL AND next_renew_at IS NOT NULL AND next_renew_at <= ?",
			now.Add(w.cfg.ReminderLead)).
		Pluck("post_id", &reminders).Error
	if err != nil {
		logger.Error("reminder scan failed", zap.Error(err))
	}
	for _, postID := range reminders {
		if err := w.remindOne(ctx, postID, now); err != nil {
			logger.Error("policy reminder failed",
				zap.String("post", postID), zap.Error(err))
		}
	}
}

// renewOne resets acceptance for one due policy and advances its boundary
// past now, skipping any missed cycles in whole renew_days steps so the
// schedule never drifts.
func (w *RenewalSweeper) renewOne(ctx context.Context, postID string, now time.Time) error {
	return w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.PostPolicy
		if err := claimLock(tx).First(&p, "post_id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // gone or claimed by another worker
			}
			return err
		}
		if p.NextRenewAt == nil || p.NextRenewAt.After(now) {
			return nil // already processed this cycle
		}
		if p.RenewDays == nil || *p.RenewDays <= 0 {
			// schedule without recurrence cannot exist; drop it
			return tx.Model(&p).Update("next_renew_at", nil).Error
		}

		if err := repository.NewAcceptanceRepository(tx).Clear(ctx, postID); err != nil {
			return err
		}

		step := time.Duration(*p.RenewDays) * 24 * time.Hour
		next := *p.NextRenewAt
		for !next.After(now) {
			next = next.Add(step)
		}
		return tx.Model(&p).Update("next_renew_at", next).Error
	})
}

// remindOne fires the per-cycle reminder when now has entered the lead
// window before the boundary and this cycle's reminder has not gone out.
func (w *RenewalSweeper) remindOne(ctx context.Context, postID string, now time.Time) error {
	var (
		pending []string
		message string
	)
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.PostPolicy
		if err := claimLock(tx).First(&p, "post_id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if p.GroupID == nil || p.Reminder == nil || p.NextRenewAt == nil {
			return nil
		}
		remindAt := p.NextRenewAt.Add(-w.cfg.ReminderLead)
		if now.Before(remindAt) {
			return nil
		}
		if p.LastRemindedAt != nil && !p.LastRemindedAt.Before(remindAt) {
			return nil // this cycle's reminder already went out
		}

		members, err := repository.NewGroupRepository(tx).ListMemberIDs(ctx, *p.GroupID)
		if err != nil {
			return err
		}
		accepted, err := repository.NewAcceptanceRepository(tx).ListUserIDs(ctx, postID)
		if err != nil {
			return err
		}
		acceptedSet := make(map[string]struct{}, len(accepted))
		for _, id := range accepted {
			acceptedSet[id] = struct{}{}
		}
		for _, id := range members {
			if _, ok := acceptedSet[id]; !ok {
				pending = append(pending, id)
			}
		}
		message = *p.Reminder
		return tx.Model(&p).Update("last_reminded_at", now).Error
	})
	if err != nil || len(pending) == 0 {
		return err
	}

	if err := w.notifier.RemindUsers(ctx, postID, pending, message); err != nil {
		logger.Warn("reminder delivery failed",
			zap.String("post", postID), zap.Int("users", len(pending)), zap.Error(err))
	}
	return nil
}
