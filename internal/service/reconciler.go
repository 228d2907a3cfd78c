package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/post-policy/config"
	"github.com/d60-Lab/post-policy/internal/markup"
	"github.com/d60-Lab/post-policy/internal/model"
	"github.com/d60-Lab/post-policy/internal/repository"
)

// Reconciler is the policy state-transition engine. It runs once per post
// render against the freshly parsed declaration and brings the stored
// PostPolicy, the acceptance ledger and the post's has_policy marker in
// line with it. All mutation happens in one per-post transaction.
type Reconciler struct {
	db  *gorm.DB
	cfg config.PolicyConfig
	now func() time.Time
}

func NewReconciler(db *gorm.DB, cfg config.PolicyConfig) *Reconciler {
	return &Reconciler{db: db, cfg: cfg, now: time.Now}
}

// Reconcile applies decl (nil when the cooked content carries no policy
// marker) to the post's policy state. A declaration whose group does not
// resolve is treated the same as no declaration: the previous policy, if
// any, is torn down.
func (r *Reconciler) Reconcile(ctx context.Context, postID string, decl *markup.Declaration) error {
	now := r.now().UTC()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.Post
		if err := forUpdate(tx).First(&post, "id = ?", postID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPostNotFound
			}
			return err
		}

		policies := repository.NewPolicyRepository(tx)
		ledger := repository.NewAcceptanceRepository(tx)
		groups := repository.NewGroupRepository(tx)
		posts := repository.NewPostRepository(tx)

		existing, err := policies.Get(ctx, postID)
		if err != nil {
			return err
		}

		hasGroup := false
		if decl != nil && r.staffGateOpen(tx, &post) {
			policy := existing
			if policy == nil {
				policy = &model.PostPolicy{ID: uuid.New().String(), PostID: postID}
			}

			if decl.Group != "" {
				group, err := groups.GetByName(ctx, decl.Group)
				if err != nil {
					return err
				}
				if group != nil {
					policy.GroupID = &group.ID
					hasGroup = true
				}
			}

			if decl.RenewDays > 0 {
				days := decl.RenewDays
				policy.RenewDays = &days
				policy.RenewStart = nil
				if decl.RenewStart != nil {
					start := *decl.RenewStart
					policy.RenewStart = &start
					// never leave the next boundary behind a new start date
					if policy.NextRenewAt == nil || policy.NextRenewAt.Before(start) {
						policy.NextRenewAt = &start
					}
				}
			} else {
				// no recurrence, no schedule
				policy.RenewDays = nil
				policy.RenewStart = nil
				policy.NextRenewAt = nil
			}

			if decl.Version != "" && decl.Version != policy.EffectiveVersion() {
				// changed policy text requires re-acceptance: hard reset
				if err := ledger.Clear(ctx, postID); err != nil {
					return err
				}
				// adopted in memory only; the record persists below iff a
				// group bound, so an unresolvable group never creates one
				policy.Version = decl.Version
			}

			if decl.Reminder != "" {
				reminder := decl.Reminder
				policy.Reminder = &reminder
				// first-seen timestamp is sticky; only the sweeper moves it
				if policy.LastRemindedAt == nil {
					policy.LastRemindedAt = &now
				}
			}

			if hasGroup {
				if !post.HasPolicy {
					if err := posts.SetHasPolicy(ctx, postID, true); err != nil {
						return err
					}
				}
				if err := policies.Upsert(ctx, policy); err != nil {
					return err
				}
			}
		}

		if !hasGroup && (post.HasPolicy || existing != nil) {
			if err := posts.SetHasPolicy(ctx, postID, false); err != nil {
				return err
			}
			if err := policies.Delete(ctx, postID); err != nil {
				return err
			}
		}
		return nil
	})
}

// staffGateOpen reports whether declarations on this post may take effect
// under the restrict_to_staff_posts setting.
func (r *Reconciler) staffGateOpen(tx *gorm.DB, post *model.Post) bool {
	if !r.cfg.RestrictToStaffPosts {
		return true
	}
	var author model.User
	if err := tx.Select("staff").First(&author, "id = ?", post.AuthorID).Error; err != nil {
		return false
	}
	return author.Staff
}
