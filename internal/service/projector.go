package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/d60-Lab/post-policy/config"
	"github.com/d60-Lab/post-policy/internal/model"
	"github.com/d60-Lab/post-policy/internal/repository"
)

// MemberSnapshot is the minimal user info shown in acceptance lists.
type MemberSnapshot struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// PolicyView partitions the policy group's members by acceptance state.
type PolicyView struct {
	AcceptedBy    []MemberSnapshot `json:"policy_accepted_by"`
	NotAcceptedBy []MemberSnapshot `json:"policy_not_accepted_by"`
}

// Projector builds the read-side acceptance view. Group membership and
// ledger entries are read fresh from the database on every call; only the
// per-user display snapshots go through redis, with snapshotTTL as the
// documented staleness bound.
type Projector struct {
	db    *gorm.DB
	cache *redis.Client
	cfg   config.PolicyConfig

	snapshotTTL time.Duration
}

func NewProjector(db *gorm.DB, cache *redis.Client, cfg config.PolicyConfig) *Projector {
	return &Projector{db: db, cache: cache, cfg: cfg, snapshotTTL: 5 * time.Minute}
}

// Project returns nil (no error) when the post has no bound policy group or
// the group exceeds the display size cap.
func (p *Projector) Project(ctx context.Context, postID string) (*PolicyView, error) {
	posts := repository.NewPostRepository(p.db)
	post, err := posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || !post.HasPolicy {
		return nil, nil
	}

	policy, err := repository.NewPolicyRepository(p.db).Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if policy == nil || policy.GroupID == nil {
		return nil, nil
	}

	groups := repository.NewGroupRepository(p.db)
	group, err := groups.GetByID(ctx, *policy.GroupID)
	if err != nil {
		return nil, err
	}
	if group == nil || group.UserCount >= int64(p.cfg.MaxGroupSize) {
		return nil, nil
	}

	memberIDs, err := groups.ListMemberIDs(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	acceptedIDs, err := repository.NewAcceptanceRepository(p.db).ListUserIDs(ctx, postID)
	if err != nil {
		return nil, err
	}

	snapshots, err := p.loadUsers(ctx, memberIDs)
	if err != nil {
		return nil, err
	}

	acceptedSet := make(map[string]struct{}, len(acceptedIDs))
	for _, id := range acceptedIDs {
		acceptedSet[id] = struct{}{}
	}

	view := &PolicyView{
		AcceptedBy:    []MemberSnapshot{},
		NotAcceptedBy: []MemberSnapshot{},
	}
	for _, id := range memberIDs {
		snap, ok := snapshots[id]
		if !ok {
			continue
		}
		if _, accepted := acceptedSet[id]; accepted {
			view.AcceptedBy = append(view.AcceptedBy, snap)
		} else {
			view.NotAcceptedBy = append(view.NotAcceptedBy, snap)
		}
	}
	return view, nil
}

// loadUsers resolves display snapshots through the redis cache, bulk
// loading misses from the database and writing them back with a TTL.
func (p *Projector) loadUsers(ctx context.Context, ids []string) (map[string]MemberSnapshot, error) {
	out := make(map[string]MemberSnapshot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = snapshotKey(id)
	}
	if vals, err := p.cache.MGet(ctx, keys...).Result(); err == nil {
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				continue
			}
			var snap MemberSnapshot
			if uErr := json.Unmarshal([]byte(str), &snap); uErr == nil {
				out[ids[i]] = snap
			}
		}
	}

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	var users []model.User
	if err := p.db.WithContext(ctx).Where("id IN ?", missing).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		snap := MemberSnapshot{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
		out[u.ID] = snap
		if payload, err := json.Marshal(snap); err == nil {
			_ = p.cache.Set(ctx, snapshotKey(u.ID), payload, p.snapshotTTL).Err()
		}
	}
	return out, nil
}

func snapshotKey(userID string) string { return fmt.Sprintf("user:snapshot:%s", userID) }
