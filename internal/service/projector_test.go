package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/post-policy/internal/markup"
	"github.com/d60-Lab/post-policy/internal/model"
	"github.com/d60-Lab/post-policy/internal/repository"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestProjectPartitionsMembers(t *testing.T) {
	db := setupDB(t)
	rdb := setupRedis(t)
	seedUser(t, db, "alice", false)
	seedUser(t, db, "bob", false)
	seedGroup(t, db, "staff", "alice", "bob")
	seedPost(t, db, "p1", "alice")
	ctx := context.Background()

	r := NewReconciler(db, testPolicyConfig())
	require.NoError(t, r.Reconcile(ctx, "p1", &markup.Declaration{Group: "staff"}))
	require.NoError(t, repository.NewAcceptanceRepository(db).Add(ctx, "p1", "alice", "1"))

	p := NewProjector(db, rdb, testPolicyConfig())
	view, err := p.Project(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, view)
	require.Len(t, view.AcceptedBy, 1)
	require.Equal(t, "alice", view.AcceptedBy[0].Username)
	require.Len(t, view.NotAcceptedBy, 1)
	require.Equal(t, "bob", view.NotAcceptedBy[0].Username)

	// second read comes from the snapshot cache and agrees
	again, err := p.Project(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, again.AcceptedBy, 1)
	require.Equal(t, view.AcceptedBy[0], again.AcceptedBy[0])
	require.Len(t, again.NotAcceptedBy, 1)
}

func TestProjectReflectsFreshLedgerState(t *testing.T) {
	db := setupDB(t)
	rdb := setupRedis(t)
	seedUser(t, db, "alice", false)
	seedGroup(t, db, "staff", "alice")
	seedPost(t, db, "p1", "alice")
	ctx := context.Background()

	r := NewReconciler(db, testPolicyConfig())
	require.NoError(t, r.Reconcile(ctx, "p1", &markup.Declaration{Group: "staff"}))

	p := NewProjector(db, rdb, testPolicyConfig())
	view, err := p.Project(ctx, "p1")
	require.NoError(t, err)
	require.Empty(t, view.AcceptedBy)

	// only user snapshots are cached; acceptance is re-read every time
	require.NoError(t, repository.NewAcceptanceRepository(db).Add(ctx, "p1", "alice", "1"))
	view, err = p.Project(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, view.AcceptedBy, 1)
	require.Empty(t, view.NotAcceptedBy)
}

func TestProjectNoBoundGroup(t *testing.T) {
	db := setupDB(t)
	rdb := setupRedis(t)
	seedUser(t, db, "alice", false)
	seedPost(t, db, "p1", "alice")
	ctx := context.Background()

	p := NewProjector(db, rdb, testPolicyConfig())
	view, err := p.Project(ctx, "p1")
	require.NoError(t, err)
	require.Nil(t, view)
}

func TestProjectDisplayCap(t *testing.T) {
	db := setupDB(t)
	rdb := setupRedis(t)
	seedUser(t, db, "alice", false)
	seedGroup(t, db, "staff", "alice")
	seedPost(t, db, "p1", "alice")
	ctx := context.Background()

	r := NewReconciler(db, testPolicyConfig())
	require.NoError(t, r.Reconcile(ctx, "p1", &markup.Declaration{Group: "staff"}))

	var g model.Group
	require.NoError(t, db.First(&g, "name = ?", "staff").Error)
	require.NoError(t, db.Model(&g).Update("user_count", 50).Error)

	p := NewProjector(db, rdb, testPolicyConfig()) // cap 50, projected only below it
	view, err := p.Project(ctx, "p1")
	require.NoError(t, err)
	require.Nil(t, view)
}
