package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/post-policy/config"
	"github.com/d60-Lab/post-policy/internal/api"
	"github.com/d60-Lab/post-policy/internal/api/handler"
	"github.com/d60-Lab/post-policy/internal/api/middleware"
	"github.com/d60-Lab/post-policy/internal/markup"
	"github.com/d60-Lab/post-policy/internal/model"
	"github.com/d60-Lab/post-policy/internal/repository"
	"github.com/d60-Lab/post-policy/internal/service"
	"github.com/d60-Lab/post-policy/pkg/database"
	"github.com/d60-Lab/post-policy/pkg/response"
)

type testEnv struct {
	db     *gorm.DB
	router http.Handler
	cfg    *config.Config
}

func newTestEnv(t *testing.T, policy config.PolicyConfig) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", Mode: "test"},
		JWT:    config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
		Policy: policy,
	}

	notifier := service.NewRedisNotifier(rdb)
	reconciler := service.NewReconciler(db, cfg.Policy)
	projector := service.NewProjector(db, rdb, cfg.Policy)
	acceptance := service.NewAcceptanceService(db, cfg.Policy, notifier)
	posts := service.NewPostService(repository.NewPostRepository(db), reconciler, projector)

	h := handler.New(cfg, acceptance, posts, repository.NewUserRepository(db))
	return &testEnv{db: db, router: api.NewRouter(cfg, h), cfg: cfg}
}

func (e *testEnv) seedPolicyPost(t *testing.T, postID string, members ...string) {
	t.Helper()
	for _, m := range members {
		u := model.User{ID: m, Username: m, Email: m + "@example.com", Password: "x"}
		require.NoError(t, e.db.Create(&u).Error)
	}
	g := model.Group{ID: "g-" + postID, Name: "g-" + postID}
	require.NoError(t, e.db.Create(&g).Error)
	groups := repository.NewGroupRepository(e.db)
	for _, m := range members {
		require.NoError(t, groups.AddMember(context.Background(), g.ID, m))
	}
	post := model.Post{ID: postID, AuthorID: members[0]}
	require.NoError(t, e.db.Create(&post).Error)

	r := service.NewReconciler(e.db, e.cfg.Policy)
	require.NoError(t, r.Reconcile(context.Background(), postID,
		&markup.Declaration{Group: g.Name}))
}

func (e *testEnv) put(t *testing.T, path, userID string, body any) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := middleware.IssueToken(e.cfg.JWT.Secret, userID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var res response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return rec, res
}

func defaultTestPolicy() config.PolicyConfig {
	return config.PolicyConfig{
		Enabled:       true,
		MaxGroupSize:  50,
		SweepInterval: time.Hour,
		ReminderLead:  24 * time.Hour,
	}
}

func TestAcceptEndpoint(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedPolicyPost(t, "p1", "alice")

	rec, res := env.put(t, "/api/v1/policy/accept", "alice", map[string]string{"post_id": "p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, res.Success)

	ids, err := repository.NewAcceptanceRepository(env.db).ListUserIDs(context.Background(), "p1")
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, ids)

	rec, res = env.put(t, "/api/v1/policy/unaccept", "alice", map[string]string{"post_id": "p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, res.Success)

	ids, err = repository.NewAcceptanceRepository(env.db).ListUserIDs(context.Background(), "p1")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestAcceptEndpointDomainFailureIs200(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedPolicyPost(t, "p1", "alice")

	u := model.User{ID: "mallory", Username: "mallory", Email: "m@example.com", Password: "x"}
	require.NoError(t, env.db.Create(&u).Error)

	rec, res := env.put(t, "/api/v1/policy/accept", "mallory", map[string]string{"post_id": "p1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, res.Success)
	require.NotEmpty(t, res.Error)
}

func TestAcceptEndpointNotFoundCases(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedPolicyPost(t, "p1", "alice")

	rec, _ := env.put(t, "/api/v1/policy/accept", "alice", map[string]string{"post_id": "nope"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	disabled := defaultTestPolicy()
	disabled.Enabled = false
	env = newTestEnv(t, disabled)
	env.seedPolicyPost(t, "p2", "bob")
	rec, _ = env.put(t, "/api/v1/policy/accept", "bob", map[string]string{"post_id": "p2"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcceptEndpointRequiresAuth(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedPolicyPost(t, "p1", "alice")

	rec, _ := env.put(t, "/api/v1/policy/accept", "", map[string]string{"post_id": "p1"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAcceptEndpointValidatesBody(t *testing.T) {
	env := newTestEnv(t, defaultTestPolicy())
	env.seedPolicyPost(t, "p1", "alice")

	rec, _ := env.put(t, "/api/v1/policy/accept", "alice", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
