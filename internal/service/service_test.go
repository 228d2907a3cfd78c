package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/post-policy/config"
	"github.com/d60-Lab/post-policy/internal/model"
	"github.com/d60-Lab/post-policy/internal/repository"
	"github.com/d60-Lab/post-policy/pkg/database"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func testPolicyConfig() config.PolicyConfig {
	return config.PolicyConfig{
		Enabled:       true,
		MaxGroupSize:  50,
		SweepInterval: time.Hour,
		ReminderLead:  24 * time.Hour,
	}
}

func seedUser(t *testing.T, db *gorm.DB, id string, staff bool) {
	t.Helper()
	u := model.User{
		ID: id, Username: id, Email: id + "@example.com",
		Password: "x", Staff: staff,
	}
	require.NoError(t, db.Create(&u).Error)
}

func seedGroup(t *testing.T, db *gorm.DB, name string, memberIDs ...string) *model.Group {
	t.Helper()
	g := &model.Group{ID: uuid.New().String(), Name: name}
	require.NoError(t, db.Create(g).Error)
	groups := repository.NewGroupRepository(db)
	for _, id := range memberIDs {
		require.NoError(t, groups.AddMember(context.Background(), g.ID, id))
	}
	return g
}

func seedPost(t *testing.T, db *gorm.DB, id, authorID string) {
	t.Helper()
	p := model.Post{ID: id, AuthorID: authorID}
	require.NoError(t, db.Create(&p).Error)
}

func getPolicy(t *testing.T, db *gorm.DB, postID string) *model.PostPolicy {
	t.Helper()
	p, err := repository.NewPolicyRepository(db).Get(context.Background(), postID)
	require.NoError(t, err)
	return p
}

func acceptedUsers(t *testing.T, db *gorm.DB, postID string) []string {
	t.Helper()
	ids, err := repository.NewAcceptanceRepository(db).ListUserIDs(context.Background(), postID)
	require.NoError(t, err)
	return ids
}

func postHasPolicy(t *testing.T, db *gorm.DB, postID string) bool {
	t.Helper()
	var post model.Post
	require.NoError(t, db.First(&post, "id = ?", postID).Error)
	return post.HasPolicy
}

// fakeNotifier records deliveries for assertions.
type fakeNotifier struct {
	changes   []string
	reminders map[string][]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{reminders: make(map[string][]string)}
}

func (f *fakeNotifier) PublishChange(_ context.Context, postID string) error {
	f.changes = append(f.changes, postID)
	return nil
}

func (f *fakeNotifier) RemindUsers(_ context.Context, postID string, userIDs []string, _ string) error {
	f.reminders[postID] = append(f.reminders[postID], userIDs...)
	return nil
}
