package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRedisNotifierPublishChange(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "post:p1")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	n := NewRedisNotifier(rdb)
	require.NoError(t, n.PublishChange(ctx, "p1"))

	select {
	case m := <-sub.Channel():
		var ev struct {
			Type   string `json:"type"`
			PostID string `json:"post_id"`
		}
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &ev))
		require.Equal(t, "policy_change", ev.Type)
		require.Equal(t, "p1", ev.PostID)
	case <-time.After(time.Second):
		t.Fatal("no change event delivered")
	}
}

func TestRedisNotifierRemindUsers(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "user:bob")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewRedisNotifier(rdb)
	require.NoError(t, n.RemindUsers(ctx, "p1", []string{"bob"}, "renew soon"))

	select {
	case m := <-sub.Channel():
		var ev struct {
			Type    string `json:"type"`
			PostID  string `json:"post_id"`
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &ev))
		require.Equal(t, "policy_reminder", ev.Type)
		require.Equal(t, "p1", ev.PostID)
		require.Equal(t, "renew soon", ev.Message)
	case <-time.After(time.Second):
		t.Fatal("no reminder delivered")
	}
}
