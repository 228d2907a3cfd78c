package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Notifier delivers policy events to connected observers. Delivery is
// fire-and-forget: callers never roll back state on a failed publish.
type Notifier interface {
	// PublishChange tells observers of a post that its policy acceptance
	// state changed.
	PublishChange(ctx context.Context, postID string) error
	// RemindUsers nudges members who have not accepted a post's policy.
	RemindUsers(ctx context.Context, postID string, userIDs []string, message string) error
}

type policyEvent struct {
	Type    string `json:"type"`
	PostID  string `json:"post_id"`
	Message string `json:"message,omitempty"`
}

// RedisNotifier publishes events on redis pub/sub channels: per-post
// channels for observers, per-user channels for reminders.
type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier { return &RedisNotifier{rdb: rdb} }

func (n *RedisNotifier) PublishChange(ctx context.Context, postID string) error {
	payload, err := json.Marshal(policyEvent{Type: "policy_change", PostID: postID})
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, postChannel(postID), payload).Err()
}

func (n *RedisNotifier) RemindUsers(ctx context.Context, postID string, userIDs []string, message string) error {
	payload, err := json.Marshal(policyEvent{Type: "policy_reminder", PostID: postID, Message: message})
	if err != nil {
		return err
	}
	pipe := n.rdb.Pipeline()
	for _, id := range userIDs {
		pipe.Publish(ctx, userChannel(id), payload)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func postChannel(postID string) string { return fmt.Sprintf("post:%s", postID) }
func userChannel(userID string) string { return fmt.Sprintf("user:%s", userID) }
