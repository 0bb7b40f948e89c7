package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// UnreadStore tracks per-user unread message counters. The counters feed
// badge notifications only; engine invariants never read them, so a lost
// counter degrades to a stale badge until the client refetches.
type UnreadStore interface {
	Increment(ctx context.Context, userID, grievanceID string) (int64, error)
	Clear(ctx context.Context, userID, grievanceID string) error
	Get(ctx context.Context, userID, grievanceID string) (int64, error)
}

type redisUnreadStore struct {
	client *redis.Client
}

// NewRedisUnreadStore builds a Redis-backed unread counter store.
func NewRedisUnreadStore(client *redis.Client) UnreadStore {
	return &redisUnreadStore{client: client}
}

func unreadKey(userID, grievanceID string) string {
	return fmt.Sprintf("unread:%s:%s", userID, grievanceID)
}

func (s *redisUnreadStore) Increment(ctx context.Context, userID, grievanceID string) (int64, error) {
	return s.client.Incr(ctx, unreadKey(userID, grievanceID)).Result()
}

func (s *redisUnreadStore) Clear(ctx context.Context, userID, grievanceID string) error {
	return s.client.Del(ctx, unreadKey(userID, grievanceID)).Err()
}

func (s *redisUnreadStore) Get(ctx context.Context, userID, grievanceID string) (int64, error) {
	val, err := s.client.Get(ctx, unreadKey(userID, grievanceID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}
