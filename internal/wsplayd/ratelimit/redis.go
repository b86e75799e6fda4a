package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis, so limits hold across daemon restarts
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed rate limit store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// keyStr converts a LimitKey to a Redis key
func (s *RedisStore) keyStr(key LimitKey) string {
	return fmt.Sprintf("rate:%s:%s", key.Type, key.RemoteIP)
}

// Increment implements Store
func (s *RedisStore) Increment(ctx context.Context, key LimitKey, limit Limit) (int, error) {
	redisKey := s.keyStr(key)

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreError, err)
	}

	// The first hit opens the window
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, limit.Period).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStoreError, err)
		}
	}

	return int(count), nil
}

// Reset implements Store
func (s *RedisStore) Reset(ctx context.Context, key LimitKey) error {
	if err := s.client.Del(ctx, s.keyStr(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreError, err)
	}
	return nil
}
