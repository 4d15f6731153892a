package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares reservations across instances with SET NX PX. Expiry is
// Redis's own clock, so the now argument is unused.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Reserve(ctx context.Context, key string, ttl time.Duration, _ time.Time) (bool, error) {
	return s.client.SetNX(ctx, key, 1, ttl).Result()
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
