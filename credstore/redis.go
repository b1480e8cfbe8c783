package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores values as plain Redis strings under prefix.
type RedisBackend struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisBackend returns a backend over redisClient. An empty prefix
// defaults to "thunder".
func NewRedisBackend(redisClient redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "thunder"
	}
	return &RedisBackend{redis: redisClient, prefix: prefix}
}

func (b *RedisBackend) key(k string) string {
	return b.prefix + ":" + k
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := b.redis.Get(ctx, b.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return v, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	if err := b.redis.Set(ctx, b.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.redis.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
