package adaptors

import (
	"context"
	"time"

	"site_auditor/internal/pkg/errors"

	"github.com/redis/go-redis/v9"
)

const DefaultCacheTTL = 24 * time.Hour

// RedisCache keeps judgment responses in Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// Ping checks the connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, `failed to reach redis`)
	}
	return nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return ``, false, nil
	}
	if err != nil {
		return ``, false, errors.Wrap(err, `failed to read cache`)
	}
	return v, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value string) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return errors.Wrap(err, `failed to write cache`)
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
