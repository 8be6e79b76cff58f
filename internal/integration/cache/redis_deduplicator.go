// Package cache provides the delivery deduplication stores used by the event router.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/propertyledger/backend/internal/application/adapter"
)

// RedisDeduplicator records handled deliveries as Redis keys with a TTL.
type RedisDeduplicator struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisDeduplicator creates a new Redis-backed deduplicator.
func NewRedisDeduplicator(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisDeduplicator {
	return &RedisDeduplicator{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

var _ adapter.Deduplicator = (*RedisDeduplicator)(nil)

// Claim sets the key only if absent.
func (d *RedisDeduplicator) Claim(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, d.prefix+key, time.Now().UTC().Format(time.RFC3339Nano), d.ttl).Result()
}

// Release deletes the key.
func (d *RedisDeduplicator) Release(ctx context.Context, key string) error {
	return d.client.Del(ctx, d.prefix+key).Err()
}
