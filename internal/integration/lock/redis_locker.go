package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/propertyledger/backend/internal/application/adapter"
	domainerror "github.com/propertyledger/backend/internal/domain/error"
)

// RedisConfig holds configuration for the Redis locker.
type RedisConfig struct {
	Prefix        string
	TTL           time.Duration // Upper bound for one maintenance operation
	RetryInterval time.Duration
}

// DefaultRedisConfig returns the default Redis locker configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Prefix:        "ledger:balance-lock:",
		TTL:           30 * time.Second,
		RetryInterval: 50 * time.Millisecond,
	}
}

// RedisLocker serializes work on a property across processes.
type RedisLocker struct {
	locker *redislock.Client
	config RedisConfig
}

// NewRedisLocker creates a new Redis-backed locker.
func NewRedisLocker(client redis.UniversalClient, config RedisConfig) *RedisLocker {
	return &RedisLocker{
		locker: redislock.New(client),
		config: config,
	}
}

var _ adapter.PropertyLocker = (*RedisLocker)(nil)

// Lock retries until the lock is obtained, ctx is done, or the TTL elapses
// when ctx has no deadline.
func (l *RedisLocker) Lock(ctx context.Context, propertyID uuid.UUID) (func(), error) {
	key := l.config.Prefix + propertyID.String()

	lock, err := l.locker.Obtain(ctx, key, l.config.TTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.config.RetryInterval),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", domainerror.ErrLockNotObtained, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func() {
		err := lock.Release(context.Background())
		switch {
		case err == nil:
		case errors.Is(err, redislock.ErrLockNotHeld):
			slog.Warn("Property lock expired before release", "key", key, "ttl", l.config.TTL)
		default:
			slog.Warn("Failed to release property lock", "key", key, "error", err)
		}
	}, nil
}
