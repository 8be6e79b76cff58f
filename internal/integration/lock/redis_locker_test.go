package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLocker(client, RedisConfig{
		Prefix:        "test:lock:",
		TTL:           time.Second,
		RetryInterval: 5 * time.Millisecond,
	}), server
}

func TestRedisLocker_LockAndRelease(t *testing.T) {
	l, server := newRedisLocker(t)
	property := uuid.New()

	unlock, err := l.Lock(context.Background(), property)
	require.NoError(t, err)
	assert.True(t, server.Exists("test:lock:"+property.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, property)
	require.Error(t, err)

	unlock()
	assert.False(t, server.Exists("test:lock:"+property.String()))

	unlock, err = l.Lock(context.Background(), property)
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_IndependentKeys(t *testing.T) {
	l, _ := newRedisLocker(t)

	unlockA, err := l.Lock(context.Background(), uuid.New())
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := l.Lock(context.Background(), uuid.New())
	require.NoError(t, err)
	unlockB()
}
