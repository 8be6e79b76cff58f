package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduplicator(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	d := NewMemoryDeduplicator(time.Minute)
	d.now = func() time.Time { return now }

	claimed, err := d.Claim(ctx, "ledger-event:1:balance")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = d.Claim(ctx, "ledger-event:1:balance")
	require.NoError(t, err)
	assert.False(t, claimed)

	claimed, err = d.Claim(ctx, "ledger-event:1:rollup")
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, d.Release(ctx, "ledger-event:1:balance"))
	claimed, err = d.Claim(ctx, "ledger-event:1:balance")
	require.NoError(t, err)
	assert.True(t, claimed)

	now = now.Add(time.Minute)
	claimed, err = d.Claim(ctx, "ledger-event:1:rollup")
	require.NoError(t, err)
	assert.True(t, claimed, "claims expire after the TTL")
}

func TestMemoryDeduplicator_NoTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	d := NewMemoryDeduplicator(0)
	d.now = func() time.Time { return now }

	claimed, err := d.Claim(ctx, "k")
	require.NoError(t, err)
	require.True(t, claimed)

	now = now.Add(24 * 365 * time.Hour)
	claimed, err = d.Claim(ctx, "k")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestRedisDeduplicator(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	d := NewRedisDeduplicator(client, "ledger:dedup:", time.Hour)

	claimed, err := d.Claim(ctx, "ledger-event:1:balance")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.True(t, server.Exists("ledger:dedup:ledger-event:1:balance"))

	claimed, err = d.Claim(ctx, "ledger-event:1:balance")
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, d.Release(ctx, "ledger-event:1:balance"))
	claimed, err = d.Claim(ctx, "ledger-event:1:balance")
	require.NoError(t, err)
	assert.True(t, claimed)

	server.FastForward(time.Hour)
	claimed, err = d.Claim(ctx, "ledger-event:1:balance")
	require.NoError(t, err)
	assert.True(t, claimed, "claims expire with the key TTL")
}
