package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, LockBackendMemory, cfg.Maintenance.LockBackend)
	assert.Equal(t, TransportInProcess, cfg.Events.Transport)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, time.Duration(0), cfg.Reconciliation.Interval)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ADMIN_RATE_LIMIT_ENABLED", "false")
	t.Setenv("BALANCE_SHARDS", "32")
	t.Setenv("LOCK_BACKEND", LockBackendRedis)
	t.Setenv("EVENT_TRANSPORT", TransportKafka)
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("RECONCILE_INTERVAL", "15m")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 32, cfg.Maintenance.BalanceShards)
	assert.Equal(t, LockBackendRedis, cfg.Maintenance.LockBackend)
	assert.Equal(t, TransportKafka, cfg.Events.Transport)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, 15*time.Minute, cfg.Reconciliation.Interval)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("ADMIN_RATE_LIMIT_ENABLED", "maybe")
	t.Setenv("LOCK_TTL", "forever")
	t.Setenv("KAFKA_BROKERS", "   ")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Maintenance.LockTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.KafkaBrokers)
}
