package mock

import (
	"context"
	"sync"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var redisConnOnce sync.Once
var redisConn *redis.Client
var redisServer *miniredis.Miniredis

// NewRedis returns a client connected to a shared miniredis server.
func NewRedis() *redis.Client {
	redisConnOnce.Do(func() {
		redisServer, redisConn = openRedisConn()
	})
	return redisConn
}

func openRedisConn() (*miniredis.Miniredis, *redis.Client) {
	server, err := miniredis.Run()
	if err != nil {
		panic(err)
	}

	conn := redis.NewClient(
		&redis.Options{
			Addr: server.Addr(),
		},
	)

	return server, conn
}

// ClearRedis drops every key, including dedup markers and stale locks.
func ClearRedis(conn *redis.Client) error {
	return conn.FlushAll(context.TODO()).Err()
}

// CloseRedis shuts down the shared server.
func CloseRedis() {
	if redisConn != nil {
		_ = redisConn.Close()
	}
	if redisServer != nil {
		redisServer.Close()
	}
}
