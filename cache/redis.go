// Package cache holds the shared Redis connection used for response caching.
// Redis is optional: when it is absent or unreachable the catalog simply runs
// without a cache.
package cache

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 2 * time.Second

var (
	redisOnce   sync.Once
	redisClient *redis.Client
	redisErr    error
)

func optionsFromEnv() *redis.Options {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		addr = "localhost:6379"
	}
	db := 0
	if raw := strings.TrimSpace(os.Getenv("REDIS_DB")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			db = parsed
		}
	}
	return &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}
}

// GetRedisClient returns a singleton Redis client configured from REDIS_ADDR,
// REDIS_DB and REDIS_PASSWORD. The first call pings the server; when that fails
// every call yields (nil, err) and the process keeps going uncached.
func GetRedisClient() (*redis.Client, error) {
	redisOnce.Do(func() {
		opts := optionsFromEnv()
		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			redisErr = fmt.Errorf("cache: ping redis %s failed: %w", opts.Addr, err)
			_ = client.Close()
			return
		}

		redisClient = client
	})

	return redisClient, redisErr
}

// Close releases the shared connection on shutdown. Safe to call when Redis
// was never reachable.
func Close() error {
	if redisClient == nil {
		return nil
	}
	return redisClient.Close()
}
