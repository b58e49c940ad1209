package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	modelsCacheTTL     = 30 * time.Second
	modelsCacheTimeout = 300 * time.Millisecond
	modelsCacheVersion = "catalog:models:ver"
)

// ModelCache caches rendered /api/models payloads in Redis. Every write path
// bumps a version counter baked into the keys, so invalidation never scans.
// A nil cache is fully functional and does nothing.
type ModelCache struct {
	client *redis.Client
	log    *zap.Logger
}

func NewModelCache(client *redis.Client, log *zap.Logger) *ModelCache {
	if client == nil {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ModelCache{client: client, log: log}
}

func (c *ModelCache) cacheContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), modelsCacheTimeout)
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= modelsCacheTimeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, modelsCacheTimeout)
}

func (c *ModelCache) key(ctx context.Context, category string, activeOnly bool) string {
	version, err := c.client.Get(ctx, modelsCacheVersion).Int64()
	if err != nil && err != redis.Nil {
		return ""
	}
	return fmt.Sprintf("catalog:models:%d:%s:%t", version, category, activeOnly)
}

// GetModels returns a cached payload and whether it was present.
func (c *ModelCache) GetModels(ctx context.Context, category string, activeOnly bool) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	ctx, cancel := c.cacheContext(ctx)
	defer cancel()

	key := c.key(ctx, category, activeOnly)
	if key == "" {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// StoreModels caches a payload under the current version.
func (c *ModelCache) StoreModels(ctx context.Context, category string, activeOnly bool, payload []byte) {
	if c == nil || c.client == nil {
		return
	}

	ctx, cancel := c.cacheContext(ctx)
	defer cancel()

	key := c.key(ctx, category, activeOnly)
	if key == "" {
		return
	}
	if err := c.client.Set(ctx, key, payload, modelsCacheTTL).Err(); err != nil {
		c.log.Debug("model cache store failed", zap.Error(err))
	}
}

// InvalidateModels drops every cached listing by bumping the version counter.
func (c *ModelCache) InvalidateModels(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}

	ctx, cancel := c.cacheContext(ctx)
	defer cancel()

	if err := c.client.Incr(ctx, modelsCacheVersion).Err(); err != nil {
		c.log.Debug("model cache invalidation failed", zap.Error(err))
	}
}
