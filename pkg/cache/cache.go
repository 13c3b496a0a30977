// Package cache is a thin JSON cache over Redis. A nil client turns every
// operation into a miss or no-op, so callers never branch on whether Redis
// is configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"lessonbook/pkg/logger"
)

type Cache struct {
	client *redis.Client
	log    *logger.Logger
}

func New(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{
		client: client,
		log:    log,
	}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) GetJSON(ctx context.Context, key string, v any) bool {
	if !c.Enabled() {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("Cache read failed, treating as miss", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		c.log.Warn("Cache entry corrupt, treating as miss", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("Failed to encode cache entry", "key", key, "error", err)
		return
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.log.Warn("Cache write failed", "key", key, "error", err)
	}
}

// DeleteByPattern drops every key matching the glob pattern. Slot entries
// are keyed per tutor, so booking-path mutations flush one tutor's entries
// without touching the rest.
func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) {
	if !c.Enabled() {
		return
	}

	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		c.log.Warn("Cache invalidation scan failed", "pattern", pattern, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("Cache invalidation delete failed", "pattern", pattern, "error", err)
	}
}
