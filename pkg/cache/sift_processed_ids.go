package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"sift_server/core/port/out"
)

const processedKeyPrefix = "sift:processed:"

// ProcessedIDCache implements out.ProcessedIDCache on Redis. Each processed
// message id is a key with a TTL, so dedupe memory ages out on its own.
type ProcessedIDCache struct {
	cache *RedisCache
}

// NewProcessedIDCache creates the dedupe cache.
func NewProcessedIDCache(cache *RedisCache) *ProcessedIDCache {
	return &ProcessedIDCache{cache: cache}
}

// IsProcessed reports whether the message id was seen recently.
func (c *ProcessedIDCache) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	_, err := c.cache.Get(ctx, processedKeyPrefix+messageID)
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkProcessed remembers the message id for the given TTL.
func (c *ProcessedIDCache) MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	return c.cache.Set(ctx, processedKeyPrefix+messageID, "1", ttl)
}

// Ensure ProcessedIDCache implements out.ProcessedIDCache
var _ out.ProcessedIDCache = (*ProcessedIDCache)(nil)
