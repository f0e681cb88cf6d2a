package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Cache is a thin JSON layer over redis used for tenant-keyed read
// caches. All methods degrade to no-ops when redis is absent, so the
// services never branch on cache availability.
type Cache struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// New creates a cache over the shared redis client. A nil client
// disables caching.
func New(rdb *redis.Client, logger *zap.Logger) *Cache {
	return &Cache{rdb: rdb, logger: logger}
}

// GetJSON loads and decodes a cached value. Returns false on miss or
// any error; cache failures never fail the request.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("cache decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores a value with a TTL
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes keys synchronously; mutations call this before their
// transaction returns to the caller.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.rdb == nil || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// PipelineListKey caches the tenant's pipeline list
func PipelineListKey(orgID uuid.UUID) string {
	return fmt.Sprintf("crm:pipelines:%s", orgID)
}

// PipelineStagesKey caches one pipeline's ordered stages
func PipelineStagesKey(orgID, pipelineID uuid.UUID) string {
	return fmt.Sprintf("crm:pipelines:%s:stages:%s", orgID, pipelineID)
}

// ActivityStatsKey caches a user's activity workload summary
func ActivityStatsKey(orgID, userID uuid.UUID) string {
	return fmt.Sprintf("crm:activitystats:%s:%s", orgID, userID)
}
