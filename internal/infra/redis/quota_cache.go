package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"storefront-automation/internal/domain/model"
	"storefront-automation/internal/infra/metrics"
	"storefront-automation/internal/usecase"
)

var _ usecase.QuotaCache = (*QuotaCache)(nil)

// QuotaCache caches resolved quota snapshots per account. Short TTL plus
// invalidate-on-write: creation, deletion and checkout confirmation all drop
// the entry, so a stale snapshot can only be seen between unrelated reads.
type QuotaCache struct {
	cache RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewQuotaCache(cache RedisClient, ttl time.Duration, logger *zerolog.Logger) *QuotaCache {
	cLog := logger.With().Str("component", "QuotaCache").Logger()
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &QuotaCache{cache: cache, ttl: ttl, log: &cLog}
}

func quotaKey(accountID string) string { return fmt.Sprintf("quota:%s", accountID) }

func (c *QuotaCache) Get(ctx context.Context, accountID string) (*model.Quota, bool) {
	val, err := c.cache.Get(ctx, quotaKey(accountID))
	if err != nil {
		if err != redis.Nil {
			c.log.Warn().Err(err).Msg("quota cache read failed")
		}
		metrics.IncCacheRequest("quota", "miss")
		return nil, false
	}
	var q model.Quota
	if err := json.Unmarshal([]byte(val), &q); err != nil {
		metrics.IncCacheRequest("quota", "miss")
		return nil, false
	}
	metrics.IncCacheRequest("quota", "hit")
	return &q, true
}

func (c *QuotaCache) Set(ctx context.Context, accountID string, q *model.Quota) {
	b, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, quotaKey(accountID), b, c.ttl); err != nil {
		c.log.Warn().Err(err).Msg("quota cache write failed")
	}
}

func (c *QuotaCache) Invalidate(ctx context.Context, accountID string) {
	if err := c.cache.Del(ctx, quotaKey(accountID)); err != nil {
		c.log.Warn().Err(err).Msg("quota cache invalidate failed")
	}
}
