package di

import (
	"github.com/redis/go-redis/v9"

	"market_data/internal/platform/cache"
	infraredis "market_data/internal/platform/redis"
)

// NewCandleCache creates the candle cache.
// If Redis is unavailable (rdb == nil), every cache operation is a no-op and
// reads fall through to the store.
func NewCandleCache(rdb *redis.Client, cfg infraredis.Config, m cache.Metrics) *cache.CandleCache {
	c := cache.NewCandleCache(rdb, cfg.TTL, cfg.Namespace)
	if m != nil {
		c.WithMetrics(m)
	}
	return c
}
