// Package cache provides the Redis-backed candle cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"market_data/internal/feature/candles/domain/entity"
	"market_data/internal/feature/candles/usecase"
)

const (
	latestSuffix = "latest"
	scanCount    = 200
)

// Metrics receives cache lookup outcomes ("hit", "miss", "error").
type Metrics interface {
	CacheResult(result string)
}

// CandleCache stores candles in Redis under
//
//	<namespace>:<symbol>:<interval>:latest   newest candle for the pair
//	<namespace>:<symbol>:<interval>:<ms>     candle at a specific timestamp
//
// A nil client turns every operation into a no-op miss, so callers can run
// without Redis.
type CandleCache struct {
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	metrics   Metrics
}

var _ usecase.CandleCache = (*CandleCache)(nil)

// NewCandleCache creates a CandleCache. ttl <= 0 stores entries without
// expiry. If namespace is empty, it uses "candles".
func NewCandleCache(rdb *redis.Client, ttl time.Duration, namespace string) *CandleCache {
	if ttl < 0 {
		ttl = 0
	}
	if namespace == "" {
		namespace = "candles"
	}
	return &CandleCache{
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// WithMetrics attaches a lookup-outcome recorder.
func (c *CandleCache) WithMetrics(m Metrics) *CandleCache {
	c.metrics = m
	return c
}

// Get returns the point entry for at, or the latest entry when at is zero.
// A miss is (zero, false, nil).
func (c *CandleCache) Get(ctx context.Context, symbol string, interval entity.Interval, at time.Time) (entity.Candle, bool, error) {
	if c.rdb == nil {
		return entity.Candle{}, false, nil
	}

	key := c.latestKey(symbol, interval)
	if !at.IsZero() {
		key = c.pointKey(symbol, interval, at)
	}

	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.record("miss")
		return entity.Candle{}, false, nil
	}
	if err != nil {
		c.record("error")
		return entity.Candle{}, false, err
	}

	var out entity.Candle
	if err := json.Unmarshal(b, &out); err != nil {
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
		c.record("miss")
		return entity.Candle{}, false, nil
	}
	c.record("hit")
	return out, true, nil
}

// Set writes both the point entry and the latest entry in one transaction.
func (c *CandleCache) Set(ctx context.Context, cd entity.Candle) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(cd)
	if err != nil {
		return err
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, c.pointKey(cd.Symbol, cd.Interval, cd.Time), b, c.ttl)
	pipe.Set(ctx, c.latestKey(cd.Symbol, cd.Interval), b, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// SetPoint writes only the point entry.
func (c *CandleCache) SetPoint(ctx context.Context, cd entity.Candle) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(cd)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.pointKey(cd.Symbol, cd.Interval, cd.Time), b, c.ttl).Err()
}

// Invalidate drops every entry of symbol+interval, or of every interval of
// symbol when interval is empty.
func (c *CandleCache) Invalidate(ctx context.Context, symbol string, interval entity.Interval) error {
	if c.rdb == nil {
		return nil
	}
	prefix := fmt.Sprintf("%s:%s:", c.namespace, safe(symbol))
	if interval != "" {
		prefix += safe(interval.String()) + ":"
	}
	return c.deleteByPattern(ctx, prefix+"*")
}

// InvalidateAll drops every entry in the namespace.
func (c *CandleCache) InvalidateAll(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.deleteByPattern(ctx, c.namespace+":*")
}

func (c *CandleCache) pointKey(symbol string, interval entity.Interval, at time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%d", c.namespace, safe(symbol), safe(interval.String()), at.UnixMilli())
}

func (c *CandleCache) latestKey(symbol string, interval entity.Interval) string {
	return fmt.Sprintf("%s:%s:%s:%s", c.namespace, safe(symbol), safe(interval.String()), latestSuffix)
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CandleCache) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

func (c *CandleCache) record(result string) {
	if c.metrics != nil {
		c.metrics.CacheResult(result)
	}
}

// keyReplacer maps key separators and SCAN glob characters to '_'.
var keyReplacer = strings.NewReplacer(" ", "_", ":", "_", "*", "_", "?", "_", "[", "_", "]", "_")

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	return keyReplacer.Replace(s)
}
