package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/habit-stake/internal/logging"
)

// StatsCache caches computed habit statistics in Redis. The cache is an
// optimization only: every miss or Redis failure falls through to the
// store, so settlement correctness never depends on it.
type StatsCache struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewStatsCache creates a new stats cache
func NewStatsCache(cache *RedisCache, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsCache{cache: cache, ttl: ttl}
}

func statsKey(habitID string) string {
	return fmt.Sprintf("stats:habit:%s", habitID)
}

func sweepKey(date string) string {
	return fmt.Sprintf("reconcile:run:%s", date)
}

// Get retrieves cached stats into dest, reporting whether there was a hit
func (c *StatsCache) Get(ctx context.Context, habitID string, dest interface{}) bool {
	raw, err := c.cache.Get(ctx, statsKey(habitID))
	if err != nil {
		if !IsNil(err) {
			logging.FromContext(ctx).WithError(err).Warn("stats cache read failed")
		}
		return false
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("stats cache entry corrupt, dropping")
		_ = c.cache.Del(ctx, statsKey(habitID))
		return false
	}

	return true
}

// Set stores stats for a habit
func (c *StatsCache) Set(ctx context.Context, habitID string, stats interface{}) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, statsKey(habitID), raw, c.ttl); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("stats cache write failed")
	}
}

// Invalidate drops the cached stats for a habit. Called after every
// settlement so stale totals are never served past the next read.
func (c *StatsCache) Invalidate(ctx context.Context, habitID string) {
	if err := c.cache.Del(ctx, statsKey(habitID)); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("stats cache invalidation failed")
	}
}

// RecordSweep marks a reconciliation run for a calendar date. Returns false
// if the date was already marked, letting callers skip redundant sweeps.
// The sweep itself stays safe to re-run regardless: the daily-log uniqueness
// constraint makes a duplicate pass a no-op.
func (c *StatsCache) RecordSweep(ctx context.Context, date string) bool {
	ok, err := c.cache.SetNX(ctx, sweepKey(date), time.Now().UTC().Format(time.RFC3339), 48*time.Hour)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("sweep marker write failed")
		// Marker is advisory; on Redis failure run the sweep anyway.
		return true
	}
	return ok
}
