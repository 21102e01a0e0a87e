package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStatsCache(t *testing.T, ttl time.Duration) (*StatsCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return NewStatsCache(NewRedisCacheFromClient(client), ttl), mr
}

type cachedStats struct {
	HabitID       string `json:"habitId"`
	CurrentStreak int    `json:"currentStreak"`
}

func TestStatsCache_SetGetRoundTrip(t *testing.T) {
	cache, _ := setupStatsCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "h1", &cachedStats{HabitID: "h1", CurrentStreak: 4})

	var got cachedStats
	require.True(t, cache.Get(ctx, "h1", &got))
	assert.Equal(t, "h1", got.HabitID)
	assert.Equal(t, 4, got.CurrentStreak)
}

func TestStatsCache_MissReturnsFalse(t *testing.T) {
	cache, _ := setupStatsCache(t, time.Minute)

	var got cachedStats
	assert.False(t, cache.Get(context.Background(), "unknown", &got))
}

func TestStatsCache_Invalidate(t *testing.T) {
	cache, _ := setupStatsCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "h1", &cachedStats{HabitID: "h1"})
	cache.Invalidate(ctx, "h1")

	var got cachedStats
	assert.False(t, cache.Get(ctx, "h1", &got))
}

func TestStatsCache_EntryExpires(t *testing.T) {
	cache, mr := setupStatsCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "h1", &cachedStats{HabitID: "h1"})
	mr.FastForward(2 * time.Minute)

	var got cachedStats
	assert.False(t, cache.Get(ctx, "h1", &got))
}

func TestStatsCache_CorruptEntryDropped(t *testing.T) {
	cache, mr := setupStatsCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, mr.Set("stats:habit:h1", "{not json"))

	var got cachedStats
	assert.False(t, cache.Get(ctx, "h1", &got))
	// The corrupt entry is deleted so subsequent writers start clean.
	assert.False(t, mr.Exists("stats:habit:h1"))
}

func TestRecordSweep_FirstWinnerOnly(t *testing.T) {
	cache, mr := setupStatsCache(t, time.Minute)
	ctx := context.Background()

	assert.True(t, cache.RecordSweep(ctx, "2026-01-05"))
	assert.False(t, cache.RecordSweep(ctx, "2026-01-05"))
	// Another date is independent.
	assert.True(t, cache.RecordSweep(ctx, "2026-01-06"))

	// The marker eventually expires so the key space stays bounded.
	mr.FastForward(49 * time.Hour)
	assert.True(t, cache.RecordSweep(ctx, "2026-01-05"))
}
