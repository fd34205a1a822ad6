package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryCacheExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewMemorySuggestionCache(time.Minute, 10, clock, zap.NewNop())
	ctx := context.Background()

	cache.Set(ctx, "Lon", places("London"))
	got, ok := cache.Get(ctx, " lon ")
	require.True(t, ok)
	assert.Equal(t, "London", got[0].Name)

	clock.Advance(2 * time.Minute)
	_, ok = cache.Get(ctx, "Lon")
	assert.False(t, ok)

	stats := cache.GetStats()
	assert.Equal(t, 1, stats["hits"])
	assert.Equal(t, 1, stats["misses"])
}

func TestMemoryCachePrune(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewMemorySuggestionCache(time.Minute, 10, clock, zap.NewNop())
	ctx := context.Background()

	cache.Set(ctx, "Par", places("Paris"))
	cache.Set(ctx, "Ber", places("Berlin"))
	clock.Advance(30 * time.Second)
	cache.Set(ctx, "Rom", places("Rome"))
	clock.Advance(45 * time.Second)

	assert.Equal(t, 2, cache.Prune())
	_, ok := cache.Get(ctx, "Rom")
	assert.True(t, ok)
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewMemorySuggestionCache(time.Minute, 2, clock, zap.NewNop())
	ctx := context.Background()

	cache.Set(ctx, "aa", places("A"))
	clock.Advance(time.Second)
	cache.Set(ctx, "bb", places("B"))
	clock.Advance(time.Second)
	cache.Set(ctx, "cc", places("C"))

	_, ok := cache.Get(ctx, "aa")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, "cc")
	assert.True(t, ok)
	assert.Equal(t, 2, cache.GetStats()["items"])
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewRedisSuggestionCache(mr.Addr(), "", 0, time.Minute, zap.NewNop())
	require.NoError(t, err)
	defer cache.Close()
	ctx := context.Background()

	_, ok := cache.Get(ctx, "Lon")
	assert.False(t, ok)

	cache.Set(ctx, "Lon", places("London", "Londonderry"))
	got, ok := cache.Get(ctx, "LON")
	require.True(t, ok)
	assert.Len(t, got, 2)
	assert.True(t, mr.Exists("geocode:lon"))

	mr.FastForward(2 * time.Minute)
	_, ok = cache.Get(ctx, "Lon")
	assert.False(t, ok)
	assert.Zero(t, cache.Prune())
	assert.Equal(t, "redis", cache.GetStats()["backend"])
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("geocode:par", "not json"))

	cache, err := NewRedisSuggestionCache(mr.Addr(), "", 0, time.Minute, zap.NewNop())
	require.NoError(t, err)
	defer cache.Close()

	_, ok := cache.Get(context.Background(), "Par")
	assert.False(t, ok)
}

func TestRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisSuggestionCache(addr, "", 0, time.Minute, zap.NewNop())
	assert.Error(t, err)
}
