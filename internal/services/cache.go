package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bobby-s-dev/weather-lookup/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SuggestionCache holds geocoding results for repeated autocomplete prefixes.
type SuggestionCache interface {
	Get(ctx context.Context, query string) ([]models.Suggestion, bool)
	Set(ctx context.Context, query string, suggestions []models.Suggestion)
	// Prune drops expired entries and returns how many were removed.
	Prune() int
	GetStats() map[string]interface{}
	Close() error
}

func cacheKey(query string) string {
	return "geocode:" + strings.ToLower(strings.TrimSpace(query))
}

type CacheItem struct {
	Data      []models.Suggestion
	ExpiresAt time.Time
}

type MemorySuggestionCache struct {
	mu              sync.RWMutex
	items           map[string]CacheItem
	logger          *zap.Logger
	clock           clockwork.Clock
	defaultDuration time.Duration
	maxSize         int
	hits            int
	misses          int
}

func NewMemorySuggestionCache(defaultDuration time.Duration, maxSize int, clock clockwork.Clock, logger *zap.Logger) *MemorySuggestionCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemorySuggestionCache{
		items:           make(map[string]CacheItem),
		logger:          logger,
		clock:           clock,
		defaultDuration: defaultDuration,
		maxSize:         maxSize,
	}
}

func (c *MemorySuggestionCache) Set(_ context.Context, query string, suggestions []models.Suggestion) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query)
	if _, exists := c.items[key]; !exists && c.maxSize > 0 && len(c.items) >= c.maxSize {
		c.evictOldest()
	}

	expiresAt := c.clock.Now().Add(c.defaultDuration)
	c.items[key] = CacheItem{Data: suggestions, ExpiresAt: expiresAt}

	c.logger.Debug("Suggestions cached",
		zap.String("key", key),
		zap.Time("expires_at", expiresAt))
}

func (c *MemorySuggestionCache) Get(_ context.Context, query string) ([]models.Suggestion, bool) {
	key := cacheKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		c.misses++
		return nil, false
	}

	if c.clock.Now().After(item.ExpiresAt) {
		delete(c.items, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return item.Data, true
}

func (c *MemorySuggestionCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range c.items {
		if oldestKey == "" || item.ExpiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.ExpiresAt
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
		c.logger.Debug("Evicted oldest suggestions from cache", zap.String("key", oldestKey))
	}
}

func (c *MemorySuggestionCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	expiredCount := 0
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		c.logger.Debug("Cleaned expired cache items", zap.Int("count", expiredCount))
	}
	return expiredCount
}

func (c *MemorySuggestionCache) Close() error {
	return nil
}

func (c *MemorySuggestionCache) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"backend":          "memory",
		"items":            len(c.items),
		"hits":             c.hits,
		"misses":           c.misses,
		"max_size":         c.maxSize,
		"default_duration": c.defaultDuration.String(),
	}
}

// RedisSuggestionCache shares cached suggestions between proxy instances.
// Expiry is delegated to Redis TTLs.
type RedisSuggestionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisSuggestionCache(addr, password string, db int, ttl time.Duration, logger *zap.Logger) (*RedisSuggestionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	logger.Info("Connected to Redis suggestion cache", zap.String("addr", addr))

	return &RedisSuggestionCache{client: client, ttl: ttl, logger: logger}, nil
}

func (c *RedisSuggestionCache) Get(ctx context.Context, query string) ([]models.Suggestion, bool) {
	key := cacheKey(query)
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Redis read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	var suggestions []models.Suggestion
	if err := json.Unmarshal([]byte(val), &suggestions); err != nil {
		c.logger.Warn("Dropping corrupt cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return suggestions, true
}

func (c *RedisSuggestionCache) Set(ctx context.Context, query string, suggestions []models.Suggestion) {
	key := cacheKey(query)
	data, err := json.Marshal(suggestions)
	if err != nil {
		c.logger.Warn("Failed to encode suggestions", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Redis write failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.logger.Debug("Suggestions cached", zap.String("key", key), zap.Duration("ttl", c.ttl))
}

func (c *RedisSuggestionCache) Prune() int {
	return 0
}

func (c *RedisSuggestionCache) GetStats() map[string]interface{} {
	stats := c.client.PoolStats()
	return map[string]interface{}{
		"backend":     "redis",
		"ttl":         c.ttl.String(),
		"pool_hits":   stats.Hits,
		"pool_misses": stats.Misses,
		"total_conns": stats.TotalConns,
	}
}

func (c *RedisSuggestionCache) Close() error {
	return c.client.Close()
}
