// Package cache provides the Redis-backed response cache for rate
// series, AI analysis, and news payloads.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry wraps a cached payload with bookkeeping metadata.
type Entry struct {
	Payload   json.RawMessage `json:"payload"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Stats tracks cache performance metrics
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// RateCache implements payload caching using Redis. TTLs vary per
// entry: rate series are cached for an hour, analysis for six, news
// for thirty minutes.
type RateCache struct {
	redis  *redis.Client
	stats  *Stats
	prefix string
}

// NewRateCache creates a new Redis-based payload cache.
func NewRateCache(redisClient *redis.Client) *RateCache {
	return &RateCache{
		redis:  redisClient,
		stats:  &Stats{},
		prefix: "rate_cache:",
	}
}

// Get retrieves a cached payload and unmarshals it into dest.
func (c *RateCache) Get(ctx context.Context, key string, dest interface{}) bool {
	cacheKey := c.prefix + key

	data, err := c.redis.Get(ctx, cacheKey).Result()
	if err == redis.Nil {
		c.miss()
		return false
	}
	if err != nil {
		log.Printf("Redis error getting %s: %v", key, err)
		c.miss()
		return false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		log.Printf("Error deserializing cached entry %s: %v", key, err)
		c.miss()
		return false
	}
	if err := json.Unmarshal(entry.Payload, dest); err != nil {
		log.Printf("Error deserializing cached payload %s: %v", key, err)
		c.miss()
		return false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()

	return true
}

// Set stores a payload under key with the given TTL.
func (c *RateCache) Set(ctx context.Context, key string, payload interface{}, ttl time.Duration) {
	cacheKey := c.prefix + key

	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error serializing payload for %s: %v", key, err)
		return
	}

	now := time.Now()
	entry := Entry{
		Payload:   raw,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Printf("Error serializing cache entry for %s: %v", key, err)
		return
	}

	if err := c.redis.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		log.Printf("Redis error setting %s: %v", key, err)
		return
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
}

// Delete removes a single cached entry.
func (c *RateCache) Delete(ctx context.Context, key string) error {
	return c.redis.Del(ctx, c.prefix+key).Err()
}

// ClearAll removes every cached entry under the cache prefix. Returns
// the number of entries removed.
func (c *RateCache) ClearAll(ctx context.Context) (int, error) {
	pattern := c.prefix + "*"

	// SCAN instead of KEYS to avoid blocking Redis
	var keys []string
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("error scanning cache keys: %w", err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("error clearing cache: %w", err)
	}

	log.Printf("Cleared %d cache entries", len(keys))
	return len(keys), nil
}

// GetStats returns current cache statistics
func (c *RateCache) GetStats() Stats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return Stats{
		Hits:   c.stats.Hits,
		Misses: c.stats.Misses,
		Sets:   c.stats.Sets,
	}
}

// LogStats logs current cache performance statistics
func (c *RateCache) LogStats() {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}

	log.Printf("Rate Cache Stats - Hits: %d, Misses: %d, Sets: %d, Hit Rate: %.2f%%",
		stats.Hits, stats.Misses, stats.Sets, hitRate)
}

func (c *RateCache) miss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
