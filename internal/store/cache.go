package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/i474232898/crop-recommendation/internal/metrics"
)

// Default TTLs per data class.
const (
	WeatherTTL = 30 * time.Minute
	SoilTTL    = 24 * time.Hour
	MarketTTL  = time.Hour
)

type entry struct {
	value      any
	insertedAt time.Time
	ttl        time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) >= e.ttl
}

// ResultCache is a concurrency-safe in-memory TTL cache shared by every
// upstream lookup. Expired entries are dropped lazily on read and by Sweep.
type ResultCache struct {
	mu sync.RWMutex

	// key: caller-built composite key
	data map[string]entry

	// maxEntries caps the map size; 0 means unlimited.
	maxEntries int

	now    func() time.Time
	flight singleflight.Group
}

// NewResultCache creates a cache. If maxEntries is <= 0 the cache is unbounded
// and relies on Sweep to reclaim memory.
func NewResultCache(maxEntries int) *ResultCache {
	return &ResultCache{
		data:       make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (c *ResultCache) WithClock(now func() time.Time) *ResultCache {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Get returns the value for key if present and fresh. A stale entry is
// evicted and reported as a miss.
func (c *ResultCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	now := c.now()
	c.mu.RUnlock()

	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if e.expired(now) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, still := c.data[key]; still && cur.expired(c.now()) {
			delete(c.data, key)
		}
		metrics.CacheEntries.Set(float64(len(c.data)))
		c.mu.Unlock()
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl is a no-op.
func (c *ResultCache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.data[key]; !exists && c.maxEntries > 0 && len(c.data) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.data[key] = entry{value: value, insertedAt: now, ttl: ttl}
	metrics.CacheEntries.Set(float64(len(c.data)))
}

// evictLocked makes room for one entry: expired entries go first, then the
// oldest insertion.
func (c *ResultCache) evictLocked(now time.Time) {
	removed := 0
	for k, e := range c.data {
		if e.expired(now) {
			delete(c.data, k)
			removed++
		}
	}
	if removed > 0 {
		return
	}

	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, e := range c.data {
		if oldestKey == "" || e.insertedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.insertedAt
		}
	}
	if oldestKey != "" {
		delete(c.data, oldestKey)
	}
}

// Sweep removes all expired entries and returns how many were dropped.
func (c *ResultCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.data {
		if e.expired(now) {
			delete(c.data, k)
			removed++
		}
	}
	metrics.CacheEntries.Set(float64(len(c.data)))
	return removed
}

// Len returns the number of stored entries, fresh or not.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// loadTimeout bounds a shared load that every waiter has abandoned.
const loadTimeout = 2 * time.Minute

// GetOrLoad returns the cached value for key or calls load once, even when
// many goroutines ask for the same key concurrently. Successful loads are
// cached for ttl; errors are returned and never cached.
//
// The shared load does not inherit the first caller's cancellation: each
// caller stops waiting when its own ctx ends and the load keeps going for
// the others.
func (c *ResultCache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	ch := c.flight.DoChan(key, func() (any, error) {
		// Another caller may have filled the key while we waited for the flight.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.Val, r.Err
	}
}

// GetAs is a typed Get.
func GetAs[T any](c *ResultCache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// GetOrLoadAs is a typed GetOrLoad.
func GetOrLoadAs[T any](ctx context.Context, c *ResultCache, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, ErrTypeMismatch
	}
	return t, nil
}
