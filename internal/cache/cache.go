package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// entry is one memoized value. Entries are never persisted.
type entry struct {
	value    any
	storedAt time.Time
}

// flight tracks the computes running for one key. gen moves whenever the key
// is invalidated, so a compute that started before can tell its result is
// outdated.
type flight struct {
	gen     uint64
	pending int
}

// Cache is a concurrency-safe key/value memoizer with per-lookup expiry.
// A single Cache may hold values of different types; the key is the only
// disambiguator, so callers must build keys that are unique per logical
// query.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	flights map[string]*flight
	epoch   uint64 // advanced by Clear

	now    func() time.Time
	logger *slog.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used for invalidation and clear events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		flights: make(map[string]*flight),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("component", "cache"))
	return c
}

// GetOrCompute returns the value cached under key if it was stored no more
// than maxAge ago and has type T. Otherwise it calls compute, stores the
// result and returns it.
//
// compute runs without holding the cache lock. Two goroutines missing on the
// same key at the same time may both run compute; the last one to finish
// wins. If compute fails, its error is returned unchanged and nothing is
// stored. A result whose key was invalidated or cleared while compute ran is
// returned to the caller but not stored.
func GetOrCompute[T any](c *Cache, key string, maxAge time.Duration, compute func() (T, error)) (T, error) {
	if v, ok := lookup[T](c, key, maxAge); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)

	gen, epoch := c.begin(key)
	v, err := compute()
	c.finish(key, gen, epoch, v, err == nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// begin registers a compute for key and returns the generations it must
// still observe when it finishes.
func (c *Cache) begin(key string) (gen, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		f = &flight{}
		c.flights[key] = f
	}
	f.pending++
	return f.gen, c.epoch
}

// finish stores value if store is set and key was not invalidated since
// begin, then unregisters the compute.
func (c *Cache) finish(key string, gen, epoch uint64, value any, store bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := c.flights[key]
	if store && f.gen == gen && c.epoch == epoch {
		c.entries[key] = entry{value: value, storedAt: c.now()}
	} else if store {
		c.logger.Debug("discarded result invalidated during compute", slog.String("key", key))
	}

	f.pending--
	if f.pending == 0 {
		delete(c.flights, key)
	}
}

// Get returns the value under key if it is fresh and has type T.
func Get[T any](c *Cache, key string, maxAge time.Duration) (T, bool) {
	return lookup[T](c, key, maxAge)
}

func lookup[T any](c *Cache, key string, maxAge time.Duration) (T, bool) {
	var zero T

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.storedAt) > maxAge {
		return zero, false
	}
	v, ok := e.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// Invalidate removes the entry for key, if any.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	if f, ok := c.flights[key]; ok {
		f.gen++
	}
	c.mu.Unlock()
}

// InvalidateFunc removes every entry whose key satisfies match and returns
// how many were removed.
func (c *Cache) InvalidateFunc(match func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
			removed++
		}
	}
	for key, f := range c.flights {
		if match(key) {
			f.gen++
		}
	}
	if removed > 0 {
		c.logger.Debug("invalidated cache entries", slog.Int("count", removed))
	}
	return removed
}

// Clear removes all entries. It is meant for memory-pressure signals; expiry
// alone keeps the cache correct.
func (c *Cache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.epoch++
	c.mu.Unlock()

	c.logger.Info("cache cleared", slog.Int("entries", n))
}

// Len returns the number of stored entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the hit and miss counts of GetOrCompute.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
