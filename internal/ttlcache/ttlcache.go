// Package ttlcache holds remotely fetched values together with the time they
// were fetched and decides when they must be fetched again.
package ttlcache

import (
	"context"
	"sync"
	"time"

	"solana-pool-resolver/internal/clock"
	"solana-pool-resolver/internal/observability"
)

// NeverExpire keeps an existing entry fresh regardless of its age.
const NeverExpire time.Duration = -1

// Entry is a fetched value stamped with its fetch time in Unix milliseconds.
// Entries are replaced wholesale and never mutated.
type Entry[T any] struct {
	FetchedAtMillis int64
	Value           T
}

// Fetch loads a fresh value.
type Fetch[T any] func(ctx context.Context) (T, error)

// Fresh reports whether entry may be served at nowMillis under ttl.
// A ttl of 0 is never fresh; NeverExpire is always fresh once populated.
func Fresh[T any](entry *Entry[T], ttl time.Duration, nowMillis int64) bool {
	if entry == nil {
		return false
	}
	switch {
	case ttl == NeverExpire:
		return true
	case ttl <= 0:
		return false
	}
	return nowMillis-entry.FetchedAtMillis <= ttl.Milliseconds()
}

// GetOrFetch returns the cached value when fresh. Otherwise it calls fetch and
// returns the new value with a new entry. On fetch failure the previous entry
// is returned unchanged alongside the error.
func GetOrFetch[T any](ctx context.Context, clk clock.Clock, cached *Entry[T], ttl time.Duration, fetch Fetch[T]) (T, *Entry[T], error) {
	if Fresh(cached, ttl, clock.Millis(clk.Now())) {
		return cached.Value, cached, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, cached, err
	}
	return v, &Entry[T]{FetchedAtMillis: clock.Millis(clk.Now()), Value: v}, nil
}

// Cache owns a single entry under a fixed TTL.
type Cache[T any] struct {
	name    string
	ttl     time.Duration
	clock   clock.Clock
	metrics *observability.Metrics

	mu    sync.Mutex
	entry *Entry[T]
}

// Option configures a Cache.
type Option func(*cacheOptions)

type cacheOptions struct {
	clock   clock.Clock
	metrics *observability.Metrics
}

// WithClock sets the clock used to stamp and age entries.
func WithClock(c clock.Clock) Option {
	return func(o *cacheOptions) {
		o.clock = c
	}
}

// WithMetrics sets the metrics sink for hits and misses.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *cacheOptions) {
		o.metrics = m
	}
}

// New creates an empty cache.
func New[T any](name string, ttl time.Duration, opts ...Option) *Cache[T] {
	o := cacheOptions{
		clock:   clock.Real{},
		metrics: observability.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		name:    name,
		ttl:     ttl,
		clock:   o.clock,
		metrics: o.metrics,
	}
}

// Name returns the cache name used in metrics.
func (c *Cache[T]) Name() string { return c.name }

// TTL returns the configured time-to-live.
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// Get returns the cached value or fetches a new one when stale.
// The lock is held across fetch so concurrent callers share one refresh.
func (c *Cache[T]) Get(ctx context.Context, fetch Fetch[T]) (T, error) {
	return c.get(ctx, c.ttl, fetch)
}

// Refresh fetches unconditionally. On failure the previous entry is kept.
func (c *Cache[T]) Refresh(ctx context.Context, fetch Fetch[T]) (T, error) {
	return c.get(ctx, 0, fetch)
}

func (c *Cache[T]) get(ctx context.Context, ttl time.Duration, fetch Fetch[T]) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.entry
	v, entry, err := GetOrFetch(ctx, c.clock, prev, ttl, fetch)
	switch {
	case err != nil:
		c.metrics.RecordCacheRequest(c.name, observability.CacheError)
	case entry == prev:
		c.metrics.RecordCacheRequest(c.name, observability.CacheHit)
	default:
		c.metrics.RecordCacheRequest(c.name, observability.CacheMiss)
	}
	c.entry = entry
	return v, err
}

// Peek returns the current entry without fetching. Nil when never populated.
func (c *Cache[T]) Peek() *Entry[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entry
}
