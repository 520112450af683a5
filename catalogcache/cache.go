package catalogcache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-storefront/cache"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a computed listing stays readable.
const DefaultTTL = 5 * time.Minute

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// ComputeFn produces a listing on a cache miss.
type ComputeFn[V any] func(ctx context.Context) (V, error)

// Stats is a point-in-time view of the cache contents.
type Stats struct {
	Size int
	TTL  time.Duration
	Keys []string
}

type entry[V any] struct {
	value     V
	createdAt time.Time
}

type options struct {
	ttl    time.Duration
	clock  Clock
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*options)

// WithTTL sets the freshness window. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger used for flush and miss diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Cache holds computed listings keyed by QueryShape.
//
// Reads and writes share the read side of mu; InvalidateAll takes the write
// side, so a flush is atomic with respect to every Get and Put. The
// generation counter moves on every flush and lets Fetch drop results that
// were computed against data a concurrent mutation has since replaced.
type Cache[V any] struct {
	store  cache.Store
	ttl    time.Duration
	clock  Clock
	logger *slog.Logger

	mu         sync.RWMutex
	generation atomic.Uint64
	group      singleflight.Group
}

// New builds a Cache over store.
func New[V any](store cache.Store, opts ...Option) *Cache[V] {
	o := options{ttl: DefaultTTL, clock: SystemClock, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[V]{
		store:  store,
		ttl:    o.ttl,
		clock:  o.clock,
		logger: o.logger,
	}
}

// TTL returns the configured freshness window.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the listing stored for shape while it is younger than the TTL.
// Stale entries are reported as a miss and left in place until overwritten,
// flushed or evicted by the store.
func (c *Cache[V]) Get(ctx context.Context, shape QueryShape) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lookup(ctx, shape.CacheKey())
}

func (c *Cache[V]) lookup(ctx context.Context, key string) (V, bool) {
	var zero V

	raw, ok := c.store.Get(ctx, key)
	if !ok {
		return zero, false
	}
	e, ok := raw.(entry[V])
	if !ok {
		return zero, false
	}
	if c.clock.Now().Sub(e.createdAt) >= c.ttl {
		return zero, false
	}
	return e.value, true
}

// Put stores value for shape, replacing any previous entry.
func (c *Cache[V]) Put(ctx context.Context, shape QueryShape, value V) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.store.Set(ctx, shape.CacheKey(), entry[V]{value: value, createdAt: c.clock.Now()})
}

// putIfCurrent stores value only if no flush happened since generation was read.
func (c *Cache[V]) putIfCurrent(ctx context.Context, key string, value V, generation uint64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.generation.Load() != generation {
		return false
	}
	c.store.Set(ctx, key, entry[V]{value: value, createdAt: c.clock.Now()})
	return true
}

// InvalidateAll drops every entry. Catalog writers call it after the write
// commits and before responding.
func (c *Cache[V]) InvalidateAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.store.Keys(ctx)
	for _, key := range keys {
		_ = c.store.Delete(ctx, key)
	}
	c.generation.Add(1)

	c.logger.Debug("catalog cache flushed", slog.Int("entries", len(keys)))
}

// Stats reports the entries physically held, fresh or not. It never changes
// the cache contents.
func (c *Cache[V]) Stats(ctx context.Context) Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := c.store.Keys(ctx)
	if keys == nil {
		keys = []string{}
	}
	return Stats{Size: len(keys), TTL: c.ttl, Keys: keys}
}

// Fetch returns the cached listing for shape or computes it. Concurrent
// misses on the same key share one computation, which runs detached from any
// single caller's cancellation; a caller whose ctx ends stops waiting and
// gets ctx.Err(). Errors are returned as is and never cached.
func (c *Cache[V]) Fetch(ctx context.Context, shape QueryShape, compute ComputeFn[V]) (V, error) {
	var zero V
	shape = shape.Normalize()
	if v, ok := c.Get(ctx, shape); ok {
		return v, nil
	}

	key := shape.CacheKey()
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.Get(shared, shape); ok {
			return v, nil
		}

		generation := c.generation.Load()
		v, err := compute(shared)
		if err != nil {
			return nil, err
		}
		if !c.putIfCurrent(shared, key, v, generation) {
			c.logger.Debug("catalog cache skipped store after concurrent flush", slog.String("key", key))
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}
