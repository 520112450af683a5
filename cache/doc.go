// Package cache provides the caching contracts shared by the storefront packages.
//
// # Overview
//
// Three interfaces live here:
//
//   - CacheService: read-through caching (GetOrFetch) plus key and prefix invalidation
//   - Store: a bounded key/value store for callers that track freshness themselves
//   - KeySerializer: builds stable cache keys from method names and arguments
//
// The default implementations are backed by sturdyc (see internal/cacheinfra):
// a sharded, capacity bounded cache that evicts a percentage of entries when
// full and sweeps expired entries in the background.
//
// # Read-through usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	product, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) (*catalog.Product, error) {
//		return repo.GetByID(ctx, id)
//	})
//
// # Keys
//
// The default serializer joins the method name and every argument with
// KeySeparator. Values implementing Keyer contribute their own CacheKey, which
// is the only reliable way to key query criteria: function values serialize to
// their code pointer, so two closures with different captured values collide.
package cache
