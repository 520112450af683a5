// Package catalogcache caches product listing results in front of the catalog store.
//
// Every listing request is reduced to a QueryShape (page, limit, category,
// search, sortBy, sortOrder) and the shape's CacheKey addresses one computed
// result. An entry is served only while it is younger than the TTL (five
// minutes by default); after that it reads as a miss and the next Fetch
// recomputes and overwrites it.
//
// Any product create, update or delete flushes the whole cache through
// InvalidateAll. There is no per-key invalidation: a write can move a product
// across pages, categories and sort positions, so every cached shape is
// suspect after it.
//
// Entries live in a bounded cache.Store, so memory stays capped even though
// reads never delete stale entries themselves.
package catalogcache
