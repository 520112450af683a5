// Package repositorycache decorates go-repository-bun repositories with read-through caching.
//
// # Overview
//
// CachedRepository[T] implements repository.Repository[T] and wraps a base
// repository. Get, GetByID, GetByIdentifier, List and Count go through a
// cache.CacheService; transactional reads and Raw queries always hit the base.
//
//	base := storage.NewProductRepository(db)
//	svc, _ := cache.NewCacheService(cache.DefaultConfig())
//	products := repositorycache.New(base, svc, cache.NewDefaultKeySerializer())
//
// # Keys
//
// Every key starts with the repository namespace, the snake_case record type
// name (catalog.Product becomes "product"), followed by the serialized method
// and arguments. Keys are registered in a concurrent registry as they are
// produced so the repository can drop exactly what it cached.
//
// # Invalidation
//
// Any successful write (create, update, upsert, delete, including the bulk and
// Tx variants) flushes every key of the repository, then runs the hooks added
// with OnMutation or WithMutationHook, synchronously and before the write
// returns. Failed writes leave the cache untouched.
//
// A read that races a write can repopulate a key with the pre-write value;
// that entry lives until the next write or its TTL.
package repositorycache
