package cache

import (
	"time"

	"github.com/goliatone/go-storefront/internal/cacheinfra"
)

// Config exposes cache configuration options for consumers of the cache package.
type Config = cacheinfra.Config

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig = cacheinfra.EarlyRefreshConfig

// DefaultConfig returns the read-through defaults: 10k entries, 5 minute TTL,
// early refreshes and missing record storage enabled.
func DefaultConfig() Config {
	return cacheinfra.DefaultConfig()
}

// StoreConfig returns defaults for a bounded Store holding capacity entries for ttl.
func StoreConfig(capacity int, ttl time.Duration) Config {
	return cacheinfra.StoreConfig(capacity, ttl)
}

// NewCacheService constructs the default read-through cache service.
func NewCacheService(cfg Config) (CacheService, error) {
	return cacheinfra.NewSturdycService(cfg)
}

// NewStore constructs the default bounded Store.
func NewStore(cfg Config) (Store, error) {
	return cacheinfra.NewSturdycService(cfg)
}
