package di

import (
	"context"
	"log/slog"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/catalog"
	"github.com/goliatone/go-storefront/catalogcache"
	"github.com/goliatone/go-storefront/internal/storage"
	"github.com/goliatone/go-storefront/repositorycache"
)

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger handed to every component the container builds.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock used by the catalog service and its listing cache.
func WithClock(clock catalogcache.Clock) Option {
	return func(c *Container) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// Container wires the storefront components. It owns the shared read-through
// cache service behind cached repositories and the key serializer they use.
type Container struct {
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	config        cache.Config
	logger        *slog.Logger
	clock         catalogcache.Clock
}

// NewContainer creates a container whose detail cache uses config.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	cacheService, err := cache.NewCacheService(config)
	if err != nil {
		return nil, err
	}

	c := &Container{
		cacheService:  cacheService,
		keySerializer: cache.NewDefaultKeySerializer(),
		config:        config,
		logger:        slog.Default(),
		clock:         catalogcache.SystemClock,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewContainerWithDefaults creates a container using cache.DefaultConfig.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// CacheService returns the shared detail cache service.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns the detail cache configuration.
func (c *Container) Config() cache.Config {
	return c.config
}

// Logger returns the container logger.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// NewCachedRepository wraps base with read-through caching. Every successful
// write is logged through a mutation hook.
//
// Go methods cannot take type parameters, so this is a package-level function:
// NewCachedRepository[*catalog.Product](container, base)
func NewCachedRepository[T any](container *Container, base repository.Repository[T], opts ...repositorycache.Option) *repositorycache.CachedRepository[T] {
	logger := container.logger
	all := append([]repositorycache.Option{repositorycache.WithLogger(logger)}, opts...)
	repo := repositorycache.New(base, container.cacheService, container.keySerializer, all...)
	namespace := repo.Namespace()
	repo.OnMutation(func(ctx context.Context, op repositorycache.Operation) {
		logger.DebugContext(ctx, "repository cache flushed",
			slog.String("namespace", namespace),
			slog.String("operation", string(op)),
		)
	})
	return repo
}

// NewListingCache builds the catalog listing cache over a bounded store sized by cfg.
func (c *Container) NewListingCache(cfg cache.Config) (*catalogcache.Cache[catalog.Listing], error) {
	store, err := cache.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return catalogcache.New[catalog.Listing](store,
		catalogcache.WithTTL(cfg.TTL),
		catalogcache.WithClock(c.clock),
		catalogcache.WithLogger(c.logger),
	), nil
}

// Catalog bundles the catalog service with the caches behind it.
type Catalog struct {
	Service  *catalog.Service
	Listings *catalogcache.Cache[catalog.Listing]
	Products *repositorycache.CachedRepository[*catalog.Product]
	Store    *storage.ProductStore
}

// NewCatalog wires the catalog service over db. listing sizes the listing cache.
func (c *Container) NewCatalog(db *bun.DB, listing cache.Config) (*Catalog, error) {
	listings, err := c.NewListingCache(listing)
	if err != nil {
		return nil, err
	}

	products := NewCachedRepository(c, storage.NewProductRepository(db))
	store := storage.NewProductStore(db)
	svc := catalog.NewService(store, products, listings,
		catalog.WithClock(c.clock),
		catalog.WithLogger(c.logger),
	)

	return &Catalog{
		Service:  svc,
		Listings: listings,
		Products: products,
		Store:    store,
	}, nil
}
