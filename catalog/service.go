package catalog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"github.com/goliatone/go-storefront/catalogcache"
)

// RecentWindow is how far back Stats counts recently added products.
const RecentWindow = 30 * 24 * time.Hour

// Store answers the catalog's query side.
type Store interface {
	Count(ctx context.Context, filter Filter) (int, error)
	FindPage(ctx context.Context, filter Filter, sort Sort, skip, limit int) ([]Summary, error)
	Search(ctx context.Context, query SearchQuery) ([]Summary, error)
	Stats(ctx context.Context, recentSince time.Time) (Stats, error)
}

// Records is the record-level subset of a go-repository-bun repository the
// service writes through.
type Records interface {
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*Product, error)
	Create(ctx context.Context, record *Product, criteria ...repository.InsertCriteria) (*Product, error)
	Update(ctx context.Context, record *Product, criteria ...repository.UpdateCriteria) (*Product, error)
	Delete(ctx context.Context, record *Product) error
}

// Invalidator is implemented by Records that cache reads.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock sets the clock used for timestamps.
func WithClock(clock catalogcache.Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDGenerator replaces uuid.New for new products.
func WithIDGenerator(fn func() uuid.UUID) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service implements the catalog operations. Every successful create, update
// and delete flushes the listing cache before returning.
type Service struct {
	store    Store
	records  Records
	listings *catalogcache.Cache[Listing]
	clock    catalogcache.Clock
	newID    func() uuid.UUID
	logger   *slog.Logger
}

// NewService wires a Service.
func NewService(store Store, records Records, listings *catalogcache.Cache[Listing], opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		records:  records,
		listings: listings,
		clock:    catalogcache.SystemClock,
		newID:    uuid.New,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of products for shape, served from the listing cache
// while fresh.
func (s *Service) List(ctx context.Context, shape catalogcache.QueryShape) (Listing, error) {
	return s.listings.Fetch(ctx, shape, func(ctx context.Context) (Listing, error) {
		return s.computeListing(ctx, shape.Normalize())
	})
}

func (s *Service) computeListing(ctx context.Context, shape catalogcache.QueryShape) (Listing, error) {
	filter := FilterFor(shape)

	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return Listing{}, passthrough(err, "count products")
	}

	products, err := s.store.FindPage(ctx, filter, SortFor(shape), shape.Skip(), shape.Limit)
	if err != nil {
		return Listing{}, passthrough(err, "list products")
	}
	if products == nil {
		products = []Summary{}
	}

	s.logger.Debug("catalog listing computed",
		slog.String("key", shape.CacheKey()),
		slog.Int("total", total),
		slog.Int("returned", len(products)),
	)

	return Listing{
		Products:   products,
		Pagination: NewPagination(shape.Page, shape.Limit, total),
	}, nil
}

// Get loads a product by id. Malformed ids read as not found.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrNotFound()
	}

	product, err := s.records.GetByID(ctx, parsed.String())
	if err != nil {
		return nil, passthrough(err, "get product")
	}
	if product == nil {
		return nil, ErrNotFound()
	}
	return product, nil
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, in ProductInput) (*Product, error) {
	if err := in.validateCreate(); err != nil {
		return nil, ErrInvalid(err.Error())
	}

	now := s.clock.Now().UTC()
	product := &Product{
		ID:        s.newID(),
		Images:    []string{},
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(product)

	if err := product.Validate(); err != nil {
		return nil, ErrInvalid(err.Error())
	}

	created, err := s.records.Create(ctx, product)
	if err != nil {
		return nil, passthrough(err, "create product")
	}
	s.afterMutation(ctx, "create", created.ID)
	return created, nil
}

// Update applies the present fields of in to the product with id.
func (s *Service) Update(ctx context.Context, id string, in ProductInput) (*Product, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	product := *existing
	in.apply(&product)
	product.UpdatedAt = s.clock.Now().UTC()

	if err := product.Validate(); err != nil {
		return nil, ErrInvalid(err.Error())
	}

	updated, err := s.records.Update(ctx, &product)
	if err != nil {
		return nil, passthrough(err, "update product")
	}
	s.afterMutation(ctx, "update", updated.ID)
	return updated, nil
}

// Delete removes the product with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.records.Delete(ctx, existing); err != nil {
		return passthrough(err, "delete product")
	}
	s.afterMutation(ctx, "delete", existing.ID)
	return nil
}

func (s *Service) afterMutation(ctx context.Context, op string, id uuid.UUID) {
	s.listings.InvalidateAll(ctx)
	s.logger.Info("catalog mutated",
		slog.String("op", op),
		slog.String("product_id", id.String()),
	)
}

// Search returns up to limit products whose name or description contains
// term, name matches first. Results bypass the listing cache.
func (s *Service) Search(ctx context.Context, term, category string, limit int) ([]Summary, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrInvalid("Search query is required")
	}
	if limit < 1 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	category = strings.TrimSpace(category)
	if category == catalogcache.AllCategories {
		category = ""
	}

	results, err := s.store.Search(ctx, SearchQuery{Term: term, Category: category, Limit: limit})
	if err != nil {
		return nil, passthrough(err, "search products")
	}
	if results == nil {
		results = []Summary{}
	}
	return results, nil
}

// Stats aggregates catalog totals for the admin overview.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	stats, err := s.store.Stats(ctx, s.clock.Now().UTC().Add(-RecentWindow))
	if err != nil {
		return Stats{}, passthrough(err, "catalog stats")
	}
	if stats.CategoryStats == nil {
		stats.CategoryStats = []CategoryCount{}
	}
	return stats, nil
}

// CacheStats reports the listing cache contents.
func (s *Service) CacheStats(ctx context.Context) catalogcache.Stats {
	return s.listings.Stats(ctx)
}

// ClearCache flushes the listing cache and, when present, the product
// detail cache.
func (s *Service) ClearCache(ctx context.Context) error {
	s.listings.InvalidateAll(ctx)
	if inv, ok := s.records.(Invalidator); ok {
		if err := inv.InvalidateAll(ctx); err != nil {
			return ErrStore(err, "clear product cache")
		}
	}
	s.logger.Info("catalog cache cleared")
	return nil
}
