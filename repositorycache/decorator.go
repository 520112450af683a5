package repositorycache

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/cache"
)

var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// Operation names the kind of write that triggered a mutation hook.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpUpsert Operation = "upsert"
	OpDelete Operation = "delete"
)

// MutationHook runs after every successful write, once the repository's own
// cached reads are flushed.
type MutationHook func(ctx context.Context, op Operation)

type listResult[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

type settings struct {
	namespace string
	logger    *slog.Logger
	hooks     []MutationHook
}

// Option configures a CachedRepository.
type Option func(*settings)

// WithNamespace overrides the key namespace derived from the record type.
func WithNamespace(namespace string) Option {
	return func(s *settings) {
		if ns := toSnake(namespace); ns != "" {
			s.namespace = ns
		}
	}
}

// WithLogger sets the logger used to report invalidation failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMutationHook registers hook at construction time.
func WithMutationHook(hook MutationHook) Option {
	return func(s *settings) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}

// CachedRepository decorates a go-repository-bun repository with read-through
// caching. Any successful write drops every cached read of this repository,
// since one record can appear in many Get, List and Count results.
type CachedRepository[T any] struct {
	base          repository.Repository[T]
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	namespace     string
	logger        *slog.Logger
	keys          *xsync.MapOf[string, struct{}]
	generation    atomic.Uint64

	hooksMu sync.RWMutex
	hooks   []MutationHook
}

// New wraps base with caching.
func New[T any](base repository.Repository[T], cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *CachedRepository[T] {
	s := settings{namespace: namespaceFor[T](), logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}

	return &CachedRepository[T]{
		base:          base,
		cache:         cacheService,
		keySerializer: keySerializer,
		namespace:     s.namespace,
		logger:        s.logger,
		keys:          xsync.NewMapOf[string, struct{}](),
		hooks:         s.hooks,
	}
}

func namespaceFor[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if ns := toSnake(t.Name()); ns != "" {
		return ns
	}
	return "record"
}

// Namespace is the prefix shared by every key this repository caches.
func (c *CachedRepository[T]) Namespace() string {
	return c.namespace
}

// OnMutation registers hook to run after every successful write.
func (c *CachedRepository[T]) OnMutation(hook MutationHook) {
	if hook == nil {
		return
	}
	c.hooksMu.Lock()
	c.hooks = append(c.hooks, hook)
	c.hooksMu.Unlock()
}

// TrackedKeys reports how many cached reads are currently registered.
func (c *CachedRepository[T]) TrackedKeys() int {
	return c.keys.Size()
}

// InvalidateAll drops every cached read of this repository.
func (c *CachedRepository[T]) InvalidateAll(ctx context.Context) error {
	c.generation.Add(1)

	var keys []string
	c.keys.Range(func(key string, _ struct{}) bool {
		keys = append(keys, key)
		return true
	})
	if len(keys) == 0 {
		return nil
	}

	for _, key := range keys {
		c.keys.Delete(key)
	}
	return c.cache.InvalidateKeys(ctx, keys)
}

func (c *CachedRepository[T]) key(method string, args ...any) string {
	return c.namespace + cache.KeySeparator + c.keySerializer.SerializeKey(method, args...)
}

// cachedRead reads key through the cache and tracks it once stored. A flush
// that ran while the read was in flight may have missed the entry, so it is
// dropped again.
func cachedRead[T, V any](ctx context.Context, c *CachedRepository[T], key string, fetch cache.FetchFn[V]) (V, error) {
	generation := c.generation.Load()
	v, err := cache.GetOrFetch(ctx, c.cache, key, fetch)
	if err != nil {
		return v, err
	}

	c.keys.Store(key, struct{}{})
	if c.generation.Load() != generation {
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.Warn("repository cache drop after concurrent flush failed",
				slog.String("namespace", c.namespace),
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}
	return v, nil
}

func (c *CachedRepository[T]) afterWrite(ctx context.Context, op Operation) {
	if err := c.InvalidateAll(ctx); err != nil {
		c.logger.Warn("repository cache invalidation failed",
			slog.String("namespace", c.namespace),
			slog.String("op", string(op)),
			slog.Any("error", err),
		)
	}

	c.hooksMu.RLock()
	hooks := append([]MutationHook(nil), c.hooks...)
	c.hooksMu.RUnlock()

	for _, hook := range hooks {
		hook(ctx, op)
	}
}

// Get reads one record matching criteria through the cache.
func (c *CachedRepository[T]) Get(ctx context.Context, criteria ...repository.SelectCriteria) (T, error) {
	key := c.key("Get", criteria)
	return cachedRead(ctx, c, key, func(ctx context.Context) (T, error) {
		return c.base.Get(ctx, criteria...)
	})
}

// GetByID reads one record by primary key through the cache.
func (c *CachedRepository[T]) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (T, error) {
	key := c.key("GetByID", id, criteria)
	return cachedRead(ctx, c, key, func(ctx context.Context) (T, error) {
		return c.base.GetByID(ctx, id, criteria...)
	})
}

// GetByIdentifier reads one record by its identifier column through the cache.
func (c *CachedRepository[T]) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	key := c.key("GetByIdentifier", identifier, criteria)
	return cachedRead(ctx, c, key, func(ctx context.Context) (T, error) {
		return c.base.GetByIdentifier(ctx, identifier, criteria...)
	})
}

// List caches records and total together.
func (c *CachedRepository[T]) List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error) {
	key := c.key("List", criteria)
	res, err := cachedRead(ctx, c, key, func(ctx context.Context) (listResult[T], error) {
		records, total, err := c.base.List(ctx, criteria...)
		return listResult[T]{Records: records, Total: total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	return res.Records, res.Total, nil
}

// Count reads the number of matching records through the cache.
func (c *CachedRepository[T]) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	key := c.key("Count", criteria)
	return cachedRead(ctx, c, key, func(ctx context.Context) (int, error) {
		return c.base.Count(ctx, criteria...)
	})
}

// Transactional and raw reads see uncommitted or arbitrary state and are never cached.

func (c *CachedRepository[T]) GetTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetTx(ctx, tx, criteria...)
}

func (c *CachedRepository[T]) GetByIDTx(ctx context.Context, tx bun.IDB, id string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIDTx(ctx, tx, id, criteria...)
}

func (c *CachedRepository[T]) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (T, error) {
	return c.base.GetByIdentifierTx(ctx, tx, identifier, criteria...)
}

func (c *CachedRepository[T]) ListTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]T, int, error) {
	return c.base.ListTx(ctx, tx, criteria...)
}

func (c *CachedRepository[T]) CountTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) (int, error) {
	return c.base.CountTx(ctx, tx, criteria...)
}

func (c *CachedRepository[T]) Raw(ctx context.Context, sql string, args ...any) ([]T, error) {
	return c.base.Raw(ctx, sql, args...)
}

func (c *CachedRepository[T]) RawTx(ctx context.Context, tx bun.IDB, sql string, args ...any) ([]T, error) {
	return c.base.RawTx(ctx, tx, sql, args...)
}

// Handlers returns the base repository's model handlers.
func (c *CachedRepository[T]) Handlers() repository.ModelHandlers[T] {
	return c.base.Handlers()
}

// Writes delegate to base and flush on success.

func (c *CachedRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	return flushOne(c, ctx, OpCreate)(c.base.Create(ctx, record, criteria...))
}

func (c *CachedRepository[T]) CreateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.InsertCriteria) (T, error) {
	return flushOne(c, ctx, OpCreate)(c.base.CreateTx(ctx, tx, record, criteria...))
}

func (c *CachedRepository[T]) CreateMany(ctx context.Context, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	return flushMany(c, ctx, OpCreate)(c.base.CreateMany(ctx, records, criteria...))
}

func (c *CachedRepository[T]) CreateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.InsertCriteria) ([]T, error) {
	return flushMany(c, ctx, OpCreate)(c.base.CreateManyTx(ctx, tx, records, criteria...))
}

func (c *CachedRepository[T]) GetOrCreate(ctx context.Context, record T) (T, error) {
	return flushOne(c, ctx, OpCreate)(c.base.GetOrCreate(ctx, record))
}

func (c *CachedRepository[T]) GetOrCreateTx(ctx context.Context, tx bun.IDB, record T) (T, error) {
	return flushOne(c, ctx, OpCreate)(c.base.GetOrCreateTx(ctx, tx, record))
}

func (c *CachedRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return flushOne(c, ctx, OpUpdate)(c.base.Update(ctx, record, criteria...))
}

func (c *CachedRepository[T]) UpdateTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return flushOne(c, ctx, OpUpdate)(c.base.UpdateTx(ctx, tx, record, criteria...))
}

func (c *CachedRepository[T]) UpdateMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return flushMany(c, ctx, OpUpdate)(c.base.UpdateMany(ctx, records, criteria...))
}

func (c *CachedRepository[T]) UpdateManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return flushMany(c, ctx, OpUpdate)(c.base.UpdateManyTx(ctx, tx, records, criteria...))
}

func (c *CachedRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return flushOne(c, ctx, OpUpsert)(c.base.Upsert(ctx, record, criteria...))
}

func (c *CachedRepository[T]) UpsertTx(ctx context.Context, tx bun.IDB, record T, criteria ...repository.UpdateCriteria) (T, error) {
	return flushOne(c, ctx, OpUpsert)(c.base.UpsertTx(ctx, tx, record, criteria...))
}

func (c *CachedRepository[T]) UpsertMany(ctx context.Context, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return flushMany(c, ctx, OpUpsert)(c.base.UpsertMany(ctx, records, criteria...))
}

func (c *CachedRepository[T]) UpsertManyTx(ctx context.Context, tx bun.IDB, records []T, criteria ...repository.UpdateCriteria) ([]T, error) {
	return flushMany(c, ctx, OpUpsert)(c.base.UpsertManyTx(ctx, tx, records, criteria...))
}

func (c *CachedRepository[T]) Delete(ctx context.Context, record T) error {
	return c.flushErr(ctx, OpDelete, c.base.Delete(ctx, record))
}

func (c *CachedRepository[T]) DeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return c.flushErr(ctx, OpDelete, c.base.DeleteTx(ctx, tx, record))
}

func (c *CachedRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return c.flushErr(ctx, OpDelete, c.base.DeleteMany(ctx, criteria...))
}

func (c *CachedRepository[T]) DeleteManyTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return c.flushErr(ctx, OpDelete, c.base.DeleteManyTx(ctx, tx, criteria...))
}

func (c *CachedRepository[T]) DeleteWhere(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	return c.flushErr(ctx, OpDelete, c.base.DeleteWhere(ctx, criteria...))
}

func (c *CachedRepository[T]) DeleteWhereTx(ctx context.Context, tx bun.IDB, criteria ...repository.DeleteCriteria) error {
	return c.flushErr(ctx, OpDelete, c.base.DeleteWhereTx(ctx, tx, criteria...))
}

func (c *CachedRepository[T]) ForceDelete(ctx context.Context, record T) error {
	return c.flushErr(ctx, OpDelete, c.base.ForceDelete(ctx, record))
}

func (c *CachedRepository[T]) ForceDeleteTx(ctx context.Context, tx bun.IDB, record T) error {
	return c.flushErr(ctx, OpDelete, c.base.ForceDeleteTx(ctx, tx, record))
}

func (c *CachedRepository[T]) flushErr(ctx context.Context, op Operation, err error) error {
	if err == nil {
		c.afterWrite(ctx, op)
	}
	return err
}

func flushOne[T any](c *CachedRepository[T], ctx context.Context, op Operation) func(T, error) (T, error) {
	return func(record T, err error) (T, error) {
		return record, c.flushErr(ctx, op, err)
	}
}

func flushMany[T any](c *CachedRepository[T], ctx context.Context, op Operation) func([]T, error) ([]T, error) {
	return func(records []T, err error) ([]T, error) {
		return records, c.flushErr(ctx, op, err)
	}
}
