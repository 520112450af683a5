package cacheinfra

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity bounds the number of entries held by the cache.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	NumShards int

	// TTL is the time-to-live sturdyc applies to every entry.
	TTL time.Duration

	// EvictionPercentage is the share of entries dropped once Capacity is reached (1-100).
	EvictionPercentage int

	// EarlyRefresh enables background refreshes for GetOrFetch callers. Nil disables it.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage remembers keys whose fetch returned sturdyc.ErrNotFound.
	MissingRecordStorage bool

	// EvictionInterval sets how often expired entries are swept. Zero keeps the sturdyc default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig configures early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns the configuration used for product detail caching.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
		EarlyRefresh: &EarlyRefreshConfig{
			MinAsyncRefreshTime: 10 * time.Second,
			MaxAsyncRefreshTime: 20 * time.Second,
			SyncRefreshTime:     30 * time.Second,
			RetryBaseDelay:      100 * time.Millisecond,
		},
		MissingRecordStorage: true,
	}
}

// StoreConfig returns a configuration suited to a plain bounded store:
// no early refreshes and no missing record storage, since callers of the
// store manage freshness themselves.
func StoreConfig(capacity int, ttl time.Duration) Config {
	return Config{
		Capacity:           capacity,
		NumShards:          16,
		TTL:                ttl,
		EvictionPercentage: 10,
		EvictionInterval:   ttl,
	}
}

// ToSturdycOptions converts the optional parts of Config to sturdyc options.
// Capacity, NumShards, TTL and EvictionPercentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	)
	if err != nil {
		return &ConfigError{Field: "cache", Message: err.Error()}
	}

	if c.EarlyRefresh != nil {
		early := *c.EarlyRefresh
		err := validation.ValidateStruct(&early,
			validation.Field(&early.MinAsyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&early.MaxAsyncRefreshTime, validation.Min(early.MinAsyncRefreshTime)),
			validation.Field(&early.SyncRefreshTime, validation.Min(time.Duration(0))),
			validation.Field(&early.RetryBaseDelay, validation.Min(time.Duration(0))),
		)
		if err != nil {
			return &ConfigError{Field: "EarlyRefresh", Message: err.Error()}
		}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// SturdycService wraps a sturdyc client. It serves both as a read-through
// cache.CacheService and as a plain cache.Store.
type SturdycService struct {
	client *sturdyc.Client[any]
	ttl    time.Duration
}

// NewSturdycService validates cfg and builds a sturdyc client from it.
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycService{client: client, ttl: cfg.TTL}, nil
}

// TTL reports the entry lifetime the client was built with.
func (s *SturdycService) TTL() time.Duration {
	return s.ttl
}

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// asFetcher turns fetchFn, any func(context.Context) (T, error), into a
// func returning any. Other shapes are rejected with a *ConfigError.
func asFetcher(fetchFn any) (func(context.Context) (any, error), error) {
	if fn, ok := fetchFn.(func(context.Context) (any, error)); ok && fn != nil {
		return fn, nil
	}

	fv := reflect.ValueOf(fetchFn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, &ConfigError{Field: "fetchFn", Message: "must be a non-nil func(context.Context) (T, error)"}
	}
	t := fv.Type()
	if t.NumIn() != 1 || t.NumOut() != 2 || !t.In(0).Implements(contextType) || !t.Out(1).Implements(errorType) {
		return nil, &ConfigError{Field: "fetchFn", Message: "has signature " + t.String() + ", want func(context.Context) (T, error)"}
	}

	return func(ctx context.Context) (any, error) {
		out := fv.Call([]reflect.Value{reflect.ValueOf(ctx)})
		value := out[0].Interface()
		if err, _ := out[1].Interface().(error); err != nil {
			return value, err
		}
		return value, nil
	}, nil
}

// GetOrFetch returns the cached value for key, or calls fetchFn and caches
// its result. Fetch errors are returned and never cached.
func (s *SturdycService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	fetch, err := asFetcher(fetchFn)
	if err != nil {
		return nil, err
	}
	return s.client.GetOrFetch(ctx, key, fetch)
}

// Get returns the raw value stored under key.
func (s *SturdycService) Get(ctx context.Context, key string) (any, bool) {
	return s.client.Get(key)
}

// Set stores value under key, replacing any previous value.
func (s *SturdycService) Set(ctx context.Context, key string, value any) {
	s.client.Set(key, value)
}

// Delete removes a single entry.
func (s *SturdycService) Delete(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *SturdycService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// InvalidateKeys removes the given entries.
func (s *SturdycService) InvalidateKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}

// Keys returns the keys currently held, sorted.
func (s *SturdycService) Keys(ctx context.Context) []string {
	keys := s.client.ScanKeys()
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries currently held.
func (s *SturdycService) Len() int {
	return s.client.Size()
}
