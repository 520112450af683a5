// Package config loads storefront settings from the environment and flags.
package config

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/internal/storage"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds the storefront server configuration.
type Config struct {
	Host                 string        `env:"STOREFRONT_HOST"`
	Port                 int           `env:"STOREFRONT_PORT" envDefault:"5000"`
	Environment          string        `env:"STOREFRONT_ENV" envDefault:"development"`
	LogLevel             string        `env:"STOREFRONT_LOG_LEVEL" envDefault:"info"`
	DBDriver             string        `env:"STOREFRONT_DB_DRIVER" envDefault:"sqlite"`
	DSN                  string        `env:"STOREFRONT_DSN"`
	CatalogCacheTTL      time.Duration `env:"STOREFRONT_CATALOG_CACHE_TTL" envDefault:"5m"`
	CatalogCacheCapacity int           `env:"STOREFRONT_CATALOG_CACHE_CAPACITY" envDefault:"10000"`
	BodyLimit            string        `env:"STOREFRONT_BODY_LIMIT" envDefault:"10M"`
	WriteRate            float64       `env:"STOREFRONT_WRITE_RATE" envDefault:"10"`
	WriteBurst           int           `env:"STOREFRONT_WRITE_BURST" envDefault:"20"`
	ShutdownTimeout      time.Duration `env:"STOREFRONT_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ParseConfig reads the environment, then lets flags in args override it.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.Host, "host", cfg.Host, "interface to listen on (default: all)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	fs.StringVar(&cfg.Environment, "env", cfg.Environment, "runtime environment (development|production|test)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "database driver (sqlite|postgres)")
	fs.StringVar(&cfg.DSN, "dsn", cfg.DSN, "database DSN (default: in-memory sqlite)")
	fs.DurationVar(&cfg.CatalogCacheTTL, "catalog-cache-ttl", cfg.CatalogCacheTTL, "freshness window of cached listings")
	fs.IntVar(&cfg.CatalogCacheCapacity, "catalog-cache-capacity", cfg.CatalogCacheCapacity, "max cached listing pages")
	fs.StringVar(&cfg.BodyLimit, "body-limit", cfg.BodyLimit, "max request body size")
	fs.Float64Var(&cfg.WriteRate, "write-rate", cfg.WriteRate, "sustained write requests per second per client")
	fs.IntVar(&cfg.WriteBurst, "write-burst", cfg.WriteBurst, "write request burst per client")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.Environment, validation.In(EnvDevelopment, EnvProduction, EnvTest)),
		validation.Field(&c.LogLevel, validation.By(func(any) error {
			_, err := ParseLevel(c.LogLevel)
			return err
		})),
		validation.Field(&c.DBDriver, validation.Required, validation.In(storage.DriverSQLite, storage.DriverPostgres)),
		validation.Field(&c.DSN, validation.When(c.DBDriver == storage.DriverPostgres, validation.Required)),
		validation.Field(&c.CatalogCacheTTL, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.CatalogCacheCapacity, validation.Required, validation.Min(1)),
		validation.Field(&c.BodyLimit, validation.Required),
		validation.Field(&c.WriteRate, validation.Required, validation.Min(0.0)),
		validation.Field(&c.WriteBurst, validation.Required, validation.Min(1)),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Duration(0))),
	)
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsProduction reports whether the server runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// StorageOptions maps the database settings onto storage.Options.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{Driver: c.DBDriver, DSN: c.DSN}
}

// ListingCacheConfig sizes the bounded store behind the listing cache.
func (c Config) ListingCacheConfig() cache.Config {
	return cache.StoreConfig(c.CatalogCacheCapacity, c.CatalogCacheTTL)
}

// ParseLevel maps a level name onto slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// NewLogger builds the process logger: JSON in production, text otherwise.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.IsProduction() {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("service", "storefront"))
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
