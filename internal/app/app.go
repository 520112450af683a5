// Package app assembles and runs the storefront server.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-storefront/cache"
	"github.com/goliatone/go-storefront/internal/config"
	"github.com/goliatone/go-storefront/internal/httpapi"
	"github.com/goliatone/go-storefront/internal/storage"
	"github.com/goliatone/go-storefront/pkg/di"
)

const DefaultShutdownTimeout = 10 * time.Second

// App is a fully wired storefront: database, caches, catalog service and
// HTTP server.
type App struct {
	Server  *httpapi.Server
	Catalog *di.Catalog
	db      *bun.DB
	cfg     config.Config
	logger  *slog.Logger
}

// New opens the database, migrates it and wires every component.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	container, err := di.NewContainer(cache.DefaultConfig(), di.WithLogger(logger))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	cat, err := container.NewCatalog(db, cfg.ListingCacheConfig())
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	server := httpapi.New(cat.Service, httpapi.Options{
		BodyLimit:   cfg.BodyLimit,
		WriteRate:   cfg.WriteRate,
		WriteBurst:  cfg.WriteBurst,
		Environment: cfg.Environment,
		Logger:      logger,
	})

	logger.Info("storefront ready",
		slog.String("db_driver", cfg.DBDriver),
		slog.Duration("catalog_cache_ttl", cfg.CatalogCacheTTL),
		slog.Int("catalog_cache_capacity", cfg.CatalogCacheCapacity),
	)

	return &App{
		Server:  server,
		Catalog: cat,
		db:      db,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.db.Close()
}

// Serve listens until ctx is done, then drains requests within the
// configured shutdown timeout.
func (a *App) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start(a.cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := a.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	a.logger.Info("shutting down", slog.Duration("timeout", timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}

// Run builds the app from cfg and serves until ctx is done.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	started := time.Now()
	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close database", slog.Any("error", err))
		}
	}()

	err = a.Serve(ctx)
	logger.Info("storefront stopped", slog.Duration("uptime", time.Since(started)))
	return err
}
