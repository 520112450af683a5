package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/goliatone/go-storefront/catalog"
	"github.com/goliatone/go-storefront/catalogcache"
)

const (
	DefaultBodyLimit   = "10M"
	DefaultEnvironment = "development"
)

// CatalogService is the catalog surface served over HTTP.
type CatalogService interface {
	List(ctx context.Context, shape catalogcache.QueryShape) (catalog.Listing, error)
	Get(ctx context.Context, id string) (*catalog.Product, error)
	Create(ctx context.Context, in catalog.ProductInput) (*catalog.Product, error)
	Update(ctx context.Context, id string, in catalog.ProductInput) (*catalog.Product, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, term, category string, limit int) ([]catalog.Summary, error)
	Stats(ctx context.Context) (catalog.Stats, error)
	CacheStats(ctx context.Context) catalogcache.Stats
	ClearCache(ctx context.Context) error
}

// Options tunes the HTTP server. Zero values fall back to defaults.
type Options struct {
	BodyLimit   string
	WriteRate   float64
	WriteBurst  int
	Environment string
	Logger      *slog.Logger
	Clock       catalogcache.Clock
}

func (o Options) withDefaults() Options {
	if o.BodyLimit == "" {
		o.BodyLimit = DefaultBodyLimit
	}
	if o.Environment == "" {
		o.Environment = DefaultEnvironment
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = catalogcache.SystemClock
	}
	return o
}

// Server exposes the catalog as a JSON API.
type Server struct {
	echo    *echo.Echo
	catalog CatalogService
	limiter *RateLimiter
	opts    Options
	started time.Time
}

// New wires routes and middleware around svc.
func New(svc CatalogService, opts Options) *Server {
	opts = opts.withDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(opts.Logger)

	s := &Server{
		echo:    e,
		catalog: svc,
		limiter: NewRateLimiter(opts.WriteRate, opts.WriteBurst),
		opts:    opts,
	}
	s.started = s.now()

	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(opts.BodyLimit))
	e.Use(requestLogger(opts.Logger))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/", s.root)
	s.echo.GET("/health", s.health)

	products := s.echo.Group("/api/v1/products")
	products.GET("", s.listProducts)
	products.GET("/search", s.searchProducts)
	products.GET("/admin/stats", s.productStats)
	products.GET("/admin/cache-stats", s.cacheStats)
	products.DELETE("/admin/cache", s.clearCache)
	products.GET("/:id", s.getProduct)

	writes := s.limiter.Middleware()
	products.POST("", s.createProduct, writes)
	products.PUT("/:id", s.updateProduct, writes)
	products.DELETE("/:id", s.deleteProduct, writes)
}

func (s *Server) now() time.Time {
	return s.opts.Clock.Now()
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.opts.Logger.Info("http server listening",
		slog.String("addr", addr),
		slog.String("environment", s.opts.Environment),
	)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}
