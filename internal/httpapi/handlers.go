package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/goliatone/go-storefront/catalog"
	"github.com/goliatone/go-storefront/catalogcache"
)

func (s *Server) listProducts(c echo.Context) error {
	shape := catalogcache.ParseQuery(catalogcache.RawQuery{
		Page:      c.QueryParam("page"),
		Limit:     c.QueryParam("limit"),
		Category:  c.QueryParam("category"),
		Search:    c.QueryParam("search"),
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
	})

	listing, err := s.catalog.List(c.Request().Context(), shape)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"products":   listing.Products,
		"pagination": listing.Pagination,
	})
}

func (s *Server) searchProducts(c echo.Context) error {
	q := c.QueryParam("q")
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	products, err := s.catalog.Search(c.Request().Context(), q, c.QueryParam("category"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"products": products,
		"query":    q,
	})
}

func (s *Server) getProduct(c echo.Context) error {
	product, err := s.catalog.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "product": product})
}

func (s *Server) createProduct(c echo.Context) error {
	in, err := readProduct(c)
	if err != nil {
		return err
	}
	product, err := s.catalog.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "product": product})
}

func (s *Server) updateProduct(c echo.Context) error {
	in, err := readProduct(c)
	if err != nil {
		return err
	}
	product, err := s.catalog.Update(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "product": product})
}

func (s *Server) deleteProduct(c echo.Context) error {
	if err := s.catalog.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Product deleted"})
}

func (s *Server) productStats(c echo.Context) error {
	stats, err := s.catalog.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "stats": stats})
}

type cacheStatsBody struct {
	Size   int      `json:"size"`
	MaxAge int64    `json:"maxAge"`
	Keys   []string `json:"keys"`
}

func (s *Server) cacheStats(c echo.Context) error {
	stats := s.catalog.CacheStats(c.Request().Context())
	return c.JSON(http.StatusOK, cacheStatsBody{
		Size:   stats.Size,
		MaxAge: stats.TTL.Milliseconds(),
		Keys:   stats.Keys,
	})
}

func (s *Server) clearCache(c echo.Context) error {
	if err := s.catalog.ClearCache(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Product cache cleared"})
}

type healthBody struct {
	Status      string  `json:"status"`
	Timestamp   string  `json:"timestamp"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
}

func (s *Server) health(c echo.Context) error {
	now := s.now()
	return c.JSON(http.StatusOK, healthBody{
		Status:      "OK",
		Timestamp:   now.UTC().Format(time.RFC3339Nano),
		Uptime:      now.Sub(s.started).Seconds(),
		Environment: s.opts.Environment,
	})
}

func (s *Server) root(c echo.Context) error {
	return c.String(http.StatusOK, "E-commerce API is running")
}

func readProduct(c echo.Context) (catalog.ProductInput, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return catalog.ProductInput{}, catalog.ErrInvalid("Unable to read request body")
	}
	return decodeProduct(body)
}
