package httpapi

import (
	"net/http"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per key.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]*limiterEntry
	every   rate.Limit
	burst   int
	maxKeys int
	now     func() time.Time
}

// NewRateLimiter allows perSecond sustained requests per key with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 10
	}
	if burst < 1 {
		burst = 20
	}
	return &RateLimiter{
		limits:  make(map[string]*limiterEntry),
		every:   rate.Limit(perSecond),
		burst:   burst,
		maxKeys: 10000,
		now:     time.Now,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if entry, ok := rl.limits[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	if len(rl.limits) >= rl.maxKeys {
		rl.pruneLocked(now)
	}

	entry := &limiterEntry{limiter: rate.NewLimiter(rl.every, rl.burst), lastSeen: now}
	rl.limits[key] = entry
	return entry.limiter
}

func (rl *RateLimiter) pruneLocked(now time.Time) {
	for key, entry := range rl.limits {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(rl.limits, key)
		}
	}
}

// Allow reports whether a request for key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rejects requests over the limit, keyed by client IP.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP()) {
				return goerrors.New("Too many requests, please try again later", goerrors.CategoryRateLimit).
					WithCode(http.StatusTooManyRequests)
			}
			return next(c)
		}
	}
}
