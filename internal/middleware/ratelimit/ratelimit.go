// Package ratelimit throttles requests per client key on top of ulule/limiter.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Limiter counts requests per key in an in-memory store.
type Limiter struct {
	limiter  *limiter.Limiter
	rejected atomic.Int64
	now      func() time.Time
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	// Window overrides the one minute window. Zero keeps the default.
	Window time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		Window:            time.Minute,
	}
}

// NewLimiter creates a new rate limiter
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}

	rate := limiter.Rate{Period: config.Window, Limit: int64(config.RequestsPerMinute)}
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "gestor",
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
	return &Limiter{limiter: limiter.New(store, rate), now: time.Now}
}

// Allow records one request for key and reports whether it fits the window.
func (rl *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	lctx, err := rl.limiter.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if lctx.Reached {
		rl.rejected.Add(1)
	}
	return !lctx.Reached, nil
}

// Rejected returns how many requests were refused since start.
func (rl *Limiter) Rejected() int64 {
	return rl.rejected.Load()
}

// Middleware creates HTTP middleware for rate limiting. onLimit writes the
// rejection; when nil a plain 429 is sent. Retry-After is always set.
func (rl *Limiter) Middleware(extractKey func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	mw := stdlib.NewMiddleware(rl.limiter,
		stdlib.WithKeyGetter(extractKey),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			rl.rejected.Add(1)
			w.Header().Set("Retry-After", strconv.FormatInt(rl.retryAfter(w.Header()), 10))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "Internal server error during rate limit check", http.StatusInternalServerError)
		}),
	)
	return mw.Handler
}

// retryAfter turns the X-RateLimit-Reset timestamp into whole seconds to wait.
func (rl *Limiter) retryAfter(h http.Header) int64 {
	reset, err := strconv.ParseInt(h.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil {
		return 1
	}
	return max(reset-rl.now().Unix(), 1)
}
