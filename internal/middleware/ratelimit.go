package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/scholarship-finder/backend/internal/errors"
	"github.com/scholarship-finder/backend/internal/httputil"
	"github.com/scholarship-finder/backend/internal/logging"
)

// Limiter decides whether a keyed request may proceed. The in-process and
// Redis-backed implementations both satisfy it.
type Limiter interface {
	Allow(key string) bool
}

// RateLimiter provides per-key in-process rate limiting.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new in-process rate limiter.
func NewRateLimiter(requestsPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Allow reports whether the keyed caller is within its budget.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	// Bound memory under key churn; limiters rebuild on demand.
	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

// RateLimitMiddleware enforces a request budget per authenticated user,
// falling back to the remote address for anonymous requests.
type RateLimitMiddleware struct {
	limiter Limiter
	limit   int
	logger  *logging.Logger
}

// NewRateLimitMiddleware creates a rate limiting middleware around any
// Limiter implementation.
func NewRateLimitMiddleware(limiter Limiter, limit int, logger *logging.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		logger:  logger,
	}
}

// Handler returns the rate limiting middleware handler.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetUserID(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}

		if !m.limiter.Allow(key) {
			m.logger.LogSecurityEvent(r.Context(), "rate_limit_exceeded", map[string]interface{}{
				"key":    key,
				"path":   r.URL.Path,
				"method": r.Method,
			})

			serviceErr := errors.RateLimitExceeded(m.limit, "1s")
			httputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RetryWindow is the fixed window used by the Redis limiter.
const RetryWindow = time.Second
