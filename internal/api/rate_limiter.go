package api

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per owner. Settlement endpoints are cheap
// but write-heavy, so a modest per-owner budget keeps a runaway client from
// hammering the ledger.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex

	limit rate.Limit
	burst int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(requestsPerSec int) *RateLimiter {
	if requestsPerSec <= 0 {
		requestsPerSec = 20
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(requestsPerSec),
		burst:    10,
	}
}

// getLimiter returns the rate limiter for an owner
func (rl *RateLimiter) getLimiter(ownerID string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[ownerID]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check in case another goroutine created it
	if limiter, exists := rl.limiters[ownerID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ownerID] = limiter
	return limiter
}

// Allow reports whether a request from the owner may proceed
func (rl *RateLimiter) Allow(ownerID string) bool {
	return rl.getLimiter(ownerID).Allow()
}

// RateLimitMiddleware rejects requests over the per-owner budget
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ownerID := r.Header.Get("X-User-ID")
			if ownerID == "" {
				ownerID = r.RemoteAddr
			}

			if !rl.Allow(ownerID) {
				respondError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "Too many requests", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
