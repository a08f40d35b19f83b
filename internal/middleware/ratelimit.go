package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type userLimiter struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// RateLimiter applies a token bucket per authenticated user. Buckets of
// users that stop sending requests are dropped by Sweep.
type RateLimiter struct {
	limiters sync.Map // user ID -> *userLimiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter allows requestsPerSecond per user with the given burst.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:  rate.Limit(requestsPerSecond),
		burst: burst,
	}
}

func (rl *RateLimiter) limiter(key string) *userLimiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*userLimiter)
	}
	l, _ := rl.limiters.LoadOrStore(key, &userLimiter{lim: rate.NewLimiter(rl.rate, rl.burst)})
	return l.(*userLimiter)
}

// Allow reports whether one more request for key fits the budget.
func (rl *RateLimiter) Allow(key string) bool {
	l := rl.limiter(key)
	l.lastSeen.Store(time.Now().UnixNano())
	return l.lim.Allow()
}

// Len returns the number of tracked users.
func (rl *RateLimiter) Len() int {
	n := 0
	rl.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Sweep drops the buckets of users last seen before cutoff and returns how
// many were removed.
func (rl *RateLimiter) Sweep(cutoff time.Time) int {
	removed := 0
	limit := cutoff.UnixNano()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*userLimiter).lastSeen.Load() < limit {
			rl.limiters.CompareAndDelete(key, value)
			removed++
		}
		return true
	})
	return removed
}

// StartCleanup sweeps buckets idle for longer than idle every interval
// until ctx is cancelled.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval, idle time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := rl.Sweep(time.Now().Add(-idle)); n > 0 {
					log.Debug("evicted idle rate limiters", zap.Int("removed", n))
				}
			}
		}
	}()
}

// Middleware limits requests by the user ID set by BearerAuth and must run
// after it. A request without a user ID is answered 401.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetUserIDFromContext(r.Context())
		if key == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		if !rl.Allow(key) {
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
