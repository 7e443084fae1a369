package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/jpsistemas/jp-cobrancas/internal/tenant"
	"github.com/jpsistemas/jp-cobrancas/pkg/response"
)

const defaultLimiterTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per tenant. Buckets idle for longer than
// ttl are dropped.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
	lastScan time.Time
	log      logrus.FieldLogger
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int, ttl time.Duration, log logrus.FieldLogger) *RateLimiter {
	if ttl <= 0 {
		ttl = defaultLimiterTTL
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// Limiter returns the bucket of key, creating it on first use.
func (rl *RateLimiter) Limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastScan) >= rl.ttl {
		rl.evict(now)
		rl.lastScan = now
	}

	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// evict drops idle buckets; callers hold mu.
func (rl *RateLimiter) evict(now time.Time) {
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > rl.ttl {
			delete(rl.limiters, key)
		}
	}
}

// Len reports how many buckets are held.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// Middleware answers 429 once the tenant's bucket is empty. It must run after
// Tenant; requests without a tenant are keyed by remote address.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if t, ok := tenant.FromContext(r.Context()); ok {
			key = t.Database
		}

		if !rl.Limiter(key).AllowN(rl.now(), 1) {
			rl.log.WithField("key", key).Warn("Rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			response.TooManyRequests(w, "Muitas requisições, tente novamente em instantes")
			return
		}
		next.ServeHTTP(w, r)
	})
}
