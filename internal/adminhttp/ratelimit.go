package adminhttp

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"
)

const (
	defaultLimiterClients = 1024
	defaultLimiterIdle    = 10 * time.Minute
)

// clientLimiter hands out one token bucket per client address.
type clientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets *lru.LRU[string, *rate.Limiter]
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if burst < 1 {
		burst = 1
	}

	return &clientLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: lru.NewLRU[string, *rate.Limiter](defaultLimiterClients, nil, defaultLimiterIdle),
	}
}

func (l *clientLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.buckets.Get(client)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.buckets.Add(client, limiter)
	}

	return limiter.Allow()
}

// RateLimitMiddleware limits requests per client address. A non-positive
// rate disables limiting.
func RateLimitMiddleware(perSecond float64, burst int) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	limiter := newClientLimiter(perSecond, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r)

			if !limiter.allow(client) {
				hlog.FromRequest(r).Debug().Str("client", client).Msg("rate limit exceeded")

				w.Header().Set("Retry-After", "1")
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, map[string]string{
					"error":   "rate limit exceeded",
					"message": "too many requests",
				})

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}
