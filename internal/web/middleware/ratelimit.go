package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per fid. A nil *Limiter always allows:
// admission control failing must never block the economy.
type Limiter struct {
	rps   rate.Limit
	burst int
	byFid sync.Map // fid -> *rate.Limiter
}

// NewLimiter creates a per-fid limiter.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{rps: rate.Limit(rps), burst: burst}
}

// Allow reports whether this fid may proceed.
func (l *Limiter) Allow(fid int64) bool {
	if l == nil {
		return true
	}
	v, _ := l.byFid.LoadOrStore(fid, rate.NewLimiter(l.rps, l.burst))
	return v.(*rate.Limiter).Allow()
}

// RateLimit rejects over-rate callers with 429. Must run after Identity.
func RateLimit(limiter *Limiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(FidFromContext(r.Context())) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": "rate limited"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
