package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"
)

// KeyFunc derives the bucket key for a request.
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by remote address. Run chi's RealIP middleware first
// when the service sits behind a proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware rejects requests over limit with 429 and standard rate limit headers.
func Middleware(l Limiter, scope string, limit int, key KeyFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Allow(r.Context(), scope+":"+key(r), limit)
			h := w.Header()
			h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
			reset := int(math.Ceil(time.Until(d.ResetAt).Seconds()))
			if reset < 0 {
				reset = 0
			}
			h.Set("RateLimit-Reset", strconv.Itoa(reset))
			if !d.Allowed {
				h.Set("Retry-After", strconv.Itoa(reset))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests, please try again later"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
