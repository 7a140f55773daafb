package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/kuitang/wordfeed/internal/obs"
)

// DefaultRetryAfterSeconds is the minimum value for the Retry-After header
// when a rate limit is exceeded.
const DefaultRetryAfterSeconds = 1

// ClientKey identifies the caller: the X-Client-Id header when present,
// otherwise the remote IP.
func ClientKey(r *http.Request) string {
	if id := r.Header.Get(obs.HeaderClientID); id != "" {
		return "client:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// RateLimitMiddleware creates HTTP middleware that enforces rate limits.
// Rejected requests get 429 with a JSON {error} body and a Retry-After header.
func RateLimitMiddleware(limiter *RateLimiter, keyFunc func(r *http.Request) string) func(http.Handler) http.Handler {
	if keyFunc == nil {
		keyFunc = ClientKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			rateLimiter := limiter.GetLimiter(key)
			if !rateLimiter.Allow() {
				retry := DefaultRetryAfterSeconds
				if limit := float64(rateLimiter.Limit()); limit > 0 {
					retry = max(retry, int(math.Ceil(1/limit)))
				}
				obs.From(r.Context()).With("pkg", "ratelimit").Warn("rate_limited",
					"key", key, "path", r.URL.Path, "retry_after_s", retry)

				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{"error": "Too Many Requests"})
				return
			}

			remaining := int(rateLimiter.Tokens())
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			next.ServeHTTP(w, r)
		})
	}
}
