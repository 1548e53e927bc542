package middleware

import (
	"errors"
	"net/http"

	"github.com/paygate-labs/authgate/ratelimit"
)

// RateLimit enforces the limiter per client address and route. Storage
// failures fail closed: losing the limiter must not open the floodgates.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			err := limiter.Allow(r.Context(), ClientIP(r), r.URL.Path)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ratelimit.ErrTooManyRequests):
				http.Error(w, "too many requests", http.StatusTooManyRequests)
			default:
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}
		})
	}
}
