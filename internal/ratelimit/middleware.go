package ratelimit

import (
	"net/http"
	"strconv"

	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
)

// KeyFunc derives the limiter identity from a request
type KeyFunc func(r *http.Request) string

// ByClientIP keys requests on the client address, honoring trusted proxies
func ByClientIP(ipConfig *pkghttp.IPConfig) KeyFunc {
	return func(r *http.Request) string {
		return pkghttp.ExtractClientIP(r, ipConfig)
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After header
func (l *Limiter) Middleware(key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := l.Allow(r.Context(), key(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
				pkghttp.WriteRateLimited(w, "Too many requests, please try again later.", d.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
