package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
	IPConfig          *pkghttp.IPConfig
}

// DefaultPublicRateLimit is the coarse throttle for unauthenticated read
// endpoints such as short-link resolution
func DefaultPublicRateLimit(ipConfig *pkghttp.IPConfig) RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 120,
		IPConfig:          ipConfig,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP.
// The key comes from pkghttp.ExtractClientIP so forwarded headers are only
// trusted from configured proxies.
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	const window = 1 * time.Minute
	return httprate.Limit(
		config.RequestsPerMinute,
		window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, config.IPConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteRateLimited(w, "Rate limit exceeded", int(window.Seconds()))
		}),
	)
}
