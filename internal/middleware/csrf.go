package middleware

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/surveyhub/internal/auth"
	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
)

// CSRFHeaderName carries the double-submit copy of the csrf_token cookie
const CSRFHeaderName = "X-CSRF-Token"

// CSRFProtection enforces the double-submit cookie pattern on state-changing
// requests that authenticate with the session cookie. Requests without a
// session cookie (Bearer clients) cannot be forged by a browser and pass through.
func CSRFProtection(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Only protect state-changing methods
			if !isStateChangingMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			if _, err := auth.GetSessionCookie(r); err != nil {
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get(CSRFHeaderName)
			cookieToken, _ := auth.GetCSRFTokenCookie(r)

			if headerToken == "" || cookieToken == "" {
				logger.Warn("CSRF token missing in request",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				pkghttp.WriteError(w, http.StatusForbidden, "csrf_invalid", "CSRF token missing")
				return
			}

			if !auth.CSRFTokensMatch(cookieToken, headerToken) {
				attrs := []any{
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				}
				if claims := auth.GetSession(r); claims != nil {
					attrs = append(attrs, slog.String("user_id", claims.UserID))
				}
				logger.Warn("CSRF token validation failed", attrs...)
				pkghttp.WriteError(w, http.StatusForbidden, "csrf_invalid", "CSRF token invalid")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isStateChangingMethod checks if the HTTP method modifies state
func isStateChangingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}
