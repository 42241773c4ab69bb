package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/BradenHooton/surveyhub/internal/models"
	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
)

type contextKey string

// SessionContextKey is the key for storing session claims in context
const SessionContextKey contextKey = "session"

// RevocationChecker reports whether a session JTI was logged out
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RevocationConfig controls behaviour when the revocation lookup itself fails
type RevocationConfig struct {
	FailClosed bool
}

// Middleware authenticates the request from the session cookie, or from a
// Bearer header for non-browser clients, and stores the claims in the context.
func Middleware(sm *SessionManager, checker RevocationChecker, cfg RevocationConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := sessionToken(r)
			if tokenString == "" {
				pkghttp.WriteUnauthorized(w, "authentication required")
				return
			}

			claims, err := sm.Validate(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired session")
				return
			}

			if checker != nil {
				revoked, err := checker.IsRevoked(r.Context(), claims.ID)
				if err != nil && cfg.FailClosed {
					pkghttp.WriteError(w, http.StatusServiceUnavailable, "unavailable", "unable to verify session")
					return
				}
				if revoked {
					pkghttp.WriteUnauthorized(w, "session has been revoked")
					return
				}
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole must run after Middleware. The role comes from the session claims,
// so a role change takes effect at the next login.
func RequireRole(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetSession(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "authentication required")
				return
			}
			if claims.Role != role {
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSession extracts session claims from the request context
func GetSession(r *http.Request) *models.SessionClaims {
	claims, ok := r.Context().Value(SessionContextKey).(*models.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

// WithSession returns a copy of ctx carrying claims, used by handler tests
func WithSession(ctx context.Context, claims *models.SessionClaims) context.Context {
	return context.WithValue(ctx, SessionContextKey, claims)
}

func sessionToken(r *http.Request) string {
	if token, err := GetSessionCookie(r); err == nil && token != "" {
		return token
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
