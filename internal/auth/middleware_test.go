package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRevocationChecker struct {
	IsRevokedFunc func(ctx context.Context, jti string) (bool, error)
}

func (m *mockRevocationChecker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if m.IsRevokedFunc != nil {
		return m.IsRevokedFunc(ctx, jti)
	}
	return false, nil
}

func protectedHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetSession(r)
		require.NotNil(t, claims)
		w.Header().Set("X-User", claims.UserID)
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware(t *testing.T) {
	sm := NewSessionManager("0123456789abcdef0123456789abcdef", time.Hour)
	token, _, err := sm.Issue(testUser())
	require.NoError(t, err)

	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		checker    RevocationChecker
		cfg        RevocationConfig
		wantStatus int
	}{
		{
			name:       "session cookie",
			prepare:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token}) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "bearer header",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing credentials",
			prepare:    func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-jwt") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "revoked session",
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token}) },
			checker: &mockRevocationChecker{IsRevokedFunc: func(ctx context.Context, jti string) (bool, error) {
				return true, nil
			}},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:    "revocation lookup fails open",
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token}) },
			checker: &mockRevocationChecker{IsRevokedFunc: func(ctx context.Context, jti string) (bool, error) {
				return false, errors.New("db down")
			}},
			wantStatus: http.StatusOK,
		},
		{
			name:    "revocation lookup fails closed",
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token}) },
			checker: &mockRevocationChecker{IsRevokedFunc: func(ctx context.Context, jti string) (bool, error) {
				return false, errors.New("db down")
			}},
			cfg:        RevocationConfig{FailClosed: true},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/surveys", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			Middleware(sm, tt.checker, tt.cfg)(protectedHandler(t)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "user-1", rec.Header().Get("X-User"))
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := RequireRole(models.RoleAdmin)(next)

	t.Run("no session", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req = req.WithContext(WithSession(req.Context(), &models.SessionClaims{UserID: "u", Role: models.RoleUser}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req = req.WithContext(WithSession(req.Context(), &models.SessionClaims{UserID: "u", Role: models.RoleAdmin}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCSRFTokensMatch(t *testing.T) {
	token, err := GenerateCSRFToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)

	assert.True(t, CSRFTokensMatch(token, token))
	assert.False(t, CSRFTokensMatch(token, token[:63]+"x"))
	assert.False(t, CSRFTokensMatch("", ""))
}
