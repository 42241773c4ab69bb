package routes

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/surveyhub/internal/auth"
	"github.com/BradenHooton/surveyhub/internal/handlers"
	"github.com/BradenHooton/surveyhub/internal/kvstore"
	"github.com/BradenHooton/surveyhub/internal/middleware"
	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/ratelimit"
	"github.com/BradenHooton/surveyhub/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthyDB struct{}

func (healthyDB) HealthCheck(context.Context) error { return nil }

type noRevocations struct{}

func (noRevocations) IsRevoked(context.Context, string) (bool, error) { return false, nil }

const testSecret = "routes-test-secret-with-enough-entropy-0123456789"

func newTestRouter(t *testing.T) (http.Handler, *auth.SessionManager) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	sm := auth.NewSessionManager(testSecret, time.Hour)

	links := &handlers.MockLinkService{
		ResolveShortCodeFunc: func(ctx context.Context, code string) (*services.ResolvedLink, error) {
			return &services.ResolvedLink{URL: "http://localhost/s/tok", Token: "tok", SurveyID: "s1"}, nil
		},
	}

	h := Handlers{
		Auth:      handlers.NewAuthHandler(&handlers.MockAuthService{}, nil, auth.CookieConfig{SameSite: "lax"}, logger),
		Users:     handlers.NewUserHandler(&handlers.MockUserService{}),
		Surveys:   handlers.NewSurveyHandler(&handlers.MockSurveyService{}),
		Links:     handlers.NewSurveyLinkHandler(links),
		Responses: handlers.NewResponseHandler(&handlers.MockResponseService{}, nil),
		Analytics: handlers.NewAnalyticsHandler(&handlers.MockAnalyticsService{}),
		Health:    handlers.NewHealthHandler(healthyDB{}),
	}

	sec := Security{
		Sessions:    sm,
		Revocations: noRevocations{},
		LoginLimiter: ratelimit.New(ratelimit.Config{Name: "login", Window: time.Minute, MaxRequests: 2},
			kvstore.NewMemoryStore[ratelimit.Record](), logger),
		RegisterLimiter: ratelimit.New(ratelimit.Config{Name: "register", Window: time.Minute, MaxRequests: 2},
			kvstore.NewMemoryStore[ratelimit.Record](), logger),
		ResponseLimiter: ratelimit.New(ratelimit.Config{Name: "responses", Window: time.Minute, MaxRequests: 20},
			kvstore.NewMemoryStore[ratelimit.Record](), logger),
		PublicRateLimit: middleware.DefaultPublicRateLimit(nil),
		Logger:          logger,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, h, sec)
	return router, sm
}

func sessionCookie(t *testing.T, sm *auth.SessionManager, role string) *http.Cookie {
	t.Helper()
	token, _, err := sm.Issue(&models.User{ID: "11111111-1111-1111-1111-111111111111", Email: "owner@example.com", Role: role})
	require.NoError(t, err)
	return &http.Cookie{Name: auth.SessionCookieName, Value: token}
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	req.RemoteAddr = "192.0.2.10:5555"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutes_Health(t *testing.T) {
	router, _ := newTestRouter(t)

	w := serve(router, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_ProtectedRequireSession(t *testing.T) {
	router, sm := newTestRouter(t)

	w := serve(router, httptest.NewRequest("GET", "/surveys", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/surveys", nil)
	req.AddCookie(sessionCookie(t, sm, models.RoleUser))
	w = serve(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_CookieWritesNeedCSRFToken(t *testing.T) {
	router, sm := newTestRouter(t)
	const csrf = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	req := httptest.NewRequest("DELETE", "/surveys/22222222-2222-2222-2222-222222222222", nil)
	req.AddCookie(sessionCookie(t, sm, models.RoleUser))
	w := serve(router, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest("DELETE", "/surveys/22222222-2222-2222-2222-222222222222", nil)
	req.AddCookie(sessionCookie(t, sm, models.RoleUser))
	req.AddCookie(&http.Cookie{Name: auth.CSRFCookieName, Value: csrf})
	req.Header.Set(middleware.CSRFHeaderName, csrf)
	w = serve(router, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRoutes_AdminRequiresRole(t *testing.T) {
	router, sm := newTestRouter(t)

	req := httptest.NewRequest("GET", "/users", nil)
	req.AddCookie(sessionCookie(t, sm, models.RoleUser))
	w := serve(router, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest("GET", "/users", nil)
	req.AddCookie(sessionCookie(t, sm, models.RoleAdmin))
	w = serve(router, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoutes_LoginIsRateLimited(t *testing.T) {
	router, _ := newTestRouter(t)

	for i := 0; i < 2; i++ {
		w := serve(router, httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(`{}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	w := serve(router, httptest.NewRequest("POST", "/auth/login", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRoutes_RegisterAndLoginHaveSeparateBudgets(t *testing.T) {
	router, _ := newTestRouter(t)
	post := func(path string) int {
		return serve(router, httptest.NewRequest("POST", path, bytes.NewBufferString(`{}`))).Code
	}

	// Using up the register budget leaves every login attempt available
	assert.Equal(t, http.StatusBadRequest, post("/auth/register"))
	assert.Equal(t, http.StatusBadRequest, post("/auth/register"))
	assert.Equal(t, http.StatusTooManyRequests, post("/auth/register"))

	assert.Equal(t, http.StatusBadRequest, post("/auth/login"))
	assert.Equal(t, http.StatusBadRequest, post("/auth/login"))
	assert.Equal(t, http.StatusTooManyRequests, post("/auth/login"))
}

func TestRoutes_ShortLinkIsPublic(t *testing.T) {
	router, _ := newTestRouter(t)

	w := serve(router, httptest.NewRequest("GET", "/short-link/Ab3dE9", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"tok"`)
}
