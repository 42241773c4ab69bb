package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/surveyhub/internal/auth"
	"github.com/BradenHooton/surveyhub/internal/handlers"
	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthHandler(svc handlers.AuthServiceInterface) *handlers.AuthHandler {
	return handlers.NewAuthHandler(svc, nil, auth.CookieConfig{SameSite: "lax"}, nil)
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin_Success(t *testing.T) {
	expiresAt := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	var gotClient services.ClientInfo

	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, client services.ClientInfo) (*services.Session, error) {
			gotClient = client
			return &services.Session{
				Token:     "session.jwt.token",
				ExpiresAt: expiresAt,
				User:      &services.UserResponse{ID: "user-1", Email: email, Role: models.RoleUser},
			}, nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "SecureP@ss123",
	})
	req.RemoteAddr = "203.0.113.7:4000"
	req.Header.Set("User-Agent", "test-agent")

	w := httptest.NewRecorder()
	newAuthHandler(mockAuth).Login(w, req)

	var resp handlers.SessionResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.True(t, expiresAt.Equal(resp.ExpiresAt))
	assert.NotContains(t, w.Body.String(), "session.jwt.token", "token must only travel in the cookie")

	session := findCookie(w, auth.SessionCookieName)
	require.NotNil(t, session)
	assert.Equal(t, "session.jwt.token", session.Value)
	assert.True(t, session.HttpOnly)

	csrf := findCookie(w, auth.CSRFCookieName)
	require.NotNil(t, csrf)
	assert.Len(t, csrf.Value, 64)
	assert.False(t, csrf.HttpOnly)

	assert.Equal(t, "203.0.113.7", gotClient.IPAddress)
	assert.Equal(t, "test-agent", gotClient.UserAgent)
}

func TestLogin_InvalidCredentialsIncludesRemainingAttempts(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, client services.ClientInfo) (*services.Session, error) {
			return nil, &models.InvalidCredentialsError{RemainingAttempts: 3}
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "wrongpassword",
	})
	w := httptest.NewRecorder()
	newAuthHandler(mockAuth).Login(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
	require.NotNil(t, resp.RemainingAttempts)
	assert.Equal(t, 3, *resp.RemainingAttempts)
	assert.Nil(t, findCookie(w, auth.SessionCookieName))
}

func TestLogin_AccountLockedReturns423(t *testing.T) {
	lockUntil := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, client services.ClientInfo) (*services.Session, error) {
			return nil, &models.AccountLockedError{LockUntil: lockUntil}
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "a@x.com",
		Password: "CorrectP@ss123",
	})
	w := httptest.NewRecorder()
	newAuthHandler(mockAuth).Login(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusLocked, "account_locked")
	require.NotNil(t, resp.LockUntil)
	assert.True(t, lockUntil.Equal(*resp.LockUntil))
	assert.Contains(t, w.Body.String(), `"lockUntil":"2026-03-01T12:30:00Z"`)
}

func TestLogin_AccountStatusErrors_AntiEnumeration(t *testing.T) {
	accountErrors := []error{
		models.ErrAccountDisabled,
		models.ErrUnauthorized,
	}

	for _, accountErr := range accountErrors {
		t.Run("account error: "+accountErr.Error(), func(t *testing.T) {
			mockAuth := &handlers.MockAuthService{
				LoginFunc: func(ctx context.Context, email, password string, client services.ClientInfo) (*services.Session, error) {
					return nil, accountErr
				},
			}

			req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
				Email:    "user@example.com",
				Password: "password123",
			})
			w := httptest.NewRecorder()
			newAuthHandler(mockAuth).Login(w, req)

			resp := handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
			assert.Equal(t, "Authentication failed", resp.Message)
			assert.Nil(t, resp.RemainingAttempts)
		})
	}
}

func TestLogin_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"missing password", map[string]string{"email": "user@example.com"}},
		{"malformed email", map[string]string{"email": "not-an-email", "password": "x"}},
		{"unknown field", map[string]string{"email": "user@example.com", "password": "x", "remember": "yes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			mockAuth := &handlers.MockAuthService{
				LoginFunc: func(ctx context.Context, email, password string, client services.ClientInfo) (*services.Session, error) {
					called = true
					return nil, nil
				},
			}

			req := handlers.NewTestRequest(t, "POST", "/auth/login", tt.body)
			w := httptest.NewRecorder()
			newAuthHandler(mockAuth).Login(w, req)

			handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
			assert.False(t, called, "service must not run for invalid input")
		})
	}
}

func TestLogin_InternalError(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string, client services.ClientInfo) (*services.Session, error) {
			return nil, models.ErrInternalServer
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/auth/login", handlers.LoginRequest{
		Email:    "user@example.com",
		Password: "password123",
	})
	w := httptest.NewRecorder()
	newAuthHandler(mockAuth).Login(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
}

func TestRegister_Success(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string) (*services.Session, error) {
			return &services.Session{
				Token:     "new.session.token",
				ExpiresAt: time.Now().Add(time.Hour),
				User:      &services.UserResponse{ID: "user-2", Email: email, Name: name},
			}, nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "new@example.com",
		Password: "SecureP@ss123",
		Name:     "New User",
	})
	w := httptest.NewRecorder()
	newAuthHandler(mockAuth).Register(w, req)

	var resp handlers.SessionResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "New User", resp.User.Name)
	require.NotNil(t, findCookie(w, auth.SessionCookieName))
}

func TestRegister_Conflict(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string) (*services.Session, error) {
			return nil, models.ErrConflict
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "taken@example.com",
		Password: "SecureP@ss123",
		Name:     "Someone",
	})
	w := httptest.NewRecorder()
	newAuthHandler(mockAuth).Register(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusConflict, "conflict")
}

func TestRegister_WeakPassword(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, name string) (*services.Session, error) {
			return nil, &models.ValidationError{Field: "password", Message: "invalid password"}
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/auth/register", handlers.RegisterRequest{
		Email:    "new@example.com",
		Password: "short",
		Name:     "New User",
	})
	w := httptest.NewRecorder()
	newAuthHandler(mockAuth).Register(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
	assert.Equal(t, "password", resp.Details)
}

func TestLogout_RevokesAndClearsCookies(t *testing.T) {
	var revoked *models.SessionClaims
	mockAuth := &handlers.MockAuthService{
		LogoutFunc: func(ctx context.Context, claims *models.SessionClaims) error {
			revoked = claims
			return nil
		},
	}

	req := handlers.WithAuthContext(httptest.NewRequest("POST", "/auth/logout", nil), "user-1", "user@example.com")
	w := httptest.NewRecorder()
	newAuthHandler(mockAuth).Logout(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, revoked)
	assert.Equal(t, "jti-user-1", revoked.ID)

	cookie := findCookie(w, auth.SessionCookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, "", cookie.Value)
	assert.True(t, cookie.MaxAge < 0)
}

func TestLogout_WithoutSession(t *testing.T) {
	req := httptest.NewRequest("POST", "/auth/logout", nil)
	w := httptest.NewRecorder()
	newAuthHandler(&handlers.MockAuthService{}).Logout(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestMe(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		CurrentUserFunc: func(ctx context.Context, claims *models.SessionClaims) (*services.UserResponse, error) {
			return &services.UserResponse{ID: claims.UserID, Email: claims.Email}, nil
		},
	}

	req := handlers.WithAuthContext(httptest.NewRequest("GET", "/auth/me", nil), "user-1", "user@example.com")
	w := httptest.NewRecorder()
	newAuthHandler(mockAuth).Me(w, req)

	var resp services.UserResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "user-1", resp.ID)
}
