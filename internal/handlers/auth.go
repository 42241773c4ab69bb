package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/surveyhub/internal/auth"
	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/services"
	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string, client services.ClientInfo) (*services.Session, error)
	Register(ctx context.Context, email, password, name string) (*services.Session, error)
	Logout(ctx context.Context, claims *models.SessionClaims) error
	CurrentUser(ctx context.Context, claims *models.SessionClaims) (*services.UserResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
	cookies  auth.CookieConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, cookies auth.CookieConfig, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
		cookies:  cookies,
		logger:   logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// SessionResponse is returned after login and registration. The session token
// itself only travels in the HTTP-only cookie.
type SessionResponse struct {
	User      *services.UserResponse `json:"user"`
	ExpiresAt time.Time              `json:"expiresAt"`
}

// Login handles user login
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 423 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	client := services.ClientInfo{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password, client)
	if err != nil {
		var lockedErr *models.AccountLockedError
		var credsErr *models.InvalidCredentialsError
		var vErr *models.ValidationError
		switch {
		case errors.As(err, &lockedErr):
			pkghttp.WriteAccountLocked(w, "Too many failed login attempts. Please try again later.", lockedErr.LockUntil)
		case errors.As(err, &credsErr):
			pkghttp.WriteInvalidCredentials(w, "Invalid email or password", credsErr.RemainingAttempts)
		case errors.As(err, &vErr):
			writeServiceError(w, err)
		case errors.Is(err, models.ErrAccountDisabled),
			errors.Is(err, models.ErrUnauthorized):
			// Return generic error for account status issues to prevent user enumeration
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	if !h.startSession(w, session) {
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, SessionResponse{User: session.User, ExpiresAt: session.ExpiresAt})
}

// Register handles user registration and signs the new account in
// @Summary User registration
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 201 {object} SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	session, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "An account with this email already exists")
			return
		}
		writeServiceError(w, err)
		return
	}

	if !h.startSession(w, session) {
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, SessionResponse{User: session.User, ExpiresAt: session.ExpiresAt})
}

// Logout revokes the current session and clears its cookies
// @Summary User logout
// @Success 204
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetSession(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	if err := h.service.Logout(r.Context(), claims); err != nil {
		writeServiceError(w, err)
		return
	}

	auth.ClearSessionCookies(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in user
// @Summary Current user
// @Produce json
// @Success 200 {object} services.UserResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.CurrentUser(r.Context(), auth.GetSession(r))
	if err != nil {
		if errors.Is(err, models.ErrAccountDisabled) {
			pkghttp.WriteUnauthorized(w, "Authentication failed")
			return
		}
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// startSession sets the session cookie and a fresh CSRF token alongside it
func (h *AuthHandler) startSession(w http.ResponseWriter, session *services.Session) bool {
	csrfToken, err := auth.GenerateCSRFToken()
	if err != nil {
		h.logger.Error("failed to generate CSRF token", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return false
	}

	maxAge := time.Until(session.ExpiresAt)
	auth.SetSessionCookie(w, session.Token, maxAge, h.cookies)
	auth.SetCSRFTokenCookie(w, csrfToken, maxAge, h.cookies)
	return true
}
