package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/surveyhub/internal/auth"
	"github.com/BradenHooton/surveyhub/internal/bruteforce"
	"github.com/BradenHooton/surveyhub/internal/models"
	pkgauth "github.com/BradenHooton/surveyhub/pkg/auth"
	pkglogger "github.com/BradenHooton/surveyhub/pkg/logger"
)

// SessionRepository stores logged-out session JTIs
type SessionRepository interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// LoginGuard is the brute-force policy consulted around credential checks
type LoginGuard interface {
	IsAccountLocked(ctx context.Context, email string) (bool, time.Time)
	RecordFailedLogin(ctx context.Context, email string) models.LoginAttemptRecord
	RecordSuccessfulLogin(ctx context.Context, email string)
	RemainingAttempts(ctx context.Context, email string) int
}

// AuthService handles authentication business logic
type AuthService struct {
	repo        UserRepository
	sessions    SessionRepository
	guard       LoginGuard
	sm          *auth.SessionManager
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewAuthService(
	repo UserRepository,
	sessions SessionRepository,
	guard LoginGuard,
	sm *auth.SessionManager,
	timing *auth.TimingDelay,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		sessions:    sessions,
		guard:       guard,
		sm:          sm,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Session is the outcome of a successful login or registration. Token goes
// into the session cookie and is never returned in a response body.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *UserResponse
}

// ClientInfo is request metadata recorded in audit events
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// Login verifies credentials under the brute-force policy.
//
// A locked email is rejected with *models.AccountLockedError before the password
// is looked at. A wrong password or unknown email counts as a failure and returns
// *models.InvalidCredentialsError, or *models.AccountLockedError when that failure
// trips the lock. Success clears the failure history.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*Session, error) {
	start := s.now()

	email = bruteforce.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, &models.ValidationError{Message: "email and password are required"}
	}

	if locked, until := s.guard.IsAccountLocked(ctx, email); locked {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_blocked",
			Email:         email,
			IPAddress:     client.IPAddress,
			UserAgent:     client.UserAgent,
			FailureReason: "account_locked",
		})
		return nil, &models.AccountLockedError{LockUntil: until}
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, s.loginFailed(ctx, email, "", client, start)
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, s.loginFailed(ctx, email, user.ID, client, start)
	}

	if err := validateAccountState(user); err != nil {
		s.logger.Info("login blocked due to account state",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     client.IPAddress,
			FailureReason: "account_disabled",
		})
		return nil, err
	}

	s.guard.RecordSuccessfulLogin(ctx, email)

	session, err := s.issueSession(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Success:   true,
	})
	return session, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email, userID string, client ClientInfo, start time.Time) error {
	rec := s.guard.RecordFailedLogin(ctx, email)
	if s.timing != nil {
		s.timing.WaitFrom(ctx, start)
	}

	s.logger.Info("login failed: invalid credentials", slog.String("email", pkglogger.SanitizedEmail(email)))

	if rec.IsLocked(s.now()) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "account_locked",
			UserID:        userID,
			Email:         email,
			IPAddress:     client.IPAddress,
			UserAgent:     client.UserAgent,
			FailureReason: "too_many_failures",
		})
		return &models.AccountLockedError{LockUntil: *rec.LockedUntil}
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		UserID:        userID,
		Email:         email,
		IPAddress:     client.IPAddress,
		UserAgent:     client.UserAgent,
		FailureReason: "invalid_credentials",
	})
	return &models.InvalidCredentialsError{RemainingAttempts: s.guard.RemainingAttempts(ctx, email)}
}

// Register creates a new user account and signs it in
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*Session, error) {
	email = bruteforce.NormalizeEmail(email)
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, &models.ValidationError{Field: "email", Message: "is required"}
	}
	if name == "" {
		return nil, &models.ValidationError{Field: "name", Message: "is required"}
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, &models.ValidationError{Field: "password", Message: err.Error()}
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: user already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	createdUser, err := s.repo.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Name:         name,
		Role:         models.RoleUser,
		Status:       models.StatusActive,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	session, err := s.issueSession(createdUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID))
	s.auditLogger.LogAccountAction("user_registered", createdUser.ID, "", nil)
	return session, nil
}

// Logout revokes the session until its natural expiry
func (s *AuthService) Logout(ctx context.Context, claims *models.SessionClaims) error {
	if claims == nil || claims.ID == "" {
		return models.ErrUnauthorized
	}

	expiresAt := s.now().Add(s.sm.Expiry())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.sessions.Revoke(ctx, claims.ID, claims.UserID, expiresAt); err != nil {
		s.logger.Error("failed to revoke session", slog.String("jti", claims.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// CurrentUser loads the account behind a session
func (s *AuthService) CurrentUser(ctx context.Context, claims *models.SessionClaims) (*UserResponse, error) {
	if claims == nil {
		return nil, models.ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to load session user", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if err := validateAccountState(user); err != nil {
		return nil, err
	}
	return ToUserResponse(user), nil
}

func (s *AuthService) issueSession(user *models.User) (*Session, error) {
	token, claims, err := s.sm.Issue(user)
	if err != nil {
		s.logger.Error("failed to issue session", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return &Session{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      ToUserResponse(user),
	}, nil
}

func validateAccountState(user *models.User) error {
	switch user.Status {
	case models.StatusActive:
		return nil
	case models.StatusDisabled:
		return models.ErrAccountDisabled
	default:
		return fmt.Errorf("unknown account status: %s", user.Status)
	}
}

// ToUserResponse converts a user model to its response DTO
func ToUserResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}
