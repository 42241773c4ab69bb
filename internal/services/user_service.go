package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/pkg/auth"
	pkglogger "github.com/BradenHooton/surveyhub/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// UserService backs the admin user management routes
type UserService struct {
	repo        UserRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewUserService(repo UserRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UserUpdate carries optional admin edits; empty fields are left unchanged
type UserUpdate struct {
	Name     string
	Role     string
	Status   string
	Password string
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.String("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return users, nil
}

// CreateUser lets an admin provision an account with an initial password
func (s *UserService) CreateUser(ctx context.Context, actorID string, user *models.User, password string) (*models.User, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	if _, err := s.repo.GetByEmail(ctx, user.Email); err == nil {
		s.logger.Info("user already exists")
		return nil, models.ErrConflict
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := auth.ValidatePassword(password); err != nil {
		return nil, &models.ValidationError{Field: "password", Message: err.Error()}
	}
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	user.PasswordHash = hashedPassword

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user created", slog.String("user_id", createdUser.ID))
	s.auditLogger.LogAccountAction("user_created", createdUser.ID, actorID, nil)
	return createdUser, nil
}

func (s *UserService) UpdateUser(ctx context.Context, actorID, id string, update UserUpdate) (*models.User, error) {
	existingUser, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != "" {
		existingUser.Name = strings.TrimSpace(update.Name)
	}
	if update.Role != "" {
		if actorID == id && update.Role != existingUser.Role {
			return nil, &models.ValidationError{Field: "role", Message: "cannot change your own role"}
		}
		existingUser.Role = update.Role
	}
	if update.Status != "" {
		if actorID == id && update.Status != models.StatusActive {
			return nil, &models.ValidationError{Field: "status", Message: "cannot disable your own account"}
		}
		existingUser.Status = update.Status
	}

	existingUser.PasswordHash = ""
	if update.Password != "" {
		if err := auth.ValidatePassword(update.Password); err != nil {
			return nil, &models.ValidationError{Field: "password", Message: err.Error()}
		}
		hashedPassword, err := auth.HashPassword(update.Password)
		if err != nil {
			s.logger.Error("failed to hash password", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		existingUser.PasswordHash = hashedPassword
		s.auditLogger.LogAccountAction("password_reset", id, actorID, nil)
	}

	updatedUser, err := s.repo.Update(ctx, id, existingUser)
	if err != nil {
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user updated", slog.String("user_id", id))
	s.auditLogger.LogAccountAction("user_updated", id, actorID, nil)
	return updatedUser, nil
}

func (s *UserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return &models.ValidationError{Message: "cannot delete your own account"}
	}

	if _, err := s.GetUserByID(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user deleted", slog.String("user_id", id))
	s.auditLogger.LogAccountAction("user_deleted", id, actorID, nil)
	return nil
}
