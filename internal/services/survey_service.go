package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/surveyhub/internal/models"
)

const (
	minRatingScale = 2
	maxRatingScale = 10
	minOptions     = 2
)

// SurveyRepository defines the interface for survey data access
type SurveyRepository interface {
	Create(ctx context.Context, survey *models.Survey) (*models.Survey, error)
	GetByID(ctx context.Context, id string) (*models.Survey, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Survey, error)
	Update(ctx context.Context, survey *models.Survey) (*models.Survey, error)
	SetPublished(ctx context.Context, id string, published bool) error
	Delete(ctx context.Context, id string) error
}

// Actor identifies the signed-in user a call is made on behalf of
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) canManage(survey *models.Survey) bool {
	return a.Role == models.RoleAdmin || survey.OwnerID == a.UserID
}

type SurveyService struct {
	repo   SurveyRepository
	logger *slog.Logger
}

func NewSurveyService(repo SurveyRepository, logger *slog.Logger) *SurveyService {
	return &SurveyService{repo: repo, logger: logger}
}

func (s *SurveyService) Create(ctx context.Context, actor Actor, survey *models.Survey) (*models.Survey, error) {
	survey.OwnerID = actor.UserID
	survey.Published = false
	if err := normalizeSurvey(survey); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, survey)
	if err != nil {
		s.logger.Error("failed to create survey", slog.String("owner_id", actor.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("survey created", slog.String("survey_id", created.ID), slog.String("owner_id", actor.UserID))
	return created, nil
}

// Get returns a survey the actor is allowed to manage
func (s *SurveyService) Get(ctx context.Context, actor Actor, id string) (*models.Survey, error) {
	survey, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canManage(survey) {
		// Hide existence of other tenants' surveys
		return nil, models.ErrNotFound
	}
	return survey, nil
}

// GetPublished is used by respondent-facing paths that have no session
func (s *SurveyService) GetPublished(ctx context.Context, id string) (*models.Survey, error) {
	survey, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !survey.Published {
		return nil, models.ErrSurveyNotPublished
	}
	return survey, nil
}

func (s *SurveyService) List(ctx context.Context, actor Actor, limit, offset int) ([]*models.Survey, error) {
	surveys, err := s.repo.ListByOwner(ctx, actor.UserID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list surveys", slog.String("owner_id", actor.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return surveys, nil
}

func (s *SurveyService) Update(ctx context.Context, actor Actor, id string, changes *models.Survey) (*models.Survey, error) {
	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	existing.Title = changes.Title
	existing.Description = changes.Description
	existing.Questions = changes.Questions
	if err := normalizeSurvey(existing); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		s.logger.Error("failed to update survey", slog.String("survey_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("survey updated", slog.String("survey_id", id))
	return updated, nil
}

func (s *SurveyService) SetPublished(ctx context.Context, actor Actor, id string, published bool) (*models.Survey, error) {
	survey, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if published && len(survey.Questions) == 0 {
		return nil, &models.ValidationError{Field: "questions", Message: "a survey needs at least one question to be published"}
	}

	if err := s.repo.SetPublished(ctx, id, published); err != nil {
		s.logger.Error("failed to change survey publication", slog.String("survey_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	survey.Published = published
	s.logger.Info("survey publication changed", slog.String("survey_id", id), slog.Bool("published", published))
	return survey, nil
}

func (s *SurveyService) Delete(ctx context.Context, actor Actor, id string) error {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete survey", slog.String("survey_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("survey deleted", slog.String("survey_id", id))
	return nil
}

func (s *SurveyService) load(ctx context.Context, id string) (*models.Survey, error) {
	survey, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get survey", slog.String("survey_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return survey, nil
}

// normalizeSurvey trims text, fills rating defaults and rejects malformed questions
func normalizeSurvey(survey *models.Survey) error {
	survey.Title = strings.TrimSpace(survey.Title)
	survey.Description = strings.TrimSpace(survey.Description)
	if survey.Title == "" {
		return &models.ValidationError{Field: "title", Message: "is required"}
	}

	for i := range survey.Questions {
		q := &survey.Questions[i]
		field := fmt.Sprintf("questions[%d]", i)

		q.Prompt = strings.TrimSpace(q.Prompt)
		if q.Prompt == "" {
			return &models.ValidationError{Field: field + ".prompt", Message: "is required"}
		}
		if !q.Type.Valid() {
			return &models.ValidationError{Field: field + ".type", Message: fmt.Sprintf("unknown question type %q", q.Type)}
		}

		if q.Type.HasOptions() {
			options, err := normalizeOptions(q.Options)
			if err != nil {
				return &models.ValidationError{Field: field + ".options", Message: err.Error()}
			}
			q.Options = options
		} else {
			q.Options = nil
		}

		switch {
		case q.Type != models.QuestionRating:
			q.Scale = 0
		case q.Scale == 0:
			q.Scale = models.DefaultRatingScale
		case q.Scale < minRatingScale || q.Scale > maxRatingScale:
			return &models.ValidationError{
				Field:   field + ".scale",
				Message: fmt.Sprintf("must be between %d and %d", minRatingScale, maxRatingScale),
			}
		}
	}
	return nil
}

func normalizeOptions(options []string) ([]string, error) {
	seen := make(map[string]bool, len(options))
	cleaned := make([]string, 0, len(options))
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return nil, errors.New("options cannot be blank")
		}
		if seen[opt] {
			return nil, fmt.Errorf("duplicate option %q", opt)
		}
		seen[opt] = true
		cleaned = append(cleaned, opt)
	}
	if len(cleaned) < minOptions {
		return nil, fmt.Errorf("at least %d options are required", minOptions)
	}
	return cleaned, nil
}
