package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/BradenHooton/surveyhub/internal/models"
	pkglogger "github.com/BradenHooton/surveyhub/pkg/logger"
	"github.com/google/uuid"
)

const (
	maxShortTextLen = 500
	maxLongTextLen  = 10000
)

// ResponseRepository defines the interface for response data access
type ResponseRepository interface {
	CreateGuarded(ctx context.Context, resp *models.SurveyResponse) (*models.SurveyResponse, error)
	ListBySurvey(ctx context.Context, surveyID string) ([]*models.SurveyResponse, error)
}

// Submission is a respondent's payload together with the derived fingerprint
type Submission struct {
	ID                string
	SurveyID          string
	LinkToken         *string
	DeviceFingerprint string
	Answers           []models.Answer
}

type ResponseService struct {
	repo        ResponseRepository
	surveys     *SurveyService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewResponseService(repo ResponseRepository, surveys *SurveyService, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *ResponseService {
	return &ResponseService{
		repo:        repo,
		surveys:     surveys,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Submit validates the answers against the published survey and stores the
// response through the duplicate-submission guard. The link token is recorded
// but does not limit how often a link can be used.
func (s *ResponseService) Submit(ctx context.Context, sub Submission) (*models.SurveyResponse, error) {
	if strings.TrimSpace(sub.SurveyID) == "" {
		return nil, &models.ValidationError{Field: "surveyId", Message: "is required"}
	}
	if sub.ID != "" {
		if _, err := uuid.Parse(sub.ID); err != nil {
			return nil, &models.ValidationError{Field: "id", Message: "must be a UUID"}
		}
	}

	survey, err := s.surveys.GetPublished(ctx, sub.SurveyID)
	if err != nil {
		return nil, err
	}

	answers, err := validateAnswers(survey, sub.Answers)
	if err != nil {
		return nil, err
	}

	resp, err := s.repo.CreateGuarded(ctx, &models.SurveyResponse{
		ID:                sub.ID,
		SurveyID:          survey.ID,
		LinkToken:         sub.LinkToken,
		DeviceFingerprint: sub.DeviceFingerprint,
		Answers:           answers,
	})
	switch {
	case err == nil:
	case errors.Is(err, models.ErrDuplicateSubmission):
		s.logger.Info("duplicate submission rejected", slog.String("survey_id", survey.ID))
		s.auditLogger.LogSurveyEvent("duplicate_submission", survey.ID, "", map[string]string{
			"fingerprint": sub.DeviceFingerprint,
		})
		return nil, models.ErrDuplicateSubmission
	case errors.Is(err, models.ErrConflict):
		return nil, &models.ValidationError{Field: "id", Message: "a response with this id already exists"}
	default:
		s.logger.Error("failed to store response", slog.String("survey_id", survey.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("response recorded", slog.String("survey_id", survey.ID), slog.String("response_id", resp.ID))
	return resp, nil
}

// List returns every response of a survey the actor manages
func (s *ResponseService) List(ctx context.Context, actor Actor, surveyID string) ([]*models.SurveyResponse, error) {
	if _, err := s.surveys.Get(ctx, actor, surveyID); err != nil {
		return nil, err
	}

	responses, err := s.repo.ListBySurvey(ctx, surveyID)
	if err != nil {
		s.logger.Error("failed to list responses", slog.String("survey_id", surveyID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return responses, nil
}

// validateAnswers checks every answer against its question and drops null values.
// Required questions must end up with a non-empty answer.
func validateAnswers(survey *models.Survey, answers []models.Answer) ([]models.Answer, error) {
	questions := survey.QuestionByID()
	seen := make(map[string]bool, len(answers))
	accepted := make([]models.Answer, 0, len(answers))

	for i, a := range answers {
		field := fmt.Sprintf("answers[%d]", i)
		q, ok := questions[a.QuestionID]
		if !ok {
			return nil, &models.ValidationError{Field: field + ".questionId", Message: "does not belong to this survey"}
		}
		if seen[a.QuestionID] {
			return nil, &models.ValidationError{Field: field + ".questionId", Message: "answered more than once"}
		}
		seen[a.QuestionID] = true

		value := bytes.TrimSpace(a.Value)
		if len(value) == 0 || bytes.Equal(value, []byte("null")) {
			continue
		}

		empty, err := checkAnswerValue(q, value)
		if err != nil {
			return nil, &models.ValidationError{Field: field + ".value", Message: err.Error()}
		}
		if empty {
			continue
		}
		accepted = append(accepted, models.Answer{QuestionID: a.QuestionID, Value: json.RawMessage(value)})
	}

	answered := make(map[string]bool, len(accepted))
	for _, a := range accepted {
		answered[a.QuestionID] = true
	}
	for _, q := range survey.Questions {
		if q.Required && !answered[q.ID] {
			return nil, &models.ValidationError{Field: "answers", Message: fmt.Sprintf("question %q is required", q.Prompt)}
		}
	}
	return accepted, nil
}

// checkAnswerValue reports whether the value is an empty answer, or why it is invalid
func checkAnswerValue(q *models.Question, value json.RawMessage) (bool, error) {
	switch q.Type {
	case models.QuestionShortText, models.QuestionLongText:
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return false, errors.New("must be a string")
		}
		limit := maxShortTextLen
		if q.Type == models.QuestionLongText {
			limit = maxLongTextLen
		}
		if utf8.RuneCountInString(text) > limit {
			return false, fmt.Errorf("must be at most %d characters", limit)
		}
		return strings.TrimSpace(text) == "", nil

	case models.QuestionSingleChoice:
		var choice string
		if err := json.Unmarshal(value, &choice); err != nil {
			return false, errors.New("must be a string")
		}
		if !containsOption(q.Options, choice) {
			return false, fmt.Errorf("%q is not an option", choice)
		}
		return false, nil

	case models.QuestionMultipleChoice:
		var choices []string
		if err := json.Unmarshal(value, &choices); err != nil {
			return false, errors.New("must be an array of strings")
		}
		picked := make(map[string]bool, len(choices))
		for _, c := range choices {
			if !containsOption(q.Options, c) {
				return false, fmt.Errorf("%q is not an option", c)
			}
			if picked[c] {
				return false, fmt.Errorf("%q selected twice", c)
			}
			picked[c] = true
		}
		return len(choices) == 0, nil

	case models.QuestionRating:
		var rating float64
		if err := json.Unmarshal(value, &rating); err != nil {
			return false, errors.New("must be a number")
		}
		scale := q.Scale
		if scale == 0 {
			scale = models.DefaultRatingScale
		}
		if rating != math.Trunc(rating) || rating < 1 || rating > float64(scale) {
			return false, fmt.Errorf("must be a whole number between 1 and %d", scale)
		}
		return false, nil

	case models.QuestionNumber:
		var number float64
		if err := json.Unmarshal(value, &number); err != nil {
			return false, errors.New("must be a number")
		}
		return false, nil
	}
	return false, fmt.Errorf("unsupported question type %q", q.Type)
}

func containsOption(options []string, value string) bool {
	for _, opt := range options {
		if opt == value {
			return true
		}
	}
	return false
}
