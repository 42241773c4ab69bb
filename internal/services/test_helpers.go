package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/surveyhub/internal/models"
	pkglogger "github.com/BradenHooton/surveyhub/pkg/logger"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.User, error)
	ListFunc       func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateFunc     func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc     func(ctx context.Context, id string, user *models.User) (*models.User, error)
	DeleteFunc     func(ctx context.Context, id string) error
	GetByEmailFunc func(ctx context.Context, email string) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	RevokeFunc    func(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsRevokedFunc func(ctx context.Context, jti string) (bool, error)
}

func (m *MockSessionRepository) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, jti, userID, expiresAt)
	}
	return nil
}

func (m *MockSessionRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if m.IsRevokedFunc != nil {
		return m.IsRevokedFunc(ctx, jti)
	}
	return false, nil
}

// MockSurveyRepository implements SurveyRepository for testing
type MockSurveyRepository struct {
	CreateFunc       func(ctx context.Context, survey *models.Survey) (*models.Survey, error)
	GetByIDFunc      func(ctx context.Context, id string) (*models.Survey, error)
	ListByOwnerFunc  func(ctx context.Context, ownerID string, limit, offset int) ([]*models.Survey, error)
	UpdateFunc       func(ctx context.Context, survey *models.Survey) (*models.Survey, error)
	SetPublishedFunc func(ctx context.Context, id string, published bool) error
	DeleteFunc       func(ctx context.Context, id string) error
}

func (m *MockSurveyRepository) Create(ctx context.Context, survey *models.Survey) (*models.Survey, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, survey)
	}
	survey.ID = "survey-new"
	return survey, nil
}

func (m *MockSurveyRepository) GetByID(ctx context.Context, id string) (*models.Survey, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockSurveyRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.Survey, error) {
	if m.ListByOwnerFunc != nil {
		return m.ListByOwnerFunc(ctx, ownerID, limit, offset)
	}
	return []*models.Survey{}, nil
}

func (m *MockSurveyRepository) Update(ctx context.Context, survey *models.Survey) (*models.Survey, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, survey)
	}
	return survey, nil
}

func (m *MockSurveyRepository) SetPublished(ctx context.Context, id string, published bool) error {
	if m.SetPublishedFunc != nil {
		return m.SetPublishedFunc(ctx, id, published)
	}
	return nil
}

func (m *MockSurveyRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockSurveyLinkRepository implements SurveyLinkRepository for testing
type MockSurveyLinkRepository struct {
	CreateFunc         func(ctx context.Context, link *models.SurveyLink) (*models.SurveyLink, error)
	GetByShortCodeFunc func(ctx context.Context, code string) (*models.SurveyLink, error)
	GetByTokenFunc     func(ctx context.Context, token string) (*models.SurveyLink, error)
	ListBySurveyFunc   func(ctx context.Context, surveyID string) ([]*models.SurveyLink, error)
}

func (m *MockSurveyLinkRepository) Create(ctx context.Context, link *models.SurveyLink) (*models.SurveyLink, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, link)
	}
	link.ID = "link-new"
	link.CreatedAt = time.Now()
	return link, nil
}

func (m *MockSurveyLinkRepository) GetByShortCode(ctx context.Context, code string) (*models.SurveyLink, error) {
	if m.GetByShortCodeFunc != nil {
		return m.GetByShortCodeFunc(ctx, code)
	}
	return nil, models.ErrNotFound
}

func (m *MockSurveyLinkRepository) GetByToken(ctx context.Context, token string) (*models.SurveyLink, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockSurveyLinkRepository) ListBySurvey(ctx context.Context, surveyID string) ([]*models.SurveyLink, error) {
	if m.ListBySurveyFunc != nil {
		return m.ListBySurveyFunc(ctx, surveyID)
	}
	return []*models.SurveyLink{}, nil
}

// MockResponseRepository implements ResponseRepository for testing
type MockResponseRepository struct {
	CreateGuardedFunc func(ctx context.Context, resp *models.SurveyResponse) (*models.SurveyResponse, error)
	ListBySurveyFunc  func(ctx context.Context, surveyID string) ([]*models.SurveyResponse, error)
}

func (m *MockResponseRepository) CreateGuarded(ctx context.Context, resp *models.SurveyResponse) (*models.SurveyResponse, error) {
	if m.CreateGuardedFunc != nil {
		return m.CreateGuardedFunc(ctx, resp)
	}
	resp.ID = "response-new"
	resp.SubmittedAt = time.Now()
	return resp, nil
}

func (m *MockResponseRepository) ListBySurvey(ctx context.Context, surveyID string) ([]*models.SurveyResponse, error) {
	if m.ListBySurveyFunc != nil {
		return m.ListBySurveyFunc(ctx, surveyID)
	}
	return []*models.SurveyResponse{}, nil
}

// MockCodeGenerator implements CodeGenerator for testing
type MockCodeGenerator struct {
	NextFunc func(ctx context.Context) (string, error)
}

func (m *MockCodeGenerator) Next(ctx context.Context) (string, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx)
	}
	return "Ab12Cd", nil
}

// MockEmailSender records invitations instead of sending them
type MockEmailSender struct {
	SendFunc func(ctx context.Context, to, surveyTitle, url string, expiresAt time.Time) error

	mu   sync.Mutex
	Sent []string
}

func (m *MockEmailSender) SendSurveyInvitation(ctx context.Context, to, surveyTitle, url string, expiresAt time.Time) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, to, surveyTitle, url, expiresAt); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, to)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(discardLogger())
}

func NewTestUser(id, email, name string) *models.User {
	return &models.User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      models.RoleUser,
		Status:    models.StatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func NewTestUserWithPassword(id, email, name, passwordHash string) *models.User {
	user := NewTestUser(id, email, name)
	user.PasswordHash = passwordHash
	return user
}

// NewTestSurvey returns a published survey owned by ownerID covering every question type
func NewTestSurvey(id, ownerID string) *models.Survey {
	return &models.Survey{
		ID:        id,
		OwnerID:   ownerID,
		Title:     "Team Pulse",
		Published: true,
		Questions: []models.Question{
			{ID: "q-text", SurveyID: id, Position: 1, Type: models.QuestionShortText, Prompt: "Name", Required: false},
			{ID: "q-single", SurveyID: id, Position: 2, Type: models.QuestionSingleChoice, Prompt: "Team", Required: true, Options: []string{"Red", "Blue"}},
			{ID: "q-multi", SurveyID: id, Position: 3, Type: models.QuestionMultipleChoice, Prompt: "Tools", Options: []string{"Go", "SQL", "Redis"}},
			{ID: "q-rating", SurveyID: id, Position: 4, Type: models.QuestionRating, Prompt: "Mood", Required: true, Scale: 5},
			{ID: "q-number", SurveyID: id, Position: 5, Type: models.QuestionNumber, Prompt: "Hours"},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func answer(questionID, raw string) models.Answer {
	return models.Answer{QuestionID: questionID, Value: json.RawMessage(raw)}
}

func ownerActor(id string) Actor {
	return Actor{UserID: id, Role: models.RoleUser}
}
