package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/surveyhub/internal/auth"
	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/services"
	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds session claims to the request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	return withClaims(req, userID, email, models.RoleUser)
}

// WithAdminContext adds admin session claims to the request context
func WithAdminContext(req *http.Request, userID, email string) *http.Request {
	return withClaims(req, userID, email, models.RoleAdmin)
}

func withClaims(req *http.Request, userID, email, role string) *http.Request {
	claims := &models.SessionClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
	}
	claims.ID = "jti-" + userID
	return req.WithContext(auth.WithSession(req.Context(), claims))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// WithChiRouteContext adds chi URL parameters to request context for testing.
// Tests call handlers directly, so the router never fills these in.
//
// Example usage:
//
//	req := httptest.NewRequest("GET", "/short-link/Ab12Cd", nil)
//	req = WithChiRouteContext(req, map[string]string{"code": "Ab12Cd"})
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc       func(ctx context.Context, email, password string, client services.ClientInfo) (*services.Session, error)
	RegisterFunc    func(ctx context.Context, email, password, name string) (*services.Session, error)
	LogoutFunc      func(ctx context.Context, claims *models.SessionClaims) error
	CurrentUserFunc func(ctx context.Context, claims *models.SessionClaims) (*services.UserResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, client services.ClientInfo) (*services.Session, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password, client)
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string) (*services.Session, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, email, password, name)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *models.SessionClaims) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, claims)
}

func (m *MockAuthService) CurrentUser(ctx context.Context, claims *models.SessionClaims) (*services.UserResponse, error) {
	if m.CurrentUserFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.CurrentUserFunc(ctx, claims)
}

// MockSurveyService implements SurveyServiceInterface for testing
type MockSurveyService struct {
	CreateFunc       func(ctx context.Context, actor services.Actor, survey *models.Survey) (*models.Survey, error)
	GetFunc          func(ctx context.Context, actor services.Actor, id string) (*models.Survey, error)
	ListFunc         func(ctx context.Context, actor services.Actor, limit, offset int) ([]*models.Survey, error)
	UpdateFunc       func(ctx context.Context, actor services.Actor, id string, changes *models.Survey) (*models.Survey, error)
	SetPublishedFunc func(ctx context.Context, actor services.Actor, id string, published bool) (*models.Survey, error)
	DeleteFunc       func(ctx context.Context, actor services.Actor, id string) error
}

func (m *MockSurveyService) Create(ctx context.Context, actor services.Actor, survey *models.Survey) (*models.Survey, error) {
	if m.CreateFunc == nil {
		return survey, nil
	}
	return m.CreateFunc(ctx, actor, survey)
}

func (m *MockSurveyService) Get(ctx context.Context, actor services.Actor, id string) (*models.Survey, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, actor, id)
}

func (m *MockSurveyService) List(ctx context.Context, actor services.Actor, limit, offset int) ([]*models.Survey, error) {
	if m.ListFunc == nil {
		return []*models.Survey{}, nil
	}
	return m.ListFunc(ctx, actor, limit, offset)
}

func (m *MockSurveyService) Update(ctx context.Context, actor services.Actor, id string, changes *models.Survey) (*models.Survey, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, actor, id, changes)
}

func (m *MockSurveyService) SetPublished(ctx context.Context, actor services.Actor, id string, published bool) (*models.Survey, error) {
	if m.SetPublishedFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.SetPublishedFunc(ctx, actor, id, published)
}

func (m *MockSurveyService) Delete(ctx context.Context, actor services.Actor, id string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, actor, id)
}

// MockLinkService implements LinkServiceInterface for testing
type MockLinkService struct {
	CreateLinkFunc       func(ctx context.Context, actor services.Actor, surveyID string) (*services.LinkResult, error)
	ResolveShortCodeFunc func(ctx context.Context, code string) (*services.ResolvedLink, error)
	ResolveTokenFunc     func(ctx context.Context, token string) (*models.Survey, *models.SurveyLink, error)
	ListLinksFunc        func(ctx context.Context, actor services.Actor, surveyID string) ([]*models.SurveyLink, error)
	EmailLinkFunc        func(ctx context.Context, actor services.Actor, surveyID string, recipients []string) (*services.LinkResult, int, error)
}

func (m *MockLinkService) CreateLink(ctx context.Context, actor services.Actor, surveyID string) (*services.LinkResult, error) {
	if m.CreateLinkFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.CreateLinkFunc(ctx, actor, surveyID)
}

func (m *MockLinkService) ResolveShortCode(ctx context.Context, code string) (*services.ResolvedLink, error) {
	if m.ResolveShortCodeFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ResolveShortCodeFunc(ctx, code)
}

func (m *MockLinkService) ResolveToken(ctx context.Context, token string) (*models.Survey, *models.SurveyLink, error) {
	if m.ResolveTokenFunc == nil {
		return nil, nil, models.ErrNotFound
	}
	return m.ResolveTokenFunc(ctx, token)
}

func (m *MockLinkService) ListLinks(ctx context.Context, actor services.Actor, surveyID string) ([]*models.SurveyLink, error) {
	if m.ListLinksFunc == nil {
		return nil, nil
	}
	return m.ListLinksFunc(ctx, actor, surveyID)
}

func (m *MockLinkService) EmailLink(ctx context.Context, actor services.Actor, surveyID string, recipients []string) (*services.LinkResult, int, error) {
	if m.EmailLinkFunc == nil {
		return nil, 0, models.ErrNotFound
	}
	return m.EmailLinkFunc(ctx, actor, surveyID, recipients)
}

// MockResponseService implements ResponseServiceInterface for testing
type MockResponseService struct {
	SubmitFunc func(ctx context.Context, sub services.Submission) (*models.SurveyResponse, error)
	ListFunc   func(ctx context.Context, actor services.Actor, surveyID string) ([]*models.SurveyResponse, error)
}

func (m *MockResponseService) Submit(ctx context.Context, sub services.Submission) (*models.SurveyResponse, error) {
	if m.SubmitFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.SubmitFunc(ctx, sub)
}

func (m *MockResponseService) List(ctx context.Context, actor services.Actor, surveyID string) ([]*models.SurveyResponse, error) {
	if m.ListFunc == nil {
		return nil, nil
	}
	return m.ListFunc(ctx, actor, surveyID)
}

// MockAnalyticsService implements AnalyticsServiceInterface for testing
type MockAnalyticsService struct {
	SummarizeFunc func(ctx context.Context, actor services.Actor, surveyID string) (*models.SurveyAnalytics, error)
	ExportFunc    func(ctx context.Context, actor services.Actor, surveyID string) (string, []byte, error)
}

func (m *MockAnalyticsService) Summarize(ctx context.Context, actor services.Actor, surveyID string) (*models.SurveyAnalytics, error) {
	if m.SummarizeFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.SummarizeFunc(ctx, actor, surveyID)
}

func (m *MockAnalyticsService) Export(ctx context.Context, actor services.Actor, surveyID string) (string, []byte, error) {
	if m.ExportFunc == nil {
		return "", nil, models.ErrNotFound
	}
	return m.ExportFunc(ctx, actor, surveyID)
}

// MockUserService implements UserService for testing
type MockUserService struct {
	GetUserByIDFunc func(ctx context.Context, id string) (*models.User, error)
	ListUsersFunc   func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CreateUserFunc  func(ctx context.Context, actorID string, user *models.User, password string) (*models.User, error)
	UpdateUserFunc  func(ctx context.Context, actorID, id string, update services.UserUpdate) (*models.User, error)
	DeleteUserFunc  func(ctx context.Context, actorID, id string) error
}

func (m *MockUserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetUserByIDFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetUserByIDFunc(ctx, id)
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListUsersFunc == nil {
		return []*models.User{}, nil
	}
	return m.ListUsersFunc(ctx, limit, offset)
}

func (m *MockUserService) CreateUser(ctx context.Context, actorID string, user *models.User, password string) (*models.User, error) {
	if m.CreateUserFunc == nil {
		return nil, models.ErrConflict
	}
	return m.CreateUserFunc(ctx, actorID, user, password)
}

func (m *MockUserService) UpdateUser(ctx context.Context, actorID, id string, update services.UserUpdate) (*models.User, error) {
	if m.UpdateUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateUserFunc(ctx, actorID, id, update)
}

func (m *MockUserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if m.DeleteUserFunc == nil {
		return nil
	}
	return m.DeleteUserFunc(ctx, actorID, id)
}
