package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/surveyhub/internal/handlers"
	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSurveyLink(t *testing.T) {
	expiresAt := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := &handlers.MockLinkService{
		CreateLinkFunc: func(ctx context.Context, actor services.Actor, surveyID string) (*services.LinkResult, error) {
			assert.Equal(t, "owner-1", actor.UserID)
			assert.Equal(t, testSurveyID, surveyID)
			return &services.LinkResult{
				Token:     "tok",
				ShortCode: "Ab12Cd",
				ExpiresAt: expiresAt,
				URL:       "https://surveys.example.com/s/tok",
				ShortURL:  "https://surveys.example.com/r/Ab12Cd",
			}, nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/survey-links", handlers.CreateLinkRequest{SurveyID: testSurveyID})
	req = handlers.WithAuthContext(req, "owner-1", "owner@example.com")
	w := httptest.NewRecorder()
	handlers.NewSurveyLinkHandler(svc).Create(w, req)

	var body map[string]any
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &body)
	for _, key := range []string{"token", "shortCode", "expiresAt", "url", "shortUrl"} {
		assert.Contains(t, body, key)
	}
	assert.Equal(t, "Ab12Cd", body["shortCode"])
}

func TestCreateSurveyLink_Errors(t *testing.T) {
	t.Run("missing survey id", func(t *testing.T) {
		req := handlers.NewTestRequest(t, "POST", "/survey-links", map[string]string{})
		req = handlers.WithAuthContext(req, "owner-1", "owner@example.com")
		w := httptest.NewRecorder()
		handlers.NewSurveyLinkHandler(&handlers.MockLinkService{}).Create(w, req)

		resp := handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
		assert.Equal(t, "surveyId", resp.Details)
	})

	t.Run("survey of another owner", func(t *testing.T) {
		req := handlers.NewTestRequest(t, "POST", "/survey-links", handlers.CreateLinkRequest{SurveyID: testSurveyID})
		req = handlers.WithAuthContext(req, "owner-2", "other@example.com")
		w := httptest.NewRecorder()
		handlers.NewSurveyLinkHandler(&handlers.MockLinkService{}).Create(w, req)

		handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
	})

	t.Run("no session", func(t *testing.T) {
		req := handlers.NewTestRequest(t, "POST", "/survey-links", handlers.CreateLinkRequest{SurveyID: testSurveyID})
		w := httptest.NewRecorder()
		handlers.NewSurveyLinkHandler(&handlers.MockLinkService{}).Create(w, req)

		handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
	})
}

func TestResolveShortCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"malformed", models.ErrInvalidShortCode, http.StatusBadRequest, "invalid_short_code"},
		{"unknown", models.ErrNotFound, http.StatusNotFound, "not_found"},
		{"expired", models.ErrLinkExpired, http.StatusNotFound, "link_expired"},
		{"unpublished", models.ErrSurveyNotPublished, http.StatusForbidden, "survey_not_published"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &handlers.MockLinkService{
				ResolveShortCodeFunc: func(ctx context.Context, code string) (*services.ResolvedLink, error) {
					return nil, tt.err
				},
			}

			req := httptest.NewRequest("GET", "/short-link/abc!", nil)
			req = handlers.WithChiRouteContext(req, map[string]string{"code": "abc!"})
			w := httptest.NewRecorder()
			handlers.NewSurveyLinkHandler(svc).ResolveShortCode(w, req)

			handlers.AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
		})
	}

	t.Run("resolves", func(t *testing.T) {
		svc := &handlers.MockLinkService{
			ResolveShortCodeFunc: func(ctx context.Context, code string) (*services.ResolvedLink, error) {
				assert.Equal(t, "Ab12Cd", code)
				return &services.ResolvedLink{URL: "https://surveys.example.com/s/tok", Token: "tok", SurveyID: testSurveyID}, nil
			},
		}

		req := httptest.NewRequest("GET", "/short-link/Ab12Cd", nil)
		req = handlers.WithChiRouteContext(req, map[string]string{"code": "Ab12Cd"})
		w := httptest.NewRecorder()
		handlers.NewSurveyLinkHandler(svc).ResolveShortCode(w, req)

		var resp services.ResolvedLink
		handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, "https://surveys.example.com/s/tok", resp.URL)
	})
}

func TestPublicSurvey(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	svc := &handlers.MockLinkService{
		ResolveTokenFunc: func(ctx context.Context, token string) (*models.Survey, *models.SurveyLink, error) {
			return &models.Survey{ID: testSurveyID, Title: "Feedback", Published: true},
				&models.SurveyLink{Token: token, ExpiresAt: expiresAt}, nil
		},
	}

	req := httptest.NewRequest("GET", "/public/surveys/tok", nil)
	req = handlers.WithChiRouteContext(req, map[string]string{"token": "tok"})
	w := httptest.NewRecorder()
	handlers.NewSurveyLinkHandler(svc).PublicSurvey(w, req)

	var resp handlers.PublicSurveyResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	require.NotNil(t, resp.Survey)
	assert.Equal(t, "Feedback", resp.Survey.Title)
	assert.Equal(t, "tok", resp.LinkToken)
	assert.True(t, expiresAt.Equal(resp.ExpiresAt))
}

func TestEmailSurveyLink(t *testing.T) {
	svc := &handlers.MockLinkService{
		EmailLinkFunc: func(ctx context.Context, actor services.Actor, surveyID string, recipients []string) (*services.LinkResult, int, error) {
			return &services.LinkResult{Token: "tok"}, len(recipients), nil
		},
	}

	req := handlers.NewTestRequest(t, "POST", "/survey-links/email", handlers.EmailLinkRequest{
		SurveyID:   testSurveyID,
		Recipients: []string{"a@example.com", "b@example.com"},
	})
	req = handlers.WithAuthContext(req, "owner-1", "owner@example.com")
	w := httptest.NewRecorder()
	handlers.NewSurveyLinkHandler(svc).Email(w, req)

	var resp handlers.EmailLinkResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, 2, resp.Sent)
}

func TestEmailSurveyLink_InvalidRecipient(t *testing.T) {
	req := handlers.NewTestRequest(t, "POST", "/survey-links/email", handlers.EmailLinkRequest{
		SurveyID:   testSurveyID,
		Recipients: []string{"a@example.com", "nope"},
	})
	req = handlers.WithAuthContext(req, "owner-1", "owner@example.com")
	w := httptest.NewRecorder()
	handlers.NewSurveyLinkHandler(&handlers.MockLinkService{}).Email(w, req)

	resp := handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
	assert.Equal(t, "recipients[1]", resp.Details)
}
