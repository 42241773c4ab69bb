package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/services"
	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
	"github.com/go-chi/chi/v5"
)

// LinkServiceInterface defines link creation and resolution
type LinkServiceInterface interface {
	CreateLink(ctx context.Context, actor services.Actor, surveyID string) (*services.LinkResult, error)
	ResolveShortCode(ctx context.Context, code string) (*services.ResolvedLink, error)
	ResolveToken(ctx context.Context, token string) (*models.Survey, *models.SurveyLink, error)
	ListLinks(ctx context.Context, actor services.Actor, surveyID string) ([]*models.SurveyLink, error)
	EmailLink(ctx context.Context, actor services.Actor, surveyID string, recipients []string) (*services.LinkResult, int, error)
}

// SurveyLinkHandler serves link management and the public link lookups
type SurveyLinkHandler struct {
	service LinkServiceInterface
}

func NewSurveyLinkHandler(service LinkServiceInterface) *SurveyLinkHandler {
	return &SurveyLinkHandler{service: service}
}

// CreateLinkRequest represents the request body for POST /survey-links
type CreateLinkRequest struct {
	SurveyID string `json:"surveyId" validate:"required,uuid"`
}

// EmailLinkRequest represents the request body for POST /survey-links/email
type EmailLinkRequest struct {
	SurveyID   string   `json:"surveyId" validate:"required,uuid"`
	Recipients []string `json:"recipients" validate:"required,min=1,max=100,dive,required,email"`
}

type EmailLinkResponse struct {
	Link *services.LinkResult `json:"link"`
	Sent int                  `json:"sent"`
}

type ListLinksResponse struct {
	Links []*models.SurveyLink `json:"links"`
}

// PublicSurveyResponse is the respondent view of a survey behind a link
type PublicSurveyResponse struct {
	Survey    *models.Survey `json:"survey"`
	LinkToken string         `json:"linkToken"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// Create issues a new shareable link for a survey the caller owns
// @Summary Create survey link
// @Accept json
// @Param request body CreateLinkRequest true "Survey link request"
// @Produce json
// @Success 201 {object} services.LinkResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /survey-links [post]
func (h *SurveyLinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req CreateLinkRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.service.CreateLink(r.Context(), actor, req.SurveyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, result)
}

// Email creates a link and sends it to each recipient
// @Summary Email survey link
// @Accept json
// @Param request body EmailLinkRequest true "Recipients"
// @Produce json
// @Success 201 {object} EmailLinkResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /survey-links/email [post]
func (h *SurveyLinkHandler) Email(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req EmailLinkRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, sent, err := h.service.EmailLink(r.Context(), actor, req.SurveyID, req.Recipients)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, EmailLinkResponse{Link: result, Sent: sent})
}

// List returns every link of a survey, newest first
// @Router /surveys/{id}/links [get]
func (h *SurveyLinkHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	links, err := h.service.ListLinks(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if links == nil {
		links = []*models.SurveyLink{}
	}
	pkghttp.WriteJSON(w, http.StatusOK, ListLinksResponse{Links: links})
}

// ResolveShortCode maps a short code to the full survey URL
// @Summary Resolve short link
// @Param code path string true "Short code"
// @Produce json
// @Success 200 {object} services.ResolvedLink
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /short-link/{code} [get]
func (h *SurveyLinkHandler) ResolveShortCode(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.service.ResolveShortCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, resolved)
}

// PublicSurvey returns the survey definition a respondent fills in
// @Summary Public survey by link token
// @Param token path string true "Link token"
// @Produce json
// @Success 200 {object} PublicSurveyResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /public/surveys/{token} [get]
func (h *SurveyLinkHandler) PublicSurvey(w http.ResponseWriter, r *http.Request) {
	survey, link, err := h.service.ResolveToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, PublicSurveyResponse{
		Survey:    survey,
		LinkToken: link.Token,
		ExpiresAt: link.ExpiresAt,
	})
}
