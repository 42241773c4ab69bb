package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/services"
	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// SurveyServiceInterface defines the survey management operations
type SurveyServiceInterface interface {
	Create(ctx context.Context, actor services.Actor, survey *models.Survey) (*models.Survey, error)
	Get(ctx context.Context, actor services.Actor, id string) (*models.Survey, error)
	List(ctx context.Context, actor services.Actor, limit, offset int) ([]*models.Survey, error)
	Update(ctx context.Context, actor services.Actor, id string, changes *models.Survey) (*models.Survey, error)
	SetPublished(ctx context.Context, actor services.Actor, id string, published bool) (*models.Survey, error)
	Delete(ctx context.Context, actor services.Actor, id string) error
}

// SurveyHandler handles survey CRUD for signed-in owners
type SurveyHandler struct {
	service SurveyServiceInterface
}

func NewSurveyHandler(service SurveyServiceInterface) *SurveyHandler {
	return &SurveyHandler{service: service}
}

// QuestionRequest is one question in a survey payload. An empty id creates a
// new question; a known id updates it in place.
type QuestionRequest struct {
	ID       string   `json:"id" validate:"omitempty,uuid"`
	Type     string   `json:"type" validate:"required,oneof=short_text long_text single_choice multiple_choice rating number"`
	Prompt   string   `json:"prompt" validate:"required,max=500"`
	Required bool     `json:"required"`
	Options  []string `json:"options" validate:"max=50,dive,max=200"`
	Scale    int      `json:"scale" validate:"omitempty,gte=2,lte=10"`
}

// SurveyRequest is the body of create and update
type SurveyRequest struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=2000"`
	Questions   []QuestionRequest `json:"questions" validate:"max=100,dive"`
}

type ListSurveysResponse struct {
	Surveys []*models.Survey `json:"surveys"`
	Total   int              `json:"total"`
}

func (req *SurveyRequest) toModel() *models.Survey {
	survey := &models.Survey{
		Title:       req.Title,
		Description: req.Description,
		Questions:   make([]models.Question, 0, len(req.Questions)),
	}
	for _, q := range req.Questions {
		survey.Questions = append(survey.Questions, models.Question{
			ID:       q.ID,
			Type:     models.QuestionType(q.Type),
			Prompt:   q.Prompt,
			Required: q.Required,
			Options:  q.Options,
			Scale:    q.Scale,
		})
	}
	return survey
}

// Create adds a draft survey owned by the caller
// @Summary Create survey
// @Accept json
// @Param request body SurveyRequest true "Survey"
// @Produce json
// @Success 201 {object} models.Survey
// @Failure 400 {object} ErrorResponse
// @Router /surveys [post]
func (h *SurveyHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req SurveyRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	survey, err := h.service.Create(r.Context(), actor, req.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, survey)
}

// List returns the caller's surveys
// @Summary List surveys
// @Param limit query int false "Limit (default 20)" default(20)
// @Param offset query int false "Offset (default 0)" default(0)
// @Produce json
// @Success 200 {object} ListSurveysResponse
// @Router /surveys [get]
func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	limit, offset, ok := parsePagination(w, r, 20)
	if !ok {
		return
	}

	surveys, err := h.service.List(r.Context(), actor, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if surveys == nil {
		surveys = []*models.Survey{}
	}
	pkghttp.WriteJSON(w, http.StatusOK, ListSurveysResponse{Surveys: surveys, Total: len(surveys)})
}

// Get returns one survey with its questions
// @Summary Get survey
// @Param id path string true "Survey ID"
// @Produce json
// @Success 200 {object} models.Survey
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{id} [get]
func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	survey, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, survey)
}

// Update replaces the survey's title, description and question list
// @Summary Update survey
// @Accept json
// @Param id path string true "Survey ID"
// @Param request body SurveyRequest true "Survey"
// @Produce json
// @Success 200 {object} models.Survey
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{id} [put]
func (h *SurveyHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	var req SurveyRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	survey, err := h.service.Update(r.Context(), actor, id, req.toModel())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, survey)
}

// Publish opens the survey to respondents
// @Router /surveys/{id}/publish [post]
func (h *SurveyHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, true)
}

// Unpublish stops accepting responses; existing links resolve to 403
// @Router /surveys/{id}/unpublish [post]
func (h *SurveyHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.setPublished(w, r, false)
}

func (h *SurveyHandler) setPublished(w http.ResponseWriter, r *http.Request, published bool) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	survey, err := h.service.SetPublished(r.Context(), actor, id, published)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, survey)
}

// Delete removes a survey together with its questions, links and responses
// @Summary Delete survey
// @Param id path string true "Survey ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{id} [delete]
func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// surveyIDParam reads {id}; anything that is not a UUID cannot exist
func surveyIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		pkghttp.WriteNotFound(w, "Survey not found")
		return "", false
	}
	return id, true
}

// parsePagination reads limit and offset, capping limit at 100
func parsePagination(w http.ResponseWriter, r *http.Request, defaultLimit int) (int, int, bool) {
	limit, offset := defaultLimit, 0

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			pkghttp.WriteBadRequest(w, "limit must be a positive integer")
			return 0, 0, false
		}
		limit = min(n, 100)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			pkghttp.WriteBadRequest(w, "offset must be a non-negative integer")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}
