package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/services"
	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
)

// ResponseServiceInterface defines submission and retrieval of survey responses
type ResponseServiceInterface interface {
	Submit(ctx context.Context, sub services.Submission) (*models.SurveyResponse, error)
	List(ctx context.Context, actor services.Actor, surveyID string) ([]*models.SurveyResponse, error)
}

// ResponseHandler accepts anonymous submissions and lists them for owners
type ResponseHandler struct {
	service  ResponseServiceInterface
	ipConfig *pkghttp.IPConfig
}

func NewResponseHandler(service ResponseServiceInterface, ipConfig *pkghttp.IPConfig) *ResponseHandler {
	return &ResponseHandler{service: service, ipConfig: ipConfig}
}

// AnswerRequest carries a raw JSON value checked later against the question type
type AnswerRequest struct {
	QuestionID string          `json:"questionId" validate:"required"`
	Value      json.RawMessage `json:"value"`
}

// SubmitResponseRequest represents the request body for POST /responses.
// surveyId is checked by the service so a missing id is reported like any
// other field error.
type SubmitResponseRequest struct {
	ID        string          `json:"id" validate:"omitempty,uuid"`
	SurveyID  string          `json:"surveyId"`
	Answers   []AnswerRequest `json:"answers" validate:"max=200,dive"`
	LinkToken *string         `json:"linkToken" validate:"omitempty,max=128"`
}

type SubmitResponseResponse struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type ListResponsesResponse struct {
	Responses []*models.SurveyResponse `json:"responses"`
	Total     int                      `json:"total"`
}

// Submit records a response. The device fingerprint comes from the client IP
// and User-Agent; a second submission from the same device is rejected with 409.
// @Summary Submit survey response
// @Accept json
// @Param request body SubmitResponseRequest true "Response"
// @Produce json
// @Success 201 {object} SubmitResponseResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /responses [post]
func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitResponseRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	answers := make([]models.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, models.Answer{QuestionID: a.QuestionID, Value: a.Value})
	}

	fingerprint := services.DeviceFingerprint(
		pkghttp.ExtractClientIP(r, h.ipConfig),
		r.Header.Get("User-Agent"),
	)

	resp, err := h.service.Submit(r.Context(), services.Submission{
		ID:                req.ID,
		SurveyID:          req.SurveyID,
		LinkToken:         req.LinkToken,
		DeviceFingerprint: fingerprint,
		Answers:           answers,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, SubmitResponseResponse{ID: resp.ID, SubmittedAt: resp.SubmittedAt})
}

// List returns all responses of a survey the caller owns
// @Summary List survey responses
// @Param id path string true "Survey ID"
// @Produce json
// @Success 200 {object} ListResponsesResponse
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{id}/responses [get]
func (h *ResponseHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	responses, err := h.service.List(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if responses == nil {
		responses = []*models.SurveyResponse{}
	}
	pkghttp.WriteJSON(w, http.StatusOK, ListResponsesResponse{Responses: responses, Total: len(responses)})
}
