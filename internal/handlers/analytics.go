package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/services"
	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AnalyticsServiceInterface defines survey reporting
type AnalyticsServiceInterface interface {
	Summarize(ctx context.Context, actor services.Actor, surveyID string) (*models.SurveyAnalytics, error)
	Export(ctx context.Context, actor services.Actor, surveyID string) (string, []byte, error)
}

type AnalyticsHandler struct {
	service AnalyticsServiceInterface
}

func NewAnalyticsHandler(service AnalyticsServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Summary returns chart-ready aggregates for a survey
// @Summary Survey analytics
// @Param id path string true "Survey ID"
// @Produce json
// @Success 200 {object} models.SurveyAnalytics
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{id}/analytics [get]
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Summarize(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, summary)
}

// Export downloads every response as an .xlsx workbook
// @Summary Export responses
// @Param id path string true "Survey ID"
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{id}/export [get]
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	filename, data, err := h.service.Export(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
