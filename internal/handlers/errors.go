package handlers

import (
	"errors"
	"net/http"

	"github.com/BradenHooton/surveyhub/internal/auth"
	"github.com/BradenHooton/surveyhub/internal/models"
	"github.com/BradenHooton/surveyhub/internal/services"
	pkghttp "github.com/BradenHooton/surveyhub/pkg/http"
)

// DuplicateSubmissionMessage is the fixed body message for a repeat submission
const DuplicateSubmissionMessage = "You have already submitted a response to this survey from this device."

// writeServiceError translates service errors into HTTP responses. Policy
// rejections keep their own error codes so clients can tell them apart from
// generic failures.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "bad_request", vErr.Error(), vErr.Field)
	case errors.Is(err, models.ErrInvalidShortCode):
		pkghttp.WriteError(w, http.StatusBadRequest, "invalid_short_code", "Short code must be 4-10 letters or digits")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrDuplicateSubmission):
		pkghttp.WriteDuplicateSubmission(w, DuplicateSubmissionMessage)
	case errors.Is(err, models.ErrLinkExpired):
		pkghttp.WriteError(w, http.StatusNotFound, "link_expired", "This survey link has expired")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrSurveyNotPublished):
		pkghttp.WriteError(w, http.StatusForbidden, "survey_not_published", "This survey is not accepting responses")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "You do not have access to this resource")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication required")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// decodeRequest reads and validates a JSON body, writing the 400 itself
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := pkghttp.DecodeJSON(w, r, dst); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return false
	}
	if err := ValidateRequest(dst); err != nil {
		writeServiceError(w, err)
		return false
	}
	return true
}

// actorFromRequest builds the service actor from the authenticated session
func actorFromRequest(w http.ResponseWriter, r *http.Request) (services.Actor, bool) {
	claims := auth.GetSession(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return services.Actor{}, false
	}
	return services.Actor{UserID: claims.UserID, Role: claims.Role}, true
}
