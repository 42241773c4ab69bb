package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorResponse represents a standard API error response.
// The pointer fields are only present on the policy errors that use them.
type ErrorResponse struct {
	Error             string     `json:"error"`             // Machine-readable error code
	Message           string     `json:"message"`           // Human-readable message
	Details           string     `json:"details,omitempty"` // Optional additional context
	RetryAfter        *int       `json:"retryAfter,omitempty"`
	LockUntil         *time.Time `json:"lockUntil,omitempty"`
	RemainingAttempts *int       `json:"remainingAttempts,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, "")
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "conflict", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}

// WriteDuplicateSubmission reports that this device already answered the survey
func WriteDuplicateSubmission(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, "duplicate_submission", message)
}

// WriteRateLimited is WriteTooManyRequests with the seconds until the window resets
func WriteRateLimited(w http.ResponseWriter, message string, retryAfter int) {
	WriteJSON(w, http.StatusTooManyRequests, ErrorResponse{
		Error:      "rate_limit_exceeded",
		Message:    message,
		RetryAfter: &retryAfter,
	})
}

// WriteAccountLocked responds 423 with the instant the lock lifts
func WriteAccountLocked(w http.ResponseWriter, message string, lockUntil time.Time) {
	until := lockUntil.UTC()
	WriteJSON(w, http.StatusLocked, ErrorResponse{
		Error:     "account_locked",
		Message:   message,
		LockUntil: &until,
	})
}

// WriteInvalidCredentials responds 401 with the failures left before lockout
func WriteInvalidCredentials(w http.ResponseWriter, message string, remaining int) {
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
		Error:             "unauthorized",
		Message:           message,
		RemainingAttempts: &remaining,
	})
}
