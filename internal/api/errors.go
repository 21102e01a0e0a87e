// Package api provides the HTTP API server implementation.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/habit-stake/internal/errors"
	"github.com/habit-stake/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// Common error codes
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// respondServiceError maps a service-layer error onto the wire. Categorized
// errors carry their own HTTP status and machine code; anything else is an
// internal error with the detail kept out of the response.
func respondServiceError(w http.ResponseWriter, err error) {
	var ce *apperrors.CategorizedError
	if errors.As(err, &ce) {
		respondError(w, ce.StatusCode, ce.Code, ce.Message, ce.Details)
		return
	}

	respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred", nil)
}
