package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/upkept/upkept-engine/pkg/apperrors"
)

// ApiResponse is the standard envelope for all JSON endpoints.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(ApiResponse{
		Success: false,
		Error:   errorCode,
		Message: message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteServiceError maps a service error to an HTTP response. Sentinel
// errors from apperrors get specific statuses; anything else is a 500
// with a generic message so internals stay out of responses.
func WriteServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var statusCode int
	var errorCode string

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		statusCode, errorCode = http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrUnknownItem):
		statusCode, errorCode = http.StatusNotFound, "unknown_item"
	case errors.Is(err, apperrors.ErrValidation):
		statusCode, errorCode = http.StatusBadRequest, "validation_failed"
	case errors.Is(err, apperrors.ErrInvalidTransition):
		statusCode, errorCode = http.StatusConflict, "invalid_transition"
	case errors.Is(err, apperrors.ErrConflict):
		statusCode, errorCode = http.StatusConflict, "conflict"
	default:
		logger.Error("Request failed", zap.Error(err))
		if writeErr := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "internal error"); writeErr != nil {
			logger.Error("Failed to write error response", zap.Error(writeErr))
		}
		return
	}

	if writeErr := ErrorResponse(w, statusCode, errorCode, err.Error()); writeErr != nil {
		logger.Error("Failed to write error response", zap.Error(writeErr))
	}
}
