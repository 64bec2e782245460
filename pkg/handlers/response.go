package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/haulflow/pkg/apperrors"
	"github.com/ekaya-inc/haulflow/pkg/jsonutil"
)

// DefaultMaxBodyBytes limits request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 32 << 20

// ApiResponse wraps data in the envelope every JSON endpoint returns.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ScopeMiddleware wraps a handler that needs a request-scoped database connection.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeServiceError maps a service error onto a status code and error body.
// Unexpected errors are logged and reported as 500 without their details.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, code, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, apperrors.ErrNoActiveProfile):
		status, code, message = http.StatusNotFound, "no_active_profile", err.Error()
	case errors.Is(err, apperrors.ErrInvalidProfile):
		status, code, message = http.StatusBadRequest, "invalid_profile", err.Error()
	case errors.Is(err, apperrors.ErrInvalidFilter):
		status, code, message = http.StatusBadRequest, "invalid_filter", err.Error()
	case errors.Is(err, apperrors.ErrNoMappings):
		status, code, message = http.StatusUnprocessableEntity, "no_mappings", err.Error()
	case errors.Is(err, apperrors.ErrConflict):
		status, code, message = http.StatusConflict, "conflict", err.Error()
	default:
		logger.Error(message, zap.Error(err))
	}

	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// decodeBody decodes a JSON request body limited to maxBytes. Numbers are kept as
// json.Number so identifiers survive unchanged. On failure it writes a 400 or 413
// response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any, logger *zap.Logger) bool {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	if err := jsonutil.DecodeUseNumber(r.Body, dst); err != nil {
		status, code, message := http.StatusBadRequest, "invalid_request", "Invalid request body"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status, code, message = http.StatusRequestEntityTooLarge, "request_too_large", "Request body too large"
		}
		if err := ErrorResponse(w, status, code, message); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return false
	}
	return true
}

func writeData(w http.ResponseWriter, statusCode int, data any, logger *zap.Logger) {
	if err := WriteJSON(w, statusCode, ApiResponse{Success: true, Data: data}); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}
