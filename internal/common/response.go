package common

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorBody represents a consistent error payload returned by the API.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders an error response using the canonical error shape.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, map[string]any{
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Renderer is implemented by domain errors that know how they map onto an
// HTTP response.
type Renderer interface {
	AppError() *AppError
}

// WriteError renders err, honouring AppError, ValidationError and Renderer
// values in the chain.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	var renderer Renderer
	if !errors.As(err, &appErr) && errors.As(err, &renderer) {
		appErr = renderer.AppError()
	}
	if appErr != nil {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	if v, ok := AsValidation(err); ok {
		JSONError(w, http.StatusBadRequest, "VALIDATION_FAILED", "validation failed", v)
		return
	}
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
