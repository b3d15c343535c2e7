package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/benjamin1108/reinvent-insight/internal/api/shared"
	"github.com/benjamin1108/reinvent-insight/internal/llm"
	"github.com/benjamin1108/reinvent-insight/internal/source"
	"github.com/benjamin1108/reinvent-insight/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound

	// Bad request errors
	case errors.Is(err, llm.ErrUnknownTaskType),
		errors.Is(err, source.ErrEmptySource),
		errors.Is(err, source.ErrUnsupportedSource):
		return http.StatusBadRequest

	// Shutting down
	case errors.Is(err, task.ErrManagerClosed):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return "Analysis task not found"

	case errors.Is(err, llm.ErrUnknownTaskType):
		return "Unknown analysis task type"

	case errors.Is(err, source.ErrEmptySource):
		return "Source content cannot be empty"

	case errors.Is(err, source.ErrUnsupportedSource):
		return "Unsupported source kind"

	case errors.Is(err, task.ErrManagerClosed):
		return "Server is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps the error and writes a sanitized response, logging the
// full (redacted) error server-side. An empty userMessage falls back to the
// safe message for the error type.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := MapErrorToStatusCode(err)
	if userMessage == "" {
		userMessage = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, userMessage, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Example format: "Key: 'CreateAnalysisRequest.SourceRef' Error:Field
	// validation for 'SourceRef' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
