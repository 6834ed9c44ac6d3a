package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/helixml/harvest/domain/ingest"
)

// ErrAuthentication is the base error for rejected credentials.
var ErrAuthentication = errors.New("authentication failed")

// APIError carries the status code and client-facing message for an error.
// The cause is logged but never written to the response.
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError creates a new APIError.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("api error %d: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("api error %d: %s", e.code, e.message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error { return e.cause }

// Code returns the HTTP status code.
func (e *APIError) Code() int { return e.code }

// Message returns the client-facing message.
func (e *APIError) Message() string { return e.message }

// AuthenticationError represents an authentication failure.
type AuthenticationError struct {
	message string
}

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{message: message}
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.message)
}

// Unwrap returns ErrAuthentication for errors.Is compatibility.
func (e *AuthenticationError) Unwrap() error { return ErrAuthentication }

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// WriteError maps err to a status code and writes an ErrorResponse.
// Server errors are written with a generic message; the full error is logged.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status, message := classify(err)

	if logger != nil {
		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(r.Context(), level, "request error",
			slog.String("correlation_id", GetCorrelationID(r.Context())),
			slog.Int("status", status),
			slog.String("path", r.URL.Path),
			slog.String("stage", string(ingest.FailedStage(err))),
			slog.Any("error", err),
		)
	}

	WriteJSON(w, status, ErrorResponse{OK: false, Error: message})
}

func classify(err error) (int, string) {
	var apiErr *APIError
	var authErr *AuthenticationError

	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code(), apiErr.Message()
	case errors.As(err, &authErr):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ingest.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, ingest.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, ingest.ErrQuotaDenied):
		return http.StatusPaymentRequired, "quota_exceeded"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
