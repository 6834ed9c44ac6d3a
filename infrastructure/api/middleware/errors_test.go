package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/helixml/harvest/domain/ingest"
)

func TestAPIError(t *testing.T) {
	err := NewAPIError(404, "resource not found", nil)

	if err.Code() != 404 {
		t.Errorf("Code() = %v, want 404", err.Code())
	}
	if err.Message() != "resource not found" {
		t.Errorf("Message() = %v, want 'resource not found'", err.Message())
	}
	if got, want := err.Error(), "api error 404: resource not found"; got != want {
		t.Errorf("Error() = %v, want %v", got, want)
	}
}

func TestAPIError_WithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewAPIError(500, "internal error", cause)

	if got, want := err.Error(), "api error 500: internal error: underlying error"; got != want {
		t.Errorf("Error() = %v, want %v", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestAuthenticationError(t *testing.T) {
	err := fmt.Errorf("request failed: %w", NewAuthenticationError("token expired"))

	if !errors.Is(err, ErrAuthentication) {
		t.Error("wrapped AuthenticationError should match ErrAuthentication")
	}
	var target *AuthenticationError
	if !errors.As(err, &target) {
		t.Error("should extract AuthenticationError with errors.As")
	}
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", fmt.Errorf("%w: bad", ingest.ErrValidation), http.StatusBadRequest, "invalid request"},
		{"not found", fmt.Errorf("%w: document", ingest.ErrNotFound), http.StatusNotFound, "not found"},
		{"api error", NewAPIError(http.StatusBadRequest, "tenantId and input are required", ingest.ErrValidation), http.StatusBadRequest, "tenantId and input are required"},
		{"storage", &ingest.StageError{Stage: ingest.StageGating, Err: errors.New("db is down")}, http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()
			WriteError(w, req, tt.err, nil)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var body ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.OK {
				t.Error("ok should be false")
			}
			if body.Error != tt.message {
				t.Errorf("error = %q, want %q", body.Error, tt.message)
			}
		})
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	WriteError(w, req, errors.New("pq: password authentication failed"), nil)

	if strings.Contains(w.Body.String(), "password") {
		t.Errorf("body leaks internal error: %s", w.Body.String())
	}
}

func TestCorrelationID(t *testing.T) {
	var seen string
	handler := chimiddleware.RequestID(CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != "abc-123" {
		t.Errorf("context id = %q, want abc-123", seen)
	}
	if got := w.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Errorf("header = %q, want abc-123", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "" {
		t.Error("request id should be used when no header is sent")
	}
}
