// Package v1 implements the version 1 HTTP API.
package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/harvest"
	"github.com/helixml/harvest/application/service"
	"github.com/helixml/harvest/domain/ingest"
	"github.com/helixml/harvest/infrastructure/api/middleware"
	"github.com/helixml/harvest/infrastructure/api/v1/dto"
	"github.com/helixml/harvest/internal/log"
)

const maxIngestBody = 1 << 20

// IngestRouter handles ingestion endpoints.
type IngestRouter struct {
	client *harvest.Client
	logger *slog.Logger
}

// NewIngestRouter creates a new IngestRouter.
func NewIngestRouter(client *harvest.Client) *IngestRouter {
	return &IngestRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for ingestion endpoints.
func (r *IngestRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Post("/", r.Ingest)
	return router
}

// Ingest handles POST /api/v1/ingest.
func (r *IngestRouter) Ingest(w http.ResponseWriter, req *http.Request) {
	var body dto.IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxIngestBody)).Decode(&body); err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid request body", err), r.logger)
		return
	}

	tenantID := strings.TrimSpace(body.TenantID)
	input := strings.TrimSpace(body.Input)
	if tenantID == "" || input == "" {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "tenantId and input are required", ingest.ErrValidation), r.logger)
		return
	}

	ctx := log.WithTenantID(req.Context(), tenantID)
	result, err := r.client.Ingest(ctx, tenantID, input)
	if err != nil {
		r.writeIngestError(w, req.WithContext(ctx), err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, ingestResponse(result))
}

func (r *IngestRouter) writeIngestError(w http.ResponseWriter, req *http.Request, err error) {
	var denied *ingest.QuotaDeniedError
	switch {
	case errors.As(err, &denied):
		d := denied.Decision
		middleware.WriteJSON(w, http.StatusPaymentRequired, dto.QuotaExceededResponse{
			OK:      false,
			Error:   "quota_exceeded",
			Reason:  d.Reason(),
			Host:    d.Host(),
			Current: d.Current(),
			Limit:   d.Limit(),
			Plan:    d.Plan(),
		})
	case errors.Is(err, ingest.ErrValidation):
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid input", err), r.logger)
	default:
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusInternalServerError, "ingestion failed", err), r.logger)
	}
}

func ingestResponse(result service.IngestResult) dto.IngestResponse {
	failures := make([]dto.IngestFailure, len(result.Failures))
	for i, f := range result.Failures {
		failures[i] = dto.IngestFailure{URL: f.URL, Stage: string(f.Stage)}
	}
	return dto.IngestResponse{
		OK:        true,
		Docs:      result.Docs,
		Persisted: result.Persisted,
		Skipped:   result.Skipped,
		Failures:  failures,
		RunID:     result.RunID,
	}
}
