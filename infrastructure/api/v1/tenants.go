package v1

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/harvest"
	"github.com/helixml/harvest/application/service"
	"github.com/helixml/harvest/domain/crawl"
	"github.com/helixml/harvest/domain/document"
	"github.com/helixml/harvest/domain/fragment"
	"github.com/helixml/harvest/domain/ingest"
	"github.com/helixml/harvest/infrastructure/api/middleware"
	"github.com/helixml/harvest/infrastructure/api/v1/dto"
	"github.com/helixml/harvest/internal/log"
)

// TenantsRouter handles tenant-scoped read endpoints.
type TenantsRouter struct {
	client *harvest.Client
	logger *slog.Logger
}

// NewTenantsRouter creates a new TenantsRouter.
func NewTenantsRouter(client *harvest.Client) *TenantsRouter {
	return &TenantsRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for tenant endpoints.
func (r *TenantsRouter) Routes() chi.Router {
	router := chi.NewRouter()
	router.Route("/{tenantID}", func(tr chi.Router) {
		tr.Get("/documents", r.ListDocuments)
		tr.Get("/documents/{documentID}/fragments", r.ListFragments)
		tr.Get("/quota", r.Quota)
	})
	return router
}

// ListDocuments handles GET /api/v1/tenants/{tenantID}/documents.
func (r *TenantsRouter) ListDocuments(w http.ResponseWriter, req *http.Request) {
	tenantID := chi.URLParam(req, "tenantID")
	limit, err := queryInt(req, "limit", service.DefaultListLimit)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	offset, err := queryInt(req, "offset", 0)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	if limit == 0 {
		limit = service.DefaultListLimit
	}
	limit = min(limit, service.MaxListLimit)

	ctx := log.WithTenantID(req.Context(), tenantID)
	docs, total, err := r.client.Documents.List(ctx, tenantID, limit, offset)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	data := make([]dto.DocumentSchema, len(docs))
	for i, d := range docs {
		data[i] = documentSchema(d)
	}
	middleware.WriteJSON(w, http.StatusOK, dto.DocumentListResponse{
		OK:     true,
		Data:   data,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// ListFragments handles GET /api/v1/tenants/{tenantID}/documents/{documentID}/fragments.
// Embeddings are included when the embeddings query parameter is true.
func (r *TenantsRouter) ListFragments(w http.ResponseWriter, req *http.Request) {
	tenantID := chi.URLParam(req, "tenantID")
	documentID := chi.URLParam(req, "documentID")
	withEmbeddings, _ := strconv.ParseBool(req.URL.Query().Get("embeddings"))

	ctx := log.WithTenantID(req.Context(), tenantID)
	doc, err := r.client.Documents.Get(ctx, tenantID, documentID)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	frags, err := r.client.Documents.Fragments(ctx, tenantID, documentID)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	data := make([]dto.FragmentSchema, len(frags))
	for i, f := range frags {
		data[i] = fragmentSchema(f, withEmbeddings)
	}
	middleware.WriteJSON(w, http.StatusOK, dto.FragmentListResponse{
		OK:         true,
		DocumentID: doc.ID(),
		URL:        doc.URL(),
		Data:       data,
	})
}

// Quota handles GET /api/v1/tenants/{tenantID}/quota?host=.
// It previews the decision an ingestion of host would get.
func (r *TenantsRouter) Quota(w http.ResponseWriter, req *http.Request) {
	tenantID := chi.URLParam(req, "tenantID")
	raw := strings.TrimSpace(req.URL.Query().Get("host"))
	if raw == "" {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "host is required", ingest.ErrValidation), r.logger)
		return
	}
	host, err := crawl.SeedHost(raw)
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid host", err), r.logger)
		return
	}

	ctx := log.WithTenantID(req.Context(), tenantID)
	decision, err := r.client.Quota.CanAddSite(ctx, tenantID, host)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.QuotaResponse{
		OK:      true,
		Allowed: decision.OK(),
		Reason:  decision.Reason(),
		Host:    decision.Host(),
		Current: decision.Current(),
		Limit:   decision.Limit(),
		Plan:    decision.Plan(),
	})
}

func queryInt(req *http.Request, name string, def int) (int, error) {
	s := req.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, middleware.NewAPIError(http.StatusBadRequest, fmt.Sprintf("%s must be a non-negative integer", name), ingest.ErrValidation)
	}
	return n, nil
}

func documentSchema(d document.Document) dto.DocumentSchema {
	return dto.DocumentSchema{
		ID:        d.ID(),
		URL:       d.URL(),
		Host:      d.Host(),
		Title:     d.Title(),
		CreatedAt: d.CreatedAt(),
	}
}

func fragmentSchema(f fragment.Fragment, withEmbedding bool) dto.FragmentSchema {
	s := dto.FragmentSchema{
		ID:         f.ID(),
		Position:   f.Position(),
		Content:    f.Content(),
		TokenCount: f.TokenCount(),
	}
	if withEmbedding {
		s.Embedding = f.Embedding()
	}
	return s
}
