package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helixml/harvest"
	apimiddleware "github.com/helixml/harvest/infrastructure/api/middleware"
	v1 "github.com/helixml/harvest/infrastructure/api/v1"
	mcpinternal "github.com/helixml/harvest/internal/mcp"
)

// readTimeout bounds the read-only v1 endpoints.
const readTimeout = 60 * time.Second

// APIServer provides an HTTP API backed by a harvest Client.
type APIServer struct {
	client       *harvest.Client
	version      string
	server       *Server
	router       chi.Router
	routerCalled bool
	logger       *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given harvest Client.
// Every /api/v1 endpoint requires one of the client's API keys when any
// are configured. /healthz, /metrics and /mcp stay open.
func NewAPIServer(client *harvest.Client, version string) *APIServer {
	return &APIServer{
		client:  client,
		version: version,
		logger:  client.Logger(),
	}
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call MountRoutes().
// If not called, ListenAndServe creates a default router with all standard routes.
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up all routes on the router.
// Call this after adding any custom middleware via Router().Use().
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

func (a *APIServer) mountRoutes(router chi.Router) {
	c := a.client

	router.Get("/healthz", a.health)
	router.Handle("/metrics", c.Metrics().Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(apimiddleware.CorrelationID)
		r.Use(apimiddleware.APIKeyAuth(c.APIKeys(), a.logger))

		// Ingestion is bounded by the client's ingest timeout instead.
		r.Mount("/ingest", v1.NewIngestRouter(c).Routes())

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(readTimeout))
			r.Mount("/tenants", v1.NewTenantsRouter(c).Routes())
		})
	})

	// MCP uses streaming responses and manages its own session state via
	// response headers, which chi's Timeout middleware would break.
	mcpSrv := mcpinternal.NewServer(c, c.Quota, a.version, a.logger)
	router.Mount("/mcp", server.NewStreamableHTTPServer(mcpSrv.MCPServer()))
}

func (a *APIServer) health(w http.ResponseWriter, r *http.Request) {
	if err := a.client.Ping(r.Context()); err != nil {
		a.logger.ErrorContext(r.Context(), "health check failed", slog.Any("error", err))
		apimiddleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	apimiddleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": a.version})
}

// ListenAndServe starts the HTTP server on the given address.
// writeTimeout should exceed the client's ingest timeout.
func (a *APIServer) ListenAndServe(addr string, writeTimeout time.Duration) error {
	srv := NewServer(addr, a.logger, WithWriteTimeout(writeTimeout))
	a.server = &srv

	srv.Router().Use(apimiddleware.Logging(a.logger))
	if a.routerCalled && a.router != nil {
		srv.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(srv.Router())
	}

	return srv.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		a.MountRoutes()
	}
	return a.router
}
