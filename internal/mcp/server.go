// Package mcp provides Model Context Protocol server functionality.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helixml/harvest/application/service"
	"github.com/helixml/harvest/domain/crawl"
	"github.com/helixml/harvest/domain/ingest"
	domainservice "github.com/helixml/harvest/domain/service"
	"github.com/helixml/harvest/internal/log"
)

// Ingester runs one ingestion for a tenant.
type Ingester interface {
	Ingest(ctx context.Context, tenantID, input string) (service.IngestResult, error)
}

// Server wraps the MCP server with harvest tools.
type Server struct {
	mcpServer *server.MCPServer
	ingester  Ingester
	quota     domainservice.Quota
	version   string
	logger    *slog.Logger
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(ingester Ingester, quota domainservice.Quota, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		ingester: ingester,
		quota:    quota,
		version:  version,
		logger:   logger,
	}

	mcpServer := server.NewMCPServer(
		"harvest",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.registerTools(mcpServer)

	s.mcpServer = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	ingestTool := mcp.NewTool("ingest_site",
		mcp.WithDescription("Crawl a website for a tenant and store its pages as embedded fragments. Pages the tenant already has are skipped. Fails with quota_exceeded when the tenant's plan allows no more sites."),
		mcp.WithString("tenant_id",
			mcp.Required(),
			mcp.Description("The tenant to ingest for"),
		),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("Seed URL or bare host, e.g. docs.example.com"),
		),
	)
	mcpServer.AddTool(ingestTool, s.handleIngest)

	quotaTool := mcp.NewTool("check_quota",
		mcp.WithDescription("Check whether a tenant may add a site without crawling it"),
		mcp.WithString("tenant_id",
			mcp.Required(),
			mcp.Description("The tenant to check"),
		),
		mcp.WithString("host",
			mcp.Required(),
			mcp.Description("Host or URL of the site to add"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(quotaTool, s.handleCheckQuota)

	versionTool := mcp.NewTool("get_version",
		mcp.WithDescription("Return the harvest server version"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	mcpServer.AddTool(versionTool, s.handleVersion)
}

type failureResult struct {
	URL   string `json:"url"`
	Stage string `json:"stage"`
}

type ingestResult struct {
	OK        bool            `json:"ok"`
	Docs      int             `json:"docs"`
	Persisted int             `json:"persisted"`
	Skipped   int             `json:"skipped"`
	Failures  []failureResult `json:"failures"`
	RunID     string          `json:"runId"`
}

type quotaResult struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Host    string `json:"host"`
	Current int    `json:"current"`
	Limit   int    `json:"limit"`
	Plan    string `json:"plan"`
}

func (s *Server) handleIngest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenantID := request.GetString("tenant_id", "")
	input := request.GetString("input", "")
	if tenantID == "" || input == "" {
		return mcp.NewToolResultError("tenant_id and input are required"), nil
	}

	ctx = log.WithTenantID(ctx, tenantID)
	result, err := s.ingester.Ingest(ctx, tenantID, input)
	if err != nil {
		var denied *ingest.QuotaDeniedError
		switch {
		case errors.As(err, &denied):
			d := denied.Decision
			return jsonError(quotaResult{
				OK:      false,
				Error:   "quota_exceeded",
				Reason:  d.Reason(),
				Host:    d.Host(),
				Current: d.Current(),
				Limit:   d.Limit(),
				Plan:    d.Plan(),
			})
		case errors.Is(err, ingest.ErrValidation):
			return mcp.NewToolResultError("invalid input"), nil
		default:
			s.logger.ErrorContext(ctx, "ingest_site failed",
				slog.String("stage", string(ingest.FailedStage(err))),
				slog.Any("error", err),
			)
			return mcp.NewToolResultError("ingestion failed"), nil
		}
	}

	failures := make([]failureResult, len(result.Failures))
	for i, f := range result.Failures {
		failures[i] = failureResult{URL: f.URL, Stage: string(f.Stage)}
	}
	return jsonResult(ingestResult{
		OK:        true,
		Docs:      result.Docs,
		Persisted: result.Persisted,
		Skipped:   result.Skipped,
		Failures:  failures,
		RunID:     result.RunID,
	})
}

func (s *Server) handleCheckQuota(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenantID, err := request.RequireString("tenant_id")
	if err != nil || tenantID == "" {
		return mcp.NewToolResultError("tenant_id is required"), nil
	}
	raw, err := request.RequireString("host")
	if err != nil || raw == "" {
		return mcp.NewToolResultError("host is required"), nil
	}
	host, err := crawl.SeedHost(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid host: %s", raw)), nil
	}

	ctx = log.WithTenantID(ctx, tenantID)
	d, err := s.quota.CanAddSite(ctx, tenantID, host)
	if err != nil {
		s.logger.ErrorContext(ctx, "check_quota failed", slog.Any("error", err))
		return mcp.NewToolResultError("quota check failed"), nil
	}

	return jsonResult(quotaResult{
		OK:      true,
		Allowed: d.OK(),
		Reason:  d.Reason(),
		Host:    d.Host(),
		Current: d.Current(),
		Limit:   d.Limit(),
		Plan:    d.Plan(),
	})
}

func (s *Server) handleVersion(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.version), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func jsonError(v any) (*mcp.CallToolResult, error) {
	res, err := jsonResult(v)
	if res != nil {
		res.IsError = true
	}
	return res, err
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio runs the MCP server on stdio. Logs must not go to stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
