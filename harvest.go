// Package harvest provides a library for multi-tenant web ingestion.
//
// Harvest crawls a seed URL on behalf of a tenant, stores every page the
// tenant does not already have, splits it into sentence-aligned fragments
// and embeds them, all behind a per-plan limit on distinct sites.
//
// Basic usage:
//
//	client, err := harvest.New(
//	    harvest.WithSQLite(".harvest/harvest.db"),
//	    harvest.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Ingest(ctx, "acme", "https://docs.example.com")
//	var denied *ingest.QuotaDeniedError
//	if errors.As(err, &denied) {
//	    fmt.Println(denied.Decision.Reason())
//	}
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/helixml/harvest/application/service"
	"github.com/helixml/harvest/domain/crawl"
	domainservice "github.com/helixml/harvest/domain/service"
	"github.com/helixml/harvest/infrastructure/chunking"
	"github.com/helixml/harvest/infrastructure/crawler"
	"github.com/helixml/harvest/infrastructure/persistence"
	"github.com/helixml/harvest/infrastructure/provider"
	"github.com/helixml/harvest/internal/config"
	"github.com/helixml/harvest/internal/database"
	"github.com/helixml/harvest/internal/metrics"
)

// Client is the main entry point for the harvest library.
//
// Access services via struct fields:
//
//	client.Ingestion.Ingest(ctx, service.IngestParams{...})
//	client.Documents.List(ctx, tenantID, 50, 0)
//	client.Quota.CanAddSite(ctx, tenantID, host)
type Client struct {
	Ingestion *service.Ingestion
	Documents *service.Documents
	Tenants   *service.Tenants
	Quota     *domainservice.QuotaService

	db            database.Database
	metrics       *metrics.Metrics
	closers       []io.Closer
	logger        *slog.Logger
	apiKeys       []string
	ingestTimeout time.Duration
	closed        atomic.Bool
	mu            sync.Mutex
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.dbURL == "" {
		return nil, ErrNoDatabase
	}
	if cfg.embeddingProvider == nil {
		return nil, ErrNoProvider
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.dataDir != "" {
		if _, err := config.PrepareDataDir(cfg.dataDir); err != nil {
			return nil, err
		}
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, cfg.dbURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}

	documentStore := persistence.NewDocumentStore(db)
	fragmentStore := persistence.NewFragmentStore(db)
	tenantStore := persistence.NewTenantStore(db)

	quota, err := domainservice.NewQuota(tenantStore, cfg.limits)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("quota: %w", err), errClose)
	}

	guarded := provider.NewBreakerEmbedder(cfg.embeddingProvider, cfg.breaker, logger)
	embedder, err := domainservice.NewEmbedding(
		provider.NewEmbedderAdapter(guarded),
		cfg.embeddingBudget,
		domainservice.WithDimension(cfg.embeddingDimension),
	)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("embedding: %w", err), errClose)
	}

	var webCrawler crawl.Crawler = cfg.crawler
	if webCrawler == nil {
		webCrawler = crawler.New(cfg.crawlerConfig, logger)
	}

	m := cfg.metrics
	if m == nil {
		m = metrics.New()
	}

	client := &Client{
		Ingestion: service.NewIngestion(
			quota,
			webCrawler,
			documentStore,
			fragmentStore,
			embedder,
			chunking.NewSegmenter(cfg.segmentTargetSize),
			logger,
			service.WithMetrics(m),
		),
		Documents:     service.NewDocuments(documentStore, fragmentStore),
		Tenants:       service.NewTenants(tenantStore, cfg.limits),
		Quota:         quota,
		db:            db,
		metrics:       m,
		closers:       cfg.closers,
		logger:        logger,
		apiKeys:       cfg.apiKeys,
		ingestTimeout: cfg.ingestTimeout,
	}

	logger.Debug("harvest client ready",
		slog.Int("segment_target_size", cfg.segmentTargetSize),
		slog.String("default_plan", cfg.limits.DefaultPlan()),
	)
	return client, nil
}

// Ingest runs one ingestion for tenantID, bounded by the configured
// ingest timeout.
func (c *Client) Ingest(ctx context.Context, tenantID, input string) (service.IngestResult, error) {
	if c.closed.Load() {
		return service.IngestResult{}, ErrClientClosed
	}
	if c.ingestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.ingestTimeout)
		defer cancel()
	}
	return c.Ingestion.Ingest(ctx, service.IngestParams{TenantID: tenantID, Input: input})
}

// Close releases all resources.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("harvest client closed")
	return nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Metrics returns the client's metrics registry.
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}

// APIKeys returns the keys accepted by the HTTP API.
func (c *Client) APIKeys() []string {
	return c.apiKeys
}

// Ping checks the database connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.db.Ping(ctx)
}
