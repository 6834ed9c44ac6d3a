// Package service provides application layer services that orchestrate domain operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helixml/harvest/domain/crawl"
	"github.com/helixml/harvest/domain/document"
	"github.com/helixml/harvest/domain/fragment"
	"github.com/helixml/harvest/domain/ingest"
	domainservice "github.com/helixml/harvest/domain/service"
	"github.com/helixml/harvest/internal/metrics"
)

// IngestParams configures one ingestion run.
type IngestParams struct {
	TenantID string
	Input    string
}

// DocumentFailure identifies a crawled document that could not be stored
// and the step it failed at.
type DocumentFailure struct {
	URL   string
	Stage ingest.Stage
}

// IngestResult summarises a finished run. Docs is the number of pages the
// crawler returned, not the number stored.
type IngestResult struct {
	RunID     string
	Docs      int
	Persisted int
	Skipped   int
	Failures  []DocumentFailure
}

// Segmenter splits document text into fragments.
type Segmenter interface {
	Segment(text string) []string
}

// Ingestion runs the gate, crawl and per-document pipeline for a tenant.
type Ingestion struct {
	quota     domainservice.Quota
	crawler   crawl.Crawler
	documents document.Store
	fragments fragment.Store
	embedding domainservice.Embedding
	segmenter Segmenter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// IngestionOption configures an Ingestion service.
type IngestionOption func(*Ingestion)

// WithMetrics records run and document metrics.
func WithMetrics(m *metrics.Metrics) IngestionOption {
	return func(s *Ingestion) { s.metrics = m }
}

// NewIngestion creates an Ingestion service.
func NewIngestion(
	quota domainservice.Quota,
	crawler crawl.Crawler,
	documents document.Store,
	fragments fragment.Store,
	embedding domainservice.Embedding,
	segmenter Segmenter,
	logger *slog.Logger,
	opts ...IngestionOption,
) *Ingestion {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Ingestion{
		quota:     quota,
		crawler:   crawler,
		documents: documents,
		fragments: fragments,
		embedding: embedding,
		segmenter: segmenter,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest crawls params.Input for params.TenantID and stores every page the
// tenant does not already have.
//
// Errors: ErrValidation for missing fields, *ingest.QuotaDeniedError when the
// gate refuses the seed host, and *ingest.StageError for gate, crawl or
// cancellation failures. A document that fails to store does not fail the
// run; it is reported in IngestResult.Failures.
func (s *Ingestion) Ingest(ctx context.Context, params IngestParams) (IngestResult, error) {
	tenantID := strings.TrimSpace(params.TenantID)
	input := strings.TrimSpace(params.Input)
	result := IngestResult{RunID: uuid.NewString()}
	logger := s.logger.With(
		slog.String("tenant_id", tenantID),
		slog.String("run_id", result.RunID),
	)

	done := s.metrics.RunStarted()

	if tenantID == "" || input == "" {
		done(metrics.OutcomeInvalid)
		return result, fmt.Errorf("%w: tenant id and input are required", ingest.ErrValidation)
	}

	// GATING
	logger.InfoContext(ctx, "ingestion stage", slog.String("stage", string(ingest.StageGating)), slog.String("input", input))
	host, err := crawl.SeedHost(input)
	if err != nil {
		done(metrics.OutcomeInvalid)
		return result, fmt.Errorf("%w: %w", ingest.ErrValidation, err)
	}

	decision, err := s.quota.CanAddSite(ctx, tenantID, host)
	if err != nil {
		logger.ErrorContext(ctx, "quota check failed", slog.String("stage", string(ingest.StageGating)), slog.Any("error", err))
		done(metrics.OutcomeFailed)
		return result, &ingest.StageError{Stage: ingest.StageGating, Err: err}
	}
	s.metrics.Quota(decision.OK(), decision.Plan())
	if !decision.OK() {
		logger.WarnContext(ctx, "ingestion denied by quota",
			slog.String("stage", string(ingest.StageFailed)),
			slog.String("host", decision.Host()),
			slog.String("plan", decision.Plan()),
			slog.Int("current", decision.Current()),
			slog.Int("limit", decision.Limit()),
		)
		done(metrics.OutcomeQuotaDenied)
		return result, &ingest.QuotaDeniedError{Decision: decision}
	}

	// CRAWLING
	logger.InfoContext(ctx, "ingestion stage", slog.String("stage", string(ingest.StageCrawling)), slog.String("host", host))
	crawlStart := time.Now()
	pages, err := s.crawler.Crawl(ctx, input)
	if err != nil {
		logger.ErrorContext(ctx, "crawl failed", slog.String("stage", string(ingest.StageCrawling)), slog.Any("error", err))
		done(metrics.OutcomeFailed)
		if !errors.Is(err, ingest.ErrCrawl) && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", ingest.ErrCrawl, err)
		}
		return result, &ingest.StageError{Stage: ingest.StageCrawling, Err: err}
	}
	s.metrics.ObserveCrawl(len(pages), time.Since(crawlStart))
	result.Docs = len(pages)

	// PROCESSING
	logger.InfoContext(ctx, "ingestion stage", slog.String("stage", string(ingest.StageProcessing)), slog.Int("pages", len(pages)))
	seen := make(map[string]struct{}, len(pages))
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			logger.WarnContext(ctx, "ingestion cancelled", slog.String("stage", string(ingest.StageProcessing)), slog.Int("index", i))
			done(metrics.OutcomeFailed)
			return result, &ingest.StageError{Stage: ingest.StageProcessing, Err: err}
		}

		url := document.NormalizeURL(page.URL)
		if _, dup := seen[url]; dup {
			result.Skipped++
			s.metrics.Document("skipped", 0)
			continue
		}
		seen[url] = struct{}{}

		outcome, n, step, err := s.processDocument(ctx, tenantID, host, url, page)
		switch outcome {
		case outcomePersisted:
			result.Persisted++
			s.metrics.Document("persisted", n)
			logger.DebugContext(ctx, "document stored", slog.String("url", url), slog.Int("fragments", n))
		case outcomeSkipped:
			result.Skipped++
			s.metrics.Document("skipped", 0)
		case outcomeFailed:
			result.Failures = append(result.Failures, DocumentFailure{URL: url, Stage: step})
			s.metrics.Document("failed", 0)
			logger.ErrorContext(ctx, "document failed",
				slog.String("stage", string(ingest.StageProcessing)),
				slog.String("step", string(step)),
				slog.String("url", url),
				slog.Any("error", err),
			)
		}
	}

	// DONE
	logger.InfoContext(ctx, "ingestion stage",
		slog.String("stage", string(ingest.StageDone)),
		slog.Int("docs", result.Docs),
		slog.Int("persisted", result.Persisted),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", len(result.Failures)),
	)
	done(metrics.OutcomeSucceeded)
	return result, nil
}

type documentOutcome int

const (
	outcomePersisted documentOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// processDocument stores one page and its fragments, counted against the
// gated site. It returns the number of fragments written, and on failure the
// step that failed.
func (s *Ingestion) processDocument(ctx context.Context, tenantID, site, url string, page crawl.Page) (documentOutcome, int, ingest.Stage, error) {
	_, err := s.documents.FindByTenantAndURL(ctx, tenantID, url)
	switch {
	case err == nil:
		return outcomeSkipped, 0, "", nil
	case !errors.Is(err, ingest.ErrNotFound):
		return outcomeFailed, 0, ingest.StepLookup, err
	}

	doc, err := s.documents.Insert(ctx, document.NewDocument(tenantID, url, page.Title, page.Content).WithSite(site))
	if err != nil {
		// A concurrent run stored the same URL first.
		if errors.Is(err, ingest.ErrConflict) {
			return outcomeSkipped, 0, "", nil
		}
		return outcomeFailed, 0, ingest.StepInsert, err
	}

	texts := s.segmenter.Segment(doc.Content())
	if len(texts) == 0 {
		return outcomePersisted, 0, "", nil
	}

	embedStart := time.Now()
	vectors, err := s.embedding.Embed(ctx, texts)
	s.metrics.ObserveEmbedding(time.Since(embedStart))
	if err != nil {
		return outcomeFailed, 0, ingest.StepEmbed, err
	}
	if len(vectors) != len(texts) {
		return outcomeFailed, 0, ingest.StepEmbed,
			fmt.Errorf("%w: %d vectors for %d fragments", ingest.ErrEmbedding, len(vectors), len(texts))
	}

	fragments := make([]fragment.Fragment, len(texts))
	for i, text := range texts {
		fragments[i] = fragment.NewFragment(tenantID, doc.ID(), doc.URL(), i, text, vectors[i])
	}
	if err := s.fragments.InsertAll(ctx, fragments); err != nil {
		return outcomeFailed, 0, ingest.StepFragments, err
	}

	return outcomePersisted, len(fragments), "", nil
}
