package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/harvest/domain/crawl"
	"github.com/helixml/harvest/domain/document"
	"github.com/helixml/harvest/domain/fragment"
	"github.com/helixml/harvest/domain/ingest"
	"github.com/helixml/harvest/domain/repository"
	domainservice "github.com/helixml/harvest/domain/service"
	"github.com/helixml/harvest/domain/tenant"
	"github.com/helixml/harvest/infrastructure/chunking"
	"github.com/helixml/harvest/infrastructure/persistence"
	"github.com/helixml/harvest/internal/metrics"
	"github.com/helixml/harvest/internal/testdb"
)

type fakeCrawler struct {
	pages []crawl.Page
	err   error
	calls int
}

func (f *fakeCrawler) Crawl(_ context.Context, _ string) ([]crawl.Page, error) {
	f.calls++
	return f.pages, f.err
}

type fakeQuota struct {
	decision tenant.Decision
	err      error
	calls    int
	host     string
}

func (f *fakeQuota) CanAddSite(_ context.Context, _ string, host string) (tenant.Decision, error) {
	f.calls++
	f.host = host
	return f.decision, f.err
}

// fakeEmbedding returns [position, rune length] per text so alignment is
// visible in stored fragments.
type fakeEmbedding struct {
	err   error
	fail  map[string]bool
	calls int
}

func (f *fakeEmbedding) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if f.fail[t] {
			return nil, fmt.Errorf("%w: rejected", ingest.ErrEmbedding)
		}
		out[i] = []float64{float64(i), float64(len([]rune(t)))}
	}
	return out, nil
}

// countingDocuments wraps a document store and counts calls.
type countingDocuments struct {
	document.Store
	mu      sync.Mutex
	lookups int
	inserts int
	failURL string
}

func (c *countingDocuments) FindByTenantAndURL(ctx context.Context, tenantID, url string) (document.Document, error) {
	c.mu.Lock()
	c.lookups++
	c.mu.Unlock()
	return c.Store.FindByTenantAndURL(ctx, tenantID, url)
}

func (c *countingDocuments) Insert(ctx context.Context, doc document.Document) (document.Document, error) {
	c.mu.Lock()
	c.inserts++
	c.mu.Unlock()
	if doc.URL() == c.failURL {
		return document.Document{}, fmt.Errorf("%w: disk full", ingest.ErrStorage)
	}
	return c.Store.Insert(ctx, doc)
}

type countingFragments struct {
	fragment.Store
	calls int
}

func (c *countingFragments) InsertAll(ctx context.Context, fragments []fragment.Fragment) error {
	c.calls++
	return c.Store.InsertAll(ctx, fragments)
}

type harness struct {
	svc       *Ingestion
	crawler   *fakeCrawler
	quota     *fakeQuota
	embedding *fakeEmbedding
	documents *countingDocuments
	fragments *countingFragments
	metrics   *metrics.Metrics
}

func newHarness(t *testing.T, pages []crawl.Page, targetSize int) *harness {
	t.Helper()
	db := testdb.New(t)
	h := &harness{
		crawler:   &fakeCrawler{pages: pages},
		quota:     &fakeQuota{decision: tenant.Allow("example.com", "free", 0, 1)},
		embedding: &fakeEmbedding{},
		documents: &countingDocuments{Store: persistence.NewDocumentStore(db)},
		fragments: &countingFragments{Store: persistence.NewFragmentStore(db)},
		metrics:   metrics.New(),
	}
	h.svc = NewIngestion(h.quota, h.crawler, h.documents, h.fragments, h.embedding,
		chunking.NewSegmenter(targetSize), nil, WithMetrics(h.metrics))
	return h
}

func TestIngest_Validation(t *testing.T) {
	h := newHarness(t, nil, 0)

	for _, p := range []IngestParams{
		{TenantID: "", Input: "https://example.com"},
		{TenantID: "t1", Input: "  "},
		{TenantID: "t1", Input: "ftp://example.com"},
	} {
		_, err := h.svc.Ingest(context.Background(), p)
		assert.ErrorIs(t, err, ingest.ErrValidation, "%+v", p)
	}
	assert.Zero(t, h.quota.calls)
	assert.Zero(t, h.crawler.calls)
}

func TestIngest_QuotaDeniedBeforeAnyWork(t *testing.T) {
	h := newHarness(t, []crawl.Page{{URL: "https://new.example/", Content: "Hi."}}, 0)
	h.quota.decision = tenant.Deny("new.example", "free", 1, 1)

	_, err := h.svc.Ingest(context.Background(), IngestParams{TenantID: "t1", Input: "new.example"})

	require.ErrorIs(t, err, ingest.ErrQuotaDenied)
	var denied *ingest.QuotaDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "new.example", denied.Decision.Host())
	assert.Equal(t, 1, denied.Decision.Limit())
	assert.Equal(t, "new.example", h.quota.host)

	assert.Zero(t, h.crawler.calls)
	assert.Zero(t, h.documents.lookups)
	assert.Zero(t, h.documents.inserts)
	assert.Zero(t, h.fragments.calls)
	assert.Zero(t, h.embedding.calls)
}

func TestIngest_QuotaStoreFailure(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.quota.err = errors.New("db down")

	_, err := h.svc.Ingest(context.Background(), IngestParams{TenantID: "t1", Input: "https://example.com"})
	require.Error(t, err)
	assert.Equal(t, ingest.StageGating, ingest.FailedStage(err))
	assert.Zero(t, h.crawler.calls)
}

func TestIngest_CrawlFailure(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.crawler.err = errors.New("connection refused")

	_, err := h.svc.Ingest(context.Background(), IngestParams{TenantID: "t1", Input: "https://example.com"})
	require.ErrorIs(t, err, ingest.ErrCrawl)
	assert.Equal(t, ingest.StageCrawling, ingest.FailedStage(err))
	assert.Zero(t, h.documents.inserts)
}

func TestIngest_DedupesFragmentURLs(t *testing.T) {
	h := newHarness(t, []crawl.Page{
		{URL: "https://x.com/a#top", Title: "A", Content: "First."},
		{URL: "https://x.com/a#bottom", Title: "A", Content: "Second."},
	}, 0)

	res, err := h.svc.Ingest(context.Background(), IngestParams{TenantID: "t1", Input: "https://x.com/a"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Docs)
	assert.Equal(t, 1, res.Persisted)
	assert.Equal(t, 1, res.Skipped)

	docs, err := h.documents.Find(context.Background(), repository.WithTenantID("t1"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "https://x.com/a", docs[0].URL())
	assert.Equal(t, "First.", docs[0].Content())
}

func TestIngest_ReingestionIsIdempotent(t *testing.T) {
	pages := []crawl.Page{
		{URL: "https://example.com/", Title: "Home", Content: "Hello. World."},
		{URL: "https://example.com/about", Title: "About", Content: "About us."},
	}
	h := newHarness(t, pages, 0)
	params := IngestParams{TenantID: "t1", Input: "https://example.com"}

	first, err := h.svc.Ingest(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Persisted)

	second, err := h.svc.Ingest(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Docs)
	assert.Zero(t, second.Persisted)
	assert.Equal(t, 2, second.Skipped)
	assert.NotEqual(t, first.RunID, second.RunID)

	n, err := h.documents.Count(context.Background(), repository.WithTenantID("t1"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestIngest_TenantsAreIsolated(t *testing.T) {
	h := newHarness(t, []crawl.Page{{URL: "https://example.com/", Content: "Shared page."}}, 0)

	_, err := h.svc.Ingest(context.Background(), IngestParams{TenantID: "t1", Input: "https://example.com"})
	require.NoError(t, err)
	res, err := h.svc.Ingest(context.Background(), IngestParams{TenantID: "t2", Input: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Persisted)
}

func TestIngest_FragmentEmbeddingAlignment(t *testing.T) {
	content := "Alpha one. Beta is two. Gamma makes three!"
	h := newHarness(t, []crawl.Page{{URL: "https://example.com/", Content: content}}, 5)

	res, err := h.svc.Ingest(context.Background(), IngestParams{TenantID: "t1", Input: "https://example.com"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Persisted)
	assert.Equal(t, 1, h.embedding.calls, "one batch call per document")

	frags, err := h.fragments.Find(context.Background(), repository.WithOrderAsc("position"))
	require.NoError(t, err)
	want := chunking.Segment(content, 5)
	require.Len(t, frags, len(want))
	for i, f := range frags {
		assert.Equal(t, want[i], f.Content())
		assert.Equal(t, i, f.Position())
		assert.Equal(t, []float64{float64(i), float64(len([]rune(want[i])))}, f.Embedding())
		assert.Equal(t, fragment.EstimateTokens(want[i]), f.TokenCount())
	}
}

func TestIngest_EmptyContentStoresDocumentWithoutFragments(t *testing.T) {
	h := newHarness(t, []crawl.Page{{URL: "https://example.com/", Content: "   "}}, 0)

	res, err := h.svc.Ingest(context.Background(), IngestParams{TenantID: "t1", Input: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Persisted)
	assert.Zero(t, h.embedding.calls)
	assert.Zero(t, h.fragments.calls)
}

func TestIngest_ContinuesPastFailedDocuments(t *testing.T) {
	h := newHarness(t, []crawl.Page{
		{URL: "https://example.com/bad-embed", Content: "Poison."},
		{URL: "https://example.com/bad-insert", Content: "Fine."},
		{URL: "https://example.com/ok", Content: "Good."},
	}, 0)
	h.embedding.fail = map[string]bool{"Poison.": true}
	h.documents.failURL = "https://example.com/bad-insert"

	res, err := h.svc.Ingest(context.Background(), IngestParams{TenantID: "t1", Input: "https://example.com"})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Docs)
	assert.Equal(t, 1, res.Persisted)
	assert.Equal(t, []DocumentFailure{
		{URL: "https://example.com/bad-embed", Stage: ingest.StepEmbed},
		{URL: "https://example.com/bad-insert", Stage: ingest.StepInsert},
	}, res.Failures)

	// The embed failure leaves its document row without fragments.
	doc, err := h.documents.FindByTenantAndURL(context.Background(), "t1", "https://example.com/bad-embed")
	require.NoError(t, err)
	n, err := h.fragments.Count(context.Background(), fragment.WithDocumentID(doc.ID()))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngest_CancelledDuringProcessing(t *testing.T) {
	h := newHarness(t, []crawl.Page{{URL: "https://example.com/", Content: "Hi."}}, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancelling := &cancelOnCrawl{inner: h.crawler, cancel: cancel}
	h.svc.crawler = cancelling

	_, err := h.svc.Ingest(ctx, IngestParams{TenantID: "t1", Input: "https://example.com"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ingest.StageProcessing, ingest.FailedStage(err))
	assert.Zero(t, h.documents.inserts)
}

type cancelOnCrawl struct {
	inner  crawl.Crawler
	cancel context.CancelFunc
}

func (c *cancelOnCrawl) Crawl(ctx context.Context, seed string) ([]crawl.Page, error) {
	pages, err := c.inner.Crawl(ctx, seed)
	c.cancel()
	return pages, err
}

func TestIngest_EndToEnd(t *testing.T) {
	ctx := context.Background()
	db := testdb.New(t)
	tenants := persistence.NewTenantStore(db)
	require.NoError(t, tenants.SetPlan(ctx, "T", tenant.PlanStarter))

	quota, err := domainservice.NewQuota(tenants, tenant.DefaultLimits())
	require.NoError(t, err)

	docs := persistence.NewDocumentStore(db)
	frags := persistence.NewFragmentStore(db)
	crawler := &fakeCrawler{pages: []crawl.Page{{
		URL:     "https://example.com/",
		Title:   "Home",
		Content: "Hello world. Welcome here.",
	}}}
	svc := NewIngestion(quota, crawler, docs, frags, &fakeEmbedding{}, chunking.NewSegmenter(20), nil)

	before, err := quota.CanAddSite(ctx, "T", "example.com")
	require.NoError(t, err)
	require.True(t, before.OK())
	assert.Equal(t, 0, before.Current())
	assert.Equal(t, 3, before.Limit())

	res, err := svc.Ingest(ctx, IngestParams{TenantID: "T", Input: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Docs)
	assert.Equal(t, 1, res.Persisted)
	assert.Empty(t, res.Failures)

	stored, err := docs.Find(ctx, repository.WithTenantID("T"))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Home", stored[0].Title())

	got, err := frags.Find(ctx, fragment.WithDocumentID(stored[0].ID()), repository.WithOrderAsc("position"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Hello world.", got[0].Content())
	assert.Equal(t, "Welcome here.", got[1].Content())
	assert.Equal(t, "https://example.com/", got[1].URL())

	after, err := quota.CanAddSite(ctx, "T", "other.example")
	require.NoError(t, err)
	assert.Equal(t, 1, after.Current())
}

func TestIngest_RecordsMetrics(t *testing.T) {
	h := newHarness(t, []crawl.Page{{URL: "https://example.com/", Content: "One. Two."}}, 0)

	_, err := h.svc.Ingest(context.Background(), IngestParams{TenantID: "t1", Input: "https://example.com"})
	require.NoError(t, err)

	var runs, persisted float64
	mfs, err := h.metrics.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		switch mf.GetName() {
		case "harvest_ingest_runs_total":
			runs = mf.GetMetric()[0].GetCounter().GetValue()
		case "harvest_ingest_documents_total":
			persisted = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, runs)
	assert.Equal(t, 1.0, persisted)
}
