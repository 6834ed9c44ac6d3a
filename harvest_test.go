package harvest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/harvest"
	"github.com/helixml/harvest/domain/crawl"
	"github.com/helixml/harvest/domain/ingest"
	"github.com/helixml/harvest/internal/testutil"
)

func TestNew_RequiresDatabase(t *testing.T) {
	_, err := harvest.New(harvest.WithEmbeddingProvider(testutil.LengthEmbedder{}))
	assert.ErrorIs(t, err, harvest.ErrNoDatabase)
}

func TestNew_RequiresEmbeddingProvider(t *testing.T) {
	_, err := harvest.New(harvest.WithSQLite(":memory:"))
	assert.ErrorIs(t, err, harvest.ErrNoProvider)
}

func TestNew_WithSQLiteFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "harvest.db")

	client, err := harvest.New(
		harvest.WithDataDir(filepath.Join(dir, "data")),
		harvest.WithSQLite(dbPath),
		harvest.WithEmbeddingProvider(testutil.LengthEmbedder{}),
	)
	require.NoError(t, err)
	defer func() { assert.NoError(t, client.Close()) }()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestClient_CloseIdempotent(t *testing.T) {
	client, _ := testutil.NewClient(t, nil)

	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Close(), harvest.ErrClientClosed)

	_, err := client.Ingest(context.Background(), "t1", "https://example.com")
	assert.ErrorIs(t, err, harvest.ErrClientClosed)
}

func TestClient_IngestEndToEnd(t *testing.T) {
	ctx := context.Background()
	client, crawler := testutil.NewClient(t,
		[]crawl.Page{{URL: "https://example.com/#top", Title: "Home", Content: "Hello world. Welcome here."}},
		harvest.WithSegmentTargetSize(20),
	)
	require.NoError(t, client.Tenants.SetPlan(ctx, "acme", "starter"))

	result, err := client.Ingest(ctx, "acme", "example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Docs)
	assert.Equal(t, 1, result.Persisted)
	assert.Equal(t, []string{"example.com"}, crawler.Seeds)

	docs, total, err := client.Documents.List(ctx, "acme", 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "https://example.com/", docs[0].URL())

	frags, err := client.Documents.Fragments(ctx, "acme", docs[0].ID())
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "Hello world.", frags[0].Content())
	assert.Equal(t, "Welcome here.", frags[1].Content())
	assert.Equal(t, []float64{1, 13}, frags[1].Embedding())

	// Second run stores nothing new but still reports the crawl.
	result, err = client.Ingest(ctx, "acme", "example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Docs)
	assert.Zero(t, result.Persisted)
	assert.Equal(t, 1, result.Skipped)
}

func TestClient_QuotaDenied(t *testing.T) {
	ctx := context.Background()
	client, crawler := testutil.NewClient(t, []crawl.Page{{URL: "https://a.example/", Content: "A."}})

	_, err := client.Ingest(ctx, "t1", "https://a.example/")
	require.NoError(t, err)

	crawler.Pages = []crawl.Page{{URL: "https://b.example/", Content: "B."}}
	_, err = client.Ingest(ctx, "t1", "https://b.example/")

	var denied *ingest.QuotaDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, "free", denied.Decision.Plan())
	assert.Equal(t, 1, denied.Decision.Current())
	assert.Equal(t, 1, crawler.Calls())
}

func TestClient_ReingestRedirectingSeedAtLimit(t *testing.T) {
	ctx := context.Background()
	// example.com redirects to www.example.com.
	client, crawler := testutil.NewClient(t, []crawl.Page{
		{URL: "https://www.example.com/", Content: "Home."},
		{URL: "https://www.example.com/about", Content: "About."},
	})

	first, err := client.Ingest(ctx, "t1", "example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Persisted)

	second, err := client.Ingest(ctx, "t1", "example.com")
	require.NoError(t, err, "the seed's own site is known at the plan limit")
	assert.Zero(t, second.Persisted)
	assert.Equal(t, 2, second.Skipped)

	d, err := client.Quota.CanAddSite(ctx, "t1", "example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Current())

	_, err = client.Ingest(ctx, "t1", "other.example")
	require.ErrorIs(t, err, ingest.ErrQuotaDenied)
	assert.Equal(t, 2, crawler.Calls())
}
