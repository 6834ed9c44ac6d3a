// Package testutil provides fakes and client fixtures shared by package tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/helixml/harvest"
	"github.com/helixml/harvest/domain/crawl"
	"github.com/helixml/harvest/infrastructure/provider"
	"github.com/helixml/harvest/internal/log"
)

// StaticCrawler returns the same pages for every seed.
type StaticCrawler struct {
	mu    sync.Mutex
	Pages []crawl.Page
	Err   error
	Seeds []string
}

// Crawl implements crawl.Crawler.
func (c *StaticCrawler) Crawl(_ context.Context, seed string) ([]crawl.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Seeds = append(c.Seeds, seed)
	if c.Err != nil {
		return nil, c.Err
	}
	return append([]crawl.Page(nil), c.Pages...), nil
}

// Calls returns the number of crawls so far.
func (c *StaticCrawler) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Seeds)
}

// LengthEmbedder returns a two-dimensional vector per text: its position in
// the request and its rune count.
type LengthEmbedder struct{}

// Embed implements provider.Embedder.
func (LengthEmbedder) Embed(_ context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	texts := req.Texts()
	vectors := make([][]float64, len(texts))
	total := 0
	for i, t := range texts {
		n := utf8.RuneCountInString(t)
		vectors[i] = []float64{float64(i), float64(n)}
		total += n
	}
	return provider.NewEmbeddingResponse(vectors, provider.NewUsage(total, total)), nil
}

// NewClient creates a Client over an in-memory database, a StaticCrawler
// serving pages and a LengthEmbedder. Extra options are applied last.
func NewClient(t *testing.T, pages []crawl.Page, opts ...harvest.Option) (*harvest.Client, *StaticCrawler) {
	t.Helper()
	crawler := &StaticCrawler{Pages: pages}
	base := []harvest.Option{
		harvest.WithSQLite(":memory:"),
		harvest.WithEmbeddingProvider(LengthEmbedder{}),
		harvest.WithCrawler(crawler),
		harvest.WithLogger(log.Discard()),
	}
	client, err := harvest.New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("testutil.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, crawler
}
