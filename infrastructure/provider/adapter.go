package provider

import (
	"context"

	"github.com/helixml/harvest/domain/embedding"
)

// EmbedderAdapter exposes a provider Embedder as the domain embedding port.
type EmbedderAdapter struct {
	inner Embedder
}

// NewEmbedderAdapter wraps inner.
func NewEmbedderAdapter(inner Embedder) *EmbedderAdapter {
	return &EmbedderAdapter{inner: inner}
}

// Embed implements embedding.Embedder.
func (a *EmbedderAdapter) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	resp, err := a.inner.Embed(ctx, NewEmbeddingRequest(texts))
	if err != nil {
		return nil, err
	}
	return resp.Embeddings(), nil
}

var _ embedding.Embedder = (*EmbedderAdapter)(nil)
