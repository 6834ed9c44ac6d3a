// Package service holds domain services that combine ports with business rules.
package service

import (
	"context"
	"fmt"

	"github.com/helixml/harvest/domain/embedding"
	"github.com/helixml/harvest/domain/ingest"
)

// Embedding turns an ordered list of texts into one vector per text.
type Embedding interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// EmbeddingService batches texts under a token budget and sends each batch
// to the embedder in order. Any failed batch fails the whole call.
type EmbeddingService struct {
	embedder  embedding.Embedder
	budget    embedding.TokenBudget
	dimension int
}

// EmbeddingOption configures an EmbeddingService.
type EmbeddingOption func(*EmbeddingService)

// WithDimension rejects vectors whose length is not n. Zero disables the check.
func WithDimension(n int) EmbeddingOption {
	return func(s *EmbeddingService) { s.dimension = n }
}

// NewEmbedding creates an embedding service.
func NewEmbedding(embedder embedding.Embedder, budget embedding.TokenBudget, opts ...EmbeddingOption) (*EmbeddingService, error) {
	if embedder == nil {
		return nil, fmt.Errorf("NewEmbedding: nil embedder")
	}
	s := &EmbeddingService{embedder: embedder, budget: budget}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Embed returns len(texts) vectors in input order.
// Errors match ingest.ErrEmbedding.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	vectors := make([][]float64, 0, len(texts))
	offset := 0

	for _, batch := range s.budget.Batches(texts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start, end := offset, offset+len(batch)
		truncated := make([]string, len(batch))
		for i, text := range batch {
			truncated[i] = s.budget.Truncate(text)
		}

		got, err := s.embedder.Embed(ctx, truncated)
		if err != nil {
			return nil, fmt.Errorf("%w: batch [%d:%d]: %w", ingest.ErrEmbedding, start, end, err)
		}
		if len(got) != len(batch) {
			return nil, fmt.Errorf("%w: batch [%d:%d]: got %d vectors for %d texts", ingest.ErrEmbedding, start, end, len(got), len(batch))
		}
		if s.dimension > 0 {
			for i, vec := range got {
				if len(vec) != s.dimension {
					return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", ingest.ErrEmbedding, start+i, len(vec), s.dimension)
				}
			}
		}

		vectors = append(vectors, got...)
		offset = end
	}

	return vectors, nil
}

var _ Embedding = (*EmbeddingService)(nil)
