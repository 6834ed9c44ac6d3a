// Package embedding defines the vector embedding port and batching rules.
package embedding

import "context"

// Embedder converts text into embedding vectors.
// Implementations return exactly one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Vector is a single embedding.
type Vector []float64

// Dimension returns the number of components.
func (v Vector) Dimension() int { return len(v) }
