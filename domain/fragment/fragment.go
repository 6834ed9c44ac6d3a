// Package fragment provides the embedded text segment of a Document.
package fragment

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Fragment is a bounded slice of a document's text with its embedding.
type Fragment struct {
	id         string
	tenantID   string
	documentID string
	url        string
	position   int
	content    string
	tokenCount int
	embedding  []float64
	createdAt  time.Time
}

// NewFragment creates a fragment for the position-th segment of a document.
// The token count is derived from content.
func NewFragment(tenantID, documentID, url string, position int, content string, embedding []float64) Fragment {
	return Fragment{
		id:         uuid.NewString(),
		tenantID:   tenantID,
		documentID: documentID,
		url:        url,
		position:   position,
		content:    content,
		tokenCount: EstimateTokens(content),
		embedding:  embedding,
		createdAt:  time.Now().UTC(),
	}
}

// ReconstructFragment recreates a fragment from persistence.
func ReconstructFragment(
	id, tenantID, documentID, url string,
	position int,
	content string,
	tokenCount int,
	embedding []float64,
	createdAt time.Time,
) Fragment {
	return Fragment{
		id:         id,
		tenantID:   tenantID,
		documentID: documentID,
		url:        url,
		position:   position,
		content:    content,
		tokenCount: tokenCount,
		embedding:  embedding,
		createdAt:  createdAt,
	}
}

// EstimateTokens approximates a token count as ceil(runes/4).
func EstimateTokens(content string) int {
	n := utf8.RuneCountInString(content)
	return (n + 3) / 4
}

// ID returns the fragment identifier.
func (f Fragment) ID() string { return f.id }

// TenantID returns the owning tenant.
func (f Fragment) TenantID() string { return f.tenantID }

// DocumentID returns the parent document.
func (f Fragment) DocumentID() string { return f.documentID }

// URL returns the parent document's URL.
func (f Fragment) URL() string { return f.url }

// Position returns the index of the fragment within its document.
func (f Fragment) Position() int { return f.position }

// Content returns the fragment text.
func (f Fragment) Content() string { return f.content }

// TokenCount returns the approximate token count.
func (f Fragment) TokenCount() int { return f.tokenCount }

// Embedding returns the embedding vector.
func (f Fragment) Embedding() []float64 { return f.embedding }

// CreatedAt returns the creation time.
func (f Fragment) CreatedAt() time.Time { return f.createdAt }
