package fragment

import (
	"context"

	"github.com/helixml/harvest/domain/repository"
)

// Store persists fragments.
type Store interface {
	repository.Store[Fragment]

	// InsertAll writes all fragments of one document atomically.
	InsertAll(ctx context.Context, fragments []Fragment) error
}

// WithDocumentID filters by the "document_id" column.
func WithDocumentID(id string) repository.Option {
	return repository.WithCondition("document_id", id)
}
