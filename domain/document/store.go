package document

import (
	"context"

	"github.com/helixml/harvest/domain/repository"
)

// Store persists documents. Every method is scoped to a tenant.
type Store interface {
	repository.Store[Document]

	// FindByTenantAndURL returns the tenant's document for url, or an error
	// matching ingest.ErrNotFound.
	FindByTenantAndURL(ctx context.Context, tenantID, url string) (Document, error)

	// Insert persists a new document. A second document for the same
	// tenant and URL fails with an error matching ingest.ErrConflict.
	Insert(ctx context.Context, doc Document) (Document, error)
}
