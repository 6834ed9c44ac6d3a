package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/helixml/harvest/domain/document"
	"github.com/helixml/harvest/domain/ingest"
	"github.com/helixml/harvest/domain/repository"
	"github.com/helixml/harvest/internal/database"
)

// DocumentStore implements document.Store using GORM.
type DocumentStore struct {
	database.Repository[document.Document, DocumentModel]
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(db database.Database) DocumentStore {
	return DocumentStore{
		Repository: database.NewRepository[document.Document, DocumentModel](db, DocumentMapper{}, "document"),
	}
}

// FindByTenantAndURL returns the tenant's document for url.
func (s DocumentStore) FindByTenantAndURL(ctx context.Context, tenantID, url string) (document.Document, error) {
	doc, err := s.FindOne(ctx, repository.WithTenantID(tenantID), document.WithURL(url))
	if err != nil {
		if errors.Is(err, ingest.ErrNotFound) {
			return document.Document{}, err
		}
		return document.Document{}, fmt.Errorf("%w: %w", ingest.ErrStorage, err)
	}
	return doc, nil
}

// Insert persists a new document. A duplicate (tenant, url) is a conflict.
func (s DocumentStore) Insert(ctx context.Context, doc document.Document) (document.Document, error) {
	saved, err := s.Create(ctx, doc)
	if err != nil {
		if errors.Is(err, ingest.ErrConflict) {
			return document.Document{}, err
		}
		return document.Document{}, fmt.Errorf("%w: %w", ingest.ErrStorage, err)
	}
	return saved, nil
}
