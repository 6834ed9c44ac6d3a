package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/helixml/harvest/domain/document"
	"github.com/helixml/harvest/domain/fragment"
	"github.com/helixml/harvest/domain/ingest"
	"github.com/helixml/harvest/domain/repository"
)

// DefaultListLimit is the page size used when a caller gives none.
const DefaultListLimit = 50

// MaxListLimit caps the page size of list calls.
const MaxListLimit = 500

// Documents provides tenant-scoped read access to stored documents.
type Documents struct {
	documents document.Store
	fragments fragment.Store
}

// NewDocuments creates a Documents service.
func NewDocuments(documents document.Store, fragments fragment.Store) *Documents {
	return &Documents{documents: documents, fragments: fragments}
}

// List returns one page of the tenant's documents, newest first, and the
// tenant's total document count.
func (s *Documents) List(ctx context.Context, tenantID string, limit, offset int) ([]document.Document, int64, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, 0, fmt.Errorf("%w: tenant id is required", ingest.ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	offset = max(offset, 0)

	total, err := s.documents.Count(ctx, repository.WithTenantID(tenantID))
	if err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	opts := append([]repository.Option{
		repository.WithTenantID(tenantID),
		repository.WithOrderDesc("created_at"),
	}, repository.WithPagination(limit, offset)...)
	docs, err := s.documents.Find(ctx, opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}

// Get returns one of the tenant's documents.
func (s *Documents) Get(ctx context.Context, tenantID, documentID string) (document.Document, error) {
	doc, err := s.documents.FindOne(ctx, repository.WithTenantID(tenantID), repository.WithID(documentID))
	if err != nil {
		return document.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Fragments returns the fragments of one of the tenant's documents in
// position order.
func (s *Documents) Fragments(ctx context.Context, tenantID, documentID string) ([]fragment.Fragment, error) {
	if _, err := s.Get(ctx, tenantID, documentID); err != nil {
		return nil, err
	}
	frags, err := s.fragments.Find(ctx,
		repository.WithTenantID(tenantID),
		fragment.WithDocumentID(documentID),
		repository.WithOrderAsc("position"),
	)
	if err != nil {
		return nil, fmt.Errorf("list fragments: %w", err)
	}
	return frags, nil
}
