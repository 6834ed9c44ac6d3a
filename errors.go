package harvest

import (
	"errors"

	"github.com/helixml/harvest/domain/ingest"
)

// Exported errors for library consumers.
var (
	// ErrNoDatabase indicates no database was configured.
	ErrNoDatabase = errors.New("harvest: no database configured")

	// ErrNoProvider indicates no embedding provider was configured.
	ErrNoProvider = errors.New("harvest: no embedding provider configured")

	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("harvest: client is closed")
)

// Ingestion errors, re-exported so callers need not import domain/ingest.
var (
	ErrValidation  = ingest.ErrValidation
	ErrQuotaDenied = ingest.ErrQuotaDenied
	ErrCrawl       = ingest.ErrCrawl
	ErrEmbedding   = ingest.ErrEmbedding
	ErrStorage     = ingest.ErrStorage
	ErrNotFound    = ingest.ErrNotFound
)
