// Package document provides the tenant-owned Document entity.
package document

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document is a crawled page stored for one tenant.
// It is immutable once created; no two documents of a tenant share a URL.
type Document struct {
	id        string
	tenantID  string
	url       string
	host      string
	site      string
	title     string
	content   string
	createdAt time.Time
}

// NewDocument creates a document that has not been persisted yet.
// url must already be normalized with NormalizeURL. The site defaults to
// the URL's host.
func NewDocument(tenantID, url, title, content string) Document {
	host := Host(url)
	return Document{
		id:        uuid.NewString(),
		tenantID:  tenantID,
		url:       url,
		host:      host,
		site:      host,
		title:     title,
		content:   content,
		createdAt: time.Now().UTC(),
	}
}

// ReconstructDocument recreates a document from persistence.
func ReconstructDocument(id, tenantID, url, host, site, title, content string, createdAt time.Time) Document {
	return Document{
		id:        id,
		tenantID:  tenantID,
		url:       url,
		host:      host,
		site:      site,
		title:     title,
		content:   content,
		createdAt: createdAt,
	}
}

// ID returns the document identifier.
func (d Document) ID() string { return d.id }

// TenantID returns the owning tenant.
func (d Document) TenantID() string { return d.tenantID }

// URL returns the normalized URL.
func (d Document) URL() string { return d.url }

// Host returns the lowercased hostname of the URL.
func (d Document) Host() string { return d.host }

// Site returns the host the tenant's quota was checked for when the
// document was stored. It differs from Host when the seed redirected, e.g.
// example.com to www.example.com.
func (d Document) Site() string { return d.site }

// WithSite returns a copy of the document counted against site.
func (d Document) WithSite(site string) Document {
	if site != "" {
		d.site = strings.ToLower(site)
	}
	return d
}

// Title returns the page title.
func (d Document) Title() string { return d.title }

// Content returns the extracted page text.
func (d Document) Content() string { return d.content }

// CreatedAt returns the creation time.
func (d Document) CreatedAt() time.Time { return d.createdAt }
