// Package crawl defines the crawler port.
package crawl

import "context"

// Page is one document produced by a crawl.
type Page struct {
	URL     string
	Title   string
	Content string
}

// Crawler retrieves a bounded set of pages reachable from a seed.
// A seed that is malformed or unreachable fails the whole crawl;
// individual sub-page failures do not.
type Crawler interface {
	Crawl(ctx context.Context, seed string) ([]Page, error)
}
