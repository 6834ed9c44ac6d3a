package crawl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/helixml/harvest/domain/ingest"
)

// Crawl errors. Both match ingest.ErrCrawl.
var (
	ErrInvalidSeed     = fmt.Errorf("%w: invalid seed", ingest.ErrCrawl)
	ErrSeedUnreachable = fmt.Errorf("%w: seed unreachable", ingest.ErrCrawl)
)

// ParseSeed turns user input into an absolute http(s) URL.
// Input without a scheme is treated as https.
func ParseSeed(input string) (*url.URL, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSeed)
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSeed, input, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSeed, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidSeed, input)
	}
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}

// SeedHost returns the lowercased hostname of a seed.
func SeedHost(input string) (string, error) {
	u, err := ParseSeed(input)
	if err != nil {
		return "", err
	}
	return u.Hostname(), nil
}
