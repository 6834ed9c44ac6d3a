package document

import (
	"net/url"
	"strings"
)

// NormalizeURL drops the fragment component of raw and reserializes it.
// If raw does not parse it is returned unchanged; a document is never
// dropped because of its URL.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Host returns the lowercased hostname of raw, or "" if it has none.
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
