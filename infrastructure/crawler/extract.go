package crawler

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockSelector lists elements that break text flow. A newline is appended
// to each so adjacent blocks do not run together.
const blockSelector = "p, div, br, nav, main, aside, ul, ol, li, table, form, tr, td, th, h1, h2, h3, h4, h5, h6, section, article, header, footer, blockquote, pre, dd, dt"

// noiseSelector lists elements whose text is never page content.
const noiseSelector = "script, style, noscript, svg, iframe, template, head, object, embed"

var skipExtensions = map[string]struct{}{
	".pdf": {}, ".zip": {}, ".gz": {}, ".tar": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".svg": {}, ".ico": {},
	".css": {}, ".js": {}, ".json": {}, ".xml": {},
	".mp3": {}, ".mp4": {}, ".mov": {}, ".woff": {}, ".woff2": {},
}

type extracted struct {
	title string
	text  string
	links []*url.URL
}

// extractHTML pulls the title, visible text, and outgoing http(s) links
// from an HTML document.
func extractHTML(body []byte, base *url.URL) (extracted, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return extracted{}, err
	}

	out := extracted{links: extractLinks(doc, base)}

	out.title = collapseWhitespace(doc.Find("title").First().Text())
	if out.title == "" {
		out.title = collapseWhitespace(doc.Find("h1").First().Text())
	}
	if out.title == "" {
		out.title = base.String()
	}

	doc.Find(noiseSelector).Remove()
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	bodySel := doc.Find("body")
	if bodySel.Length() > 0 {
		out.text = collapseWhitespace(bodySel.Text())
	} else {
		out.text = collapseWhitespace(doc.Text())
	}

	return out, nil
}

func extractLinks(doc *goquery.Document, base *url.URL) []*url.URL {
	var links []*url.URL
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		if rel, _ := s.Attr("rel"); strings.Contains(rel, "nofollow") {
			return
		}
		u, err := base.Parse(href)
		if err != nil {
			return
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		if _, skip := skipExtensions[strings.ToLower(path.Ext(u.Path))]; skip {
			return
		}
		u.Fragment = ""
		u.RawFragment = ""
		u.Host = strings.ToLower(u.Host)
		key := u.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, u)
	})

	return links
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
