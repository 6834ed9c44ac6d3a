// Package crawler fetches a bounded, same-host set of web pages from a seed.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/helixml/harvest/domain/crawl"
)

// Config bounds a crawl.
type Config struct {
	// MaxPages caps the number of pages returned by one crawl.
	MaxPages int
	// MaxDepth is the link distance from the seed; 0 fetches only the seed.
	MaxDepth int
	// Concurrency is the number of parallel fetches within one depth level.
	Concurrency int
	// RequestsPerSecond limits fetches per host; <= 0 disables the limit.
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	UserAgent         string
	MaxBodyBytes      int64
	// MaxRetries is the number of retries for transient fetch failures.
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultConfig returns conservative crawl bounds.
func DefaultConfig() Config {
	return Config{
		MaxPages:          25,
		MaxDepth:          1,
		Concurrency:       4,
		RequestsPerSecond: 2,
		Burst:             2,
		Timeout:           15 * time.Second,
		UserAgent:         "harvest/1.0 (+https://github.com/helixml/harvest)",
		MaxBodyBytes:      5 << 20,
		MaxRetries:        2,
		RetryBackoff:      500 * time.Millisecond,
	}
}

// HTTPCrawler implements crawl.Crawler over HTTP.
type HTTPCrawler struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option configures an HTTPCrawler.
type Option func(*HTTPCrawler)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPCrawler) { h.client = c }
}

// New creates a crawler. Non-positive bounds fall back to DefaultConfig.
func New(cfg Config, logger *slog.Logger, opts ...Option) *HTTPCrawler {
	def := DefaultConfig()
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &HTTPCrawler{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout, CheckRedirect: sameSiteRedirect},
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl fetches the seed and then same-host links breadth first.
// Pages come back in discovery order. The seed must be fetchable; other
// pages that fail are logged and skipped.
func (c *HTTPCrawler) Crawl(ctx context.Context, seed string) ([]crawl.Page, error) {
	seedURL, err := crawl.ParseSeed(seed)
	if err != nil {
		return nil, err
	}

	hosts := map[string]struct{}{seedURL.Hostname(): {}}
	visited := map[string]struct{}{seedURL.String(): {}}
	emitted := map[string]struct{}{}
	level := []string{seedURL.String()}
	var pages []crawl.Page

	for depth := 0; depth <= c.cfg.MaxDepth && len(level) > 0; depth++ {
		if remaining := c.cfg.MaxPages - len(pages); len(level) > remaining {
			level = level[:remaining]
		}

		levelCtx := ctx
		if depth > 0 {
			levelCtx = withAllowedHosts(ctx, hosts)
		}
		results, err := c.fetchLevel(levelCtx, level, depth == 0)
		if err != nil {
			return nil, err
		}

		var next []string
		for _, res := range results {
			if res == nil {
				continue
			}
			if depth == 0 {
				// follow a redirect of the seed to another host, e.g. www.
				hosts[res.finalURL.Hostname()] = struct{}{}
			} else if _, ok := hosts[res.finalURL.Hostname()]; !ok {
				c.logger.Debug("dropping off-site redirect", slog.String("url", res.finalURL.String()))
				continue
			}
			key := withoutFragment(res.finalURL)
			visited[key] = struct{}{}
			if _, dup := emitted[key]; !dup && res.page != nil {
				emitted[key] = struct{}{}
				pages = append(pages, *res.page)
			}
			if depth == c.cfg.MaxDepth {
				continue
			}
			for _, link := range res.links {
				if _, ok := hosts[link.Hostname()]; !ok {
					continue
				}
				s := link.String()
				if _, seen := visited[s]; seen {
					continue
				}
				visited[s] = struct{}{}
				next = append(next, s)
			}
		}

		if len(pages) >= c.cfg.MaxPages {
			break
		}
		level = next
	}

	c.logger.Debug("crawl finished",
		slog.String("seed", seedURL.String()),
		slog.Int("pages", len(pages)),
	)
	return pages, nil
}

// fetchLevel fetches urls concurrently. Results keep the order of urls; a
// nil entry is a page that was skipped.
func (c *HTTPCrawler) fetchLevel(ctx context.Context, urls []string, seed bool) ([]*fetchResult, error) {
	results := make([]*fetchResult, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for i, u := range urls {
		g.Go(func() error {
			res, err := c.fetch(gctx, u)
			if err != nil {
				if seed {
					return err
				}
				c.logger.Warn("skipping page", slog.String("url", u), slog.Any("error", err))
				return nil
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %w", crawl.ErrSeedUnreachable, urls[0], err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *HTTPCrawler) limiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.limiters[host]; ok {
		return l
	}
	limit := rate.Inf
	if c.cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(c.cfg.RequestsPerSecond)
	}
	l := rate.NewLimiter(limit, c.cfg.Burst)
	c.limiters[host] = l
	return l
}

type allowedHostsKey struct{}

// withAllowedHosts limits the redirects of requests made with ctx to hosts.
// hosts must not be modified while those requests run.
func withAllowedHosts(ctx context.Context, hosts map[string]struct{}) context.Context {
	return context.WithValue(ctx, allowedHostsKey{}, hosts)
}

// sameSiteRedirect refuses redirects to hosts outside the crawl. The seed
// request carries no host set and may redirect anywhere.
func sameSiteRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	hosts, ok := req.Context().Value(allowedHostsKey{}).(map[string]struct{})
	if !ok {
		return nil
	}
	if _, allowed := hosts[req.URL.Hostname()]; !allowed {
		return http.ErrUseLastResponse
	}
	return nil
}

func withoutFragment(u *url.URL) string {
	cp := *u
	cp.Fragment = ""
	cp.RawFragment = ""
	return cp.String()
}

var _ crawl.Crawler = (*HTTPCrawler)(nil)
