package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/helixml/harvest/domain/crawl"
)

// errRetryableStatus marks responses worth another attempt.
var errRetryableStatus = errors.New("retryable status")

// errOffSite marks a redirect the crawler refused to follow.
var errOffSite = errors.New("off-site redirect")

// fetchResult is one fetched URL. page is nil when the response had no
// extractable text.
type fetchResult struct {
	finalURL *url.URL
	page     *crawl.Page
	links    []*url.URL
}

// fetch retrieves one URL, retrying transient failures with exponential backoff.
func (c *HTTPCrawler) fetch(ctx context.Context, rawURL string) (*fetchResult, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	limiter := c.limiter(target.Hostname())

	var result *fetchResult
	op := func() error {
		if err := limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		res, err := c.get(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		result = res
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPCrawler) get(ctx context.Context, target *url.URL) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.1")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return nil, backoff.Permanent(fmt.Errorf("%w: %s redirects to %s", errOffSite, target, resp.Header.Get("Location")))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s returned %d", errRetryableStatus, target, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, backoff.Permanent(fmt.Errorf("%s returned %d", target, resp.StatusCode))
	}

	finalURL := resp.Request.URL
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}

	res := &fetchResult{finalURL: finalURL}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "" {
		mediaType = http.DetectContentType(body)
		mediaType, _, _ = mime.ParseMediaType(mediaType)
	}

	switch mediaType {
	case "text/html", "application/xhtml+xml":
		extracted, err := extractHTML(body, finalURL)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("parse %s: %w", finalURL, err))
		}
		res.links = extracted.links
		if extracted.text != "" {
			res.page = &crawl.Page{URL: finalURL.String(), Title: extracted.title, Content: extracted.text}
		}
	case "text/plain":
		if text := collapseWhitespace(string(body)); text != "" {
			res.page = &crawl.Page{URL: finalURL.String(), Title: titleFromURL(finalURL), Content: text}
		}
	default:
		c.logger.Debug("skipping unsupported content type",
			slog.String("url", finalURL.String()),
			slog.String("content_type", mediaType),
		)
	}

	return res, nil
}

func titleFromURL(u *url.URL) string {
	if p := strings.Trim(u.Path, "/"); p != "" {
		return p[strings.LastIndex(p, "/")+1:]
	}
	return u.Hostname()
}
