package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/helixml/harvest"
	"github.com/helixml/harvest/domain/embedding"
	"github.com/helixml/harvest/infrastructure/crawler"
	"github.com/helixml/harvest/infrastructure/provider"
	"github.com/helixml/harvest/internal/config"
)

// errNoEmbeddingEndpoint is returned when no embedding endpoint is configured.
var errNoEmbeddingEndpoint = errors.New("embedding endpoint not configured: set EMBEDDING_ENDPOINT_API_KEY or EMBEDDING_ENDPOINT_MODEL")

// clientOptions returns the harvest.Option slice derived from AppConfig.
// Callers append entrypoint-specific options before passing the full slice
// to harvest.New.
func clientOptions(cfg config.AppConfig, logger *slog.Logger) ([]harvest.Option, error) {
	opts := []harvest.Option{
		harvest.WithDataDir(cfg.DataDir()),
		harvest.WithDatabaseURL(cfg.DBURL()),
		harvest.WithLogger(logger),
		harvest.WithCrawlerConfig(crawlerConfig(cfg.Crawler())),
		harvest.WithSegmentTargetSize(cfg.SegmentTargetSize()),
		harvest.WithIngestTimeout(cfg.IngestTimeout()),
		harvest.WithAPIKeys(cfg.APIKeys()...),
	}

	embOpts, err := embeddingOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding config: %w", err)
	}
	opts = append(opts, embOpts...)

	limits, err := config.LoadPlans(cfg)
	if err != nil {
		return nil, fmt.Errorf("plans config: %w", err)
	}
	opts = append(opts, harvest.WithPlanLimits(limits))

	return opts, nil
}

// embeddingOptions returns the options for the OpenAI-compatible embedding
// endpoint.
func embeddingOptions(cfg config.AppConfig) ([]harvest.Option, error) {
	endpoint := cfg.EmbeddingEndpoint()
	if endpoint == nil || !endpoint.IsConfigured() {
		return nil, errNoEmbeddingEndpoint
	}

	budget, err := embedding.NewTokenBudget(endpoint.MaxBatchChars())
	if err != nil {
		return nil, fmt.Errorf("max batch chars: %w", err)
	}

	return []harvest.Option{
		harvest.WithOpenAIConfig(provider.OpenAIConfig{
			APIKey:         endpoint.APIKey(),
			BaseURL:        endpoint.BaseURL(),
			EmbeddingModel: endpoint.Model(),
			Dimensions:     endpoint.Dimensions(),
			Timeout:        endpoint.Timeout(),
			MaxRetries:     endpoint.MaxRetries(),
			InitialDelay:   endpoint.InitialDelay(),
			BackoffFactor:  endpoint.BackoffFactor(),
		}),
		harvest.WithEmbeddingBudget(budget.WithMaxBatchSize(endpoint.MaxBatchSize())),
		harvest.WithEmbeddingDimension(endpoint.Dimensions()),
	}, nil
}

// crawlerConfig maps the configured crawl bounds onto the crawler defaults.
func crawlerConfig(cc config.CrawlerConfig) crawler.Config {
	c := crawler.DefaultConfig()
	c.MaxPages = cc.MaxPages()
	c.MaxDepth = cc.MaxDepth()
	c.Concurrency = cc.Concurrency()
	c.RequestsPerSecond = cc.RequestsPerSecond()
	c.Timeout = cc.Timeout()
	if cc.UserAgent() != "" {
		c.UserAgent = cc.UserAgent()
	}
	return c
}

// newClient builds a harvest Client from configuration.
func newClient(cfg config.AppConfig, logger *slog.Logger, extra ...harvest.Option) (*harvest.Client, error) {
	opts, err := clientOptions(cfg, logger)
	if err != nil {
		return nil, err
	}
	client, err := harvest.New(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("create harvest client: %w", err)
	}
	return client, nil
}
