package harvest

import (
	"io"
	"log/slog"
	"time"

	"github.com/helixml/harvest/domain/crawl"
	"github.com/helixml/harvest/domain/embedding"
	"github.com/helixml/harvest/domain/tenant"
	"github.com/helixml/harvest/infrastructure/crawler"
	"github.com/helixml/harvest/infrastructure/provider"
	"github.com/helixml/harvest/internal/config"
	"github.com/helixml/harvest/internal/metrics"
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	dbURL              string
	dataDir            string
	embeddingProvider  provider.Embedder
	embeddingBudget    embedding.TokenBudget
	embeddingDimension int
	breaker            provider.BreakerConfig
	crawler            crawl.Crawler
	crawlerConfig      crawler.Config
	segmentTargetSize  int
	limits             tenant.Limits
	limitsSet          bool
	logger             *slog.Logger
	metrics            *metrics.Metrics
	apiKeys            []string
	ingestTimeout      time.Duration
	closers            []io.Closer
}

func newClientConfig() *clientConfig {
	return &clientConfig{
		embeddingBudget:   embedding.DefaultTokenBudget(),
		breaker:           provider.DefaultBreakerConfig(),
		crawlerConfig:     crawler.DefaultConfig(),
		segmentTargetSize: config.DefaultSegmentTargetSize,
		limits:            tenant.DefaultLimits(),
		ingestTimeout:     config.DefaultIngestTimeout,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite stores data in the SQLite file at path. ":memory:" keeps
// everything in memory.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.dbURL = "sqlite:///" + path
	}
}

// WithPostgres stores data in PostgreSQL.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.dbURL = dsn
	}
}

// WithDatabaseURL sets the database from a sqlite:/// or postgres:// URL.
func WithDatabaseURL(url string) Option {
	return func(c *clientConfig) {
		c.dbURL = url
	}
}

// WithDataDir sets the data directory, created on construction.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithOpenAI embeds with the OpenAI API using default settings.
func WithOpenAI(apiKey string) Option {
	return func(c *clientConfig) {
		c.embeddingProvider = provider.NewOpenAIProvider(apiKey)
	}
}

// WithOpenAIConfig embeds with an OpenAI-compatible API.
func WithOpenAIConfig(cfg provider.OpenAIConfig) Option {
	return func(c *clientConfig) {
		c.embeddingProvider = provider.NewOpenAIProviderFromConfig(cfg)
		if cfg.Dimensions > 0 {
			c.embeddingDimension = cfg.Dimensions
		}
	}
}

// WithEmbeddingProvider sets a custom embedding provider.
func WithEmbeddingProvider(p provider.Embedder) Option {
	return func(c *clientConfig) {
		c.embeddingProvider = p
	}
}

// WithEmbeddingBudget sets the batching budget for embedding requests.
func WithEmbeddingBudget(b embedding.TokenBudget) Option {
	return func(c *clientConfig) {
		c.embeddingBudget = b
	}
}

// WithEmbeddingDimension rejects vectors of any other length. Zero disables
// the check.
func WithEmbeddingDimension(n int) Option {
	return func(c *clientConfig) {
		if n >= 0 {
			c.embeddingDimension = n
		}
	}
}

// WithBreakerConfig configures the circuit breaker around the embedding provider.
func WithBreakerConfig(cfg provider.BreakerConfig) Option {
	return func(c *clientConfig) {
		c.breaker = cfg
	}
}

// WithCrawler replaces the HTTP crawler.
func WithCrawler(cr crawl.Crawler) Option {
	return func(c *clientConfig) {
		c.crawler = cr
	}
}

// WithCrawlerConfig sets the bounds of the HTTP crawler.
func WithCrawlerConfig(cfg crawler.Config) Option {
	return func(c *clientConfig) {
		c.crawlerConfig = cfg
	}
}

// WithSegmentTargetSize sets the fragment target size in runes.
// Values <= 0 are ignored.
func WithSegmentTargetSize(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.segmentTargetSize = n
		}
	}
}

// WithPlanLimits sets the per-plan site limits.
func WithPlanLimits(l tenant.Limits) Option {
	return func(c *clientConfig) {
		c.limits = l
		c.limitsSet = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithMetrics records ingestion metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *clientConfig) {
		c.metrics = m
	}
}

// WithAPIKeys sets the API keys for HTTP API authentication.
func WithAPIKeys(keys ...string) Option {
	return func(c *clientConfig) {
		c.apiKeys = keys
	}
}

// WithIngestTimeout bounds one ingestion run. Values <= 0 disable the bound.
func WithIngestTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.ingestTimeout = d
	}
}

// WithCloser registers a resource to be closed when the Client shuts down.
func WithCloser(c io.Closer) Option {
	return func(cfg *clientConfig) {
		cfg.closers = append(cfg.closers, c)
	}
}
