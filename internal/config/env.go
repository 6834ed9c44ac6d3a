package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use an underscore delimiter (e.g. EMBEDDING_ENDPOINT_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.harvest
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/harvest.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// APIKeys is a comma-separated list of valid API keys.
	// Env: API_KEYS
	APIKeys string `envconfig:"API_KEYS"`

	// EmbeddingEndpoint configures the embedding service.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// Crawler bounds each crawl.
	Crawler CrawlerEnv `envconfig:"CRAWLER"`

	// SegmentTargetSize is the fragment target size in runes.
	// Env: SEGMENT_TARGET_SIZE (default: 900)
	SegmentTargetSize int `envconfig:"SEGMENT_TARGET_SIZE" default:"900"`

	// PlansFile is a YAML file mapping plan names to host limits.
	// Env: PLANS_FILE
	PlansFile string `envconfig:"PLANS_FILE"`

	// DefaultPlan is the plan of tenants without a recorded plan.
	// Env: DEFAULT_PLAN
	DefaultPlan string `envconfig:"DEFAULT_PLAN"`

	// IngestTimeout is the wall-clock budget of one ingestion run.
	// Env: INGEST_TIMEOUT (default: 10m)
	IngestTimeout time.Duration `envconfig:"INGEST_TIMEOUT" default:"10m"`
}

// EndpointEnv holds environment configuration for the embedding endpoint.
type EndpointEnv struct {
	// Env: EMBEDDING_ENDPOINT_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Env: EMBEDDING_ENDPOINT_MODEL
	Model string `envconfig:"MODEL"`

	// Env: EMBEDDING_ENDPOINT_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Env: EMBEDDING_ENDPOINT_DIMENSIONS (default: 0, unchecked)
	Dimensions int `envconfig:"DIMENSIONS" default:"0"`

	// Timeout is the request timeout in seconds.
	// Env: EMBEDDING_ENDPOINT_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// Env: EMBEDDING_ENDPOINT_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: EMBEDDING_ENDPOINT_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// Env: EMBEDDING_ENDPOINT_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`

	// Env: EMBEDDING_ENDPOINT_MAX_BATCH_CHARS (default: 24000)
	MaxBatchChars int `envconfig:"MAX_BATCH_CHARS" default:"24000"`

	// Env: EMBEDDING_ENDPOINT_MAX_BATCH_SIZE (default: 64)
	MaxBatchSize int `envconfig:"MAX_BATCH_SIZE" default:"64"`
}

// CrawlerEnv holds environment configuration for the crawler.
type CrawlerEnv struct {
	// Env: CRAWLER_MAX_PAGES (default: 25)
	MaxPages int `envconfig:"MAX_PAGES" default:"25"`

	// Env: CRAWLER_MAX_DEPTH (default: 1)
	MaxDepth int `envconfig:"MAX_DEPTH" default:"1"`

	// Env: CRAWLER_CONCURRENCY (default: 4)
	Concurrency int `envconfig:"CONCURRENCY" default:"4"`

	// Env: CRAWLER_REQUESTS_PER_SECOND (default: 2)
	RequestsPerSecond float64 `envconfig:"REQUESTS_PER_SECOND" default:"2"`

	// Env: CRAWLER_TIMEOUT (default: 15s)
	Timeout time.Duration `envconfig:"TIMEOUT" default:"15s"`

	// Env: CRAWLER_USER_AGENT
	UserAgent string `envconfig:"USER_AGENT"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "HARVEST" reads HARVEST_DATA_DIR instead of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = applyOption(cfg, WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = applyOption(cfg, WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = applyOption(cfg, WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = applyOption(cfg, WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.APIKeys != "" {
		cfg = applyOption(cfg, WithAPIKeys(ParseAPIKeys(e.APIKeys)))
	}

	if e.EmbeddingEndpoint.IsConfigured() {
		cfg = applyOption(cfg, WithEmbeddingEndpoint(e.EmbeddingEndpoint.ToEndpoint()))
	}

	cfg = applyOption(cfg, WithCrawlerConfig(e.Crawler.ToCrawlerConfig()))
	cfg = applyOption(cfg, WithSegmentTargetSize(e.SegmentTargetSize))
	cfg = applyOption(cfg, WithIngestTimeout(e.IngestTimeout))

	if e.PlansFile != "" {
		cfg = applyOption(cfg, WithPlansFile(e.PlansFile))
	}
	if e.DefaultPlan != "" {
		cfg = applyOption(cfg, WithDefaultPlan(strings.ToLower(e.DefaultPlan)))
	}

	return cfg
}

func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

// IsConfigured returns true if the endpoint has a model or an API key.
func (e EndpointEnv) IsConfigured() bool {
	return e.Model != "" || e.APIKey != ""
}

// ToEndpoint converts EndpointEnv to Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithDimensions(e.Dimensions),
		WithTimeout(time.Duration(e.Timeout * float64(time.Second))),
		WithMaxRetries(e.MaxRetries),
		WithInitialDelay(time.Duration(e.InitialDelay * float64(time.Second))),
		WithBackoffFactor(e.BackoffFactor),
		WithMaxBatchChars(e.MaxBatchChars),
		WithMaxBatchSize(e.MaxBatchSize),
	}
	if e.Model != "" {
		opts = append(opts, WithModel(e.Model))
	}
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}
	return NewEndpointWithOptions(opts...)
}

// ToCrawlerConfig converts CrawlerEnv to CrawlerConfig.
func (c CrawlerEnv) ToCrawlerConfig() CrawlerConfig {
	return NewCrawlerConfig().
		WithMaxPages(c.MaxPages).
		WithMaxDepth(c.MaxDepth).
		WithConcurrency(c.Concurrency).
		WithRequestsPerSecond(c.RequestsPerSecond).
		WithTimeout(c.Timeout).
		WithUserAgent(c.UserAgent)
}

func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}
