// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8080
	DefaultLogLevel              = "INFO"
	DefaultSegmentTargetSize     = 900
	DefaultIngestTimeout         = 10 * time.Minute
	DefaultEndpointTimeout       = 60 * time.Second
	DefaultEndpointMaxRetries    = 5
	DefaultEndpointInitialDelay  = 2 * time.Second
	DefaultEndpointBackoffFactor = 2.0
	DefaultEndpointMaxBatchChars = 24000
	DefaultEndpointMaxBatchSize  = 64
	DefaultCrawlerMaxPages       = 25
	DefaultCrawlerMaxDepth       = 1
	DefaultCrawlerConcurrency    = 4
	DefaultCrawlerRPS            = 2.0
	DefaultCrawlerTimeout        = 15 * time.Second
	DefaultCrawlerUserAgent      = "harvest/1.0 (+https://github.com/helixml/harvest)"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Endpoint configures the embedding service.
type Endpoint struct {
	baseURL       string
	model         string
	apiKey        string
	dimensions    int
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	maxBatchChars int
	maxBatchSize  int
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout:       DefaultEndpointTimeout,
		maxRetries:    DefaultEndpointMaxRetries,
		initialDelay:  DefaultEndpointInitialDelay,
		backoffFactor: DefaultEndpointBackoffFactor,
		maxBatchChars: DefaultEndpointMaxBatchChars,
		maxBatchSize:  DefaultEndpointMaxBatchSize,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Dimensions returns the expected vector length; zero means unchecked.
func (e Endpoint) Dimensions() int { return e.dimensions }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// MaxBatchChars returns the maximum total characters per embedding batch.
func (e Endpoint) MaxBatchChars() int { return e.maxBatchChars }

// MaxBatchSize returns the maximum number of texts per embedding batch.
func (e Endpoint) MaxBatchSize() int { return e.maxBatchSize }

// IsConfigured returns true if the endpoint has a model or an API key.
func (e Endpoint) IsConfigured() bool {
	return e.model != "" || e.apiKey != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithDimensions sets the expected vector length.
func WithDimensions(n int) EndpointOption {
	return func(e *Endpoint) { e.dimensions = n }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) { e.backoffFactor = f }
}

// WithMaxBatchChars sets the maximum total characters per embedding batch.
func WithMaxBatchChars(n int) EndpointOption {
	return func(e *Endpoint) {
		if n > 0 {
			e.maxBatchChars = n
		}
	}
}

// WithMaxBatchSize sets the maximum number of texts per embedding batch.
func WithMaxBatchSize(n int) EndpointOption {
	return func(e *Endpoint) {
		if n > 0 {
			e.maxBatchSize = n
		}
	}
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// CrawlerConfig bounds each crawl.
type CrawlerConfig struct {
	maxPages          int
	maxDepth          int
	concurrency       int
	requestsPerSecond float64
	timeout           time.Duration
	userAgent         string
}

// NewCrawlerConfig creates a CrawlerConfig with defaults.
func NewCrawlerConfig() CrawlerConfig {
	return CrawlerConfig{
		maxPages:          DefaultCrawlerMaxPages,
		maxDepth:          DefaultCrawlerMaxDepth,
		concurrency:       DefaultCrawlerConcurrency,
		requestsPerSecond: DefaultCrawlerRPS,
		timeout:           DefaultCrawlerTimeout,
		userAgent:         DefaultCrawlerUserAgent,
	}
}

// MaxPages returns the page cap per crawl.
func (c CrawlerConfig) MaxPages() int { return c.maxPages }

// MaxDepth returns the link depth from the seed.
func (c CrawlerConfig) MaxDepth() int { return c.maxDepth }

// Concurrency returns the number of parallel fetches.
func (c CrawlerConfig) Concurrency() int { return c.concurrency }

// RequestsPerSecond returns the per-host request rate.
func (c CrawlerConfig) RequestsPerSecond() float64 { return c.requestsPerSecond }

// Timeout returns the per-request timeout.
func (c CrawlerConfig) Timeout() time.Duration { return c.timeout }

// UserAgent returns the User-Agent header value.
func (c CrawlerConfig) UserAgent() string { return c.userAgent }

// WithMaxPages returns a new config with the page cap set.
func (c CrawlerConfig) WithMaxPages(n int) CrawlerConfig {
	if n > 0 {
		c.maxPages = n
	}
	return c
}

// WithMaxDepth returns a new config with the depth set.
func (c CrawlerConfig) WithMaxDepth(n int) CrawlerConfig {
	if n >= 0 {
		c.maxDepth = n
	}
	return c
}

// WithConcurrency returns a new config with the fetch concurrency set.
func (c CrawlerConfig) WithConcurrency(n int) CrawlerConfig {
	if n > 0 {
		c.concurrency = n
	}
	return c
}

// WithRequestsPerSecond returns a new config with the per-host rate set.
// Zero or less disables rate limiting.
func (c CrawlerConfig) WithRequestsPerSecond(rps float64) CrawlerConfig {
	c.requestsPerSecond = rps
	return c
}

// WithTimeout returns a new config with the request timeout set.
func (c CrawlerConfig) WithTimeout(d time.Duration) CrawlerConfig {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// WithUserAgent returns a new config with the User-Agent set.
func (c CrawlerConfig) WithUserAgent(ua string) CrawlerConfig {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host              string
	port              int
	dataDir           string
	dbURL             string
	logLevel          string
	logFormat         LogFormat
	apiKeys           []string
	embeddingEndpoint *Endpoint
	crawler           CrawlerConfig
	segmentTargetSize int
	plansFile         string
	defaultPlan       string
	ingestTimeout     time.Duration
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".harvest"
	}
	return filepath.Join(home, ".harvest")
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:              DefaultHost,
		port:              DefaultPort,
		dataDir:           dataDir,
		dbURL:             "sqlite:///" + filepath.Join(dataDir, "harvest.db"),
		logLevel:          DefaultLogLevel,
		logFormat:         LogFormatPretty,
		apiKeys:           []string{},
		crawler:           NewCrawlerConfig(),
		segmentTargetSize: DefaultSegmentTargetSize,
		ingestTimeout:     DefaultIngestTimeout,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// APIKeys returns the configured API keys.
func (c AppConfig) APIKeys() []string {
	keys := make([]string, len(c.apiKeys))
	copy(keys, c.apiKeys)
	return keys
}

// EmbeddingEndpoint returns the embedding endpoint config, or nil.
func (c AppConfig) EmbeddingEndpoint() *Endpoint { return c.embeddingEndpoint }

// Crawler returns the crawl bounds.
func (c AppConfig) Crawler() CrawlerConfig { return c.crawler }

// SegmentTargetSize returns the fragment target size in runes.
func (c AppConfig) SegmentTargetSize() int { return c.segmentTargetSize }

// PlansFile returns the path of the plan limits file, or "".
func (c AppConfig) PlansFile() string { return c.plansFile }

// DefaultPlan returns the plan used for tenants without one, or "" for the
// built-in default.
func (c AppConfig) DefaultPlan() string { return c.defaultPlan }

// IngestTimeout returns the wall-clock budget of one ingestion run.
func (c AppConfig) IngestTimeout() time.Duration { return c.ingestTimeout }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory. A default SQLite URL follows it.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		if c.dbURL == "" || strings.HasSuffix(c.dbURL, "harvest.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "harvest.db")
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithAPIKeys sets the API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) {
		c.apiKeys = make([]string, len(keys))
		copy(c.apiKeys, keys)
	}
}

// WithEmbeddingEndpoint sets the embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = &e }
}

// WithCrawlerConfig sets the crawl bounds.
func WithCrawlerConfig(cc CrawlerConfig) AppConfigOption {
	return func(c *AppConfig) { c.crawler = cc }
}

// WithSegmentTargetSize sets the fragment target size.
func WithSegmentTargetSize(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.segmentTargetSize = n
		}
	}
}

// WithPlansFile sets the plan limits file.
func WithPlansFile(path string) AppConfigOption {
	return func(c *AppConfig) { c.plansFile = path }
}

// WithDefaultPlan sets the plan for tenants without one.
func WithDefaultPlan(plan string) AppConfigOption {
	return func(c *AppConfig) { c.defaultPlan = plan }
}

// WithIngestTimeout sets the ingestion run budget.
func WithIngestTimeout(d time.Duration) AppConfigOption {
	return func(c *AppConfig) {
		if d > 0 {
			c.ingestTimeout = d
		}
	}
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes describing the configuration.
// Secrets are masked or shown as counts.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("embedding_base_url", c.endpointBaseURL()),
		slog.String("embedding_model", c.endpointModel()),
		slog.Int("api_keys_count", len(c.apiKeys)),
		slog.Int("segment_target_size", c.segmentTargetSize),
		slog.Int("crawler_max_pages", c.crawler.MaxPages()),
		slog.Int("crawler_max_depth", c.crawler.MaxDepth()),
		slog.String("plans_file", c.plansFile),
		slog.Duration("ingest_timeout", c.ingestTimeout),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if strings.HasPrefix(c.dbURL, "sqlite:") {
		return c.dbURL
	}
	return "postgres://***@***"
}

func (c AppConfig) endpointBaseURL() string {
	if c.embeddingEndpoint == nil {
		return "(not configured)"
	}
	return c.embeddingEndpoint.BaseURL()
}

func (c AppConfig) endpointModel() string {
	if c.embeddingEndpoint == nil {
		return "(not configured)"
	}
	return c.embeddingEndpoint.Model()
}

// ParseAPIKeys parses a comma-separated string of API keys.
func ParseAPIKeys(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	return keys
}
