package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixml/harvest/infrastructure/api"
	"github.com/helixml/harvest/internal/config"
	"github.com/helixml/harvest/internal/log"
)

// writeTimeoutSlack is added to the ingest timeout so a run that finishes at
// its deadline can still write its response.
const writeTimeoutSlack = 30 * time.Second

func serveCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                         Server host to bind to (default: 0.0.0.0)
  PORT                         Server port to listen on (default: 8080)
  DATA_DIR                     Data directory (default: ~/.harvest)
  DB_URL                       Database URL (default: sqlite:///{data_dir}/harvest.db)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json (default: pretty)
  API_KEYS                     Comma-separated list of valid API keys

  EMBEDDING_ENDPOINT_*         Embedding service configuration
    BASE_URL                   Base URL (e.g., https://api.openai.com/v1)
    MODEL                      Model identifier (e.g., text-embedding-3-small)
    API_KEY                    API key for authentication
    DIMENSIONS                 Vector dimension (default: model native)
    MAX_BATCH_CHARS            Character budget per request

  CRAWLER_*                    Crawl bounds (MAX_PAGES, MAX_DEPTH, CONCURRENCY,
                               REQUESTS_PER_SECOND, TIMEOUT, USER_AGENT)

  PLANS_FILE                   YAML file of plan name to site limit
  DEFAULT_PLAN                 Plan for tenants without one (default: free)
  INGEST_TIMEOUT               Upper bound on one ingestion run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			var overrides []config.AppConfigOption
			if host != "" {
				overrides = append(overrides, config.WithHost(host))
			}
			if port != 0 {
				overrides = append(overrides, config.WithPort(port))
			}
			return runServe(cmd.Context(), cfg.Apply(overrides...))
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(ctx context.Context, cfg config.AppConfig) error {
	logger := log.NewLogger(cfg).Slog()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	logger.LogAttrs(ctx, slog.LevelInfo, "starting harvest", attrs...)

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close harvest client", slog.Any("error", err))
		}
	}()

	apiServer := api.NewAPIServer(client, version)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.ListenAndServe(cfg.Addr(), cfg.IngestTimeout()+writeTimeoutSlack)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
