package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/helixml/harvest/internal/log"
	"github.com/helixml/harvest/internal/mcp"
)

func stdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This lets AI assistants ingest sites and check tenant quotas.
Configuration is loaded from environment variables and .env file.
Logs are written to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger := log.NewLogger(cfg).Slog()
			logger.Info("starting MCP server",
				slog.String("version", version),
				slog.String("data_dir", cfg.DataDir()),
			)

			client, err := newClient(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close harvest client", slog.Any("error", err))
				}
			}()

			return mcp.NewServer(client, client.Quota, version, logger).ServeStdio()
		},
	}
}
