package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixml/harvest"
	"github.com/helixml/harvest/domain/ingest"
	"github.com/helixml/harvest/infrastructure/api/v1/dto"
)

func ingestCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "ingest <url-or-host>",
		Short: "Crawl a site and store it for a tenant",
		Long: `Crawl a site and store its pages as embedded fragments for a tenant.

The run summary is printed to stdout as JSON. A quota denial prints the
decision and exits non-zero.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(client *harvest.Client) error {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				result, err := client.Ingest(cmd.Context(), tenantID, args[0])
				var denied *ingest.QuotaDeniedError
				if errors.As(err, &denied) {
					d := denied.Decision
					if encErr := enc.Encode(dto.QuotaExceededResponse{
						Error:   "quota_exceeded",
						Reason:  d.Reason(),
						Host:    d.Host(),
						Current: d.Current(),
						Limit:   d.Limit(),
						Plan:    d.Plan(),
					}); encErr != nil {
						return encErr
					}
					return err
				}
				if err != nil {
					return fmt.Errorf("ingestion failed: %w", err)
				}

				failures := make([]dto.IngestFailure, len(result.Failures))
				for i, f := range result.Failures {
					failures[i] = dto.IngestFailure{URL: f.URL, Stage: string(f.Stage)}
				}
				return enc.Encode(dto.IngestResponse{
					OK:        true,
					Docs:      result.Docs,
					Persisted: result.Persisted,
					Skipped:   result.Skipped,
					Failures:  failures,
					RunID:     result.RunID,
				})
			})
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant to ingest for")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}
