package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/helixml/harvest"
	"github.com/helixml/harvest/domain/crawl"
	"github.com/helixml/harvest/internal/log"
)

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenant plans",
	}
	cmd.AddCommand(tenantSetPlanCmd())
	cmd.AddCommand(tenantShowCmd())
	cmd.AddCommand(tenantQuotaCmd())
	return cmd
}

func tenantSetPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-plan <tenant> <plan>",
		Short: "Assign a plan to a tenant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(client *harvest.Client) error {
				if err := client.Tenants.SetPlan(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "tenant %s now on plan %s\n", args[0], args[1])
				return err
			})
		},
	}
}

func tenantShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <tenant>",
		Short: "Print a tenant's plan and site limit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(client *harvest.Client) error {
				plan, limit, err := client.Tenants.Plan(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				sites := fmt.Sprintf("%d", limit)
				if limit < 0 {
					sites = "unlimited"
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "plan: %s\nsites: %s\n", plan, sites)
				return err
			})
		},
	}
}

func tenantQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota <tenant> <host>",
		Short: "Check whether a tenant may add a site",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := crawl.SeedHost(args[1])
			if err != nil {
				return err
			}
			return withClient(cmd, func(client *harvest.Client) error {
				d, err := client.Quota.CanAddSite(cmd.Context(), args[0], host)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "allowed: %t\nhost: %s\nplan: %s\ncurrent: %d\nlimit: %d\nreason: %s\n",
					d.OK(), d.Host(), d.Plan(), d.Current(), d.Limit(), d.Reason())
				return err
			})
		},
	}
}

// withClient builds a client from configuration, runs fn and closes it.
func withClient(cmd *cobra.Command, fn func(*harvest.Client) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := log.NewLogger(cfg).Slog()
	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close harvest client", slog.Any("error", err))
		}
	}()
	return fn(client)
}
