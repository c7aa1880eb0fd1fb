package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/target/swift-ingestion/config"
	"github.com/target/swift-ingestion/internal/bootstrap"
)

func newConnectorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connectors",
		Short: "Manage persisted connector settings",
	}

	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Upsert connector settings from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, err := config.LoadConnectorsFile(args[0])
			if err != nil {
				return err
			}
			return withServices(app, false, func(svc bootstrap.ServiceContainer) error {
				saved, err := svc.ConnectorConfigs.Import(app.Ctx, reqs)
				for _, c := range saved {
					if _, werr := fmt.Fprintf(cmd.OutOrStdout(), "upserted %s (%s)\n", c.Name, c.SourceType); werr != nil {
						return werr
					}
				}
				return err
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List persisted connector settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(app, false, func(svc bootstrap.ServiceContainer) error {
				configs, err := svc.ConnectorConfigs.List(app.Ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				if _, err := fmt.Fprintln(tw, "NAME\tSOURCE\tENABLED\tRATE/MIN\tTIMEOUT\tRETRIES"); err != nil {
					return err
				}
				for _, c := range configs {
					rate := "-"
					if c.RateLimitPerMinute != nil {
						rate = fmt.Sprint(*c.RateLimitPerMinute)
					}
					if _, err := fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%ds\t%d\n",
						c.Name, c.SourceType, c.Enabled, rate, c.TimeoutSeconds, c.RetryAttempts); err != nil {
						return err
					}
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(importCmd, list)
	return cmd
}

func newSourcesCmd() *cobra.Command {
	var health, asJSON bool
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List available sources, optionally probing their health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(app, health, func(svc bootstrap.ServiceContainer) error {
				sources, err := svc.Sources.List(app.Ctx, health)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), sources)
				}
				return printSourcesTable(cmd.OutOrStdout(), sources)
			})
		},
	}
	cmd.Flags().BoolVar(&health, "health", false, "probe each upstream API")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
