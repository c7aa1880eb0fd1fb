package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/target/swift-ingestion/internal/bootstrap"
	"github.com/target/swift-ingestion/internal/migrate"
)

const defaultMigrationTimeout = 5 * time.Minute

func newMigrateCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(app.Ctx, timeout)
			defer cancel()

			db, _, err := connectInfra(&connectInfraOptions{Logger: app.Logger, Config: &app.Config})
			if err != nil {
				return err
			}
			defer func() { _ = closeInfra(db, nil) }()
			return bootstrap.RunMigrations(ctx, db, app.Logger)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", defaultMigrationTimeout, "maximum time to wait for migrations")

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List embedded migrations and whether each is applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := connectInfra(&connectInfraOptions{Logger: app.Logger, Config: &app.Config})
			if err != nil {
				return err
			}
			defer func() { _ = closeInfra(db, nil) }()

			status, err := migrate.Status(app.Ctx, db)
			if err != nil {
				return err
			}
			for _, m := range status {
				state := "pending"
				if m.Applied {
					state = "applied"
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-32s %s\n", m.Version, state); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return cmd
}
