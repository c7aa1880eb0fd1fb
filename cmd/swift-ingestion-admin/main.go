// Command swift-ingestion-admin runs migrations, submits and executes jobs, and
// inspects evidence and connector settings against the configured infrastructure.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/target/swift-ingestion/config"
	"github.com/target/swift-ingestion/internal/bootstrap"
)

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

// app is filled in by the root command before any subcommand runs.
var app = &commandContext{Ctx: context.Background()}

var rootCmd = &cobra.Command{
	Use:   "swift-ingestion-admin",
	Short: "Administer the SWIFT evidence ingestion service",
	Long: `swift-ingestion-admin operates on the same Postgres, Redis and object store
as the ingestion service, using the same environment configuration.

Examples:
  swift-ingestion-admin migrate
  swift-ingestion-admin submit --source news_api --params '{"query":"Acme Ltd"}'
  swift-ingestion-admin jobs list --status failed
  swift-ingestion-admin evidence verify <evidence-id>
  swift-ingestion-admin connectors import connectors.yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			return err
		}
		app.Config = cfg
		app.Logger = bootstrap.InitLogger(cfg.SlogLevel())
		app.Ctx = cmd.Context()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(
		newMigrateCmd(),
		newSubmitCmd(),
		newExecuteCmd(),
		newJobsCmd(),
		newEvidenceCmd(),
		newConnectorsCmd(),
		newSourcesCmd(),
	)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger := app.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("command failed", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}
