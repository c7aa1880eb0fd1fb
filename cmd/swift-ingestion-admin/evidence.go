package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/target/swift-ingestion/internal/bootstrap"
	"github.com/target/swift-ingestion/internal/domain/model"
)

func newEvidenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Inspect stored evidence",
	}

	var content bool
	get := &cobra.Command{
		Use:   "get <evidence-id>",
		Short: "Show an evidence record, or its stored content with --content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(app, false, func(svc bootstrap.ServiceContainer) error {
				if !content {
					ev, err := svc.Evidence.Get(app.Ctx, args[0])
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), ev)
				}
				blob, _, err := svc.Evidence.Retrieve(app.Ctx, args[0])
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(blob)
				return err
			})
		},
	}
	get.Flags().BoolVar(&content, "content", false, "write the stored blob to stdout")

	var limit, offset int
	list := &cobra.Command{
		Use:   "list <job-id>",
		Short: "List evidence captured by a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(app, false, func(svc bootstrap.ServiceContainer) error {
				items, err := svc.Evidence.ListByJob(app.Ctx, model.EvidenceListOptions{
					JobID:  args[0],
					Limit:  limit,
					Offset: offset,
				})
				if err != nil {
					return err
				}
				return printEvidenceTable(cmd.OutOrStdout(), items)
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 100, "maximum rows")
	list.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	verify := &cobra.Command{
		Use:   "verify <evidence-id>",
		Short: "Recompute the checksum of the stored blob and compare it with the record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(app, false, func(svc bootstrap.ServiceContainer) error {
				v, err := svc.Evidence.Verify(app.Ctx, args[0])
				if err != nil {
					return err
				}
				if err := writeJSON(cmd.OutOrStdout(), v); err != nil {
					return err
				}
				if !v.Valid {
					return fmt.Errorf("evidence %s failed verification", v.EvidenceID)
				}
				return nil
			})
		},
	}

	dedupe := &cobra.Command{
		Use:   "dedupe <sha256>",
		Short: "Find stored evidence with the given content checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(app, false, func(svc bootstrap.ServiceContainer) error {
				ev, err := svc.Evidence.FindByChecksum(app.Ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), ev)
			})
		},
	}

	cmd.AddCommand(get, list, verify, dedupe)
	return cmd
}
