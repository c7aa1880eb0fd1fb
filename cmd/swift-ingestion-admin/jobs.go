package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/target/swift-ingestion/internal/bootstrap"
	"github.com/target/swift-ingestion/internal/domain/model"
)

type submitOptions struct {
	Source  string
	Params  string
	CaseID  string
	Execute bool
}

// buildCreateRequest turns CLI flags into a job request. Params must be a JSON object.
func buildCreateRequest(opts submitOptions) (*model.CreateJobRequest, error) {
	var st model.SourceType
	if err := st.UnmarshalText([]byte(opts.Source)); err != nil {
		return nil, err
	}
	params := opts.Params
	if params == "" {
		params = "{}"
	}
	var probe map[string]any
	if err := json.Unmarshal([]byte(params), &probe); err != nil {
		return nil, fmt.Errorf("--params must be a JSON object: %w", err)
	}
	req := &model.CreateJobRequest{SourceType: st, Parameters: json.RawMessage(params)}
	if opts.CaseID != "" {
		caseID := opts.CaseID
		req.CaseID = &caseID
	}
	return req, nil
}

func newSubmitCmd() *cobra.Command {
	var opts submitOptions
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create an ingestion job and queue it (or run it inline with --execute)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := buildCreateRequest(opts)
			if err != nil {
				return err
			}
			return withServices(app, !opts.Execute, func(svc bootstrap.ServiceContainer) error {
				if !opts.Execute {
					job, err := svc.Jobs.Submit(app.Ctx, req)
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), job)
				}

				// Inline execution bypasses the queue; the job row is the same.
				job, err := svc.Jobs.Create(app.Ctx, req)
				if err != nil {
					return err
				}
				if err := svc.Store.Ready(app.Ctx); err != nil {
					return err
				}
				out, err := svc.Ingestion.Execute(app.Ctx, job.ID)
				if err != nil {
					return err
				}
				return printOutcome(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Source, "source", "", "source type, e.g. opencorporates, news_api, osint_search")
	cmd.Flags().StringVar(&opts.Params, "params", "{}", "job parameters as a JSON object")
	cmd.Flags().StringVar(&opts.CaseID, "case-id", "", "optional case UUID")
	cmd.Flags().BoolVar(&opts.Execute, "execute", false, "run the job in this process instead of queueing it")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newExecuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute <job-id>",
		Short: "Run a PENDING job in this process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := model.ValidateJobID(args[0]); err != nil {
				return err
			}
			return withServices(app, false, func(svc bootstrap.ServiceContainer) error {
				if err := svc.Store.Ready(app.Ctx); err != nil {
					return err
				}
				out, err := svc.Ingestion.Execute(app.Ctx, args[0])
				if err != nil {
					return err
				}
				return printOutcome(cmd.OutOrStdout(), out)
			})
		},
	}
}

type listJobsOptions struct {
	Status string
	Source string
	CaseID string
	Limit  int
	Offset int
	JSON   bool
}

func (o listJobsOptions) toListOptions() (model.JobListOptions, error) {
	opts := model.JobListOptions{Limit: o.Limit, Offset: o.Offset}
	if o.Status != "" {
		status := model.JobStatus(o.Status)
		if !status.Valid() {
			return opts, fmt.Errorf("invalid status %q", o.Status)
		}
		opts.Status = &status
	}
	if o.Source != "" {
		var st model.SourceType
		if err := st.UnmarshalText([]byte(o.Source)); err != nil {
			return opts, err
		}
		opts.SourceType = &st
	}
	if o.CaseID != "" {
		caseID := o.CaseID
		opts.CaseID = &caseID
	}
	if opts.Limit <= 0 {
		return opts, errors.New("--limit must be positive")
	}
	return opts, nil
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect ingestion jobs",
	}

	var listOpts listJobsOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := listOpts.toListOptions()
			if err != nil {
				return err
			}
			return withServices(app, false, func(svc bootstrap.ServiceContainer) error {
				jobs, err := svc.Jobs.List(app.Ctx, opts)
				if err != nil {
					return err
				}
				if listOpts.JSON {
					return writeJSON(cmd.OutOrStdout(), jobs)
				}
				return printJobsTable(cmd.OutOrStdout(), jobs)
			})
		},
	}
	list.Flags().StringVar(&listOpts.Status, "status", "", "filter by status")
	list.Flags().StringVar(&listOpts.Source, "source", "", "filter by source type")
	list.Flags().StringVar(&listOpts.CaseID, "case-id", "", "filter by case UUID")
	list.Flags().IntVar(&listOpts.Limit, "limit", 50, "maximum rows")
	list.Flags().IntVar(&listOpts.Offset, "offset", 0, "rows to skip")
	list.Flags().BoolVar(&listOpts.JSON, "json", false, "print JSON instead of a table")

	get := &cobra.Command{
		Use:   "get <job-id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(app, false, func(svc bootstrap.ServiceContainer) error {
				job, err := svc.Jobs.Get(app.Ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), job)
			})
		},
	}

	stats := &cobra.Command{
		Use:   "stats <job-id>",
		Short: "Show job statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(app, false, func(svc bootstrap.ServiceContainer) error {
				s, err := svc.Jobs.Stats(app.Ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), s)
			})
		},
	}

	cmd.AddCommand(list, get, stats)
	return cmd
}
