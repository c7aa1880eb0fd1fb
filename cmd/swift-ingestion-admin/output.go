package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/target/swift-ingestion/internal/domain/model"
	"github.com/target/swift-ingestion/internal/service"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJobsTable(w io.Writer, jobs []*model.Job) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tSOURCE\tSTATUS\tITEMS\tOK\tFAILED\tCREATED"); err != nil {
		return err
	}
	for _, j := range jobs {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			j.ID, j.SourceType, j.Status, j.TotalItems, j.SuccessfulItems, j.FailedItems,
			j.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printEvidenceTable(w io.Writer, items []*model.Evidence) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tTYPE\tSIZE\tCHECKSUM\tOBJECT KEY"); err != nil {
		return err
	}
	for _, ev := range items {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			ev.ID, ev.EvidenceType, ev.FileSizeBytes, ev.Checksum, ev.ObjectKey); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printSourcesTable(w io.Writer, sources []service.SourceInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "SOURCE\tNAME\tHEALTH"); err != nil {
		return err
	}
	for _, s := range sources {
		health := "-"
		switch {
		case s.Health == nil:
		case s.Health.Healthy:
			health = "healthy"
		default:
			health = "unhealthy: " + s.Health.Reason
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", s.SourceType, s.Descriptor.Name, health); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printOutcome(w io.Writer, out service.Outcome) error {
	if out.Skipped {
		_, err := fmt.Fprintf(w, "job %s skipped (not found or not pending)\n", out.JobID)
		return err
	}
	if _, err := fmt.Fprintf(w, "job %s %s: %d items, %d stored, %d failed\n",
		out.JobID, out.Status, out.Counts.Total, out.Counts.Successful, out.Counts.Failed); err != nil {
		return err
	}
	if out.Err != nil {
		_, err := fmt.Fprintf(w, "error: %v\n", out.Err)
		return err
	}
	return nil
}
