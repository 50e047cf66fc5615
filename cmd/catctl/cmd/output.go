package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	apiclient "github.com/avelichko/catalog-sync/internal/api/client"
	domain "github.com/avelichko/catalog-sync/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printReport(report *domain.SyncReport) error {
	stages := []struct {
		name   string
		result *domain.SyncResult
	}{
		{"trademarks", report.Trademarks},
		{"categories", report.Categories},
		{"products", report.Products},
	}

	tw := newTabWriter(os.Stdout)
	tw.writef("STAGE\tFETCHED\tNEW\tUPDATED\tSKIPPED\tERRORS\tBEFORE\tAFTER\n")
	for _, s := range stages {
		if s.result == nil {
			tw.writef("%s\t-\t-\t-\t-\t-\t-\t-\n", s.name)
			continue
		}
		tw.writef("%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			s.name,
			s.result.TotalFetched,
			s.result.NewCount,
			s.result.UpdatedCount,
			s.result.SkippedCount,
			len(s.result.Errors),
			s.result.BeforeCount,
			s.result.AfterCount,
		)
	}
	if err := tw.finish(); err != nil {
		return err
	}

	printRecordErrors(report.FlattenErrors())
	return nil
}

func printResult(res *domain.SyncResult) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ENTITY\tFETCHED\tNEW\tUPDATED\tSKIPPED\tERRORS\tBEFORE\tAFTER\n")
	tw.writef("%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
		res.Entity,
		res.TotalFetched,
		res.NewCount,
		res.UpdatedCount,
		res.SkippedCount,
		len(res.Errors),
		res.BeforeCount,
		res.AfterCount,
	)
	if err := tw.finish(); err != nil {
		return err
	}

	printRecordErrors(res.Errors)
	return nil
}

func printRecordErrors(errs []domain.RecordError) {
	if len(errs) == 0 {
		return
	}
	fmt.Printf("\n%d record error(s):\n", len(errs))
	for i := range errs {
		fmt.Printf("  %s: %s\n", errs[i].ExternalID, truncate(errs[i].Message, 100))
	}
}

func printRunsTable(runs []domain.SyncRun) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ENTITY\tSTATUS\tFETCHED\tNEW\tUPDATED\tERRORS\tSTARTED\tFINISHED\n")
	for i := range runs {
		r := &runs[i]
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format("2006-01-02 15:04:05")
		}
		tw.writef("%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.Entity,
			r.Status,
			r.TotalFetched,
			r.NewCount,
			r.UpdatedCount,
			r.ErrorCount,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			finished,
		)
	}
	return tw.finish()
}

func printQuota(q *apiclient.QuotaResponse) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("Ceiling:\t%d\n", q.Ceiling)
	tw.writef("Used:\t%d\n", q.Used)
	tw.writef("Remaining:\t%d\n", q.Remaining)
	tw.writef("Resets:\t%s\n", q.ResetAt.Format("2006-01-02 15:04:05 MST"))
	return tw.finish()
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
