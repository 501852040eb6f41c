// Package cli renders labeling runs, window plans and ledger status for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hyperjump/radlabel/internal/job"
	"github.com/hyperjump/radlabel/internal/merge"
	"github.com/hyperjump/radlabel/internal/models"
	"github.com/hyperjump/radlabel/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRun writes the outcome of one window run.
func WriteRun(w io.Writer, run *models.WindowRun, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, run)
	}
	fmt.Fprintf(w, "Window %d labeled: rows %d-%d (%d reports, %d chunks)\n",
		run.WindowIndex, run.RowStart, run.RowEnd-1, run.Rows(), run.ChunkCount)
	fmt.Fprintf(w, "Run:       %s\n", run.ID)
	fmt.Fprintf(w, "Partition: %s\n", run.PartitionPath)
	fmt.Fprintf(w, "SHA-256:   %s\n", run.Digest)
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Elapsed:   %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	return nil
}

// WritePlan writes the window layout of the input table.
func WritePlan(w io.Writer, plan *job.Plan, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, plan)
	}
	fmt.Fprintf(w, "Input:   %s\n", plan.InputPath)
	fmt.Fprintf(w, "Rows:    %d\n", plan.TotalRows)
	fmt.Fprintf(w, "Windows: %d of up to %d rows, chunks of %d\n\n", len(plan.Windows), plan.WindowSize, plan.ChunkSize)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tSTART\tEND\tROWS")
	for _, win := range plan.Windows {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", win.Index, win.Start, win.End, win.Len())
	}
	return tw.Flush()
}

// StatusReport is the payload of the status command.
type StatusReport struct {
	InputPath       string             `json:"input_path"`
	LedgerPath      string             `json:"ledger_path"`
	LedgerSizeBytes int64              `json:"ledger_size_bytes"`
	Windows         []job.WindowStatus `json:"windows"`
}

// WriteStatus writes the latest run of every window.
func WriteStatus(w io.Writer, report *StatusReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	completed := 0
	for _, st := range report.Windows {
		if st.Run != nil && st.Run.Status == models.RunCompleted {
			completed++
		}
	}
	fmt.Fprintf(w, "Input:  %s\n", report.InputPath)
	fmt.Fprintf(w, "Ledger: %s (%d bytes)\n", report.LedgerPath, report.LedgerSizeBytes)
	fmt.Fprintf(w, "Completed %d of %d windows\n\n", completed, len(report.Windows))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tROWS\tSTATUS\tPARTITION\tRUN\tERROR")
	for _, st := range report.Windows {
		status, runID, errMsg := "pending", "-", ""
		if st.Run != nil {
			status, runID, errMsg = string(st.Run.Status), st.Run.ID, utils.Truncate(st.Run.Error, 60)
		}
		partition := "missing"
		if st.PartitionExists {
			partition = "present"
		}
		fmt.Fprintf(tw, "%d\t%d-%d\t%s\t%s\t%s\t%s\n",
			st.Window.Index, st.Window.Start, st.Window.End, status, partition, runID, errMsg)
	}
	return tw.Flush()
}

// WriteConcat writes the outcome of a concatenation.
func WriteConcat(w io.Writer, res *merge.ConcatResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "Wrote %d rows from %d partitions to %s\n", res.Rows, len(res.Partitions), res.OutputPath)
	for _, p := range res.Skipped {
		fmt.Fprintf(w, "  skipped (no completed run): %s\n", p)
	}
	fmt.Fprintf(w, "SHA-256: %s\n", res.Digest)
	return nil
}
