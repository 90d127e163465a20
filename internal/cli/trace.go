package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/busbridge/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Run      string // optional - defaults to the latest run
	Kind     string // optional - filter to one event kind
}

// TraceRun identifies the traced run.
type TraceRun struct {
	ID        string `json:"id"`
	Bus       string `json:"bus"`
	StartedAt string `json:"started_at"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Run     *TraceRun   `json:"run"`
	Entries []EventLine `json:"entries"`
	Stats   TraceStats  `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Total  int            `json:"total"`
	ByKind map[string]int `json:"by_kind"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled events for a run",
		Long: `Read back the events a run recorded to its journal, in seq order.

Examples:
  busbridge trace --db ./busbridge.db
  busbridge trace --db ./busbridge.db --run 0192f0c4-... --kind error
  busbridge trace --db ./busbridge.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run ID to trace (default: latest)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind (ready|device|error|stream_closed)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Open would create a missing file; trace only reads.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	run, err := findRun(ctx, j, opts.Run)
	if errors.Is(err, journal.ErrNoRuns) {
		if opts.Format == "json" {
			return outputTraceJSON(cmd, TraceResult{Entries: []EventLine{}, Stats: TraceStats{ByKind: map[string]int{}}})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No runs recorded in %s\n", opts.Database)
		return nil
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find run", err)
	}

	entries, err := j.Entries(ctx, journal.Filter{RunID: run.ID, Kind: opts.Kind})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := buildTraceResult(run, entries)
	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, entries)
}

// findRun resolves the requested run, or the latest one when id is empty.
func findRun(ctx context.Context, j *journal.Journal, id string) (journal.Run, error) {
	if id == "" {
		return j.LatestRun(ctx)
	}
	runs, err := j.Runs(ctx)
	if err != nil {
		return journal.Run{}, err
	}
	for _, r := range runs {
		if r.ID == id {
			return r, nil
		}
	}
	return journal.Run{}, fmt.Errorf("run %q not found", id)
}

func buildTraceResult(run journal.Run, entries []journal.Entry) TraceResult {
	result := TraceResult{
		Run: &TraceRun{
			ID:        run.ID,
			Bus:       run.Bus,
			StartedAt: run.StartedAt.UTC().Format(time.RFC3339),
		},
		Entries: make([]EventLine, 0, len(entries)),
		Stats:   TraceStats{ByKind: map[string]int{}},
	}
	for _, e := range entries {
		result.Entries = append(result.Entries, eventLine(e))
		result.Stats.ByKind[e.Kind]++
	}
	result.Stats.Total = len(entries)
	return result
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, entries []journal.Entry) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "run %s (bus=%s, started %s)\n", result.Run.ID, result.Run.Bus, result.Run.StartedAt)
	for _, e := range entries {
		fmt.Fprintln(w, formatEntry(e))
	}

	kinds := make([]string, 0, len(result.Stats.ByKind))
	for k := range result.Stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	counts := make([]string, len(kinds))
	for i, k := range kinds {
		counts[i] = fmt.Sprintf("%s=%d", k, result.Stats.ByKind[k])
	}

	if len(counts) == 0 {
		fmt.Fprintf(w, "%d entries\n", result.Stats.Total)
		return nil
	}
	fmt.Fprintf(w, "%d entries (%s)\n", result.Stats.Total, strings.Join(counts, ", "))
	return nil
}
