package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/spindle/internal/history"
	"github.com/harrison/spindle/internal/models"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded batch runs",
		Long: `Show recent batch runs recorded in the history database, newest first.
With a run ID, show that run's per-file outcomes instead.

Examples:
  spindle history
  spindle history --limit 25
  spindle history 3b1f8c2e-6f0a-4c57-9f6d-2f42a25c9a11`,
		Args: cobra.MaximumNArgs(1),
		RunE: historyCommand,
	}

	cmd.Flags().Int("limit", 10, "Maximum number of runs to show")
	cmd.Flags().String("db", "", "Path to the history database (default: from config)")
	cmd.Flags().String("config", "", "Path to config file (default: .spindle/config.yaml)")

	return cmd
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	dbPath := cfg.HistoryDB
	if cmd.Flags().Changed("db") {
		dbPath, _ = cmd.Flags().GetString("db")
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
		return nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	colorOutput := isatty.IsTerminal(os.Stdout.Fd())
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		outcomes, err := store.RunOutcomes(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(outcomes) == 0 {
			fmt.Fprintf(out, "No outcomes recorded for run %s\n", args[0])
			return nil
		}
		for _, outcome := range outcomes {
			printOutcome(out, outcome, colorOutput)
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.RecentRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	for _, run := range runs {
		line := fmt.Sprintf("%s  %s  %d RPM  total=%d updated=%d skipped=%d failed=%d  %s",
			run.CreatedAt.Format(time.DateTime), run.Root, run.Speed,
			run.Total, run.Updated, run.Skipped, run.Failed,
			run.Duration.Round(time.Millisecond))
		if run.Cancelled {
			line += "  (cancelled)"
		}
		if colorOutput && run.Failed > 0 {
			line = color.RedString(line)
		}
		fmt.Fprintln(out, line)
		fmt.Fprintf(out, "    run %s\n", run.ID)
	}
	return nil
}

func printOutcome(out io.Writer, outcome models.FileOutcome, colorOutput bool) {
	switch outcome.Status {
	case models.StatusUpdated:
		fmt.Fprintf(out, "  %s  S%g -> S%d\n", outcome.Path, outcome.OldSpeed, outcome.NewSpeed)
	case models.StatusSkipped:
		fmt.Fprintf(out, "  %s  skipped: %s\n", outcome.Path, outcome.Reason)
	default:
		line := fmt.Sprintf("  %s  failed: %s", outcome.Path, outcome.Reason)
		if colorOutput {
			line = color.RedString(line)
		}
		fmt.Fprintln(out, line)
	}
}
