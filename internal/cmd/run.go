package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/spindle/internal/batch"
	"github.com/harrison/spindle/internal/config"
	"github.com/harrison/spindle/internal/history"
	"github.com/harrison/spindle/internal/logger"
	"github.com/harrison/spindle/internal/models"
	"github.com/harrison/spindle/internal/validation"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <root-directory>",
		Short: "Rewrite the spindle speed in every matching file under a tree",
		Long: `Rewrite the initial spindle-speed command in every matching G-code file
found under the given directory tree.

The requested speed is validated once against the configured RPM range
before any file is touched. Each file is then rewritten atomically; a
failure in one file never aborts the rest of the batch.

Configuration is loaded from .spindle/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  spindle run /cnc/jobs --speed 12000
  spindle run . --speed 8000 --yes             # skip the confirmation prompt
  spindle run parts/ --speed 12000 --dry-run   # report without writing
  spindle run parts/ --speed 9500 --max-concurrency 1
  spindle run parts/ --speed 12000 --config custom.yaml --no-history`,
		Args: cobra.ExactArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().Int("speed", 0, "Target spindle speed in RPM (required)")
	cmd.Flags().Bool("yes", false, "Proceed without the confirmation prompt")
	cmd.Flags().Bool("dry-run", false, "Locate spindle-speed commands without writing")
	cmd.Flags().Int("max-concurrency", -1, "Files processed in parallel (1 = sequential, -1 = use config)")
	cmd.Flags().String("config", "", "Path to config file (default: .spindle/config.yaml)")
	cmd.Flags().String("log-level", "", "Log verbosity (debug, info, warn, error)")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")
	_ = cmd.MarkFlagRequired("speed")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	speed, _ := cmd.Flags().GetInt("speed")
	yes, _ := cmd.Flags().GetBool("yes")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	if cmd.Flags().Changed("max-concurrency") {
		maxConcurrency, _ := cmd.Flags().GetInt("max-concurrency")
		if maxConcurrency >= 1 {
			cfg.MaxConcurrency = maxConcurrency
		}
	}
	if cmd.Flags().Changed("log-level") {
		logLevel, _ := cmd.Flags().GetString("log-level")
		cfg.LogLevel = logLevel
	}

	// Validate up front so a bad speed aborts before the prompt, with zero
	// files touched. The orchestrator re-checks before scanning.
	if err := validation.CheckSpeed(speed, cfg.MinRPM, cfg.MaxRPM); err != nil {
		return err
	}

	root := args[0]
	out := cmd.OutOrStdout()

	// The confirmation prompt lives here at the operator boundary; the
	// batch engine itself never blocks waiting for a human.
	if !yes && !dryRun {
		if !confirm(cmd.InOrStdin(), out, speed, cfg.FileExtension, root) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	log := logger.NewConsoleLogger(out, cfg.LogLevel)

	var bar *logger.ProgressBar
	progress := func(ev batch.ProgressEvent) {
		if bar == nil {
			bar = logger.NewProgressBar(ev.Total, 30, false)
		}
		bar.Update(ev.Done)
		fmt.Fprintf(out, "%s %s %s\n", outcomeTag(ev.Outcome), ev.Outcome.Path, bar.Render())
	}

	orchestrator := batch.New(cfg,
		batch.WithLogger(log),
		batch.WithProgress(progress),
		batch.WithDryRun(dryRun),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Graceful shutdown: a signal stops new files from starting while
	// in-flight atomic rewrites run to completion.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			log.Warnf("Interrupt received, finishing in-flight files...")
			cancel()
		case <-ctx.Done():
		}
	}()

	summary, err := orchestrator.Run(ctx, models.Job{Root: root, Speed: speed})
	if err != nil {
		return err
	}

	printSummary(out, summary, dryRun)

	if !noHistory && !dryRun {
		recordHistory(log, cfg.HistoryDB, summary)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d file(s) failed", summary.Failed)
	}
	return nil
}

// loadConfigFromFlags loads the YAML config honoring the --config flag.
func loadConfigFromFlags(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadConfigFromDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func confirm(in io.Reader, out io.Writer, speed int, ext, root string) bool {
	fmt.Fprintf(out, "Update the spindle speed to %d RPM in all %s files under %s? [y/N]: ", speed, ext, root)
	reader := bufio.NewReader(in)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func outcomeTag(outcome models.FileOutcome) string {
	switch outcome.Status {
	case models.StatusUpdated:
		return color.GreenString("✓")
	case models.StatusSkipped:
		return color.YellowString("-")
	default:
		return color.RedString("✗")
	}
}

func printSummary(out io.Writer, summary *models.BatchSummary, dryRun bool) {
	title := "Batch Summary:"
	if dryRun {
		title = "Batch Summary (dry run, nothing written):"
	}
	fmt.Fprintf(out, "\n%s\n", title)
	fmt.Fprintf(out, "  Total files: %d\n", summary.Total)
	fmt.Fprintf(out, "  Updated: %s\n", color.GreenString("%d", summary.Updated))
	fmt.Fprintf(out, "  Skipped: %s\n", color.YellowString("%d", summary.Skipped))
	fmt.Fprintf(out, "  Failed: %s\n", color.RedString("%d", summary.Failed))
	fmt.Fprintf(out, "  Duration: %s\n", summary.Duration.Round(time.Millisecond))
	if summary.Cancelled {
		fmt.Fprintf(out, "  %s\n", color.YellowString("Run was cancelled before all files were processed"))
	}

	if summary.Failed > 0 {
		fmt.Fprintf(out, "\nFailed files:\n")
		for _, outcome := range summary.Outcomes {
			if outcome.Status == models.StatusFailed {
				fmt.Fprintf(out, "  - %s: %s\n", outcome.Path, outcome.Reason)
			}
		}
	}
}

// recordHistory stores the run best-effort: a history failure warns but
// never fails a batch that already committed its rewrites.
func recordHistory(log *logger.ConsoleLogger, dbPath string, summary *models.BatchSummary) {
	store, err := history.NewStore(dbPath)
	if err != nil {
		log.Warnf("history: %v", err)
		return
	}
	defer store.Close()

	if err := store.RecordRun(context.Background(), summary); err != nil {
		log.Warnf("history: %v", err)
		return
	}
	log.Debugf("Recorded run %s in %s", summary.ID, dbPath)
}
