// Package batch drives a spindle-speed update across every matching file
// under a directory tree. It validates the target speed once, scans for
// candidates, processes files through a bounded worker pool, isolates
// per-file failures, and aggregates a BatchSummary.
package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/spindle/internal/config"
	"github.com/harrison/spindle/internal/gcode"
	"github.com/harrison/spindle/internal/models"
	"github.com/harrison/spindle/internal/rewriter"
	"github.com/harrison/spindle/internal/scanner"
	"github.com/harrison/spindle/internal/validation"
)

// SkipReasonNoMatch is recorded for files without a spindle-speed command.
// Absence of the token is an expected outcome for files that don't use the
// convention, not an error.
const SkipReasonNoMatch = "no spindle-speed command found"

// Logger defines the interface for logging orchestrator progress.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// ProgressEvent describes the completion of one file's processing.
type ProgressEvent struct {
	Outcome models.FileOutcome
	Done    int // Files completed so far, including this one
	Total   int // Files discovered
}

// ProgressFunc receives a ProgressEvent after each file completes. Calls are
// serialized; the event always reflects a consistent accumulator snapshot.
type ProgressFunc func(ProgressEvent)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger for progress and diagnostics.
func WithLogger(l Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithProgress registers a per-file progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// WithDryRun locates spindle-speed commands without writing any file.
func WithDryRun(dryRun bool) Option {
	return func(o *Orchestrator) {
		o.dryRun = dryRun
	}
}

// Orchestrator coordinates scanning, locating, and rewriting for one batch.
type Orchestrator struct {
	cfg      *config.Config
	rw       *rewriter.Rewriter
	logger   Logger
	progress ProgressFunc
	dryRun   bool
}

// New creates an Orchestrator configured from cfg.
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg: cfg,
		rw: rewriter.New(gcode.Options{
			MaxLines:     cfg.SearchWindow,
			StopAtMotion: cfg.StopAtMotion,
		}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Run executes the batch described by job. The requested speed is validated
// before any file is touched; a validation failure aborts with zero files
// scanned or written. Per-file failures never abort sibling files.
//
// Cancellation is cooperative and checked at file-task boundaries: once ctx
// is done, in-flight rewrites complete but no further files start, and the
// summary carries Cancelled=true with only the completed outcomes.
func (o *Orchestrator) Run(ctx context.Context, job models.Job) (*models.BatchSummary, error) {
	// Fail fast: bad input, not a per-file condition.
	if err := validation.CheckSpeed(job.Speed, o.cfg.MinRPM, o.cfg.MaxRPM); err != nil {
		return nil, err
	}

	scanResult, err := scanner.Scan(job.Root, scanner.Options{Extension: o.cfg.FileExtension})
	if err != nil {
		return nil, err
	}
	for _, scanErr := range scanResult.Errors {
		if o.logger != nil {
			o.logger.Warnf("scan: %v", scanErr)
		}
	}

	files := scanResult.Files
	summary := &models.BatchSummary{
		ID:    uuid.NewString(),
		Root:  job.Root,
		Speed: job.Speed,
		Total: len(files),
	}
	if o.logger != nil {
		o.logger.Infof("Discovered %d %s file(s) under %s", len(files), o.cfg.FileExtension, job.Root)
	}

	start := time.Now()

	// Single-writer accumulator: outcomes are slotted by discovery index
	// under one mutex, so the finalized order matches discovery order no
	// matter which worker finishes first.
	acc := &accumulator{
		outcomes:  make([]models.FileOutcome, len(files)),
		completed: make([]bool, len(files)),
		summary:   summary,
		progress:  o.progress,
	}

	maxConcurrency := o.cfg.MaxConcurrency
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if maxConcurrency > len(files) && len(files) > 0 {
		maxConcurrency = len(files)
	}

	semaphore := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	cancelled := false
	for i, path := range files {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		// Check context again before acquiring a slot to avoid blocking
		// on a cancelled context.
		select {
		case <-ctx.Done():
			cancelled = true
		case semaphore <- struct{}{}:
		}
		if cancelled {
			break
		}

		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			acc.record(idx, o.processFile(path, job.Speed))
		}(i, path)
	}

	wg.Wait()

	summary.Duration = time.Since(start)
	summary.Cancelled = cancelled
	summary.Outcomes = acc.finalize()

	return summary, nil
}

// processFile converts a single file's rewrite attempt into its terminal
// outcome. All per-file errors are caught here, never propagated.
func (o *Orchestrator) processFile(path string, rpm int) models.FileOutcome {
	if o.dryRun {
		return o.checkFile(path, rpm)
	}

	result, err := o.rw.UpdateFile(path, rpm)
	switch {
	case err == nil:
		return models.FileOutcome{
			Path:     path,
			Status:   models.StatusUpdated,
			OldSpeed: result.OldSpeed,
			NewSpeed: result.NewSpeed,
		}
	case errors.Is(err, rewriter.ErrNoMatch):
		return models.FileOutcome{Path: path, Status: models.StatusSkipped, Reason: SkipReasonNoMatch}
	default:
		return models.FileOutcome{Path: path, Status: models.StatusFailed, Reason: err.Error()}
	}
}

func (o *Orchestrator) checkFile(path string, rpm int) models.FileOutcome {
	match, err := o.rw.Check(path)
	switch {
	case err == nil:
		return models.FileOutcome{
			Path:     path,
			Status:   models.StatusUpdated,
			OldSpeed: match.Speed,
			NewSpeed: rpm,
		}
	case errors.Is(err, rewriter.ErrNoMatch):
		return models.FileOutcome{Path: path, Status: models.StatusSkipped, Reason: SkipReasonNoMatch}
	default:
		return models.FileOutcome{Path: path, Status: models.StatusFailed, Reason: err.Error()}
	}
}

// accumulator is the only shared mutable state of a run. Every update goes
// through the mutex, and the progress callback fires under it so observers
// never see a partially-updated outcome.
type accumulator struct {
	mu        sync.Mutex
	outcomes  []models.FileOutcome
	completed []bool
	done      int
	summary   *models.BatchSummary
	progress  ProgressFunc
}

func (a *accumulator) record(idx int, outcome models.FileOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.outcomes[idx] = outcome
	a.completed[idx] = true
	a.done++

	switch outcome.Status {
	case models.StatusUpdated:
		a.summary.Updated++
	case models.StatusSkipped:
		a.summary.Skipped++
	case models.StatusFailed:
		a.summary.Failed++
	}

	if a.progress != nil {
		a.progress(ProgressEvent{Outcome: outcome, Done: a.done, Total: len(a.outcomes)})
	}
}

// finalize returns the completed outcomes in discovery order. For a run that
// was not cancelled this is every slot; for a cancelled run the unstarted
// slots are dropped.
func (a *accumulator) finalize() []models.FileOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()

	outcomes := make([]models.FileOutcome, 0, a.done)
	for i, ok := range a.completed {
		if ok {
			outcomes = append(outcomes, a.outcomes[i])
		}
	}
	return outcomes
}
