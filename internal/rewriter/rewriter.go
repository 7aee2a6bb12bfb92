// Package rewriter applies a validated spindle speed to a single G-code file.
// It acquires a per-file lock, reads the content, locates the spindle-speed
// word, splices in the new value, and commits the result atomically.
//
// Example:
//
//	rw := rewriter.New(gcode.Options{MaxLines: 20, StopAtMotion: true})
//	res, err := rw.UpdateFile("part.tap", 12000,
//	    rewriter.WithMonitor(func(m rewriter.Metrics) { log.Printf("%+v", m) }))
package rewriter

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/harrison/spindle/internal/filelock"
	"github.com/harrison/spindle/internal/gcode"
)

var (
	// ErrNoMatch indicates the file contains no spindle-speed command
	// within the search window. This is an expected outcome, not a fault.
	ErrNoMatch = errors.New("rewriter: no spindle-speed command found")
	// ErrWriteFailure indicates the atomic commit could not complete.
	// The original file's content is guaranteed untouched.
	ErrWriteFailure = errors.New("rewriter: write failure")
)

// Result describes a completed (or previewed) rewrite of one file.
type Result struct {
	OldSpeed float64 // Speed the file commanded before the rewrite
	NewSpeed int     // Speed written to the file
}

// Monitor receives metrics describing each rewrite attempt.
type Monitor func(Metrics)

// Metrics captures contextual data about a file rewrite.
type Metrics struct {
	Path         string
	OldSpeed     float64
	NewSpeed     int
	BytesRead    int
	BytesWritten int
	Duration     time.Duration
	Err          error
}

type options struct {
	lockTimeout time.Duration
	monitor     Monitor
}

// Option configures behaviour of UpdateFile.
type Option func(*options)

// WithLockTimeout configures how long UpdateFile should wait when acquiring
// the per-file lock. A non-positive duration falls back to blocking.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		o.lockTimeout = d
	}
}

// WithMonitor registers a callback that receives metrics after each rewrite.
func WithMonitor(m Monitor) Option {
	return func(o *options) {
		o.monitor = m
	}
}

// Rewriter rewrites spindle-speed commands in G-code files.
type Rewriter struct {
	locate gcode.Options

	// commit persists new content over the original file. Swapped out in
	// tests to simulate commit failures.
	commit func(path string, data []byte) error
}

// New creates a Rewriter whose locator uses the given search window.
func New(locate gcode.Options) *Rewriter {
	return &Rewriter{
		locate: locate,
		commit: filelock.AtomicReplace,
	}
}

// UpdateFile rewrites the first spindle-speed command in the file at path to
// command rpm. The rewrite is committed atomically: on any failure the
// original file is byte-for-byte unchanged. A file whose existing speed
// already equals rpm is still rewritten; that keeps the commit path single-
// shape at the cost of an unnecessary write.
func (r *Rewriter) UpdateFile(path string, rpm int, opts ...Option) (*Result, error) {
	config := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&config)
		}
	}

	metrics := Metrics{Path: path, NewSpeed: rpm}
	start := time.Now()
	defer func() {
		metrics.Duration = time.Since(start)
		if config.monitor != nil {
			config.monitor(metrics)
		}
	}()

	// Per-file lock guards the read-modify-write cycle against concurrent
	// spindle invocations touching the same file.
	lockPath := path + ".lock"
	lock := filelock.NewFileLock(lockPath)
	var lockErr error
	if config.lockTimeout > 0 {
		lockErr = lock.LockWithTimeout(config.lockTimeout)
	} else {
		lockErr = lock.Lock()
	}
	if lockErr != nil {
		metrics.Err = lockErr
		return nil, lockErr
	}
	defer func() {
		lock.Unlock()
		os.Remove(lockPath)
	}()

	content, err := os.ReadFile(path)
	if err != nil {
		metrics.Err = err
		return nil, err
	}
	metrics.BytesRead = len(content)

	match := gcode.Locate(content, r.locate)
	if match == nil {
		metrics.Err = ErrNoMatch
		return nil, ErrNoMatch
	}
	metrics.OldSpeed = match.Speed

	updated := gcode.ReplaceSpan(content, match, rpm)
	if err := r.commit(path, updated); err != nil {
		err = fmt.Errorf("%w: %v", ErrWriteFailure, err)
		metrics.Err = err
		return nil, err
	}
	metrics.BytesWritten = len(updated)

	return &Result{OldSpeed: match.Speed, NewSpeed: rpm}, nil
}

// Check locates the spindle-speed command without writing anything.
// Used for dry runs and the scan listing.
func (r *Rewriter) Check(path string) (*gcode.TokenMatch, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	match := gcode.Locate(content, r.locate)
	if match == nil {
		return nil, ErrNoMatch
	}
	return match, nil
}
