// Package models defines the shared data types for a spindle-speed batch run.
package models

import "time"

// File outcome status constants
const (
	StatusUpdated = "updated" // File rewritten with the new speed
	StatusSkipped = "skipped" // No spindle-speed command found
	StatusFailed  = "failed"  // File could not be read or rewritten
)

// Job describes a single batch invocation. It is immutable after creation.
type Job struct {
	Root  string // Directory tree to scan
	Speed int    // Requested spindle speed in RPM
}

// FileOutcome records the terminal result for one discovered file.
// Exactly one outcome is produced per file; it is never re-mutated.
type FileOutcome struct {
	Path     string  // Absolute path of the file
	Status   string  // One of StatusUpdated, StatusSkipped, StatusFailed
	Reason   string  // Populated for skipped and failed outcomes
	OldSpeed float64 // Speed the file commanded before the rewrite
	NewSpeed int     // Speed written to the file (updated outcomes only)
}

// BatchSummary aggregates the results of one batch run.
// Outcomes is ordered by discovery order, independent of completion order.
type BatchSummary struct {
	ID        string        // Run identifier (UUID)
	Root      string        // Root directory that was scanned
	Speed     int           // Requested spindle speed in RPM
	Total     int           // Number of files discovered
	Updated   int           // Files rewritten
	Skipped   int           // Files with no spindle-speed command
	Failed    int           // Files that could not be processed
	Cancelled bool          // True if the run was cancelled before completion
	Duration  time.Duration // Wall-clock time for the run
	Outcomes  []FileOutcome // One entry per completed file, in discovery order
}
