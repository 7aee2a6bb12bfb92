// Package history persists batch run results to a local SQLite database so
// operators can review what past invocations changed.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/spindle/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// RunRecord is one stored batch run.
type RunRecord struct {
	ID        string
	Root      string
	Speed     int
	Total     int
	Updated   int
	Skipped   int
	Failed    int
	Cancelled bool
	Duration  time.Duration
	CreatedAt time.Time
}

// Store manages the SQLite database holding run history.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a Store and initializes the database schema.
func NewStore(dbPath string) (*Store, error) {
	// Ensure parent directory exists for file-based databases
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout first so subsequent operations wait on locks instead of
	// failing when another spindle process has the database open.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		time.Sleep(baseDelay << attempt)
	}
	return lastErr
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores a batch summary and its per-file outcomes in one transaction.
func (s *Store) RecordRun(ctx context.Context, summary *models.BatchSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, root, speed, total, updated, skipped, failed, cancelled, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, summary.Root, summary.Speed, summary.Total,
		summary.Updated, summary.Skipped, summary.Failed,
		summary.Cancelled, summary.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, path, status, reason, old_speed, new_speed)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, outcome := range summary.Outcomes {
		if _, err := stmt.ExecContext(ctx, summary.ID, outcome.Path, outcome.Status,
			outcome.Reason, outcome.OldSpeed, outcome.NewSpeed); err != nil {
			return fmt.Errorf("insert outcome for %s: %w", outcome.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, root, speed, total, updated, skipped, failed, cancelled, duration_ms, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.Root, &rec.Speed, &rec.Total,
			&rec.Updated, &rec.Skipped, &rec.Failed, &rec.Cancelled,
			&durationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RunOutcomes returns the per-file outcomes of one run in insertion order.
func (s *Store) RunOutcomes(ctx context.Context, runID string) ([]models.FileOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, status, reason, old_speed, new_speed
		 FROM outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []models.FileOutcome
	for rows.Next() {
		var out models.FileOutcome
		if err := rows.Scan(&out.Path, &out.Status, &out.Reason, &out.OldSpeed, &out.NewSpeed); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, rows.Err()
}
