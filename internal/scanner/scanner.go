// Package scanner provides recursive discovery of G-code program files.
//
// Unlike filepath.WalkDir, the scanner follows directory symlinks. To keep
// cyclic link structures from causing non-termination it records the
// canonical identity of every directory it enters and prunes revisits.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Options configures a directory scan.
type Options struct {
	// Extension is the file suffix to match (e.g. ".tap"), case-insensitive.
	// A missing leading dot is tolerated.
	Extension string
	// ExcludeDirs lists directory names to skip (e.g. ".git").
	// Hidden directories (leading ".") are always skipped.
	ExcludeDirs []string
}

// Result contains the outcome of a directory scan.
type Result struct {
	// Files holds the matched file paths in discovery order.
	Files []string
	// Errors collects non-fatal diagnostics (unreadable subdirectories,
	// dangling symlinks). The scan continues past them.
	Errors []error
}

type walker struct {
	ext     string
	exclude map[string]bool
	visited map[string]struct{}
	result  *Result
}

// Scan enumerates all files under root whose name ends with the configured
// extension. The scan is restartable: each call re-walks the tree with no
// cached state. Only an unreadable root is a fatal error; everything else is
// recorded in Result.Errors.
func Scan(root string, opts Options) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root)
	}

	ext := strings.ToLower(opts.Extension)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	excludeMap := make(map[string]bool)
	for _, dir := range opts.ExcludeDirs {
		excludeMap[dir] = true
	}

	w := &walker{
		ext:     ext,
		exclude: excludeMap,
		visited: make(map[string]struct{}),
		result:  &Result{Files: make([]string, 0), Errors: make([]error, 0)},
	}

	// The root must be readable; a failure here aborts the scan.
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read root directory: %w", err)
	}
	w.markVisited(root)
	w.walkEntries(root, entries)

	return w.result, nil
}

// markVisited records the canonical identity of a directory and reports
// whether it had been entered before. Canonical paths resolve symlinks, so
// two links to the same directory share one identity.
func (w *walker) markVisited(dir string) bool {
	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		canonical = dir
	}
	if _, seen := w.visited[canonical]; seen {
		return true
	}
	w.visited[canonical] = struct{}{}
	return false
}

func (w *walker) walk(dir string) {
	if w.markVisited(dir) {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.result.Errors = append(w.result.Errors, fmt.Errorf("error reading %s: %w", dir, err))
		return
	}

	w.walkEntries(dir, entries)
}

// walkEntries processes one directory's entries. os.ReadDir returns entries
// sorted by name, so discovery order is deterministic for an unchanged tree.
func (w *walker) walkEntries(dir string, entries []os.DirEntry) {
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.Type()&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				w.result.Errors = append(w.result.Errors, fmt.Errorf("error resolving %s: %w", path, err))
				continue
			}
			if target.IsDir() {
				if !w.skipDir(entry.Name()) {
					w.walk(path)
				}
				continue
			}
			w.matchFile(path, entry.Name())
			continue
		}

		if entry.IsDir() {
			if !w.skipDir(entry.Name()) {
				w.walk(path)
			}
			continue
		}

		w.matchFile(path, entry.Name())
	}
}

func (w *walker) skipDir(name string) bool {
	return w.exclude[name] || strings.HasPrefix(name, ".")
}

func (w *walker) matchFile(path, name string) {
	if w.ext != "" && strings.ToLower(filepath.Ext(name)) != w.ext {
		return
	}
	w.result.Files = append(w.result.Files, path)
}
