package filelock

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAtomicReplace(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "part.tap")

	if err := os.WriteFile(target, []byte("S8000 M3\n"), 0640); err != nil {
		t.Fatal(err)
	}

	if err := AtomicReplace(target, []byte("S12000 M3\n")); err != nil {
		t.Fatalf("AtomicReplace failed: %v", err)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "S12000 M3\n" {
		t.Errorf("content = %q, want %q", content, "S12000 M3\n")
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("permissions = %v, want 0640", info.Mode().Perm())
	}

	assertNoTempFiles(t, tmpDir)
}

func TestAtomicReplaceMissingTarget(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "missing.tap")

	if err := AtomicReplace(target, []byte("data")); err == nil {
		t.Fatal("expected error for missing target")
	}
	assertNoTempFiles(t, tmpDir)
}

func TestAtomicReplaceFailedRenameLeavesOriginalIntact(t *testing.T) {
	tmpDir := t.TempDir()

	// A directory target makes the final rename fail after the temp file
	// has been created and written.
	target := filepath.Join(tmpDir, "dir.tap")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(target, "inner.txt")
	if err := os.WriteFile(marker, []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := AtomicReplace(target, []byte("data")); err == nil {
		t.Fatal("expected rename over a non-empty directory to fail")
	}

	content, err := os.ReadFile(marker)
	if err != nil || string(content) != "keep" {
		t.Errorf("original tree damaged: %q, %v", content, err)
	}
	assertNoTempFiles(t, tmpDir)
}

func TestFileLockLockUnlock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "part.tap.lock")

	lock := NewFileLock(lockPath)
	if err := lock.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
}

func TestFileLockWithTimeout(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "part.tap.lock")

	lock := NewFileLock(lockPath)
	if err := lock.LockWithTimeout(time.Second); err != nil {
		t.Fatalf("LockWithTimeout failed: %v", err)
	}
	defer lock.Unlock()
}

// assertNoTempFiles verifies a failed or completed replace left no temp file behind.
func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	leftovers, err := filepath.Glob(filepath.Join(dir, ".spindle-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}
