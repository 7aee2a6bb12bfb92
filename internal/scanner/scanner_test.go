package scanner

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func writeTree(t *testing.T, root string, files []string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte("S8000\n"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}

func TestScan(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, []string{
		"a.tap",
		"b.TAP",
		"notes.txt",
		"sub/c.tap",
		"sub/deep/d.tap",
		"sub/deep/readme.md",
		".hidden/e.tap",
	})

	tests := []struct {
		name      string
		opts      Options
		wantFiles []string
	}{
		{
			name:      "extension filter is case-insensitive and recursive",
			opts:      Options{Extension: ".tap"},
			wantFiles: []string{"a.tap", "b.TAP", "c.tap", "d.tap"},
		},
		{
			name:      "missing leading dot tolerated",
			opts:      Options{Extension: "tap"},
			wantFiles: []string{"a.tap", "b.TAP", "c.tap", "d.tap"},
		},
		{
			name:      "excluded directory is pruned",
			opts:      Options{Extension: ".tap", ExcludeDirs: []string{"deep"}},
			wantFiles: []string{"a.tap", "b.TAP", "c.tap"},
		},
		{
			name:      "empty extension matches everything outside hidden dirs",
			opts:      Options{},
			wantFiles: []string{"a.tap", "b.TAP", "notes.txt", "c.tap", "d.tap", "readme.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Scan(tmpDir, tt.opts)
			if err != nil {
				t.Fatalf("Scan failed: %v", err)
			}
			if got := baseNames(result.Files); !reflect.DeepEqual(got, tt.wantFiles) {
				t.Errorf("files = %v, want %v", got, tt.wantFiles)
			}
			if len(result.Errors) != 0 {
				t.Errorf("unexpected scan errors: %v", result.Errors)
			}
		})
	}
}

func TestScanRootErrors(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "missing"), Options{}); err == nil {
		t.Fatal("expected error for missing root")
	}

	file := filepath.Join(t.TempDir(), "file.tap")
	if err := os.WriteFile(file, []byte("S1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Scan(file, Options{}); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestScanIsRestartable(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, []string{"a.tap", "sub/b.tap"})

	first, err := Scan(tmpDir, Options{Extension: ".tap"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := Scan(tmpDir, Options{Extension: ".tap"})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first.Files, second.Files) {
		t.Errorf("re-scan order differs: %v vs %v", first.Files, second.Files)
	}
}

func TestScanSymlinkCycleTerminates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevation on windows")
	}

	tmpDir := t.TempDir()
	writeTree(t, tmpDir, []string{"a.tap", "sub/b.tap"})

	// sub/loop -> tmpDir creates a cycle through the root.
	if err := os.Symlink(tmpDir, filepath.Join(tmpDir, "sub", "loop")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	result, err := Scan(tmpDir, Options{Extension: ".tap"})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if got := baseNames(result.Files); !reflect.DeepEqual(got, []string{"a.tap", "b.tap"}) {
		t.Errorf("files = %v, want deduplicated [a.tap b.tap]", got)
	}
}

func TestScanFollowsSymlinkedDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevation on windows")
	}

	tmpDir := t.TempDir()
	other := t.TempDir()
	writeTree(t, other, []string{"linked.tap"})

	if err := os.Symlink(other, filepath.Join(tmpDir, "link")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	result, err := Scan(tmpDir, Options{Extension: ".tap"})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if got := baseNames(result.Files); !reflect.DeepEqual(got, []string{"linked.tap"}) {
		t.Errorf("files = %v, want [linked.tap]", got)
	}
}

func TestScanDanglingSymlinkIsNonFatal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevation on windows")
	}

	tmpDir := t.TempDir()
	writeTree(t, tmpDir, []string{"a.tap"})

	if err := os.Symlink(filepath.Join(tmpDir, "gone"), filepath.Join(tmpDir, "broken.tap")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	result, err := Scan(tmpDir, Options{Extension: ".tap"})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if got := baseNames(result.Files); !reflect.DeepEqual(got, []string{"a.tap"}) {
		t.Errorf("files = %v, want [a.tap]", got)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, want one diagnostic for the dangling link", result.Errors)
	}
}

func TestScanUnreadableSubdirectoryIsNonFatal(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permission checks are bypassed when running as root")
	}

	tmpDir := t.TempDir()
	writeTree(t, tmpDir, []string{"a.tap", "locked/b.tap"})

	locked := filepath.Join(tmpDir, "locked")
	if err := os.Chmod(locked, 0000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	result, err := Scan(tmpDir, Options{Extension: ".tap"})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if got := baseNames(result.Files); !reflect.DeepEqual(got, []string{"a.tap"}) {
		t.Errorf("files = %v, want [a.tap]", got)
	}
	if len(result.Errors) == 0 {
		t.Error("expected a diagnostic for the unreadable subdirectory")
	}
}
