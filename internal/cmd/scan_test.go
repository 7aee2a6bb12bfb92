package cmd

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestScanCommandListsFilesWithSpeeds(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.tap"), "G21\nS8000 M3\nG1 X10\n")
	writeFile(t, filepath.Join(tmpDir, "sub", "b.tap"), "G0 X0\n")
	writeFile(t, filepath.Join(tmpDir, "notes.txt"), "S9999\n")

	out, err := execute(t, "", "scan", tmpDir)
	if err != nil {
		t.Fatalf("scan failed: %v\noutput:\n%s", err, out)
	}

	if !strings.Contains(out, "S8000 (line 2)") {
		t.Errorf("output missing speed for a.tap:\n%s", out)
	}
	if !strings.Contains(out, "no spindle-speed command") {
		t.Errorf("output missing no-match line for b.tap:\n%s", out)
	}
	if strings.Contains(out, "notes.txt") {
		t.Errorf("non-.tap file listed:\n%s", out)
	}
	if !strings.Contains(out, "2 .tap file(s) found") {
		t.Errorf("output missing count footer:\n%s", out)
	}
}

func TestScanCommandMissingRoot(t *testing.T) {
	if _, err := execute(t, "", "scan", filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}
