package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

func TestConsoleLoggerLevels(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		logAt      string
		message    string
		wantOutput bool
	}{
		{name: "info shown at info level", configured: "info", logAt: "info", message: "hello", wantOutput: true},
		{name: "debug hidden at info level", configured: "info", logAt: "debug", message: "hidden", wantOutput: false},
		{name: "debug shown at debug level", configured: "debug", logAt: "debug", message: "shown", wantOutput: true},
		{name: "warn shown at info level", configured: "info", logAt: "warn", message: "careful", wantOutput: true},
		{name: "info hidden at error level", configured: "error", logAt: "info", message: "quiet", wantOutput: false},
		{name: "invalid level defaults to info", configured: "bogus", logAt: "debug", message: "hidden", wantOutput: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cl := NewConsoleLogger(&buf, tt.configured)

			switch tt.logAt {
			case "debug":
				cl.Debugf("%s", tt.message)
			case "info":
				cl.Infof("%s", tt.message)
			case "warn":
				cl.Warnf("%s", tt.message)
			case "error":
				cl.Errorf("%s", tt.message)
			}

			got := buf.String()
			if tt.wantOutput && !strings.Contains(got, tt.message) {
				t.Errorf("output %q does not contain %q", got, tt.message)
			}
			if !tt.wantOutput && got != "" {
				t.Errorf("expected no output, got %q", got)
			}
		})
	}
}

func TestConsoleLoggerTimestampPrefix(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")
	cl.Infof("processing %d files", 3)

	got := buf.String()
	if !strings.HasPrefix(got, "[") {
		t.Errorf("output %q missing timestamp prefix", got)
	}
	if !strings.Contains(got, "processing 3 files") {
		t.Errorf("output %q missing formatted message", got)
	}
}

func TestConsoleLoggerNilWriter(t *testing.T) {
	cl := NewConsoleLogger(nil, "info")
	// Must not panic.
	cl.Infof("discarded")
	cl.Errorf("also discarded")
}

func TestConsoleLoggerConcurrentUse(t *testing.T) {
	var buf bytes.Buffer
	cl := NewConsoleLogger(&buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			cl.Infof("line %d", n)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 20 {
		t.Errorf("got %d lines, want 20", len(lines))
	}
}

func TestNormalizeLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"DEBUG", "debug"},
		{" info ", "info"},
		{"", "info"},
		{"verbose", "info"},
		{"error", "error"},
	}

	for _, tt := range tests {
		if got := normalizeLogLevel(tt.input); got != tt.want {
			t.Errorf("normalizeLogLevel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
