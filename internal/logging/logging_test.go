package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDebugLevelGate checks D only prints messages below the configured level.
func TestDebugLevelGate(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	pl := NewWithWriter(&buf, 2)

	pl.D(1, "shown %d", 1)
	pl.D(2, "hidden %d", 2)
	pl.D(4, "hidden %d", 4)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 debug line, got %d: %q", len(lines), buf.String())
	}

	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if ev["message"] != "shown 1" {
		t.Fatalf("unexpected message %v", ev["message"])
	}
	if ev["level"] != "debug" {
		t.Fatalf("unexpected level %v", ev["level"])
	}
}

// TestErrorIncludesCaller checks E attaches the calling location.
func TestErrorIncludesCaller(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	pl := NewWithWriter(&buf, 0)
	pl.E("boom: %v", "disk")

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	caller, _ := ev["caller"].(string)
	if !strings.Contains(caller, "logging_test.go") {
		t.Fatalf("expected caller to point at the test file, got %q", caller)
	}
}

// TestZeroValueIsSilent checks an unconfigured logger can be used safely.
func TestZeroValueIsSilent(t *testing.T) {
	t.Parallel()

	pl := new(ProgramLogger)
	pl.I("nothing")
	pl.E("nothing")
	pl.D(0, "nothing")
	if err := pl.Close(); err != nil {
		t.Fatalf("Close() on zero logger: %v", err)
	}
}

// TestSetupLoggingWritesFile checks log lines reach the configured file.
func TestSetupLoggingWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tubeshelf.log")
	var console bytes.Buffer

	pl, err := SetupLogging(LoggingConfig{LogFilePath: path, Console: &console, Program: "tubeshelf"})
	if err != nil {
		t.Fatalf("SetupLogging() error: %v", err)
	}
	pl.I("listening on %s", ":8000")
	if err := pl.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "listening on :8000") {
		t.Fatalf("log file missing message: %q", data)
	}
	if !strings.Contains(console.String(), "listening on :8000") {
		t.Fatalf("console missing message: %q", console.String())
	}
}
