package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func createFileLogger(t *testing.T) (Logger, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "run.log")
	log, err := NewLogger(&Config{
		Level:  DebugLevel,
		Format: TextFormat,
		Output: FileOutput,
		File:   path,
	})
	if err != nil {
		t.Fatal(err)
	}
	return log, path
}

func readLogFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestProgressTrackerLifecycle(t *testing.T) {
	log, path := createFileLogger(t)

	tracker := NewProgressTracker(ProgressConfig{
		Operation:   "order matching",
		Total:       2,
		LogInterval: time.Nanosecond,
		Logger:      log,
	})
	tracker.Update(1)
	tracker.Update(2)
	tracker.Complete()

	out := readLogFile(t, path)
	for _, want := range []string{"Operation started", "Progress", "Operation finished", "order matching"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestProgressTrackerDefaultInterval(t *testing.T) {
	log, _ := createFileLogger(t)

	tracker := NewProgressTracker(ProgressConfig{Operation: "order matching", Total: 10, Logger: log})
	if tracker.interval != 5*time.Second {
		t.Errorf("default interval = %s, want 5s", tracker.interval)
	}
}

func TestProgressTrackerCompleteWithError(t *testing.T) {
	log, path := createFileLogger(t)

	tracker := NewProgressTracker(ProgressConfig{Operation: "order matching", Total: 5, Logger: log})
	tracker.Update(3)
	tracker.CompleteWithError(errors.New("aborted"))

	out := readLogFile(t, path)
	if !strings.Contains(out, "Operation failed") {
		t.Errorf("log output missing failure line:\n%s", out)
	}
	if !strings.Contains(out, "aborted") {
		t.Errorf("log output missing the error:\n%s", out)
	}
}

func TestOperationLogger(t *testing.T) {
	log, path := createFileLogger(t)

	op := NewOperationLogger("reconciliation", log)
	op.WithFields(Fields{"run_id": "abc123"})
	op.Step("loading")
	op.Success("Reconciliation completed")

	out := readLogFile(t, path)
	for _, want := range []string{"Operation started", "Stage started", "loading", "run_id", "Reconciliation completed", "success"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestOperationLoggerError(t *testing.T) {
	log, path := createFileLogger(t)

	op := NewOperationLogger("reconciliation", log)
	op.Error(errors.New("bad input"), "Reconciliation failed")

	out := readLogFile(t, path)
	if !strings.Contains(out, "Reconciliation failed") || !strings.Contains(out, "bad input") {
		t.Errorf("log output missing error line:\n%s", out)
	}
}
