package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"foreverstream/internal/logging"
	"foreverstream/internal/services"
)

func tempLogPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name+".log")
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := tempLogPath(t, "console-info")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	if content := readLog(t, logPath); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := tempLogPath(t, "console-debug")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersComponentPrefix(t *testing.T) {
	logPath := tempLogPath(t, "console-info")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	component := logging.NewComponentLogger(logger, "trigger")
	component.Info("claimed asset", logging.String(logging.FieldAssetID, "alice-1"), logging.String("note", "two words"))

	content := readLog(t, logPath)
	if !strings.Contains(content, " INFO trigger: claimed asset") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	if !strings.Contains(content, "asset_id=alice-1") {
		t.Fatalf("expected asset_id field, got %q", content)
	}
	if !strings.Contains(content, `note="two words"`) {
		t.Fatalf("expected quoted value, got %q", content)
	}
	if strings.Contains(content, "component=") {
		t.Fatalf("component should not be repeated as a field: %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := tempLogPath(t, "json-info")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("bucket mismatch", logging.Error(errors.New("boom")))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "bucket mismatch" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key: %v", entry)
	}
	if entry["error"] != "boom" {
		t.Fatalf("unexpected error field: %v", entry["error"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestAutoFormatFallsBackToJSONWithoutTerminal(t *testing.T) {
	logPath := tempLogPath(t, "auto-info")
	logger, err := logging.New(logging.Options{Format: "auto", Level: "info", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("auto")
	// go test never attaches stdout to a terminal
	if content := readLog(t, logPath); !strings.HasPrefix(strings.TrimSpace(content), "{") {
		t.Fatalf("expected JSON output, got %q", content)
	}
}

func TestWithContextAddsStandardFields(t *testing.T) {
	logPath := tempLogPath(t, "console-info")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithAssetID(context.Background(), "bob-42")
	ctx = services.WithStage(ctx, "submit")
	ctx = services.WithRequestID(ctx, "req-1")
	logging.WithContext(ctx, base).Info("context fields")

	content := readLog(t, logPath)
	for _, want := range []string{"asset_id=bob-42", "stage=submit", "correlation_id=req-1"} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := tempLogPath(t, "console-info")
	base, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.WarnWithContext(base, "ignored event", "wrong_bucket", logging.String(logging.FieldImpact, "event dropped"))

	content := readLog(t, logPath)
	for _, want := range []string{"event_type=wrong_bucket", "error_hint=", `impact="event dropped"`} {
		if !strings.Contains(content, want) {
			t.Fatalf("expected %q in %q", want, content)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("expected nop logger to be disabled")
	}
	logging.NewComponentLogger(nil, "x").Info("dropped")
}
