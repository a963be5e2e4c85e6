package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{
		Level:  "info",
		Format: "json",
		Writer: &buf,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("test message", "user", "alice")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "test message" {
		t.Errorf("Expected msg 'test message', got %v", entry["msg"])
	}
	if entry["user"] != "alice" {
		t.Errorf("Expected user 'alice', got %v", entry["user"])
	}
}

func TestNewTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{
		Level:  "info",
		Format: "text",
		Writer: &buf,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("test message")

	if !strings.Contains(buf.String(), "msg=\"test message\"") {
		t.Errorf("Expected text output, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{
		Level:  "warn",
		Format: "json",
		Writer: &buf,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("filtered")
	if buf.Len() != 0 {
		t.Errorf("Expected info to be filtered at warn level, got %q", buf.String())
	}

	logger.Warn("emitted")
	if buf.Len() == 0 {
		t.Error("Expected warn to be emitted at warn level")
	}
}

func TestDefaultsApplied(t *testing.T) {
	logger, err := New(Config{})
	if err != nil {
		t.Fatalf("New with empty config failed: %v", err)
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Expected default level info to be enabled")
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug to be disabled by default")
	}
}

func TestInvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "verbose"}); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestInvalidFormat(t *testing.T) {
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("Expected error for unknown format")
	}
}
