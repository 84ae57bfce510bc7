package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"rfkeeper/pkg/config"
)

func TestJSONFormatEmitsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "debug"}, &buf)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "bot.service").Info("Incoming message", "chat_id", int64(42))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}

	if entry.Level != "info" {
		t.Fatalf("level = %q, want %q", entry.Level, "info")
	}
	if entry.Component != "bot.service" {
		t.Fatalf("component = %q, want %q", entry.Component, "bot.service")
	}
	if entry.Message != "Incoming message" {
		t.Fatalf("message = %q", entry.Message)
	}
	if got := entry.Fields["chat_id"]; got != float64(42) {
		t.Fatalf("fields.chat_id = %v, want 42", got)
	}
}

func TestJSONFormatLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("dropped")
	log.Warn("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "kept") {
		t.Fatalf("unexpected log line: %q", lines[0])
	}
}

func TestUnsupportedFormat(t *testing.T) {
	t.Setenv("RFKEEPER_LOG_FORMAT", "")
	if _, err := New(config.LoggingConfig{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestUnsupportedLevel(t *testing.T) {
	t.Setenv("RFKEEPER_LOG_LEVEL", "")
	if _, err := New(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for unsupported level")
	}
}
