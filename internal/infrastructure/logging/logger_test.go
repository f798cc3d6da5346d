package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse JSON output %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		for _, output := range []string{"stdout", "stderr", ""} {
			logger, err := New(config.LoggingConfig{Level: "info", Format: format, Output: output}, "1.0.0")
			if err != nil {
				t.Fatalf("New(%s, %q) error = %v", format, output, err)
			}
			if err := logger.Close(); err != nil {
				t.Errorf("Close() on %q error = %v", output, err)
			}
		}
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bridge.log")

	logger, err := New(config.LoggingConfig{Level: "info", Output: path}, "1.0.0")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Component("mqtt").Info("connected")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	entries := decodeLines(t, bytes.NewBuffer(data))
	if len(entries) != 1 || entries[0]["component"] != "mqtt" {
		t.Errorf("file entries = %v, want one mqtt entry", entries)
	}
}

func TestNew_UnwritableFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(config.LoggingConfig{Output: dir}, "1.0.0"); err == nil {
		t.Error("New() with a directory as output should fail")
	}
}

func TestSetLevel_SharedWithChildren(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info"}, "test", &buf)
	child := logger.Component("api")

	child.Debug("hidden")
	logger.SetLevel("debug")
	child.Debug("shown")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["msg"] != "shown" {
		t.Errorf("entries = %v, want only the entry logged after SetLevel", entries)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{input: "debug", expected: slog.LevelDebug},
		{input: "info", expected: slog.LevelInfo},
		{input: "warn", expected: slog.LevelWarn},
		{input: "warning", expected: slog.LevelWarn},
		{input: "error", expected: slog.LevelError},
		{input: "unknown", expected: slog.LevelInfo},
		{input: "", expected: slog.LevelInfo},
		{input: "DEBUG", expected: slog.LevelDebug},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestNewWithWriter_DefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "test", &buf)

	logger.Info("test message", "key", "value")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	checks := map[string]string{"msg": "test message", "key": "value", "service": ServiceName, "version": "test"}
	for k, want := range checks {
		if e[k] != want {
			t.Errorf("entry[%q] = %v, want %q", k, e[k], want)
		}
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "warn"}, "test", &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["msg"] != "shown" {
		t.Errorf("entries = %v, want only the warn entry", entries)
	}
}

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "TEXT"}, "test", &buf)

	logger.Info("hello")

	if out := buf.String(); !strings.Contains(out, "msg=hello") || !strings.Contains(out, "service=ledstrip") {
		t.Errorf("text output = %q, want msg=hello and service=ledstrip", out)
	}
}

func TestLogger_ChildLoggers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info"}, "test", &buf)

	logger.Component("mqtt").Info("connected")
	logger.ForLight("kitchen").Info("state changed")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["component"] != "mqtt" {
		t.Errorf("component = %v, want mqtt", entries[0]["component"])
	}
	if entries[1]["component"] != "light" || entries[1]["light"] != "kitchen" {
		t.Errorf("light entry = %v, want component=light light=kitchen", entries[1])
	}

	child := logger.With("k", "v")
	if child == logger {
		t.Error("expected child logger to be different from parent")
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected non-nil default logger")
	}
}
