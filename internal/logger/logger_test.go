package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	testCases := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"none", LevelNone},
		{"", slog.LevelDebug},
		{"verbose", slog.LevelDebug},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if got := ParseLogLevel(tc.input); got != tc.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestInitLoggerProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := initLogger(&buf, slog.LevelInfo, "prod")

	l.Debug("hidden")
	l.Info("issued", slog.String("serial", "abc"))

	line := strings.TrimSpace(buf.String())
	if strings.Contains(line, "hidden") {
		t.Error("debug line should be filtered at info level")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("prod log line is not JSON: %v (%q)", err, line)
	}
	if entry["msg"] != "issued" || entry["serial"] != "abc" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestInitLoggerDevUsesText(t *testing.T) {
	var buf bytes.Buffer
	l := initLogger(&buf, slog.LevelDebug, "dev")
	l.Debug("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Error("dev output should not be JSON")
	}
}

func TestInitLoggerNone(t *testing.T) {
	var buf bytes.Buffer
	l := initLogger(&buf, LevelNone, "dev")
	l.Error("should not appear")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestContextLogAttrs(t *testing.T) {
	base := slog.New(slog.DiscardHandler)

	ctx := ContextWithLogger(context.Background(), base)
	if ContextRequestLogger(ctx) != base {
		t.Error("ContextRequestLogger should return the stored logger")
	}

	ContextWithLogAttrs(ctx, slog.String("tenant_id", "t1"))
	ContextWithLogAttrs(ctx, slog.String("pass_action", "created"))

	attrs := ContextLogAttrs(ctx)
	if len(attrs) != 2 || attrs[0].Key != "tenant_id" || attrs[1].Key != "pass_action" {
		t.Errorf("unexpected attrs %v", attrs)
	}
}

func TestContextWithoutLogger(t *testing.T) {
	ctx := context.Background()

	if ContextRequestLogger(ctx) == nil {
		t.Error("ContextRequestLogger should fall back to the default logger")
	}

	// must not panic
	ContextWithLogAttrs(ctx, slog.String("k", "v"))
	if ContextLogAttrs(ctx) != nil {
		t.Error("expected no attrs without a request logger")
	}
}
