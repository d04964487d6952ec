package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestPrettyJSONHandler_WritesIndentedRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger.With("game_id", "g1").WithGroup("move").Info("moved", "turn", 3, "direction", "up")

	out := buf.String()
	if !strings.Contains(out, "\n  ") {
		t.Fatalf("expected indented output, got %q", out)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, out)
	}
	if got["msg"] != "moved" || got["level"] != "INFO" {
		t.Fatalf("unexpected record: %v", got)
	}
	group, ok := got["move"].(map[string]any)
	if !ok {
		t.Fatalf("missing group: %v", got)
	}
	if group["turn"] != float64(3) || group["direction"] != "up" {
		t.Fatalf("group attrs=%v", group)
	}
}

func TestPrettyJSONHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn record missing")
	}
}

func TestNew_Formats(t *testing.T) {
	for _, f := range []string{FormatPretty, FormatJSON, FormatText, ""} {
		if _, err := New(&bytes.Buffer{}, f, slog.LevelInfo); err != nil {
			t.Fatalf("New(%q): %v", f, err)
		}
	}
	if _, err := New(&bytes.Buffer{}, "xml", slog.LevelInfo); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	if err != nil || l != slog.LevelDebug {
		t.Fatalf("ParseLevel(debug)=%v,%v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFromFlags(t *testing.T) {
	var buf bytes.Buffer
	logger, err := FromFlags(&buf, "text", "warn")
	if err != nil {
		t.Fatalf("FromFlags: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("output=%q", out)
	}
	if _, err := FromFlags(&buf, "text", "loud"); err == nil {
		t.Fatalf("expected bad level error")
	}
	if _, err := FromFlags(&buf, "xml", "info"); err == nil {
		t.Fatalf("expected bad format error")
	}
}
