package logger

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFilteringHandlerSuppressesBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	log := New(slog.LevelWarn, base)

	log.Info("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}

	log.Warn("should appear")
	if buf.Len() == 0 {
		t.Fatal("expected warn-level output")
	}
}

func TestFilteringHandlerDebugPassesEverything(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := New(slog.LevelDebug, base)

	log.Debug("debug line")
	if buf.Len() == 0 {
		t.Fatal("expected debug-level output to pass through at debug minLevel")
	}
}
