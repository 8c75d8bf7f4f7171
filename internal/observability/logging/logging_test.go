package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	ctx := context.Background()

	quiet := NewLogger(Config{ServiceName: "svc", Environment: "test", Level: "error"})
	if quiet.Enabled(ctx, slog.LevelInfo) {
		t.Fatalf("error-level logger should drop info records")
	}
	if !quiet.Enabled(ctx, slog.LevelError) {
		t.Fatalf("error-level logger should keep error records")
	}

	verbose := NewLogger(Config{ServiceName: "svc", Environment: "test", Level: "DEBUG"})
	if !verbose.Enabled(ctx, slog.LevelDebug) {
		t.Fatalf("debug-level logger should keep debug records")
	}
}
