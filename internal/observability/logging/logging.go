// Package logging configures the process-wide structured JSON logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	ServiceName string
	Environment string
	// Level is one of debug, info, warn or error, case-insensitive.
	// Anything else falls back to info.
	Level string
}

// NewLogger builds a JSON logger tagged with the service and environment.
// Debug level additionally records source positions.
func NewLogger(cfg Config) *slog.Logger {
	level := ParseLevel(cfg.Level)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	return slog.New(handler).With(
		slog.String("service", cfg.ServiceName),
		slog.String("env", cfg.Environment),
	)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
