package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

func NewLogger(levelRaw, formatRaw string) *slog.Logger {
	return NewLoggerTo(os.Stdout, levelRaw, formatRaw)
}

// NewLoggerTo is NewLogger with an explicit sink; the CLI logs to stderr.
func NewLoggerTo(w io.Writer, levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, options))
	}
	return slog.New(slog.NewTextHandler(w, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
