package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/crimson-sun/reviewclf/internal/config"
)

// Init builds the process logger from cfg and installs it as the slog
// default. The CLI passes stderr so NDJSON predictions on stdout stay
// machine-readable.
func Init(w io.Writer, cfg config.LogConfig) *slog.Logger {
	logger := New(w, cfg.JSON, ParseLevel(cfg.Level))
	slog.SetDefault(logger)
	return logger
}

// New returns a logger writing to w, JSON-encoded when asJSON is set and in
// slog's key=value text form otherwise.
func New(w io.Writer, asJSON bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything. Handy for tests and for
// library callers that did not supply one.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
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
