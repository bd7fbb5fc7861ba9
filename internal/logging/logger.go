package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Standardized attribute keys shared across components.
const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldRunID     = "run_id"
	FieldJobID     = "job_id"
	FieldBackend   = "backend"
	FieldIdentity  = "identity"
)

// Options controls logger construction.
type Options struct {
	// Format is "console" or "json". Anything else falls back to console.
	Format string
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New builds the process logger according to the provided options.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler)
}

// ParseLevel maps a config level string onto a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
