// Package logging builds the application logger and carries it through
// context.Context.
//
// Loggers are charmbracelet/log loggers. Within an HTTP request the logger
// taken from the context carries the chi request id, so every entry written
// while handling one upload can be correlated.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
)

// Prefix is written in front of every text log line.
const Prefix = "converter"

// New builds a logger writing to stderr.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json", "logfmt" (default: "text")
func New(level, format string) *log.Logger {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(w io.Writer, level, format string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          Prefix,
		Level:           parseLevel(level),
	})
	logger.SetFormatter(parseFormat(format))
	return logger
}

// parseLevel converts a string log level, defaulting to info.
func parseLevel(level string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func parseFormat(format string) log.Formatter {
	switch strings.ToLower(format) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *log.Logger) context.Context {
	return log.WithContext(ctx, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
//
// When ctx comes from a request handled behind chi's RequestID middleware,
// the returned logger includes request_id in all entries.
func FromContext(ctx context.Context) *log.Logger {
	logger := log.FromContext(ctx)

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// Discard returns a logger that writes nothing. Used by tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
