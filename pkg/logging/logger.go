package logging

import (
	"context"
	"strings"
)

// Level represents log severity
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Fields carries structured key/value pairs attached to a log entry
type Fields map[string]interface{}

// Logger is the logging contract used across syncbase.
// The engine never logs to stdout directly; the CLI picks an implementation.
type Logger interface {
	Debug(ctx context.Context, msg string, fields Fields)
	Info(ctx context.Context, msg string, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)
	Error(ctx context.Context, msg string, err error, fields Fields)

	// WithFields returns a logger that adds fields to every entry
	WithFields(fields Fields) Logger

	// Close flushes and releases the underlying output
	Close() error
}

// ParseLevel parses a level name. Unknown names fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// LevelString returns the upper-case name of a level
func LevelString(level Level) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func mergeFields(sets ...Fields) Fields {
	out := make(Fields)
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}

// NullLogger discards everything
type NullLogger struct{}

// NewNullLogger creates a logger for when logging is disabled
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (l *NullLogger) Debug(ctx context.Context, msg string, fields Fields)            {}
func (l *NullLogger) Info(ctx context.Context, msg string, fields Fields)             {}
func (l *NullLogger) Warn(ctx context.Context, msg string, fields Fields)             {}
func (l *NullLogger) Error(ctx context.Context, msg string, err error, fields Fields) {}
func (l *NullLogger) WithFields(fields Fields) Logger                                 { return l }
func (l *NullLogger) Close() error                                                    { return nil }
