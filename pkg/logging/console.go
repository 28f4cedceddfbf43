package logging

import (
	"context"
	"io"
)

// ConsoleLogger writes text entries to a stream, normally stderr, so that
// log lines never mix with the status table or JSON printed on stdout.
type ConsoleLogger struct {
	sink   *sink
	fields Fields
}

// NewConsoleLogger creates a logger writing entries at or above level to w
func NewConsoleLogger(w io.Writer, level Level, format Format) *ConsoleLogger {
	if format == "" {
		format = FormatText
	}
	return &ConsoleLogger{sink: &sink{w: w, level: level, format: format}}
}

func (l *ConsoleLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.sink.write(DebugLevel, msg, nil, mergeFields(l.fields, fields))
}

func (l *ConsoleLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.sink.write(InfoLevel, msg, nil, mergeFields(l.fields, fields))
}

func (l *ConsoleLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.sink.write(WarnLevel, msg, nil, mergeFields(l.fields, fields))
}

func (l *ConsoleLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.sink.write(ErrorLevel, msg, err, mergeFields(l.fields, fields))
}

func (l *ConsoleLogger) WithFields(fields Fields) Logger {
	return &ConsoleLogger{sink: l.sink, fields: mergeFields(l.fields, fields)}
}

// Close is a no-op; the stream belongs to the caller
func (l *ConsoleLogger) Close() error {
	return nil
}
