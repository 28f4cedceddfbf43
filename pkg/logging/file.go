package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	Path   string
	Format Format
	Level  Level
	// MaxSize is the size in bytes that triggers rotation (0 disables rotation)
	MaxSize int64
	// MaxBackups is how many rotated files (<path>.1 ... <path>.N) are kept
	MaxBackups int
}

// sink is the shared, mutex-guarded output behind a family of loggers.
// Loggers derived with WithFields write through the same sink so rotation
// and size accounting stay consistent.
type sink struct {
	mu     sync.Mutex
	format Format
	level  Level
	w      io.Writer
	file   *os.File
	size   int64
	cfg    *FileLoggerConfig
}

func (s *sink) write(level Level, msg string, err error, fields Fields) {
	if level < s.level {
		return
	}
	var line []byte
	if s.format == FormatJSON {
		line = encodeJSON(level, msg, err, fields)
	} else {
		line = encodeText(level, msg, err, fields)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg != nil && s.cfg.MaxSize > 0 && s.size >= s.cfg.MaxSize {
		s.rotate()
	}
	n, _ := s.w.Write(line)
	s.size += int64(n)
}

// rotate shifts <path>.N backups up by one and reopens an empty file.
// Callers hold s.mu.
func (s *sink) rotate() {
	if s.file == nil {
		return
	}
	s.file.Close()

	path := s.cfg.Path
	for i := s.cfg.MaxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", path, i), fmt.Sprintf("%s.%d", path, i+1))
	}
	os.Rename(path, path+".1")
	if s.cfg.MaxBackups > 0 {
		os.Remove(fmt.Sprintf("%s.%d", path, s.cfg.MaxBackups+1))
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Keep writing nowhere rather than to a closed file.
		s.file = nil
		s.w = io.Discard
		return
	}
	s.file = file
	s.w = file
	s.size = 0
}

func (s *sink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.w = io.Discard
	return err
}

// FileLogger writes log entries to a file, rotating by size
type FileLogger struct {
	sink   *sink
	fields Fields
}

// NewFileLogger opens (or creates) the log file in append mode
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	cfg := config
	return &FileLogger{sink: &sink{
		format: config.Format,
		level:  config.Level,
		w:      file,
		file:   file,
		size:   info.Size(),
		cfg:    &cfg,
	}}, nil
}

func (l *FileLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.sink.write(DebugLevel, msg, nil, mergeFields(l.fields, fields))
}

func (l *FileLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.sink.write(InfoLevel, msg, nil, mergeFields(l.fields, fields))
}

func (l *FileLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.sink.write(WarnLevel, msg, nil, mergeFields(l.fields, fields))
}

func (l *FileLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.sink.write(ErrorLevel, msg, err, mergeFields(l.fields, fields))
}

// WithFields returns a logger sharing this file with extra fields attached
func (l *FileLogger) WithFields(fields Fields) Logger {
	return &FileLogger{sink: l.sink, fields: mergeFields(l.fields, fields)}
}

// Close closes the log file. Derived loggers become no-ops.
func (l *FileLogger) Close() error {
	return l.sink.close()
}

func encodeJSON(level Level, msg string, err error, fields Fields) []byte {
	entry := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = LevelString(level)
	entry["message"] = msg
	if err != nil {
		entry["error"] = err.Error()
	}

	data, jerr := json.Marshal(entry)
	if jerr != nil {
		data, _ = json.Marshal(map[string]string{
			"level":   LevelString(level),
			"message": msg,
			"error":   "unencodable fields: " + jerr.Error(),
		})
	}
	return append(data, '\n')
}

func encodeText(level Level, msg string, err error, fields Fields) []byte {
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
	fmt.Fprintf(&b, " [%s] %s", LevelString(level), msg)
	if err != nil {
		fmt.Fprintf(&b, " error=%q", err.Error())
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	b.WriteByte('\n')
	return []byte(b.String())
}
