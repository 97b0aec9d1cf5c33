package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels supported by the logger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// LogFileName is the file created inside Options.Dir.
const LogFileName = "conflux.log"

// Options configures NewLogger.
type Options struct {
	// Dir is the directory holding conflux.log. Empty means stderr.
	Dir string
	// Level is one of ValidLevels; unknown values fall back to INFO.
	Level string
	// Rotation enables size-based rotation when MaxSizeMB > 0.
	Rotation RotationConfig
}

// Logger provides structured logging with context propagation.
// It is safe for concurrent use.
type Logger struct {
	logger *slog.Logger
	closer io.Closer
	mu     *sync.Mutex
	attrs  []slog.Attr
}

// NewLogger creates a Logger writing JSON records according to opts.
func NewLogger(opts Options) (*Logger, error) {
	if opts.Dir == "" {
		return NewWriterLogger(os.Stderr, opts.Level), nil
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logPath := filepath.Join(opts.Dir, LogFileName)

	var (
		w      io.Writer
		closer io.Closer
	)
	if opts.Rotation.MaxSizeMB > 0 {
		rw, err := NewRotatingWriter(logPath, opts.Rotation)
		if err != nil {
			return nil, err
		}
		w, closer = rw, rw
	} else {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	}

	l := NewWriterLogger(w, opts.Level)
	l.closer = closer
	return l, nil
}

// NewWriterLogger creates a Logger that writes JSON records to w.
func NewWriterLogger(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{
		logger: slog.New(handler),
		mu:     &sync.Mutex{},
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithTenant returns a child Logger tagged with tenant_id.
func (l *Logger) WithTenant(tenantID string) *Logger {
	return l.withAttr(slog.String("tenant_id", tenantID))
}

// WithConflict returns a child Logger tagged with conflict_id.
func (l *Logger) WithConflict(conflictID string) *Logger {
	return l.withAttr(slog.String("conflict_id", conflictID))
}

// WithWorkflow returns a child Logger tagged with workflow_id.
func (l *Logger) WithWorkflow(workflowID string) *Logger {
	return l.withAttr(slog.String("workflow_id", workflowID))
}

// WithComponent returns a child Logger tagged with the engine component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.withAttr(slog.String("component", name))
}

// With returns a child Logger with arbitrary key-value attributes.
// Non-string keys are skipped.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}

	attrs := make([]slog.Attr, 0, len(l.attrs)+len(args)/2)
	attrs = append(attrs, l.attrs...)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}
	return l.derive(attrs)
}

func (l *Logger) withAttr(attr slog.Attr) *Logger {
	attrs := make([]slog.Attr, len(l.attrs), len(l.attrs)+1)
	copy(attrs, l.attrs)
	return l.derive(append(attrs, attr))
}

func (l *Logger) derive(attrs []slog.Attr) *Logger {
	return &Logger{
		logger: l.logger,
		closer: l.closer,
		mu:     l.mu,
		attrs:  attrs,
	}
}

// Debug logs a message at DEBUG level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

// Info logs a message at INFO level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

// Warn logs a message at WARN level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

// Error logs a message at ERROR level with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	all := make([]any, 0, len(l.attrs)*2+len(args))
	for _, attr := range l.attrs {
		all = append(all, attr.Key, attr.Value.Any())
	}
	all = append(all, args...)

	l.logger.Log(context.Background(), level, msg, all...)
}

// Close flushes and closes the underlying file, if any.
// Loggers writing to stderr or a caller-owned writer are unaffected.
func (l *Logger) Close() error {
	if l.mu == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closer == nil {
		return nil
	}
	if f, ok := l.closer.(*os.File); ok {
		if err := f.Sync(); err != nil {
			return fmt.Errorf("failed to sync log file: %w", err)
		}
	}
	if err := l.closer.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	l.closer = nil
	return nil
}

// NopLogger returns a Logger that discards all log output.
func NopLogger() *Logger {
	return NewWriterLogger(io.Discard, LevelError)
}

// ParseLevel normalizes a level string. Returns LevelInfo if not recognized.
func ParseLevel(level string) string {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// ValidLevels returns the list of valid log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
