package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nerrad567/gray-logic-ledstrip/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "ledstrip"

// Logger is a slog.Logger carrying service and version fields. Child
// loggers share the parent's level, so SetLevel on any of them applies to
// all. Safe for concurrent use.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
	out   io.Closer
}

// New builds a Logger for cfg.Output: "stdout", "stderr", or a file path
// that is created or appended to. Close releases the file.
func New(cfg config.LoggingConfig, version string) (*Logger, error) {
	w, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	l := NewWithWriter(cfg, version, w)
	l.out = closer
	return l, nil
}

func openOutput(output string) (io.Writer, io.Closer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) // #nosec G304 -- path from operator config
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, f, nil
}

// NewWithWriter builds a Logger on w. Format "text" (any case) selects
// key=value lines; anything else is JSON.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Level))
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}
	h = h.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(h), level: level}
}

// parseLevel maps debug, info, warn(ing) and error, ignoring case. Anything
// else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// SetLevel changes the minimum level of this logger and every logger
// derived from the same New call.
func (l *Logger) SetLevel(level string) {
	l.level.Set(parseLevel(level))
}

// With returns a child logger with extra fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level}
}

// Component tags entries with component=name.
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// ForLight tags entries from one light synchronizer.
func (l *Logger) ForLight(id string) *Logger {
	return l.With("component", "light", "light", id)
}

// Close releases a log file opened by New. Child loggers do not own it.
func (l *Logger) Close() error {
	if l.out == nil {
		return nil
	}
	return l.out.Close()
}

// Default logs JSON at info to stdout until the configuration is loaded.
func Default() *Logger {
	return NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "dev", os.Stdout)
}
