// Package logger implements the logging adapter on charmbracelet/log.
package logger

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger implements ports.Logger.
type Logger struct {
	logger *charmlog.Logger
}

// New creates a logger writing to stderr at info level.
func New() *Logger {
	return NewWithOptions(os.Stderr, charmlog.InfoLevel)
}

// NewWithOptions creates a logger with an explicit sink and level.
func NewWithOptions(w io.Writer, level charmlog.Level) *Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: false,
	})
	return &Logger{logger: l}
}

// Debug logs a debug message with structured key/value pairs.
func (l *Logger) Debug(msg string, keyvals ...any) {
	l.logger.Debug(msg, keyvals...)
}

// Info logs an informational message.
func (l *Logger) Info(msg string, keyvals ...any) {
	l.logger.Info(msg, keyvals...)
}

// Warn logs a warning.
func (l *Logger) Warn(msg string, keyvals ...any) {
	l.logger.Warn(msg, keyvals...)
}

// Error logs an error.
func (l *Logger) Error(err error, keyvals ...any) {
	l.logger.Error("operation failed", append([]any{"error", err}, keyvals...)...)
}

// SetLevel adjusts the log level (e.g. for a --verbose flag).
func (l *Logger) SetLevel(level charmlog.Level) {
	l.logger.SetLevel(level)
}
