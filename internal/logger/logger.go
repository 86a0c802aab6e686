// Package logger wraps log/slog with a level taken from configuration.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	internal *slog.Logger
	level    *slog.LevelVar
}

// New returns a text logger on stderr.
func New(level string) *Logger {
	return NewWithWriter(os.Stderr, level)
}

func NewWithWriter(w io.Writer, level string) *Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(ParseLevel(level))

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return &Logger{internal: slog.New(handler), level: lvl}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return NewWithWriter(io.Discard, "error")
}

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

func (l *Logger) Info(msg string, args ...any) {
	l.internal.Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.internal.Error(msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.internal.Debug(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.internal.Warn(msg, args...)
}

// With creates a child logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{internal: l.internal.With(args...), level: l.level}
}

func (l *Logger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.internal.Enabled(ctx, level)
}
