package kmerindex

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/kmerindex/index"
)

// Logger wraps slog.Logger with kmerindex-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// slogger returns the underlying logger, or nil for a nil Logger.
func (l *Logger) slogger() *slog.Logger {
	if l == nil {
		return nil
	}
	return l.Logger
}

// WithWordSize adds a word_size field to the logger. A nil Logger stays nil.
func (l *Logger) WithWordSize(k int) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{Logger: l.Logger.With("word_size", k)}
}

// LogBuild logs the construction of an index or a set.
func (l *Logger) LogBuild(ctx context.Context, kind string, capacity int64, memory index.MemoryReport, err error) {
	if l == nil {
		return
	}
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"kind", kind,
			"capacity", capacity,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "build completed",
		"kind", kind,
		"capacity", capacity,
		"bytes", memory.Total,
	)
}

// LogBlacklist logs the loading of a blacklist.
func (l *Logger) LogBlacklist(ctx context.Context, wordSize, entries int, err error) {
	if l == nil {
		return
	}
	if err != nil {
		l.ErrorContext(ctx, "blacklist load failed",
			"word_size", wordSize,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "blacklist loaded",
		"word_size", wordSize,
		"entries", entries,
	)
}
