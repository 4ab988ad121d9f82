package procheap

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with procheap-specific context.
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
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithPID adds a pid field to the logger.
func (l *Logger) WithPID(pid uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("pid", pid),
	}
}

// LogSpawn logs a process spawn.
func (l *Logger) LogSpawn(ctx context.Context, pid uint64, youngWords int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "spawn failed",
			"pid", pid,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "process spawned",
		"pid", pid,
		"young_words", youngWords,
	)
}

// LogExit logs a process exit. A nil reason is a normal exit.
func (l *Logger) LogExit(ctx context.Context, pid uint64, reason error) {
	if reason != nil {
		l.WarnContext(ctx, "process exited abnormally",
			"pid", pid,
			"reason", reason,
		)
		return
	}
	l.DebugContext(ctx, "process exited",
		"pid", pid,
	)
}

// LogCollection logs a garbage collection.
func (l *Logger) LogCollection(ctx context.Context, pid uint64, major bool, pause time.Duration, words int) {
	kind := "minor"
	if major {
		kind = "major"
	}
	l.DebugContext(ctx, "collection completed",
		"pid", pid,
		"kind", kind,
		"pause", pause,
		"words", words,
	)
}

// LogExhausted logs a heap that could not satisfy an allocation.
func (l *Logger) LogExhausted(ctx context.Context, pid uint64, requested, footprint int) {
	l.WarnContext(ctx, "heap exhausted",
		"pid", pid,
		"requested_words", requested,
		"footprint_words", footprint,
	)
}
