// Package logger provides structured logging for the pipeline runtime and its
// test harness.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - Pad link/unlink and element state change logging
//   - Caps negotiation and flow failure logging
//   - Contextual logging with harness and element fields
//   - Level-based verbosity control, per module
//
// All exported functions use the global DefaultLogger which can be configured
// for different output formats and log levels.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

var (
	// DefaultLogger is the global structured logger instance.
	// It is safe for concurrent use and initialized with slog.LevelInfo by default.
	DefaultLogger *slog.Logger

	// logOutput is where the built-in handlers write. Tests swap it for a buffer.
	logOutput io.Writer = os.Stderr

	// customHandler is set by SetLogger; Configure leaves it alone when present.
	customHandler slog.Handler
)

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = ParseLevel(envLevel)
	}
	initLoggerWithConfig(level, nil, nil, false)
}

// ParseLevel converts a level name to a slog.Level.
// Unknown names map to slog.LevelInfo.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsValidLevel reports whether name is a level ParseLevel understands.
func IsValidLevel(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "trace", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// SetLevel changes the logging level for all subsequent log operations.
// This is safe for concurrent use as it replaces the entire logger instance.
func SetLevel(level slog.Level) {
	customHandler = nil
	globalModuleConfig = NewModuleConfig(level)
	initLoggerWithConfig(level, nil, nil, false)
}

// SetVerbose enables debug-level logging when verbose is true, otherwise sets info-level.
func SetVerbose(verbose bool) {
	if verbose {
		SetLevel(slog.LevelDebug)
	} else {
		SetLevel(slog.LevelInfo)
	}
}

// SetLogger replaces the global logger. The handler is wrapped in a
// ContextHandler so context fields keep flowing into records.
// Passing nil restores the default text logger at info level.
func SetLogger(l *slog.Logger) {
	if l == nil {
		SetLevel(slog.LevelInfo)
		return
	}
	customHandler = NewContextHandler(l.Handler())
	DefaultLogger = slog.New(customHandler)
}

// Info logs an informational message with structured key-value attributes.
// Args should be provided in key-value pairs: key1, value1, key2, value2, ...
func Info(msg string, args ...any) {
	logAt(context.Background(), slog.LevelInfo, msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelInfo, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
// Debug messages are only output when the log level is set to LevelDebug or lower.
func Debug(msg string, args ...any) {
	logAt(context.Background(), slog.LevelDebug, msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelDebug, msg, args...)
}

// Warn logs a warning message with structured attributes.
func Warn(msg string, args ...any) {
	logAt(context.Background(), slog.LevelWarn, msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelWarn, msg, args...)
}

// Error logs an error message with structured attributes.
func Error(msg string, args ...any) {
	logAt(context.Background(), slog.LevelError, msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	logAt(ctx, slog.LevelError, msg, args...)
}

// PadLinked logs a successful pad link at debug level.
func PadLinked(src, sink string, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs, "src", src, "sink", sink)
	allAttrs = append(allAttrs, attrs...)
	logAt(context.Background(), slog.LevelDebug, "🔗 pad linked", allAttrs...)
}

// PadUnlinked logs a pad unlink at debug level.
func PadUnlinked(src, sink string, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs, "src", src, "sink", sink)
	allAttrs = append(allAttrs, attrs...)
	logAt(context.Background(), slog.LevelDebug, "✂️ pad unlinked", allAttrs...)
}

// StateChanged logs a single element state transition.
func StateChanged(element, from, to string, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"element", element,
		"from", from,
		"to", to,
	)
	allAttrs = append(allAttrs, attrs...)
	logAt(context.Background(), slog.LevelDebug, "🔁 state changed", allAttrs...)
}

// CapsNegotiated logs the caps pair an element settled on.
func CapsNegotiated(element, incaps, outcaps string, passthrough bool, attrs ...any) {
	allAttrs := make([]any, 0, 8+len(attrs))
	allAttrs = append(allAttrs,
		"element", element,
		"incaps", incaps,
		"outcaps", outcaps,
		"passthrough", passthrough,
	)
	allAttrs = append(allAttrs, attrs...)
	logAt(context.Background(), slog.LevelDebug, "✅ caps negotiated", allAttrs...)
}

// NegotiationFailed logs a caps negotiation failure at warn level.
func NegotiationFailed(element, caps string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"element", element,
		"caps", caps,
		"error", err,
	)
	allAttrs = append(allAttrs, attrs...)
	logAt(context.Background(), slog.LevelWarn, "❌ caps negotiation failed", allAttrs...)
}

// FlowFailed logs a non-OK flow return on a pad.
// Flushing and EOS are normal during teardown, so everything logs at debug.
func FlowFailed(pad, flow string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"pad", pad,
		"flow", flow,
		"error", err,
	)
	allAttrs = append(allAttrs, attrs...)
	logAt(context.Background(), slog.LevelDebug, "🔴 flow failed", allAttrs...)
}

// logAt emits a record whose PC points at the caller of the exported helper,
// so module-level filtering sees the real call site instead of this package.
func logAt(ctx context.Context, level slog.Level, msg string, args ...any) {
	l := DefaultLogger
	if !l.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// skip runtime.Callers, logAt and the exported helper
	runtime.Callers(3, pcs[:]) //nolint:mnd // stack depth documented above
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}
