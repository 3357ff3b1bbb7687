package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields.
// Values stored under these keys are added to every record logged with the context.
const (
	// ContextKeyHarnessID identifies the harness instance driving the element.
	ContextKeyHarnessID contextKey = "harness_id"

	// ContextKeyElement identifies the element under test.
	ContextKeyElement contextKey = "element"

	// ContextKeyPad identifies a pad, as "element:pad" or just "pad".
	ContextKeyPad contextKey = "pad"

	// ContextKeyStreamID identifies the stream announced by stream-start.
	ContextKeyStreamID contextKey = "stream_id"

	// ContextKeyTestName identifies the test that owns the harness.
	ContextKeyTestName contextKey = "test"
)

// allContextKeys lists all context keys that should be extracted for logging.
var allContextKeys = []contextKey{
	ContextKeyHarnessID,
	ContextKeyElement,
	ContextKeyPad,
	ContextKeyStreamID,
	ContextKeyTestName,
}

// WithHarnessID returns a new context with the harness ID set.
func WithHarnessID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyHarnessID, id)
}

// WithElement returns a new context with the element name set.
func WithElement(ctx context.Context, element string) context.Context {
	return context.WithValue(ctx, ContextKeyElement, element)
}

// WithPad returns a new context with the pad name set.
func WithPad(ctx context.Context, pad string) context.Context {
	return context.WithValue(ctx, ContextKeyPad, pad)
}

// WithStreamID returns a new context with the stream ID set.
func WithStreamID(ctx context.Context, streamID string) context.Context {
	return context.WithValue(ctx, ContextKeyStreamID, streamID)
}

// WithTestName returns a new context with the test name set.
func WithTestName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ContextKeyTestName, name)
}

// LoggingFields holds all standard logging context fields.
// This struct is used with WithLoggingContext for bulk field setting.
type LoggingFields struct {
	HarnessID string
	Element   string
	Pad       string
	StreamID  string
	TestName  string
}

// WithLoggingContext returns a new context with multiple logging fields set at once.
// Only non-empty values are set.
func WithLoggingContext(ctx context.Context, fields *LoggingFields) context.Context {
	if fields == nil {
		return ctx
	}
	if fields.HarnessID != "" {
		ctx = WithHarnessID(ctx, fields.HarnessID)
	}
	if fields.Element != "" {
		ctx = WithElement(ctx, fields.Element)
	}
	if fields.Pad != "" {
		ctx = WithPad(ctx, fields.Pad)
	}
	if fields.StreamID != "" {
		ctx = WithStreamID(ctx, fields.StreamID)
	}
	if fields.TestName != "" {
		ctx = WithTestName(ctx, fields.TestName)
	}
	return ctx
}

// ExtractLoggingFields extracts all logging fields from a context.
func ExtractLoggingFields(ctx context.Context) LoggingFields {
	fields := LoggingFields{}
	fields.HarnessID, _ = ctx.Value(ContextKeyHarnessID).(string)
	fields.Element, _ = ctx.Value(ContextKeyElement).(string)
	fields.Pad, _ = ctx.Value(ContextKeyPad).(string)
	fields.StreamID, _ = ctx.Value(ContextKeyStreamID).(string)
	fields.TestName, _ = ctx.Value(ContextKeyTestName).(string)
	return fields
}
