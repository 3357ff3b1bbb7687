package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// captureOutput redirects the built-in handlers into a buffer for one test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	originalOutput := logOutput
	originalLogger := DefaultLogger
	originalModules := globalModuleConfig
	logOutput = &buf
	t.Cleanup(func() {
		logOutput = originalOutput
		DefaultLogger = originalLogger
		globalModuleConfig = originalModules
		customHandler = nil
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"TRACE", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsValidLevel(t *testing.T) {
	for _, name := range []string{"debug", "info", "warn", "error", "Warning"} {
		if !IsValidLevel(name) {
			t.Errorf("IsValidLevel(%q) = false, want true", name)
		}
	}
	if IsValidLevel("loud") {
		t.Error("IsValidLevel(loud) = true, want false")
	}
}

func TestSetLevel_FiltersDebug(t *testing.T) {
	buf := captureOutput(t)

	SetLevel(slog.LevelInfo)
	Debug("hidden message")
	Info("visible message", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("debug record leaked at info level: %s", out)
	}
	if !strings.Contains(out, "visible message") || !strings.Contains(out, "key=value") {
		t.Errorf("expected info record with attrs, got: %s", out)
	}
}

func TestSetVerbose(t *testing.T) {
	buf := captureOutput(t)

	SetVerbose(true)
	Debug("debug on")
	SetVerbose(false)
	Debug("debug off")

	out := buf.String()
	if !strings.Contains(out, "debug on") {
		t.Errorf("expected debug record when verbose, got: %s", out)
	}
	if strings.Contains(out, "debug off") {
		t.Errorf("debug record logged after verbose disabled: %s", out)
	}
}

func TestContextVariants_AddContextFields(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(slog.LevelDebug)

	ctx := WithHarnessID(context.Background(), "h-1")
	ctx = WithElement(ctx, "trans")

	InfoContext(ctx, "info ctx")
	DebugContext(ctx, "debug ctx")
	WarnContext(ctx, "warn ctx")
	ErrorContext(ctx, "error ctx")

	out := buf.String()
	for _, want := range []string{"info ctx", "debug ctx", "warn ctx", "error ctx", "harness_id=h-1", "element=trans"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestDomainHelpers(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(slog.LevelDebug)

	PadLinked("src", "trans:sink")
	PadUnlinked("trans:src", "sink")
	StateChanged("trans", "READY", "PAUSED")
	CapsNegotiated("trans", "foo/x-bar", "foo/x-bar", true)
	NegotiationFailed("trans", "foo/x-baz", errors.New("no common caps"))
	FlowFailed("src", "not-negotiated", errors.New("boom"), "extra", 1)

	out := buf.String()
	for _, want := range []string{
		"pad linked", "sink=trans:sink",
		"pad unlinked",
		"state changed", "from=READY", "to=PAUSED",
		"caps negotiated", "passthrough=true",
		"caps negotiation failed", `error="no common caps"`,
		"flow failed", "flow=not-negotiated", "extra=1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}

func TestSetLogger(t *testing.T) {
	captureOutput(t)
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	InfoContext(WithPad(context.Background(), "trans:src"), "custom")
	if !strings.Contains(buf.String(), `"pad":"trans:src"`) {
		t.Errorf("expected context field in custom logger output, got: %s", buf.String())
	}

	// Configure must not replace a custom logger
	if err := Configure(&LoggingConfigSpec{DefaultLevel: "error"}); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	Info("still custom")
	if !strings.Contains(buf.String(), "still custom") {
		t.Errorf("Configure replaced the custom logger: %s", buf.String())
	}

	SetLogger(nil)
	if customHandler != nil {
		t.Error("SetLogger(nil) should clear the custom handler")
	}
}
