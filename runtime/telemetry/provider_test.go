package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestTracer_NilProvider(t *testing.T) {
	tracer := Tracer(nil)
	if tracer == nil {
		t.Fatal("expected non-nil tracer")
	}
}

func TestTracer_WithProvider(t *testing.T) {
	tp := noop.NewTracerProvider()
	tracer := Tracer(tp)
	if tracer == nil {
		t.Fatal("expected non-nil tracer")
	}
}

func TestSetupPropagation(t *testing.T) {
	// Store original propagator to restore after test.
	orig := otel.GetTextMapPropagator()
	defer otel.SetTextMapPropagator(orig)

	SetupPropagation()

	prop := otel.GetTextMapPropagator()
	if prop == nil {
		t.Fatal("expected propagator to be set")
	}

	fields := prop.Fields()
	found := false
	for _, f := range fields {
		if f == "traceparent" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected propagator to handle 'traceparent', got fields: %v", fields)
	}
}

func TestContextFromTraceparent(t *testing.T) {
	const tp = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	ctx := ContextFromTraceparent(context.Background(), tp)
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		t.Fatal("expected valid remote span context")
	}
	if sc.TraceID().String() != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("unexpected trace id %s", sc.TraceID())
	}
	if !sc.IsRemote() {
		t.Error("expected remote span context")
	}
}

func TestContextFromTraceparent_Invalid(t *testing.T) {
	for _, tp := range []string{"", "garbage", "00-zz-00-01"} {
		ctx := ContextFromTraceparent(context.Background(), tp)
		if trace.SpanContextFromContext(ctx).IsValid() {
			t.Errorf("traceparent %q: expected no span context", tp)
		}
	}
}

func TestNewTracerProvider(t *testing.T) {
	// We just verify it doesn't fail with an unreachable endpoint.
	tp, err := NewTracerProvider(t.Context(), "http://localhost:0/v1/traces", "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = tp.Shutdown(t.Context()) }()

	var _ trace.TracerProvider = tp
}
