package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chrisalex1117/zgstreamer/runtime/events"
)

// Span names.
const (
	SpanHarness     = "zgstreamer.harness"
	SpanStateChange = "zgstreamer.element.state_change"
	SpanNegotiation = "zgstreamer.caps.negotiation"
)

// harnessState tracks the root span for a harness.
type harnessState struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent child spans
}

// OTelEventListener converts harness events into OTel spans in real time.
// Each harness gets a root span; state changes and negotiations become child
// spans, and data flow is recorded as span events on the root.
// It is safe for concurrent use.
type OTelEventListener struct {
	tracer trace.Tracer
	parent context.Context //nolint:containedctx // parent for root spans started from events

	mu        sync.Mutex
	harnesses map[string]*harnessState // harnessID → root span + ctx
}

// NewOTelEventListener creates a listener that creates OTel spans from harness events.
func NewOTelEventListener(tracer trace.Tracer) *OTelEventListener {
	return &OTelEventListener{
		tracer:    tracer,
		parent:    context.Background(),
		harnesses: make(map[string]*harnessState),
	}
}

// WithParent sets the context that root spans started from events are
// parented under, e.g. one returned by ContextFromTraceparent.
func (l *OTelEventListener) WithParent(ctx context.Context) *OTelEventListener {
	l.parent = ctx
	return l
}

// StartHarness creates the root span for a harness, optionally parented
// under the span context in parentCtx. Calling it again for the same id is a no-op.
func (l *OTelEventListener) StartHarness(parentCtx context.Context, harnessID string, attrs ...attribute.KeyValue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.harnesses[harnessID]; ok {
		return
	}
	attrs = append([]attribute.KeyValue{attribute.String("harness.id", harnessID)}, attrs...)
	ctx, span := l.tracer.Start(parentCtx, SpanHarness,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	l.harnesses[harnessID] = &harnessState{span: span, ctx: ctx}
}

// EndHarness ends the root span for the given harness.
func (l *OTelEventListener) EndHarness(harnessID string, err error, attrs ...attribute.KeyValue) {
	l.mu.Lock()
	hs, ok := l.harnesses[harnessID]
	if ok {
		delete(l.harnesses, harnessID)
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	hs.span.SetAttributes(attrs...)
	setStatus(hs.span, err)
	hs.span.End()
}

// OnEvent handles a single harness event and creates or completes spans accordingly.
// The root span is started by the first event seen for a harness, since
// linking and state changes happen before the harness reports itself created.
// It can be passed to EventBus.SubscribeAll.
func (l *OTelEventListener) OnEvent(evt *events.Event) {
	if evt.Type != events.EventHarnessClosed {
		l.StartHarness(l.parent, evt.HarnessID, attribute.String("element.name", evt.Element))
	}
	//nolint:exhaustive // Only handling span-producing events
	switch evt.Type {
	case events.EventHarnessCreated:
		l.harnessCreated(evt)
	case events.EventHarnessClosed:
		l.harnessClosed(evt)
	case events.EventStateChanged:
		l.stateChanged(evt)
	case events.EventCapsNegotiated, events.EventCapsFailed:
		l.negotiation(evt)
	case events.EventBufferPushed, events.EventFlowFailed, events.EventBufferRecorded:
		l.buffer(evt)
	case events.EventControlPushed:
		l.control(evt)
	case events.EventPadLinked, events.EventPadUnlinked:
		l.padLink(evt)
	}
}

// harnessCtx returns the context for the harness (to parent child spans).
// Falls back to the listener parent if the harness is unknown.
func (l *OTelEventListener) harnessCtx(harnessID string) context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hs, ok := l.harnesses[harnessID]; ok {
		return hs.ctx
	}
	return l.parent
}

// addEvent attaches a span event to the harness root span, if there is one.
func (l *OTelEventListener) addEvent(harnessID, name string, attrs ...attribute.KeyValue) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hs, ok := l.harnesses[harnessID]; ok {
		hs.span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// childSpan records a completed child span under the harness root.
func (l *OTelEventListener) childSpan(harnessID, name string, err error, attrs ...attribute.KeyValue) {
	_, span := l.tracer.Start(l.harnessCtx(harnessID), name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	setStatus(span, err)
	span.End()
}

func setStatus(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// --- Harness ---

func (l *OTelEventListener) harnessCreated(evt *events.Event) {
	data, ok := evt.Data.(events.HarnessEventData)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if hs, ok := l.harnesses[evt.HarnessID]; ok {
		hs.span.SetAttributes(attribute.String("stream.id", data.StreamID))
		hs.span.AddEvent(string(evt.Type))
	}
}

func (l *OTelEventListener) harnessClosed(evt *events.Event) {
	data, ok := evt.Data.(events.HarnessEventData)
	if !ok {
		return
	}
	l.EndHarness(evt.HarnessID, data.Error,
		attribute.Int64("harness.lifetime_ms", data.Lifetime.Milliseconds()),
		attribute.Bool("harness.aborted", data.Aborted),
	)
}

// --- Element ---

func (l *OTelEventListener) stateChanged(evt *events.Event) {
	data, ok := evt.Data.(events.StateChangedData)
	if !ok {
		return
	}
	l.childSpan(evt.HarnessID, SpanStateChange, data.Error,
		attribute.String("element.name", evt.Element),
		attribute.String("state.from", data.From),
		attribute.String("state.to", data.To),
	)
}

func (l *OTelEventListener) negotiation(evt *events.Event) {
	data, ok := evt.Data.(events.CapsEventData)
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("element.name", evt.Element),
		attribute.String("caps.in", data.InCaps),
	}
	if data.Error == nil {
		attrs = append(attrs,
			attribute.String("caps.out", data.OutCaps),
			attribute.Bool("caps.passthrough", data.Passthrough),
		)
	}
	l.childSpan(evt.HarnessID, SpanNegotiation, data.Error, attrs...)
}

// --- Data flow ---

func (l *OTelEventListener) buffer(evt *events.Event) {
	data, ok := evt.Data.(events.BufferEventData)
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("pad", data.Pad),
		attribute.Int("buffer.size", data.Size),
		attribute.String("flow", data.Flow),
	}
	if data.PTS >= 0 {
		attrs = append(attrs, attribute.Int64("buffer.pts", data.PTS))
	}
	if data.Duration > 0 {
		attrs = append(attrs, attribute.Int64("chain.duration_us", data.Duration.Microseconds()))
	}
	if data.Error != nil {
		attrs = append(attrs, attribute.String("error", data.Error.Error()))
	}
	l.addEvent(evt.HarnessID, string(evt.Type), attrs...)
}

func (l *OTelEventListener) control(evt *events.Event) {
	data, ok := evt.Data.(events.ControlEventData)
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("event.kind", data.Kind)}
	if data.Error != nil {
		attrs = append(attrs, attribute.String("error", data.Error.Error()))
	}
	l.addEvent(evt.HarnessID, string(evt.Type), attrs...)
}

func (l *OTelEventListener) padLink(evt *events.Event) {
	data, ok := evt.Data.(events.PadEventData)
	if !ok {
		return
	}
	l.addEvent(evt.HarnessID, string(evt.Type),
		attribute.String("pad.src", data.Src),
		attribute.String("pad.sink", data.Sink),
	)
}
