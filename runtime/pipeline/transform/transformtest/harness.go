// Package transformtest drives a single transform stage in isolation.
//
// A Harness links a synthetic source pad to the stage's sink pad and the
// stage's src pad to a synthetic sink pad:
//
//	src -> [sink  transform  src] -> sink
//
// Tests push buffers and control events through the source, and pop what
// the stage produced from the sink. Everything runs synchronously on the
// caller's goroutine: Push returns once the buffer reached the sink or was
// refused somewhere along the way.
package transformtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chrisalex1117/zgstreamer/runtime/events"
	"github.com/chrisalex1117/zgstreamer/runtime/logger"
	metrics "github.com/chrisalex1117/zgstreamer/runtime/metrics/prometheus"
	"github.com/chrisalex1117/zgstreamer/runtime/pipeline/stage"
	"github.com/chrisalex1117/zgstreamer/runtime/pipeline/transform"
)

// HarnessState is the lifecycle state of a Harness.
type HarnessState int

const (
	// StateUnconstructed is the zero state, before anything was built.
	StateUnconstructed HarnessState = iota
	// StateBuilt means the pads and the stage exist.
	StateBuilt
	// StateLinked means src -> stage -> sink are linked.
	StateLinked
	// StateActive means the pads are active, the stage is PAUSED and the stream started.
	StateActive
	// StateTornDown means Close ran.
	StateTornDown
)

// String returns the state name.
func (s HarnessState) String() string {
	switch s {
	case StateUnconstructed:
		return "unconstructed"
	case StateBuilt:
		return "built"
	case StateLinked:
		return "linked"
	case StateActive:
		return "active"
	case StateTornDown:
		return "torn-down"
	default:
		return fmt.Sprintf("harness-state(%d)", int(s))
	}
}

// Pad names of the synthetic connectors.
const (
	SrcPadName  = "src"
	SinkPadName = "sink"
)

var (
	// ErrHarnessClosed is returned by Close on a harness that was already closed.
	ErrHarnessClosed = errors.New("harness already closed")

	// ErrHarnessNotActive is returned by data operations on a harness that is not active.
	ErrHarnessNotActive = errors.New("harness is not active")

	// ErrNilBuffer is returned when pushing a nil buffer.
	ErrNilBuffer = errors.New("nil buffer")

	// ErrNilEvent is returned when pushing a nil event.
	ErrNilEvent = stage.ErrNilEvent
)

// Harness owns the synthetic source, the stage under test and the synthetic
// sink, and records everything that reaches the sink.
type Harness struct {
	id      string
	cfg     *Config
	caps    *stage.Caps
	bus     *events.EventBus
	emitter *events.Emitter
	ctx     context.Context //nolint:containedctx // carries logging fields for the harness lifetime
	metrics bool

	// run when the harness is torn down
	restoreLog  func()
	unsubscribe func()

	tr      *transform.Transform
	srcPad  *stage.Pad
	sinkPad *stage.Pad

	state   HarnessState
	created time.Time

	mu      sync.Mutex
	buffers []*stage.Buffer
	events  []*stage.Event
}

// New builds a harness around a transform stage configured by stageCfg.
// A nil stageCfg uses transform.DefaultConfig. The returned harness is
// active: the stage is PAUSED and a stream-start event has reached it.
// On failure everything built so far is released.
func New(stageCfg *transform.Config, opts ...Option) (*Harness, error) {
	h := &Harness{
		id:  uuid.New().String(),
		cfg: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if err := h.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid harness config: %w", err)
	}
	if h.caps == nil {
		caps, err := h.cfg.caps()
		if err != nil {
			return nil, err
		}
		h.caps = caps
	}
	if h.cfg.LogLevel != "" {
		h.restoreLog = logger.OverrideModuleLevel(logModule, logger.ParseLevel(h.cfg.LogLevel))
	}
	if h.metrics {
		if h.bus == nil {
			h.bus = events.NewEventBus()
		}
		h.unsubscribe = h.bus.SubscribeAll(metrics.NewMetricsListener().Listener())
	}

	h.ctx = logger.WithHarnessID(context.Background(), h.id)
	h.ctx = logger.WithElement(h.ctx, h.cfg.ElementName)
	h.ctx = logger.WithStreamID(h.ctx, h.cfg.StreamID)
	h.emitter = events.NewEmitter(h.bus, h.id, h.cfg.ElementName)
	h.created = time.Now()

	err := h.build(stageCfg)
	if err == nil {
		err = h.link()
	}
	if err == nil {
		err = h.activate()
	}
	if err != nil {
		h.release(err)
		return nil, err
	}

	logger.DebugContext(h.ctx, "Harness created",
		"src_caps", h.srcPad.TemplateCaps().String(),
		"sink_caps", h.sinkPad.TemplateCaps().String())
	h.emitter.HarnessCreated(h.cfg.StreamID)
	return h, nil
}

// build creates the stage and the synthetic pads. The source mirrors the
// stage's sink template and the sink mirrors its src template, unless caps
// were configured for both.
func (h *Harness) build(stageCfg *transform.Config) error {
	tr, err := transform.New(h.cfg.ElementName, stageCfg)
	if err != nil {
		return err
	}
	h.tr = tr

	sinkTmpl := stage.NewPadTemplate(SinkPadName, stage.PadSink, h.padCaps(tr.SrcPad()))
	h.sinkPad = stage.NewPadFromTemplate(sinkTmpl, SinkPadName)
	h.sinkPad.SetChainFunc(h.receive)
	h.sinkPad.SetEventFunc(h.receiveEvent)

	srcTmpl := stage.NewPadTemplate(SrcPadName, stage.PadSrc, h.padCaps(tr.SinkPad()))
	h.srcPad = stage.NewPadFromTemplate(srcTmpl, SrcPadName)

	h.state = StateBuilt
	return nil
}

// padCaps returns the template caps of the synthetic pad facing peer.
func (h *Harness) padCaps(peer *stage.Pad) *stage.Caps {
	if h.caps != nil {
		return h.caps
	}
	caps := peer.TemplateCaps()
	if caps.IsAny() {
		return DefaultCaps
	}
	return caps
}

func (h *Harness) link() error {
	if err := h.srcPad.Link(h.tr.SinkPad()); err != nil {
		return err
	}
	h.emitter.PadLinked(h.srcPad.FullName(), h.tr.SinkPad().FullName())

	if err := h.tr.SrcPad().Link(h.sinkPad); err != nil {
		return err
	}
	h.emitter.PadLinked(h.tr.SrcPad().FullName(), h.sinkPad.FullName())

	h.state = StateLinked
	return nil
}

// activate brings the sink up first so the stage never pushes into an
// inactive pad, then the stage, then the source, and starts the stream.
func (h *Harness) activate() error {
	if err := h.sinkPad.SetActive(true); err != nil {
		return err
	}
	if err := h.setState(stage.StatePaused); err != nil {
		return err
	}
	if err := h.srcPad.SetActive(true); err != nil {
		return err
	}
	if err := h.srcPad.PushEvent(stage.NewStreamStartEvent(h.cfg.StreamID)); err != nil {
		return err
	}
	h.state = StateActive
	return nil
}

// setState walks the element to target one step at a time so every
// transition is reported.
func (h *Harness) setState(target stage.State) error {
	el := h.tr.Element()
	for el.State() != target {
		from := el.State()
		next := from + 1
		if target < from {
			next = from - 1
		}
		err := el.SetState(next)
		h.emitter.StateChanged(from.String(), next.String(), err)
		if err != nil {
			return err
		}
	}
	return nil
}

// release tears down whatever a failed New managed to build and reports
// the harness closed with cause.
func (h *Harness) release(cause error) {
	defer h.finish()
	if h.tr == nil {
		return
	}
	_ = h.srcPad.SetActive(false)
	_ = h.setState(stage.StateNull)
	_ = h.sinkPad.SetActive(false)
	if h.tr.SrcPad().Peer() == h.sinkPad && h.tr.SrcPad().Unlink(h.sinkPad) == nil {
		h.emitter.PadUnlinked(h.tr.SrcPad().FullName(), h.sinkPad.FullName())
	}
	if h.srcPad.Peer() == h.tr.SinkPad() && h.srcPad.Unlink(h.tr.SinkPad()) == nil {
		h.emitter.PadUnlinked(h.srcPad.FullName(), h.tr.SinkPad().FullName())
	}
	h.state = StateTornDown

	logger.DebugContext(h.ctx, "Harness construction failed", "error", cause)
	h.emitter.HarnessAborted(h.cfg.StreamID, time.Since(h.created), cause)
}

// finish undoes the process-wide settings made by New.
func (h *Harness) finish() {
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}
	if h.restoreLog != nil {
		h.restoreLog()
		h.restoreLog = nil
	}
}

// Close deactivates the source, stops the stage, deactivates the sink and
// unlinks the stage from the sink. The source stays linked to the stage.
// All teardown errors are returned together. A second Close returns
// ErrHarnessClosed. A log level set through Config.LogLevel is restored.
func (h *Harness) Close() error {
	if h.state == StateTornDown {
		return ErrHarnessClosed
	}

	var errs []error
	if err := h.srcPad.SetActive(false); err != nil {
		errs = append(errs, fmt.Errorf("deactivate source: %w", err))
	}
	if err := h.setState(stage.StateNull); err != nil {
		errs = append(errs, err)
	}
	if err := h.sinkPad.SetActive(false); err != nil {
		errs = append(errs, fmt.Errorf("deactivate sink: %w", err))
	}
	if err := h.tr.SrcPad().Unlink(h.sinkPad); err != nil {
		errs = append(errs, err)
	} else {
		h.emitter.PadUnlinked(h.tr.SrcPad().FullName(), h.sinkPad.FullName())
	}
	if !h.srcPad.IsLinked() {
		if err := h.srcPad.Link(h.tr.SinkPad()); err != nil {
			errs = append(errs, err)
		}
	}

	h.mu.Lock()
	h.buffers = nil
	h.events = nil
	h.mu.Unlock()
	h.state = StateTornDown

	err := errors.Join(errs...)
	lifetime := time.Since(h.created)
	if err != nil {
		logger.WarnContext(h.ctx, "Harness teardown failed", "error", err)
	} else {
		logger.DebugContext(h.ctx, "Harness closed", "lifetime", lifetime)
	}
	h.emitter.HarnessClosed(h.cfg.StreamID, lifetime, err)
	h.finish()
	return err
}

// ID returns the harness id used in logs and events.
func (h *Harness) ID() string { return h.id }

// State returns the lifecycle state.
func (h *Harness) State() HarnessState { return h.state }

// Transform returns the stage under test.
func (h *Harness) Transform() *transform.Transform { return h.tr }

// SrcPad returns the synthetic source pad.
func (h *Harness) SrcPad() *stage.Pad { return h.srcPad }

// SinkPad returns the synthetic sink pad.
func (h *Harness) SinkPad() *stage.Pad { return h.sinkPad }

func (h *Harness) checkActive() error {
	if h.state != StateActive {
		return fmt.Errorf("%w: %s", ErrHarnessNotActive, h.state)
	}
	return nil
}

// Push sends buf through the stage and returns the flow result of the whole
// chain. A non-nil error carries a *stage.FlowError or *stage.NegotiationError.
func (h *Harness) Push(buf *stage.Buffer) error {
	if err := h.checkActive(); err != nil {
		return err
	}
	if buf == nil {
		return stage.NewFlowError(h.srcPad.FullName(), stage.FlowFailed, ErrNilBuffer)
	}

	size := buf.Size()
	start := time.Now()
	err := h.srcPad.Push(buf)
	elapsed := time.Since(start)
	if err != nil {
		h.emitter.FlowFailed(h.srcPad.FullName(), size, stage.FlowReturnOf(err).String(), err, elapsed)
		return err
	}
	h.emitter.BufferPushed(h.srcPad.FullName(), size, int64(buf.PTS), elapsed)
	return nil
}

// PushBytes wraps data in a buffer and pushes it.
func (h *Harness) PushBytes(data []byte) error {
	return h.Push(stage.NewBufferFromBytes(data))
}

// Pop removes and returns the oldest buffer recorded at the sink, or nil.
func (h *Harness) Pop() *stage.Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffers) == 0 {
		return nil
	}
	buf := h.buffers[0]
	h.buffers[0] = nil
	h.buffers = h.buffers[1:]
	return buf
}

// Len returns the number of recorded buffers not yet popped.
func (h *Harness) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.buffers)
}

// SetCaps pushes a caps event through the source, which makes the stage
// negotiate its output caps.
func (h *Harness) SetCaps(caps *stage.Caps) error {
	if err := h.checkActive(); err != nil {
		return err
	}
	if err := h.srcPad.SetCaps(caps); err != nil {
		h.emitter.CapsFailed(caps.String(), err)
		return err
	}
	h.emitter.CapsNegotiated(caps.String(), h.tr.OutputCaps().String(), h.tr.IsPassthrough())
	return nil
}

// SetCapsString parses s and calls SetCaps.
func (h *Harness) SetCapsString(s string) error {
	caps, err := stage.ParseCaps(s)
	if err != nil {
		return err
	}
	return h.SetCaps(caps)
}

// PushSegment sends a default time segment, which most stages require before data.
func (h *Harness) PushSegment() error {
	return h.PushEvent(stage.NewSegmentEvent(stage.NewSegment(stage.FormatTime)))
}

// PushEOS sends end-of-stream. Later buffers are refused with stage.FlowEOS.
func (h *Harness) PushEOS() error {
	return h.PushEvent(stage.NewEOSEvent())
}

// PushFlush sends a flush-start followed by a flush-stop. The segment has
// to be sent again afterwards.
func (h *Harness) PushFlush(resetTime bool) error {
	if err := h.PushEvent(stage.NewFlushStartEvent()); err != nil {
		return err
	}
	return h.PushEvent(stage.NewFlushStopEvent(resetTime))
}

// PushEvent sends a control event through the source.
func (h *Harness) PushEvent(event *stage.Event) error {
	if err := h.checkActive(); err != nil {
		return err
	}
	if event == nil {
		return stage.NewFlowError(h.srcPad.FullName(), stage.FlowFailed, ErrNilEvent)
	}
	err := h.srcPad.PushEvent(event)
	h.emitter.ControlPushed(event.Type().String(), err)
	if err != nil {
		logger.DebugContext(h.ctx, "Event refused", "event", event.String(), "error", err)
	}
	return err
}

// Events returns the events recorded at the sink, in arrival order.
func (h *Harness) Events() []*stage.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*stage.Event(nil), h.events...)
}

// PopEvent removes and returns the oldest recorded event, or nil.
func (h *Harness) PopEvent() *stage.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.events) == 0 {
		return nil
	}
	ev := h.events[0]
	h.events[0] = nil
	h.events = h.events[1:]
	return ev
}

// AllowedCaps asks the stage which caps it accepts on its input, given
// what the synthetic sink accepts.
func (h *Harness) AllowedCaps() *stage.Caps {
	return h.srcPad.PeerQueryCaps(nil)
}

// receive is the synthetic sink's chain function. It never refuses data.
func (h *Harness) receive(pad *stage.Pad, buf *stage.Buffer) error {
	h.mu.Lock()
	h.buffers = append(h.buffers, buf)
	h.mu.Unlock()
	h.emitter.BufferRecorded(pad.FullName(), buf.Size(), int64(buf.PTS))
	return nil
}

func (h *Harness) receiveEvent(_ *stage.Pad, event *stage.Event) error {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	return nil
}
