// Package transform hosts a pluggable one-input, one-output processing stage.
//
// A Transform wraps a Config (its hook table) in a stage.Element with a sink
// and a src pad. It negotiates caps when a caps event arrives, then runs each
// buffer through the configured hooks in one of three modes:
//
//   - passthrough: the buffer is forwarded untouched and no hook runs
//   - in-place: InPlace.TransformIP modifies the buffer, which is forwarded
//   - copy: a new buffer sized by Size is filled by Transform and forwarded
package transform

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/chrisalex1117/zgstreamer/runtime/logger"
	"github.com/chrisalex1117/zgstreamer/runtime/pipeline/stage"
)

// Transform is the processing stage adapter.
type Transform struct {
	cfg   Config
	hooks mapset.Set[Hook]

	element *stage.Element
	sinkPad *stage.Pad
	srcPad  *stage.Pad

	inCaps           *stage.Caps
	outCaps          *stage.Caps
	negotiated       bool
	passthrough      bool
	forcePassthrough bool
	inPlace          bool
	started          bool
}

// New creates a transform stage named name from cfg. A nil cfg uses DefaultConfig.
func New(name string, cfg *Config) (*Transform, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Transform{
		cfg:     cfg.withDefaults(),
		hooks:   cfg.ActiveHooks(),
		element: stage.NewElement(name),
	}
	t.inPlace = t.cfg.InPlace != nil && t.cfg.Transform == nil

	t.sinkPad = stage.NewPadFromTemplate(t.cfg.SinkTemplate, SinkPadName)
	t.sinkPad.SetChainFunc(t.chain)
	t.sinkPad.SetEventFunc(t.sinkEvent)
	t.sinkPad.SetQueryCapsFunc(t.querySinkCaps)

	t.srcPad = stage.NewPadFromTemplate(t.cfg.SrcTemplate, SrcPadName)
	t.srcPad.SetQueryCapsFunc(t.querySrcCaps)

	if err := t.element.AddPad(t.sinkPad); err != nil {
		return nil, err
	}
	if err := t.element.AddPad(t.srcPad); err != nil {
		return nil, err
	}
	t.element.SetChangeStateFunc(t.changeState)
	return t, nil
}

// Name returns the element name.
func (t *Transform) Name() string { return t.element.Name() }

// Element returns the underlying element.
func (t *Transform) Element() *stage.Element { return t.element }

// SinkPad returns the input pad.
func (t *Transform) SinkPad() *stage.Pad { return t.sinkPad }

// SrcPad returns the output pad.
func (t *Transform) SrcPad() *stage.Pad { return t.srcPad }

// ActiveHooks reports which hooks the config supplied.
func (t *Transform) ActiveHooks() mapset.Set[Hook] { return t.hooks.Clone() }

// InputCaps returns the negotiated input caps, or nil.
func (t *Transform) InputCaps() *stage.Caps {
	if !t.negotiated {
		return nil
	}
	return t.inCaps.Copy()
}

// OutputCaps returns the negotiated output caps, or nil.
func (t *Transform) OutputCaps() *stage.Caps {
	if !t.negotiated {
		return nil
	}
	return t.outCaps.Copy()
}

// IsNegotiated reports whether caps have been agreed on.
func (t *Transform) IsNegotiated() bool { return t.negotiated }

// IsPassthrough reports whether buffers are currently forwarded untouched.
func (t *Transform) IsPassthrough() bool { return t.passthrough }

// IsInPlace reports whether buffers are modified in place.
func (t *Transform) IsInPlace() bool { return t.inPlace }

// SetPassthrough forces passthrough on, or returns to caps-driven passthrough.
func (t *Transform) SetPassthrough(enabled bool) {
	t.forcePassthrough = enabled
	t.updatePassthrough()
}

// SetInPlace switches between in-place and copy mode. Leaving in-place mode
// needs a Transform hook when an InPlace hook is configured.
func (t *Transform) SetInPlace(enabled bool) error {
	if enabled && t.cfg.InPlace == nil {
		return ErrNoInPlaceHook
	}
	if !enabled && t.cfg.Transform == nil && t.cfg.InPlace != nil {
		return ErrNoTransformHook
	}
	t.inPlace = enabled
	return nil
}

func (t *Transform) updatePassthrough() {
	t.passthrough = t.forcePassthrough ||
		(t.cfg.PassthroughOnSameCaps && t.negotiated && t.inCaps.IsEqual(t.outCaps))
}

func (t *Transform) changeState(_ *stage.Element, transition stage.StateChange) error {
	switch transition {
	case stage.StateChangeReadyToPaused:
		if err := t.cfg.Lifecycle.Start(); err != nil {
			return fmt.Errorf("start: %w", err)
		}
		t.started = true
	case stage.StateChangePausedToReady:
		t.reset()
		if t.started {
			t.started = false
			if err := t.cfg.Lifecycle.Stop(); err != nil {
				return fmt.Errorf("stop: %w", err)
			}
		}
	}
	return nil
}

func (t *Transform) reset() {
	t.inCaps = nil
	t.outCaps = nil
	t.negotiated = false
	t.updatePassthrough()
}

func (t *Transform) sinkEvent(_ *stage.Pad, event *stage.Event) error {
	if event.Type() == stage.EventCaps {
		return t.setCaps(event.Caps())
	}
	return t.srcPad.PushEvent(event)
}

// setCaps negotiates output caps for in, informs the SetCaps hook and pushes
// the result downstream. On failure the stage is left unnegotiated.
func (t *Transform) setCaps(in *stage.Caps) error {
	t.reset()

	out, err := t.negotiate(in)
	if err == nil {
		if hookErr := t.cfg.SetCaps.SetCaps(in, out); hookErr != nil {
			err = &stage.NegotiationError{Element: t.Name(), Caps: in, Err: fmt.Errorf("%s: %w", HookSetCaps, hookErr)}
		}
	}
	if err != nil {
		logger.NegotiationFailed(t.Name(), in.String(), err)
		return err
	}

	t.inCaps = in
	t.outCaps = out
	t.negotiated = true
	t.updatePassthrough()

	if err := t.srcPad.PushEvent(stage.NewCapsEvent(out)); err != nil {
		t.reset()
		logger.NegotiationFailed(t.Name(), out.String(), err)
		return err
	}
	logger.CapsNegotiated(t.Name(), in.String(), out.String(), t.passthrough)
	return nil
}

func (t *Transform) negotiate(in *stage.Caps) (*stage.Caps, error) {
	candidates := t.cfg.Caps.TransformCaps(stage.PadSink, in, nil).Intersect(t.srcPad.TemplateCaps())
	if candidates.IsEmpty() {
		return nil, &stage.NegotiationError{Element: t.Name(), Caps: in, Err: stage.ErrNoCommonCaps}
	}

	peer := t.srcPad.PeerQueryCaps(candidates).Intersect(candidates)
	if peer.IsEmpty() {
		return nil, &stage.NegotiationError{Element: t.Name(), Caps: in, Err: stage.ErrNoCommonCaps}
	}

	out := peer.Fixate()
	if in.IsSubset(peer) {
		out = in.Copy()
	}
	if !out.IsFixed() {
		return nil, &stage.NegotiationError{Element: t.Name(), Caps: out, Err: stage.ErrCapsNotFixed}
	}
	return out, nil
}

// querySinkCaps answers what the stage accepts on its input, given what the
// downstream peer accepts.
func (t *Transform) querySinkCaps(pad *stage.Pad, filter *stage.Caps) *stage.Caps {
	var peerFilter *stage.Caps
	if filter != nil {
		peerFilter = t.cfg.Caps.TransformCaps(stage.PadSink, filter, nil).Intersect(t.srcPad.TemplateCaps())
	}
	peer := t.srcPad.PeerQueryCaps(peerFilter).Intersect(t.srcPad.TemplateCaps())
	return t.cfg.Caps.TransformCaps(stage.PadSrc, peer, nil).Intersect(pad.TemplateCaps()).Intersect(filter)
}

// querySrcCaps answers what the stage can produce, given what the upstream peer offers.
func (t *Transform) querySrcCaps(pad *stage.Pad, filter *stage.Caps) *stage.Caps {
	var peerFilter *stage.Caps
	if filter != nil {
		peerFilter = t.cfg.Caps.TransformCaps(stage.PadSrc, filter, nil).Intersect(t.sinkPad.TemplateCaps())
	}
	peer := t.sinkPad.PeerQueryCaps(peerFilter).Intersect(t.sinkPad.TemplateCaps())
	return t.cfg.Caps.TransformCaps(stage.PadSink, peer, nil).Intersect(pad.TemplateCaps()).Intersect(filter)
}

func (t *Transform) chain(pad *stage.Pad, buf *stage.Buffer) error {
	if !t.negotiated {
		return stage.NewFlowError(pad.FullName(), stage.FlowNotNegotiated, stage.ErrNotNegotiated)
	}
	if t.passthrough {
		return t.srcPad.Push(buf)
	}

	switch {
	case t.inPlace:
		if err := t.cfg.InPlace.TransformIP(buf); err != nil {
			return t.hookError(HookTransformIP, err)
		}
		return t.srcPad.Push(buf)
	case t.cfg.Transform != nil:
		size, err := t.cfg.Size.TransformSize(stage.PadSink, t.inCaps, buf.Size(), t.outCaps)
		if err != nil {
			return t.hookError(HookTransformSize, err)
		}
		if size < 0 {
			return t.hookError(HookTransformSize, fmt.Errorf("negative output size %d", size))
		}
		out := stage.NewBuffer(size)
		out.CopyMetadata(buf)
		if err := t.cfg.Transform.Transform(buf, out); err != nil {
			return t.hookError(HookTransform, err)
		}
		return t.srcPad.Push(out)
	default:
		return t.srcPad.Push(buf)
	}
}

// hookError turns a hook failure into a flow error. Flow errors returned by
// the hook itself keep their flow return.
func (t *Transform) hookError(hook Hook, err error) error {
	var flowErr *stage.FlowError
	if errors.As(err, &flowErr) {
		return err
	}
	return stage.NewFlowError(t.sinkPad.FullName(), stage.FlowFailed, fmt.Errorf("%s: %w", hook, err))
}
