package transform

import (
	"github.com/chrisalex1117/zgstreamer/runtime/pipeline/stage"
)

// CapsTransformer computes the caps on the other side of the stage.
// For direction stage.PadSink, caps are input caps and the result are possible
// output caps; for stage.PadSrc it is the reverse. The result must be
// restricted to filter when filter is not nil.
type CapsTransformer interface {
	TransformCaps(direction stage.PadDirection, caps, filter *stage.Caps) *stage.Caps
}

// SizeTransformer computes the size of the buffer on the other side of the stage.
type SizeTransformer interface {
	TransformSize(direction stage.PadDirection, caps *stage.Caps, size int, otherCaps *stage.Caps) (int, error)
}

// CapsSetter is told which input and output caps were agreed on.
// Returning an error fails negotiation.
type CapsSetter interface {
	SetCaps(incaps, outcaps *stage.Caps) error
}

// Transformer fills out from in. out is pre-allocated with the size given by
// the SizeTransformer and carries in's metadata.
type Transformer interface {
	Transform(in, out *stage.Buffer) error
}

// InPlaceTransformer modifies a buffer without copying it.
type InPlaceTransformer interface {
	TransformIP(buf *stage.Buffer) error
}

// Lifecycle is called when the stage starts (READY->PAUSED) and stops (PAUSED->READY).
type Lifecycle interface {
	Start() error
	Stop() error
}

// CapsTransformFunc adapts a function to CapsTransformer.
type CapsTransformFunc func(direction stage.PadDirection, caps, filter *stage.Caps) *stage.Caps

// TransformCaps calls f.
func (f CapsTransformFunc) TransformCaps(direction stage.PadDirection, caps, filter *stage.Caps) *stage.Caps {
	return f(direction, caps, filter)
}

// SizeTransformFunc adapts a function to SizeTransformer.
type SizeTransformFunc func(direction stage.PadDirection, caps *stage.Caps, size int, otherCaps *stage.Caps) (int, error)

// TransformSize calls f.
func (f SizeTransformFunc) TransformSize(direction stage.PadDirection, caps *stage.Caps, size int, otherCaps *stage.Caps) (int, error) {
	return f(direction, caps, size, otherCaps)
}

// SetCapsFunc adapts a function to CapsSetter.
type SetCapsFunc func(incaps, outcaps *stage.Caps) error

// SetCaps calls f.
func (f SetCapsFunc) SetCaps(incaps, outcaps *stage.Caps) error {
	return f(incaps, outcaps)
}

// TransformFunc adapts a function to Transformer.
type TransformFunc func(in, out *stage.Buffer) error

// Transform calls f.
func (f TransformFunc) Transform(in, out *stage.Buffer) error {
	return f(in, out)
}

// InPlaceFunc adapts a function to InPlaceTransformer.
type InPlaceFunc func(buf *stage.Buffer) error

// TransformIP calls f.
func (f InPlaceFunc) TransformIP(buf *stage.Buffer) error {
	return f(buf)
}

// LifecycleFuncs adapts a pair of functions to Lifecycle. Nil functions do nothing.
type LifecycleFuncs struct {
	StartFunc func() error
	StopFunc  func() error
}

// Start calls StartFunc.
func (l LifecycleFuncs) Start() error {
	if l.StartFunc == nil {
		return nil
	}
	return l.StartFunc()
}

// Stop calls StopFunc.
func (l LifecycleFuncs) Stop() error {
	if l.StopFunc == nil {
		return nil
	}
	return l.StopFunc()
}

// Defaults installed for hooks a Config leaves unset.
var (
	// DefaultCaps keeps caps unchanged across the stage.
	DefaultCaps CapsTransformer = CapsTransformFunc(func(_ stage.PadDirection, caps, filter *stage.Caps) *stage.Caps {
		return caps.Intersect(filter)
	})

	// DefaultSize keeps the buffer size unchanged.
	DefaultSize SizeTransformer = SizeTransformFunc(func(_ stage.PadDirection, _ *stage.Caps, size int, _ *stage.Caps) (int, error) {
		return size, nil
	})

	// DefaultSetCaps accepts any caps pair.
	DefaultSetCaps CapsSetter = SetCapsFunc(func(_, _ *stage.Caps) error {
		return nil
	})

	// NopLifecycle does nothing on start and stop.
	NopLifecycle Lifecycle = LifecycleFuncs{}
)
