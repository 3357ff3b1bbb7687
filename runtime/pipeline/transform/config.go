package transform

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/chrisalex1117/zgstreamer/runtime/pipeline/stage"
)

const (
	// SinkPadName is the name of the stage's input pad.
	SinkPadName = "sink"
	// SrcPadName is the name of the stage's output pad.
	SrcPadName = "src"
)

var (
	// ErrInvalidTemplate is returned when a config template is missing or has the wrong direction.
	ErrInvalidTemplate = errors.New("invalid pad template")

	// ErrNoInPlaceHook is returned when enabling in-place mode without an InPlace hook.
	ErrNoInPlaceHook = errors.New("no in-place transform hook")

	// ErrNoTransformHook is returned when leaving in-place mode without a Transform hook.
	ErrNoTransformHook = errors.New("no copy transform hook")
)

// Hook names a configurable behavior of the stage.
type Hook string

const (
	HookTransformCaps         Hook = "transform_caps"
	HookTransformSize         Hook = "transform_size"
	HookSetCaps               Hook = "set_caps"
	HookTransform             Hook = "transform"
	HookTransformIP           Hook = "transform_ip"
	HookLifecycle             Hook = "start_stop"
	HookPassthroughOnSameCaps Hook = "passthrough_on_same_caps"
)

// Config is the hook table of a transform stage. A Config is a plain value:
// every Transform built from it gets its own copy, so it can be shared
// between instances of the same stage type.
type Config struct {
	// SinkTemplate describes the input pad. Default: ANY caps.
	SinkTemplate *stage.PadTemplate

	// SrcTemplate describes the output pad. Default: ANY caps.
	SrcTemplate *stage.PadTemplate

	// Caps maps caps across the stage. Default: DefaultCaps.
	Caps CapsTransformer

	// Size maps buffer sizes across the stage in copy mode. Default: DefaultSize.
	Size SizeTransformer

	// SetCaps is told about the negotiated caps. Default: DefaultSetCaps.
	SetCaps CapsSetter

	// Transform produces a new output buffer per input buffer.
	Transform Transformer

	// InPlace modifies buffers in place. Used when Transform is nil, or
	// when in-place mode is enabled explicitly.
	InPlace InPlaceTransformer

	// Lifecycle is called on start and stop. Default: NopLifecycle.
	Lifecycle Lifecycle

	// PassthroughOnSameCaps forwards buffers untouched, without calling any
	// transform hook, when input and output caps are equal.
	PassthroughOnSameCaps bool
}

// DefaultConfig returns a Config with ANY templates and no hooks.
func DefaultConfig() *Config {
	return &Config{
		SinkTemplate: stage.NewPadTemplate(SinkPadName, stage.PadSink, stage.NewAnyCaps()),
		SrcTemplate:  stage.NewPadTemplate(SrcPadName, stage.PadSrc, stage.NewAnyCaps()),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SinkTemplate == nil || c.SinkTemplate.Direction() != stage.PadSink {
		return fmt.Errorf("%w: sink template must be a sink pad template", ErrInvalidTemplate)
	}
	if c.SrcTemplate == nil || c.SrcTemplate.Direction() != stage.PadSrc {
		return fmt.Errorf("%w: src template must be a src pad template", ErrInvalidTemplate)
	}
	return nil
}

// WithTemplates sets both pad templates.
func (c *Config) WithTemplates(sink, src *stage.PadTemplate) *Config {
	c.SinkTemplate = sink
	c.SrcTemplate = src
	return c
}

// WithCaps sets the caps transform hook.
func (c *Config) WithCaps(h CapsTransformer) *Config {
	c.Caps = h
	return c
}

// WithSize sets the size transform hook.
func (c *Config) WithSize(h SizeTransformer) *Config {
	c.Size = h
	return c
}

// WithSetCaps sets the set-caps hook.
func (c *Config) WithSetCaps(h CapsSetter) *Config {
	c.SetCaps = h
	return c
}

// WithTransform sets the copy-mode transform hook.
func (c *Config) WithTransform(h Transformer) *Config {
	c.Transform = h
	return c
}

// WithInPlace sets the in-place transform hook.
func (c *Config) WithInPlace(h InPlaceTransformer) *Config {
	c.InPlace = h
	return c
}

// WithLifecycle sets the start/stop hooks.
func (c *Config) WithLifecycle(h Lifecycle) *Config {
	c.Lifecycle = h
	return c
}

// WithPassthroughOnSameCaps sets the passthrough-on-same-caps flag.
func (c *Config) WithPassthroughOnSameCaps(enabled bool) *Config {
	c.PassthroughOnSameCaps = enabled
	return c
}

// ActiveHooks reports which hooks were supplied rather than defaulted.
func (c *Config) ActiveHooks() mapset.Set[Hook] {
	hooks := mapset.NewSet[Hook]()
	if c.Caps != nil {
		hooks.Add(HookTransformCaps)
	}
	if c.Size != nil {
		hooks.Add(HookTransformSize)
	}
	if c.SetCaps != nil {
		hooks.Add(HookSetCaps)
	}
	if c.Transform != nil {
		hooks.Add(HookTransform)
	}
	if c.InPlace != nil {
		hooks.Add(HookTransformIP)
	}
	if c.Lifecycle != nil {
		hooks.Add(HookLifecycle)
	}
	if c.PassthroughOnSameCaps {
		hooks.Add(HookPassthroughOnSameCaps)
	}
	return hooks
}

// withDefaults returns a copy with every unset hook replaced by its default.
func (c *Config) withDefaults() Config {
	out := *c
	if out.Caps == nil {
		out.Caps = DefaultCaps
	}
	if out.Size == nil {
		out.Size = DefaultSize
	}
	if out.SetCaps == nil {
		out.SetCaps = DefaultSetCaps
	}
	if out.Lifecycle == nil {
		out.Lifecycle = NopLifecycle
	}
	return out
}
