package transformtest

import (
	"github.com/chrisalex1117/zgstreamer/runtime/events"
	"github.com/chrisalex1117/zgstreamer/runtime/pipeline/stage"
)

// Option configures a Harness during construction.
type Option func(*Harness)

// WithConfig replaces the harness config. A nil config is ignored.
func WithConfig(cfg *Config) Option {
	return func(h *Harness) {
		if cfg != nil {
			c := *cfg
			h.cfg = &c
		}
	}
}

// WithStreamID sets the id carried by the initial stream-start event.
func WithStreamID(id string) Option {
	return func(h *Harness) {
		h.cfg.StreamID = id
	}
}

// WithElementName sets the name of the element under test.
func WithElementName(name string) Option {
	return func(h *Harness) {
		h.cfg.ElementName = name
	}
}

// WithCaps sets the caps template of both synthetic pads, instead of
// mirroring the stage templates.
func WithCaps(caps *stage.Caps) Option {
	return func(h *Harness) {
		h.caps = caps
	}
}

// WithEventBus publishes harness activity on bus.
func WithEventBus(bus *events.EventBus) Option {
	return func(h *Harness) {
		h.bus = bus
	}
}

// WithMetrics records harness activity in the Prometheus harness metrics
// until the harness is closed. Without WithEventBus a private bus is used.
func WithMetrics() Option {
	return func(h *Harness) {
		h.metrics = true
	}
}
