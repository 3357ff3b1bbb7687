package stage

import (
	"github.com/chrisalex1117/zgstreamer/runtime/logger"
)

// PadDirection is the direction data flows through a pad.
type PadDirection int

const (
	// PadUnknown is an unset direction.
	PadUnknown PadDirection = iota
	// PadSrc pads push data out of their element.
	PadSrc
	// PadSink pads receive data into their element.
	PadSink
)

// String returns the direction name.
func (d PadDirection) String() string {
	switch d {
	case PadSrc:
		return "src"
	case PadSink:
		return "sink"
	default:
		return "unknown"
	}
}

// Invert returns the opposite direction.
func (d PadDirection) Invert() PadDirection {
	switch d {
	case PadSrc:
		return PadSink
	case PadSink:
		return PadSrc
	default:
		return PadUnknown
	}
}

// PadTemplate describes a pad an element always has: its name, direction and
// the caps it can ever handle.
type PadTemplate struct {
	name      string
	direction PadDirection
	caps      *Caps
}

// NewPadTemplate creates a template. Nil caps mean ANY.
func NewPadTemplate(name string, direction PadDirection, caps *Caps) *PadTemplate {
	if caps == nil {
		caps = NewAnyCaps()
	}
	return &PadTemplate{name: name, direction: direction, caps: caps.Copy()}
}

// Name returns the template name.
func (t *PadTemplate) Name() string { return t.name }

// Direction returns the template direction.
func (t *PadTemplate) Direction() PadDirection { return t.direction }

// Caps returns a copy of the template caps.
func (t *PadTemplate) Caps() *Caps { return t.caps.Copy() }

// WithDirection returns a copy of the template with another direction.
// Used to build the peer side of an element's template.
func (t *PadTemplate) WithDirection(direction PadDirection) *PadTemplate {
	return &PadTemplate{name: t.name, direction: direction, caps: t.caps.Copy()}
}

// ChainFunc receives a buffer on a sink pad.
type ChainFunc func(pad *Pad, buf *Buffer) error

// EventFunc receives an event on a sink pad. Returning an error rejects it.
type EventFunc func(pad *Pad, event *Event) error

// QueryCapsFunc answers which caps a pad can handle, restricted to filter.
type QueryCapsFunc func(pad *Pad, filter *Caps) *Caps

// ActivateFunc is called before a pad changes its active flag.
type ActivateFunc func(pad *Pad, active bool) error

// Linkable is implemented by connectors that can be joined to a peer.
type Linkable interface {
	Link(sink *Pad) error
	Unlink(sink *Pad) error
	IsLinked() bool
	Peer() *Pad
}

// Activatable is implemented by connectors that can be switched on and off.
type Activatable interface {
	SetActive(active bool) error
	IsActive() bool
}

// BufferSink receives buffers.
type BufferSink interface {
	Chain(buf *Buffer) error
}

// EventSink receives events.
type EventSink interface {
	SendEvent(event *Event) error
}

var (
	_ Linkable    = (*Pad)(nil)
	_ Activatable = (*Pad)(nil)
	_ BufferSink  = (*Pad)(nil)
	_ EventSink   = (*Pad)(nil)
)

// Pad is a connection point on an element. Src pads push buffers and events
// to the linked sink pad, which hands them to its chain and event functions.
//
// Pads are driven from a single goroutine and are not safe for concurrent use.
type Pad struct {
	name      string
	direction PadDirection
	template  *PadTemplate
	parent    *Element
	peer      *Pad

	active   bool
	flushing bool
	eos      bool
	sticky   map[EventType]*Event
	caps     *Caps

	chainFn     ChainFunc
	eventFn     EventFunc
	queryCapsFn QueryCapsFunc
	activateFn  ActivateFunc
}

// NewPad creates an inactive pad accepting ANY caps.
func NewPad(name string, direction PadDirection) *Pad {
	return NewPadFromTemplate(NewPadTemplate(name, direction, nil), name)
}

// NewPadFromTemplate creates an inactive pad from a template. An empty name uses the template's.
func NewPadFromTemplate(tmpl *PadTemplate, name string) *Pad {
	if name == "" {
		name = tmpl.name
	}
	return &Pad{
		name:      name,
		direction: tmpl.direction,
		template:  tmpl,
		flushing:  true,
		sticky:    make(map[EventType]*Event),
	}
}

// Name returns the pad name.
func (p *Pad) Name() string { return p.name }

// FullName returns "element:pad", or just the pad name when it has no parent.
func (p *Pad) FullName() string {
	if p.parent == nil {
		return p.name
	}
	return p.parent.Name() + ":" + p.name
}

// Direction returns the pad direction.
func (p *Pad) Direction() PadDirection { return p.direction }

// Template returns the template the pad was created from.
func (p *Pad) Template() *PadTemplate { return p.template }

// TemplateCaps returns the caps of the pad's template.
func (p *Pad) TemplateCaps() *Caps { return p.template.Caps() }

// Parent returns the owning element, or nil.
func (p *Pad) Parent() *Element { return p.parent }

// Peer returns the linked pad, or nil.
func (p *Pad) Peer() *Pad { return p.peer }

// IsLinked reports whether the pad has a peer.
func (p *Pad) IsLinked() bool { return p.peer != nil }

// IsActive reports whether the pad is active.
func (p *Pad) IsActive() bool { return p.active }

// IsFlushing reports whether the pad drops data.
func (p *Pad) IsFlushing() bool { return p.flushing }

// IsEOS reports whether the pad has seen end-of-stream.
func (p *Pad) IsEOS() bool { return p.eos }

// SetChainFunc installs the buffer handler of a sink pad.
func (p *Pad) SetChainFunc(fn ChainFunc) { p.chainFn = fn }

// SetEventFunc installs the event handler of a sink pad.
func (p *Pad) SetEventFunc(fn EventFunc) { p.eventFn = fn }

// SetQueryCapsFunc overrides the default caps query, which answers with the template caps.
func (p *Pad) SetQueryCapsFunc(fn QueryCapsFunc) { p.queryCapsFn = fn }

// SetActivateFunc installs a hook run before activation changes.
func (p *Pad) SetActivateFunc(fn ActivateFunc) { p.activateFn = fn }

// CurrentCaps returns the caps of the last accepted caps event, or nil.
func (p *Pad) CurrentCaps() *Caps {
	if p.caps == nil {
		return nil
	}
	return p.caps.Copy()
}

// StickyEvent returns the stored sticky event of the given type, or nil.
func (p *Pad) StickyEvent(t EventType) *Event {
	return p.sticky[t]
}

// Link links src pad p to sink. Both pads must be unlinked, have the right
// directions and templates that share at least one format.
func (p *Pad) Link(sink *Pad) error {
	if sink == nil {
		return &LinkError{Src: p.FullName(), Sink: "<nil>", Err: ErrNotLinked}
	}
	if p.direction != PadSrc || sink.direction != PadSink {
		return &LinkError{Src: p.FullName(), Sink: sink.FullName(), Err: ErrWrongDirection}
	}
	if p.peer != nil || sink.peer != nil {
		return &LinkError{Src: p.FullName(), Sink: sink.FullName(), Err: ErrAlreadyLinked}
	}
	if !p.TemplateCaps().CanIntersect(sink.TemplateCaps()) {
		return &LinkError{Src: p.FullName(), Sink: sink.FullName(), Err: ErrNoCommonCaps}
	}

	p.peer = sink
	sink.peer = p
	logger.PadLinked(p.FullName(), sink.FullName())
	return nil
}

// Unlink removes the link between src pad p and sink.
func (p *Pad) Unlink(sink *Pad) error {
	if sink == nil || p.peer != sink || sink.peer != p {
		name := "<nil>"
		if sink != nil {
			name = sink.FullName()
		}
		return &LinkError{Src: p.FullName(), Sink: name, Err: ErrNotLinked}
	}
	p.peer = nil
	sink.peer = nil
	logger.PadUnlinked(p.FullName(), sink.FullName())
	return nil
}

// SetActive switches the pad on or off. Deactivation makes the pad flush and
// drops its sticky events and caps.
func (p *Pad) SetActive(active bool) error {
	if p.active == active {
		return nil
	}
	if p.activateFn != nil {
		if err := p.activateFn(p, active); err != nil {
			return err
		}
	}
	p.active = active
	if active {
		p.flushing = false
		return nil
	}
	p.flushing = true
	p.eos = false
	p.caps = nil
	p.sticky = make(map[EventType]*Event)
	return nil
}

// Push sends a buffer from src pad p to its peer and returns the peer's
// result. The stream must have been started and a segment sent first.
func (p *Pad) Push(buf *Buffer) error {
	if err := p.checkPush(); err != nil {
		return err
	}
	if p.sticky[EventStreamStart] == nil {
		return NewFlowError(p.FullName(), FlowFailed, ErrNoStreamStart)
	}
	if p.sticky[EventSegment] == nil {
		return NewFlowError(p.FullName(), FlowFailed, ErrNoSegment)
	}

	err := p.peer.Chain(buf)
	if err != nil {
		logger.FlowFailed(p.FullName(), FlowReturnOf(err).String(), err)
	}
	return err
}

func (p *Pad) checkPush() error {
	switch {
	case p.direction != PadSrc:
		return NewFlowError(p.FullName(), FlowFailed, ErrWrongDirection)
	case !p.active:
		return NewFlowError(p.FullName(), FlowFlushing, ErrPadInactive)
	case p.flushing:
		return NewFlowError(p.FullName(), FlowFlushing, ErrFlushing)
	case p.peer == nil:
		return NewFlowError(p.FullName(), FlowNotLinked, ErrNotLinked)
	case p.eos:
		return NewFlowError(p.FullName(), FlowEOS, ErrEOS)
	}
	return nil
}

// PushEvent sends an event from src pad p to its peer. Sticky events are
// stored on p only once the peer accepted them.
func (p *Pad) PushEvent(event *Event) error {
	if p.direction != PadSrc {
		return NewFlowError(p.FullName(), FlowFailed, ErrWrongDirection)
	}
	if err := p.checkEvent(event); err != nil {
		return err
	}
	if p.peer == nil {
		return NewFlowError(p.FullName(), FlowNotLinked, ErrNotLinked)
	}
	if err := p.peer.SendEvent(event); err != nil {
		return err
	}
	p.applyEvent(event)
	return nil
}

// SetCaps pushes a caps event for fixed caps through src pad p.
func (p *Pad) SetCaps(caps *Caps) error {
	if !caps.IsFixed() {
		return &NegotiationError{Element: p.FullName(), Caps: caps, Err: ErrCapsNotFixed}
	}
	return p.PushEvent(NewCapsEvent(caps))
}

// SendEvent delivers an event to sink pad p. Caps events must be fixed and
// accepted by the template before the event function sees them.
func (p *Pad) SendEvent(event *Event) error {
	if p.direction != PadSink {
		return NewFlowError(p.FullName(), FlowFailed, ErrWrongDirection)
	}
	if err := p.checkEvent(event); err != nil {
		return err
	}
	if event.Type() == EventCaps {
		caps := event.Caps()
		if !caps.IsFixed() {
			return &NegotiationError{Element: p.FullName(), Caps: caps, Err: ErrCapsNotFixed}
		}
		if !p.AcceptCaps(caps) {
			return &NegotiationError{Element: p.FullName(), Caps: caps, Err: ErrCapsNotAccepted}
		}
	}
	if p.eventFn != nil {
		if err := p.eventFn(p, event); err != nil {
			return err
		}
	}
	p.applyEvent(event)
	return nil
}

// Chain delivers a buffer to sink pad p.
func (p *Pad) Chain(buf *Buffer) error {
	switch {
	case p.direction != PadSink:
		return NewFlowError(p.FullName(), FlowFailed, ErrWrongDirection)
	case !p.active:
		return NewFlowError(p.FullName(), FlowFlushing, ErrPadInactive)
	case p.flushing:
		return NewFlowError(p.FullName(), FlowFlushing, ErrFlushing)
	case p.eos:
		return NewFlowError(p.FullName(), FlowEOS, ErrEOS)
	case p.chainFn == nil:
		return NewFlowError(p.FullName(), FlowNotSupported, ErrNoChainFunction)
	}
	return p.chainFn(p, buf)
}

// AcceptCaps reports whether the pad's template allows caps.
func (p *Pad) AcceptCaps(caps *Caps) bool {
	return !caps.IsEmpty() && caps.IsSubset(p.TemplateCaps())
}

// QueryCaps returns the caps the pad can handle, restricted to filter.
// A nil filter means no restriction.
func (p *Pad) QueryCaps(filter *Caps) *Caps {
	if p.queryCapsFn != nil {
		return p.queryCapsFn(p, filter)
	}
	return p.TemplateCaps().Intersect(filter)
}

// PeerQueryCaps asks the peer which caps it can handle. An unlinked pad
// answers with the filter, or ANY without one.
func (p *Pad) PeerQueryCaps(filter *Caps) *Caps {
	if p.peer == nil {
		if filter == nil {
			return NewAnyCaps()
		}
		return filter.Copy()
	}
	return p.peer.QueryCaps(filter)
}

func (p *Pad) checkEvent(event *Event) error {
	if event == nil {
		return NewFlowError(p.FullName(), FlowFailed, ErrNilEvent)
	}
	t := event.Type()
	switch {
	case !p.active:
		return NewFlowError(p.FullName(), FlowFlushing, ErrPadInactive)
	case p.flushing && t.IsSerialized():
		return NewFlowError(p.FullName(), FlowFlushing, ErrFlushing)
	case p.eos && t.IsSerialized() && t != EventStreamStart:
		return NewFlowError(p.FullName(), FlowEOS, ErrEOS)
	}
	return nil
}

func (p *Pad) applyEvent(event *Event) {
	switch event.Type() {
	case EventStreamStart:
		p.eos = false
		delete(p.sticky, EventEOS)
	case EventCaps:
		p.caps = event.Caps()
	case EventEOS:
		p.eos = true
	case EventFlushStart:
		p.flushing = true
	case EventFlushStop:
		p.flushing = false
		p.eos = false
		delete(p.sticky, EventEOS)
		delete(p.sticky, EventSegment)
	}
	if event.Type().IsSticky() {
		p.sticky[event.Type()] = event
	}
}
