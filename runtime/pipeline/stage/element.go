package stage

import (
	"fmt"

	"github.com/chrisalex1117/zgstreamer/runtime/logger"
)

// State is the running state of an element.
type State int

const (
	// StateNull is the initial state; no resources are held.
	StateNull State = iota
	// StateReady means resources are allocated but pads are inactive.
	StateReady
	// StatePaused means pads are active and data may flow.
	StatePaused
	// StatePlaying means the element is running against a clock.
	StatePlaying
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// StateChange is a single-step transition between adjacent states.
type StateChange int

// NewStateChange encodes a transition.
func NewStateChange(from, to State) StateChange {
	return StateChange(int(from)<<3 | int(to))
}

// Transitions driven one step at a time by SetState.
var (
	StateChangeNullToReady     = NewStateChange(StateNull, StateReady)
	StateChangeReadyToPaused   = NewStateChange(StateReady, StatePaused)
	StateChangePausedToPlaying = NewStateChange(StatePaused, StatePlaying)
	StateChangePlayingToPaused = NewStateChange(StatePlaying, StatePaused)
	StateChangePausedToReady   = NewStateChange(StatePaused, StateReady)
	StateChangeReadyToNull     = NewStateChange(StateReady, StateNull)
)

// From returns the state the transition starts in.
func (c StateChange) From() State { return State(int(c) >> 3) }

// To returns the state the transition ends in.
func (c StateChange) To() State { return State(int(c) & 0x7) }

// String formats the transition as "FROM->TO".
func (c StateChange) String() string {
	return c.From().String() + "->" + c.To().String()
}

// ChangeStateFunc is an element's hook for a single state transition.
type ChangeStateFunc func(el *Element, transition StateChange) error

// Element owns a set of pads and moves through the NULL, READY, PAUSED and
// PLAYING states. Pads are activated on READY->PAUSED and deactivated on
// PAUSED->READY.
type Element struct {
	name        string
	state       State
	pads        []*Pad
	changeState ChangeStateFunc
}

// NewElement creates an element in the NULL state.
func NewElement(name string) *Element {
	return &Element{name: name}
}

// Name returns the element name.
func (e *Element) Name() string { return e.name }

// State returns the current state.
func (e *Element) State() State { return e.state }

// SetChangeStateFunc installs the element's transition hook.
func (e *Element) SetChangeStateFunc(fn ChangeStateFunc) { e.changeState = fn }

// AddPad adds a pad to the element. A pad added while PAUSED or PLAYING is activated.
func (e *Element) AddPad(pad *Pad) error {
	if e.StaticPad(pad.Name()) != nil {
		return fmt.Errorf("element '%s': %w: %s", e.name, ErrDuplicatePad, pad.Name())
	}
	pad.parent = e
	e.pads = append(e.pads, pad)
	if e.state >= StatePaused {
		return pad.SetActive(true)
	}
	return nil
}

// StaticPad returns the pad with the given name, or nil.
func (e *Element) StaticPad(name string) *Pad {
	for _, p := range e.pads {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Pads returns the element's pads in the order they were added.
func (e *Element) Pads() []*Pad {
	return append([]*Pad(nil), e.pads...)
}

// SetState moves the element to target one adjacent state at a time. On a
// failed step the element stays in the last state it reached.
func (e *Element) SetState(target State) error {
	if target < StateNull || target > StatePlaying {
		return &StateTransitionError{Element: e.name, From: e.state, To: target, Err: ErrInvalidState}
	}
	for e.state != target {
		next := e.state + 1
		if target < e.state {
			next = e.state - 1
		}
		if err := e.step(NewStateChange(e.state, next)); err != nil {
			logger.StateChanged(e.name, e.state.String(), next.String(), "error", err)
			return &StateTransitionError{Element: e.name, From: e.state, To: next, Err: err}
		}
		logger.StateChanged(e.name, e.state.String(), next.String())
		e.state = next
	}
	return nil
}

func (e *Element) step(transition StateChange) error {
	switch transition {
	case StateChangeReadyToPaused:
		if err := e.activatePads(true); err != nil {
			_ = e.activatePads(false)
			return err
		}
		if err := e.runHook(transition); err != nil {
			_ = e.activatePads(false)
			return err
		}
		return nil
	case StateChangePausedToReady:
		if err := e.activatePads(false); err != nil {
			return err
		}
		return e.runHook(transition)
	default:
		return e.runHook(transition)
	}
}

func (e *Element) runHook(transition StateChange) error {
	if e.changeState == nil {
		return nil
	}
	return e.changeState(e, transition)
}

// activatePads switches src pads before sink pads so that no data reaches
// an element whose output cannot take it.
func (e *Element) activatePads(active bool) error {
	for _, dir := range []PadDirection{PadSrc, PadSink} {
		for _, p := range e.pads {
			if p.Direction() != dir {
				continue
			}
			if err := p.SetActive(active); err != nil {
				return fmt.Errorf("pad %s: %w", p.FullName(), err)
			}
		}
	}
	return nil
}
