package stage

import (
	"errors"
	"fmt"
)

// FlowReturn is the result of pushing data or events through a pad link.
type FlowReturn int

const (
	// FlowOK means the data was accepted.
	FlowOK FlowReturn = 0
	// FlowNotLinked means the pad has no peer.
	FlowNotLinked FlowReturn = -1
	// FlowFlushing means the pad is inactive or flushing.
	FlowFlushing FlowReturn = -2
	// FlowEOS means the pad already received end-of-stream.
	FlowEOS FlowReturn = -3
	// FlowNotNegotiated means no caps were agreed before data arrived.
	FlowNotNegotiated FlowReturn = -4
	// FlowFailed is a fatal error from the receiving side.
	FlowFailed FlowReturn = -5
	// FlowNotSupported means the receiving pad cannot handle the operation.
	FlowNotSupported FlowReturn = -6
)

// String returns the short name of the flow return.
func (f FlowReturn) String() string {
	switch f {
	case FlowOK:
		return "ok"
	case FlowNotLinked:
		return "not-linked"
	case FlowFlushing:
		return "flushing"
	case FlowEOS:
		return "eos"
	case FlowNotNegotiated:
		return "not-negotiated"
	case FlowFailed:
		return "error"
	case FlowNotSupported:
		return "not-supported"
	default:
		return fmt.Sprintf("flow(%d)", int(f))
	}
}

// Common errors
var (
	// ErrNotLinked is returned when a pad has no peer.
	ErrNotLinked = errors.New("pad is not linked")

	// ErrAlreadyLinked is returned when linking a pad that already has a peer.
	ErrAlreadyLinked = errors.New("pad is already linked")

	// ErrWrongDirection is returned when linking or pushing on a pad of the wrong direction.
	ErrWrongDirection = errors.New("pad has the wrong direction")

	// ErrPadInactive is returned when data reaches a pad that is not active.
	ErrPadInactive = errors.New("pad is not active")

	// ErrFlushing is returned when data reaches a flushing pad.
	ErrFlushing = errors.New("pad is flushing")

	// ErrEOS is returned when data reaches a pad after end-of-stream.
	ErrEOS = errors.New("pad received end-of-stream")

	// ErrNoStreamStart is returned when data is pushed before a stream-start event.
	ErrNoStreamStart = errors.New("data flow before stream-start event")

	// ErrNoSegment is returned when data is pushed before a segment event.
	ErrNoSegment = errors.New("data flow before segment event")

	// ErrNoChainFunction is returned when a sink pad has no chain function installed.
	ErrNoChainFunction = errors.New("pad has no chain function")

	// ErrCapsNotAccepted is returned when a pad refuses caps outside its template.
	ErrCapsNotAccepted = errors.New("caps not accepted")

	// ErrCapsNotFixed is returned when caps used for data flow are not fixed.
	ErrCapsNotFixed = errors.New("caps are not fixed")

	// ErrNoCommonCaps is returned when two caps sets have no intersection.
	ErrNoCommonCaps = errors.New("no common caps")

	// ErrNotNegotiated is returned when data arrives before caps were negotiated.
	ErrNotNegotiated = errors.New("caps not negotiated")

	// ErrInvalidState is returned when asking an element for a state that does not exist.
	ErrInvalidState = errors.New("invalid element state")

	// ErrDuplicatePad is returned when adding a pad whose name is already taken.
	ErrDuplicatePad = errors.New("duplicate pad name")

	// ErrNilEvent is returned when pushing or sending a nil event.
	ErrNilEvent = errors.New("nil event")
)

// LinkError describes a failed pad link or unlink.
type LinkError struct {
	Src  string
	Sink string
	Err  error
}

// Error returns the error message.
func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s -> %s failed: %v", e.Src, e.Sink, e.Err)
}

// Unwrap returns the underlying error.
func (e *LinkError) Unwrap() error {
	return e.Err
}

// FlowError carries a non-OK FlowReturn out of a push or chain call.
type FlowError struct {
	Pad    string
	Return FlowReturn
	Err    error
}

// NewFlowError creates a FlowError for the given pad.
func NewFlowError(pad string, ret FlowReturn, err error) *FlowError {
	return &FlowError{Pad: pad, Return: ret, Err: err}
}

// Error returns the error message.
func (e *FlowError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("pad %s: flow %s", e.Pad, e.Return)
	}
	return fmt.Sprintf("pad %s: flow %s: %v", e.Pad, e.Return, e.Err)
}

// Unwrap returns the underlying error.
func (e *FlowError) Unwrap() error {
	return e.Err
}

// NegotiationError describes caps that could not be agreed on.
type NegotiationError struct {
	Element string
	Caps    *Caps
	Err     error
}

// Error returns the error message.
func (e *NegotiationError) Error() string {
	return fmt.Sprintf("element '%s' failed to negotiate %s: %v", e.Element, e.Caps, e.Err)
}

// Unwrap returns the underlying error.
func (e *NegotiationError) Unwrap() error {
	return e.Err
}

// StateTransitionError is returned when an element refuses a state change.
type StateTransitionError struct {
	Element string
	From    State
	To      State
	Err     error
}

// Error returns the error message.
func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("element '%s' failed to change state %s -> %s: %v", e.Element, e.From, e.To, e.Err)
}

// Unwrap returns the underlying error.
func (e *StateTransitionError) Unwrap() error {
	return e.Err
}

// FlowReturnOf maps an error returned by a push, chain or event call to a FlowReturn.
// A nil error is FlowOK; negotiation failures map to FlowNotNegotiated and any
// other untyped error to FlowFailed.
func FlowReturnOf(err error) FlowReturn {
	if err == nil {
		return FlowOK
	}
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return flowErr.Return
	}
	var negErr *NegotiationError
	if errors.As(err, &negErr) || errors.Is(err, ErrNotNegotiated) {
		return FlowNotNegotiated
	}
	return FlowFailed
}
