package events

import (
	"time"
)

// EventType identifies the type of event emitted while a harness drives an element.
type EventType string

const (
	// EventHarnessCreated marks a harness reaching the active state.
	EventHarnessCreated EventType = "harness.created"
	// EventHarnessClosed marks harness teardown.
	EventHarnessClosed EventType = "harness.closed"

	// EventPadLinked marks a successful pad link.
	EventPadLinked EventType = "pad.linked"
	// EventPadUnlinked marks a pad unlink.
	EventPadUnlinked EventType = "pad.unlinked"

	// EventStateChanged marks an element state change request (success or failure).
	EventStateChanged EventType = "element.state_changed"

	// EventCapsNegotiated marks a successful caps negotiation.
	EventCapsNegotiated EventType = "caps.negotiated"
	// EventCapsFailed marks a failed caps negotiation.
	EventCapsFailed EventType = "caps.failed"

	// EventBufferPushed marks a buffer accepted by the downstream chain.
	EventBufferPushed EventType = "buffer.pushed"
	// EventBufferRecorded marks a buffer captured by the synthetic sink.
	EventBufferRecorded EventType = "buffer.recorded"
	// EventFlowFailed marks a push that returned a non-OK flow.
	EventFlowFailed EventType = "flow.failed"

	// EventControlPushed marks a control event (stream-start, segment, eos...) injected upstream.
	EventControlPushed EventType = "event.pushed"
)

// EventData is a marker interface for event payloads.
type EventData interface {
	eventData()
}

// Event represents a runtime event delivered to listeners.
type Event struct {
	Type      EventType
	Timestamp time.Time
	HarnessID string
	Element   string
	Data      EventData
}

// baseEventData provides a shared marker implementation for all event payloads.
type baseEventData struct{}

func (baseEventData) eventData() {}

// HarnessEventData is the payload for harness.created and harness.closed.
type HarnessEventData struct {
	baseEventData
	StreamID string
	Lifetime time.Duration // Set on closed
	Error    error         // Set when teardown reported a problem
	Aborted  bool          // Set when construction failed before the harness became active
}

// PadEventData is the payload for pad.linked and pad.unlinked.
type PadEventData struct {
	baseEventData
	Src  string
	Sink string
}

// StateChangedData is the payload for element.state_changed.
type StateChangedData struct {
	baseEventData
	From  string
	To    string
	Error error
}

// CapsEventData is the payload for caps.negotiated and caps.failed.
// OutCaps is empty on failure.
type CapsEventData struct {
	baseEventData
	InCaps      string
	OutCaps     string
	Passthrough bool
	Error       error
}

// BufferEventData is the payload for buffer.pushed, buffer.recorded and flow.failed.
type BufferEventData struct {
	baseEventData
	Pad      string
	Size     int
	PTS      int64
	Flow     string        // Flow return name, "ok" on success
	Duration time.Duration // Time spent in the downstream chain; zero for recorded
	Error    error
}

// ControlEventData is the payload for event.pushed.
type ControlEventData struct {
	baseEventData
	Kind  string
	Error error
}
