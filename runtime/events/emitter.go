package events

import "time"

// Emitter provides helpers for publishing harness events with shared metadata.
// A nil Emitter, or one without a bus, drops everything.
type Emitter struct {
	bus       *EventBus
	harnessID string
	element   string
}

// NewEmitter creates a new event emitter.
func NewEmitter(bus *EventBus, harnessID, element string) *Emitter {
	return &Emitter{
		bus:       bus,
		harnessID: harnessID,
		element:   element,
	}
}

// emit publishes an event with shared context fields.
func (e *Emitter) emit(eventType EventType, data EventData) {
	if e == nil || e.bus == nil {
		return
	}

	e.bus.Publish(&Event{
		Type:      eventType,
		Timestamp: time.Now(),
		HarnessID: e.harnessID,
		Element:   e.element,
		Data:      data,
	})
}

// HarnessCreated emits the harness.created event.
func (e *Emitter) HarnessCreated(streamID string) {
	e.emit(EventHarnessCreated, HarnessEventData{StreamID: streamID})
}

// HarnessClosed emits the harness.closed event.
func (e *Emitter) HarnessClosed(streamID string, lifetime time.Duration, err error) {
	e.emit(EventHarnessClosed, HarnessEventData{
		StreamID: streamID,
		Lifetime: lifetime,
		Error:    err,
	})
}

// HarnessAborted emits harness.closed for a harness whose construction
// failed after it had started publishing.
func (e *Emitter) HarnessAborted(streamID string, lifetime time.Duration, err error) {
	e.emit(EventHarnessClosed, HarnessEventData{
		StreamID: streamID,
		Lifetime: lifetime,
		Error:    err,
		Aborted:  true,
	})
}

// PadLinked emits the pad.linked event.
func (e *Emitter) PadLinked(src, sink string) {
	e.emit(EventPadLinked, PadEventData{Src: src, Sink: sink})
}

// PadUnlinked emits the pad.unlinked event.
func (e *Emitter) PadUnlinked(src, sink string) {
	e.emit(EventPadUnlinked, PadEventData{Src: src, Sink: sink})
}

// StateChanged emits the element.state_changed event.
func (e *Emitter) StateChanged(from, to string, err error) {
	e.emit(EventStateChanged, StateChangedData{From: from, To: to, Error: err})
}

// CapsNegotiated emits the caps.negotiated event.
func (e *Emitter) CapsNegotiated(incaps, outcaps string, passthrough bool) {
	e.emit(EventCapsNegotiated, CapsEventData{
		InCaps:      incaps,
		OutCaps:     outcaps,
		Passthrough: passthrough,
	})
}

// CapsFailed emits the caps.failed event.
func (e *Emitter) CapsFailed(incaps string, err error) {
	e.emit(EventCapsFailed, CapsEventData{InCaps: incaps, Error: err})
}

// BufferPushed emits the buffer.pushed event.
func (e *Emitter) BufferPushed(pad string, size int, pts int64, duration time.Duration) {
	e.emit(EventBufferPushed, BufferEventData{
		Pad:      pad,
		Size:     size,
		PTS:      pts,
		Flow:     "ok",
		Duration: duration,
	})
}

// FlowFailed emits the flow.failed event.
func (e *Emitter) FlowFailed(pad string, size int, flow string, err error, duration time.Duration) {
	e.emit(EventFlowFailed, BufferEventData{
		Pad:      pad,
		Size:     size,
		Flow:     flow,
		Duration: duration,
		Error:    err,
	})
}

// BufferRecorded emits the buffer.recorded event.
func (e *Emitter) BufferRecorded(pad string, size int, pts int64) {
	e.emit(EventBufferRecorded, BufferEventData{
		Pad:  pad,
		Size: size,
		PTS:  pts,
		Flow: "ok",
	})
}

// ControlPushed emits the event.pushed event.
func (e *Emitter) ControlPushed(kind string, err error) {
	e.emit(EventControlPushed, ControlEventData{Kind: kind, Error: err})
}
