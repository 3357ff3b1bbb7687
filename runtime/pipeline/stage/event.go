package stage

import (
	"fmt"
	"sync/atomic"
)

// EventType identifies a control event travelling alongside buffers.
type EventType int

const (
	// EventStreamStart opens a new stream and must precede all other data.
	EventStreamStart EventType = iota + 1
	// EventCaps announces the format of the following buffers.
	EventCaps
	// EventSegment announces the playback range of the following buffers.
	EventSegment
	// EventEOS marks the end of the stream.
	EventEOS
	// EventFlushStart makes pads drop data until EventFlushStop.
	EventFlushStart
	// EventFlushStop ends a flush and resets the running segment.
	EventFlushStop
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventStreamStart:
		return "stream-start"
	case EventCaps:
		return "caps"
	case EventSegment:
		return "segment"
	case EventEOS:
		return "eos"
	case EventFlushStart:
		return "flush-start"
	case EventFlushStop:
		return "flush-stop"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// IsSticky reports whether pads keep the last event of this type.
func (t EventType) IsSticky() bool {
	switch t {
	case EventStreamStart, EventCaps, EventSegment, EventEOS:
		return true
	}
	return false
}

// IsSerialized reports whether the event travels in order with buffers.
// Flush events bypass the data stream.
func (t EventType) IsSerialized() bool {
	return t != EventFlushStart && t != EventFlushStop
}

var (
	eventSeqnum  atomic.Uint32
	groupCounter atomic.Uint32
)

// Event is an immutable control event.
type Event struct {
	typ       EventType
	seqnum    uint32
	streamID  string
	groupID   uint32
	caps      *Caps
	segment   *Segment
	resetTime bool
}

func newEvent(t EventType) *Event {
	return &Event{typ: t, seqnum: eventSeqnum.Add(1)}
}

// NewStreamStartEvent creates a stream-start event with a fresh group id.
func NewStreamStartEvent(streamID string) *Event {
	e := newEvent(EventStreamStart)
	e.streamID = streamID
	e.groupID = groupCounter.Add(1)
	return e
}

// NewCapsEvent creates a caps event. The caps are copied.
func NewCapsEvent(caps *Caps) *Event {
	e := newEvent(EventCaps)
	e.caps = caps.Copy()
	return e
}

// NewSegmentEvent creates a segment event. The segment is copied.
func NewSegmentEvent(segment *Segment) *Event {
	e := newEvent(EventSegment)
	e.segment = segment.Copy()
	return e
}

// NewEOSEvent creates an end-of-stream event.
func NewEOSEvent() *Event {
	return newEvent(EventEOS)
}

// NewFlushStartEvent creates a flush-start event.
func NewFlushStartEvent() *Event {
	return newEvent(EventFlushStart)
}

// NewFlushStopEvent creates a flush-stop event.
func NewFlushStopEvent(resetTime bool) *Event {
	e := newEvent(EventFlushStop)
	e.resetTime = resetTime
	return e
}

// Type returns the event type.
func (e *Event) Type() EventType { return e.typ }

// Seqnum returns the sequence number assigned at creation.
func (e *Event) Seqnum() uint32 { return e.seqnum }

// StreamID returns the stream id of a stream-start event.
func (e *Event) StreamID() string { return e.streamID }

// GroupID returns the group id of a stream-start event.
func (e *Event) GroupID() uint32 { return e.groupID }

// Caps returns a copy of the caps of a caps event, or nil.
func (e *Event) Caps() *Caps {
	if e.caps == nil {
		return nil
	}
	return e.caps.Copy()
}

// Segment returns a copy of the segment of a segment event, or nil.
func (e *Event) Segment() *Segment {
	if e.segment == nil {
		return nil
	}
	return e.segment.Copy()
}

// ResetTime reports whether a flush-stop event resets running time.
func (e *Event) ResetTime() bool { return e.resetTime }

// String formats the event for logs.
func (e *Event) String() string {
	switch e.typ {
	case EventStreamStart:
		return fmt.Sprintf("stream-start(%s)", e.streamID)
	case EventCaps:
		return fmt.Sprintf("caps(%s)", e.caps)
	case EventSegment:
		return e.segment.String()
	default:
		return e.typ.String()
	}
}
