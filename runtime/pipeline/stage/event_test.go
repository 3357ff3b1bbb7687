package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventConstructors(t *testing.T) {
	ss1 := NewStreamStartEvent("a")
	ss2 := NewStreamStartEvent("b")
	assert.Equal(t, "a", ss1.StreamID())
	assert.NotEqual(t, ss1.GroupID(), ss2.GroupID())
	assert.Less(t, ss1.Seqnum(), ss2.Seqnum())
	assert.Equal(t, "stream-start(a)", ss1.String())

	caps := MustParseCaps("foo/x-bar")
	ce := NewCapsEvent(caps)
	assert.True(t, ce.Caps().IsEqual(caps))
	assert.Equal(t, "caps(foo/x-bar)", ce.String())

	seg := NewSegment(FormatTime)
	se := NewSegmentEvent(seg)
	seg.Start = 100
	assert.Equal(t, int64(0), se.Segment().Start, "segment is copied at creation")
	assert.Equal(t, FormatTime, se.Segment().Format)
	assert.Equal(t, 1.0, se.Segment().Rate)
	assert.Equal(t, int64(-1), se.Segment().Stop)

	assert.True(t, NewFlushStopEvent(true).ResetTime())
	assert.Nil(t, NewEOSEvent().Caps())
	assert.Nil(t, NewEOSEvent().Segment())
	assert.Equal(t, "eos", NewEOSEvent().String())
}

func TestEventTypeProperties(t *testing.T) {
	tests := []struct {
		typ        EventType
		name       string
		sticky     bool
		serialized bool
	}{
		{EventStreamStart, "stream-start", true, true},
		{EventCaps, "caps", true, true},
		{EventSegment, "segment", true, true},
		{EventEOS, "eos", true, true},
		{EventFlushStart, "flush-start", false, false},
		{EventFlushStop, "flush-stop", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.typ.String())
			assert.Equal(t, tt.sticky, tt.typ.IsSticky())
			assert.Equal(t, tt.serialized, tt.typ.IsSerialized())
		})
	}
}

func TestFlowReturnOf(t *testing.T) {
	assert.Equal(t, FlowOK, FlowReturnOf(nil))
	assert.Equal(t, FlowEOS, FlowReturnOf(NewFlowError("p", FlowEOS, ErrEOS)))
	assert.Equal(t, FlowNotNegotiated, FlowReturnOf(&NegotiationError{Element: "e", Err: ErrNoCommonCaps}))
	assert.Equal(t, FlowNotNegotiated, FlowReturnOf(ErrNotNegotiated))
	assert.Equal(t, FlowFailed, FlowReturnOf(assert.AnError))
	assert.Equal(t, "not-linked", FlowNotLinked.String())
	assert.Equal(t, "error", FlowFailed.String())
	assert.Equal(t, "flow(7)", FlowReturn(7).String())
	assert.Equal(t, "pad p: flow eos", NewFlowError("p", FlowEOS, nil).Error())
}
