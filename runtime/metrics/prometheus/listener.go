package prometheus

import (
	"github.com/chrisalex1117/zgstreamer/runtime/events"
)

// Status constants for metric labels.
const (
	statusSuccess = "success"
	statusError   = "error"
	statusAborted = "aborted"
)

// MetricsListener records harness events as Prometheus metrics.
// It implements the events.Listener signature and should be registered
// with an EventBus using SubscribeAll.
type MetricsListener struct{}

// NewMetricsListener creates a new MetricsListener.
func NewMetricsListener() *MetricsListener {
	return &MetricsListener{}
}

// Handle processes an event and records relevant metrics.
// This method is designed to be used with EventBus.SubscribeAll.
func (l *MetricsListener) Handle(event *events.Event) {
	//exhaustive:ignore
	switch event.Type {
	case events.EventHarnessCreated:
		RecordHarnessStart()
	case events.EventHarnessClosed:
		l.handleHarnessClosed(event)
	case events.EventBufferPushed, events.EventFlowFailed:
		l.handleBufferPushed(event)
	case events.EventBufferRecorded:
		l.handleBufferRecorded(event)
	case events.EventCapsNegotiated, events.EventCapsFailed:
		l.handleCaps(event)
	case events.EventStateChanged:
		l.handleStateChanged(event)
	case events.EventControlPushed:
		l.handleControlPushed(event)
	default:
		// Ignore events that don't have metrics
	}
}

func (l *MetricsListener) handleHarnessClosed(event *events.Event) {
	data, ok := event.Data.(events.HarnessEventData)
	if !ok {
		return
	}
	if data.Aborted {
		RecordHarnessAborted(data.Lifetime.Seconds())
		return
	}
	RecordHarnessEnd(statusOf(data.Error), data.Lifetime.Seconds())
}

func (l *MetricsListener) handleBufferPushed(event *events.Event) {
	if data, ok := event.Data.(events.BufferEventData); ok {
		RecordBufferPushed(event.Element, data.Flow, data.Size, data.Duration.Seconds())
	}
}

func (l *MetricsListener) handleBufferRecorded(event *events.Event) {
	if data, ok := event.Data.(events.BufferEventData); ok {
		RecordBufferRecorded(event.Element, data.Size)
	}
}

func (l *MetricsListener) handleCaps(event *events.Event) {
	if data, ok := event.Data.(events.CapsEventData); ok {
		RecordNegotiation(event.Element, statusOf(data.Error), data.Passthrough)
	}
}

func (l *MetricsListener) handleStateChanged(event *events.Event) {
	if data, ok := event.Data.(events.StateChangedData); ok {
		RecordStateChange(event.Element, data.From, data.To, statusOf(data.Error))
	}
}

func (l *MetricsListener) handleControlPushed(event *events.Event) {
	if data, ok := event.Data.(events.ControlEventData); ok {
		RecordControlEvent(event.Element, data.Kind, statusOf(data.Error))
	}
}

func statusOf(err error) string {
	if err != nil {
		return statusError
	}
	return statusSuccess
}

// Listener returns an events.Listener function that can be registered with an EventBus.
func (l *MetricsListener) Listener() events.Listener {
	return l.Handle
}
