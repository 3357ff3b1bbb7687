// Package prometheus provides Prometheus metrics for transform harness runs.
package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "zgstreamer"

var (
	// chainDuration is a histogram of the time a pushed buffer spent in the downstream chain.
	chainDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chain_duration_seconds",
			Help:      "Histogram of buffer push duration through the element under test in seconds",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"element"},
	)

	// buffersPushedTotal is a counter of buffers pushed into the element, by flow return.
	buffersPushedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffers_pushed_total",
			Help:      "Total number of buffers pushed into the element under test",
		},
		[]string{"element", "flow"}, // flow: ok, not-negotiated, flushing, eos, error...
	)

	// buffersRecordedTotal is a counter of buffers captured by the synthetic sink.
	buffersRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffers_recorded_total",
			Help:      "Total number of buffers recorded at the synthetic sink",
		},
		[]string{"element"},
	)

	// bufferBytesTotal is a counter of payload bytes entering and leaving the element.
	bufferBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_bytes_total",
			Help:      "Total payload bytes pushed in and recorded out",
		},
		[]string{"element", "direction"}, // direction: in, out
	)

	// capsNegotiationsTotal is a counter of caps negotiations.
	capsNegotiationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "caps_negotiations_total",
			Help:      "Total number of caps negotiations",
		},
		[]string{"element", "status", "passthrough"}, // status: success, error
	)

	// stateTransitionsTotal is a counter of element state change requests.
	stateTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of element state change requests",
		},
		[]string{"element", "from", "to", "status"},
	)

	// controlEventsTotal is a counter of control events pushed through the source.
	controlEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_events_total",
			Help:      "Total number of control events pushed into the element under test",
		},
		[]string{"element", "event", "status"},
	)

	// harnessesActive is a gauge of currently active harnesses.
	harnessesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "harnesses_active",
			Help:      "Number of currently active harnesses",
		},
	)

	// harnessLifetime is a histogram of harness lifetime from creation to close.
	harnessLifetime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "harness_lifetime_seconds",
			Help:      "Histogram of harness lifetime in seconds",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30},
		},
		[]string{"status"}, // status: success, error, aborted
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		chainDuration,
		buffersPushedTotal,
		buffersRecordedTotal,
		bufferBytesTotal,
		capsNegotiationsTotal,
		stateTransitionsTotal,
		controlEventsTotal,
		harnessesActive,
		harnessLifetime,
	}
)

// RecordBufferPushed records a buffer push and its flow return.
func RecordBufferPushed(element, flow string, bytes int, durationSeconds float64) {
	chainDuration.WithLabelValues(element).Observe(durationSeconds)
	buffersPushedTotal.WithLabelValues(element, flow).Inc()
	if bytes > 0 {
		bufferBytesTotal.WithLabelValues(element, "in").Add(float64(bytes))
	}
}

// RecordBufferRecorded records a buffer captured by the synthetic sink.
func RecordBufferRecorded(element string, bytes int) {
	buffersRecordedTotal.WithLabelValues(element).Inc()
	if bytes > 0 {
		bufferBytesTotal.WithLabelValues(element, "out").Add(float64(bytes))
	}
}

// RecordNegotiation records a caps negotiation.
func RecordNegotiation(element, status string, passthrough bool) {
	capsNegotiationsTotal.WithLabelValues(element, status, strconv.FormatBool(passthrough)).Inc()
}

// RecordStateChange records an element state change request.
func RecordStateChange(element, from, to, status string) {
	stateTransitionsTotal.WithLabelValues(element, from, to, status).Inc()
}

// RecordControlEvent records a control event pushed through the source.
func RecordControlEvent(element, event, status string) {
	controlEventsTotal.WithLabelValues(element, event, status).Inc()
}

// RecordHarnessStart records a harness becoming active.
func RecordHarnessStart() {
	harnessesActive.Inc()
}

// RecordHarnessAborted records a harness whose construction failed. It was
// never counted as active.
func RecordHarnessAborted(durationSeconds float64) {
	harnessLifetime.WithLabelValues(statusAborted).Observe(durationSeconds)
}

// RecordHarnessEnd records a harness close.
func RecordHarnessEnd(status string, durationSeconds float64) {
	harnessesActive.Dec()
	harnessLifetime.WithLabelValues(status).Observe(durationSeconds)
}
