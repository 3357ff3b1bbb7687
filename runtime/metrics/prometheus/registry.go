package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Registry holds the harness metrics so a test can read them back or a
// long-running soak test can expose them for scraping.
type Registry struct {
	reg *prometheus.Registry
}

// RegistryOption configures a Registry.
type RegistryOption func(*prometheus.Registry)

// WithRuntimeCollectors adds the Go runtime and process collectors.
func WithRuntimeCollectors() RegistryOption {
	return func(reg *prometheus.Registry) {
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
}

// NewRegistry creates a registry with every harness metric registered.
func NewRegistry(opts ...RegistryOption) *Registry {
	reg := prometheus.NewRegistry()
	for _, collector := range allMetrics {
		reg.MustRegister(collector)
	}
	for _, opt := range opts {
		opt(reg)
	}
	return &Registry{reg: reg}
}

// Gatherer returns the registry for use with testutil or a custom exposition.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Register adds a collector, for example one owned by the stage under test.
func (r *Registry) Register(c prometheus.Collector) error {
	return r.reg.Register(c)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Value sums the samples of metric name whose labels include labels.
// Counters and gauges contribute their value, histograms their sample count.
// A metric with no samples yet reads as zero.
func (r *Registry) Value(name string, labels map[string]string) (float64, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return 0, err
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			if matchLabels(m, labels) {
				total += sampleValue(mf.GetType(), m)
			}
		}
		return total, nil
	}
	return 0, nil
}

func matchLabels(m *dto.Metric, want map[string]string) bool {
	have := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		have[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

func sampleValue(kind dto.MetricType, m *dto.Metric) float64 {
	//exhaustive:ignore
	switch kind {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return m.GetUntyped().GetValue()
	}
}
