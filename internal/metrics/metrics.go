// Package metrics records per-operation counters and latencies for the
// waste entry service on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wastelog"

// OutcomeOK labels operations that returned no error.
const OutcomeOK = "ok"

// Recorder owns the service's collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// New creates a Recorder with its own registry, including Go runtime and
// process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Count of waste entry operations by operation and outcome.",
			},
			[]string{"op", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Latency of waste entry operations.",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"op"},
		),
	}
	r.registry.MustRegister(
		r.operations,
		r.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Observe records one finished operation. outcome is OutcomeOK or an error
// kind.
func (r *Recorder) Observe(op, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, outcome).Inc()
	r.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry for scraping and tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
