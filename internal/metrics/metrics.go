// Package metrics exposes sync engine counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements services.Recorder.
type Recorder struct {
	registry     *prometheus.Registry
	operations   *prometheus.CounterVec
	stepFailures *prometheus.CounterVec
	localRecords prometheus.Gauge
	duration     *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gastos_sync_operations_total",
			Help: "Sync engine operations by outcome.",
		}, []string{"op", "outcome"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gastos_remote_step_failures_total",
			Help: "Failed remote steps absorbed by the sync engine.",
		}, []string{"step"}),
		localRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gastos_local_records",
			Help: "Expenses currently held in the local store.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gastos_sync_operation_duration_seconds",
			Help:    "Sync engine operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	r.registry.MustRegister(
		r.operations, r.stepFailures, r.localRecords, r.duration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) ObserveOperation(op string, ok bool, seconds float64) {
	outcome := "ok"
	if !ok {
		outcome = "partial"
	}
	r.operations.WithLabelValues(op, outcome).Inc()
	r.duration.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RemoteStepFailed(step string) {
	r.stepFailures.WithLabelValues(step).Inc()
}

func (r *Recorder) SetLocalRecords(n int) {
	r.localRecords.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests and for registering extra collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
