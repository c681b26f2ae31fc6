// Package metrics exposes Prometheus counters for file operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ironshelf"

// Recorder holds the file manager's metrics. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	renameRetries prometheus.Counter
	duplicates    prometheus.Counter
}

// NewRecorder registers the file manager metrics on registry, or on a fresh
// registry when nil.
func NewRecorder(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	r := &Recorder{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "File operations by operation and result.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of file operations, including store round trips.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		renameRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rename_delete_retries_total",
			Help:      "Retries of the delete phase of a rename.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rename_duplicates_total",
			Help:      "Renames that copied the object but left the original behind.",
		}),
	}

	registry.MustRegister(r.operations, r.duration, r.renameRetries, r.duplicates)
	return r
}

// ObserveOperation counts one finished operation.
func (r *Recorder) ObserveOperation(operation string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.operations.WithLabelValues(operation, result).Inc()
	r.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (r *Recorder) RenameDeleteRetry() {
	if r == nil {
		return
	}
	r.renameRetries.Inc()
}

func (r *Recorder) RenameDuplicate() {
	if r == nil {
		return
	}
	r.duplicates.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
