package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ramstk/internal/analysis"
)

var _ analysis.MetricsRecorder = (*PrometheusRecorder)(nil)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "ramstk"

// PrometheusRecorder counts and times analysis operations.
type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the analysis metrics with reg.
func NewPrometheusRecorder(namespace string, reg prometheus.Registerer) (*PrometheusRecorder, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	r := &PrometheusRecorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "operations_total",
				Help:      "Analysis manager operations partitioned by operation and status.",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "analysis",
				Name:      "operation_duration_seconds",
				Help:      "Time taken by analysis manager operations.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"operation"},
		),
	}
	if reg != nil {
		if err := reg.Register(r); err != nil {
			return nil, fmt.Errorf("register analysis metrics: %w", err)
		}
	}
	return r, nil
}

// Observe implements analysis.MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, d time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// Describe implements prometheus.Collector.
func (r *PrometheusRecorder) Describe(ch chan<- *prometheus.Desc) {
	r.operations.Describe(ch)
	r.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (r *PrometheusRecorder) Collect(ch chan<- prometheus.Metric) {
	r.operations.Collect(ch)
	r.duration.Collect(ch)
}

// OperationCounter exposes the operation counter for inspection.
func (r *PrometheusRecorder) OperationCounter() *prometheus.CounterVec { return r.operations }
