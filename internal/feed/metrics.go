package feed

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "factionwatch"

// Metrics counts what the listener and the reconcilers do. A nil *Metrics
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FramesReceived    prometheus.Counter
	FramesDropped     *prometheus.CounterVec
	ProcessorFailures *prometheus.CounterVec
	Reconciliations   *prometheus.CounterVec
	RowsPruned        *prometheus.CounterVec
	ReconcileDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames received from the feed",
		}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Frames skipped before reaching processors",
		}, []string{"reason"}),
		ProcessorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processor_failures_total",
			Help:      "Failed processor invocations",
		}, []string{"processor", "kind"}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Committed reconciliations",
		}, []string{"processor"}),
		RowsPruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_pruned_total",
			Help:      "Rows removed because an event no longer listed them",
		}, []string{"processor"}),
		ReconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Reconciliation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"processor"}),
	}

	registry.MustRegister(
		m.FramesReceived,
		m.FramesDropped,
		m.ProcessorFailures,
		m.Reconciliations,
		m.RowsPruned,
		m.ReconcileDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) frameReceived() {
	if m != nil {
		m.FramesReceived.Inc()
	}
}

func (m *Metrics) frameDropped(reason string) {
	if m != nil {
		m.FramesDropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) processorFailed(processor, kind string) {
	if m != nil {
		m.ProcessorFailures.WithLabelValues(processor, kind).Inc()
	}
}

// Reconciled records one committed reconciliation.
func (m *Metrics) Reconciled(processor string, elapsed time.Duration, pruned int64) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(processor).Inc()
	m.RowsPruned.WithLabelValues(processor).Add(float64(pruned))
	m.ReconcileDuration.WithLabelValues(processor).Observe(elapsed.Seconds())
}
