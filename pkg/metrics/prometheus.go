// Package metrics provides Prometheus metrics for the price watcher.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom histogram buckets for duration metrics.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry sets the registry metrics are registered on and served from.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// Manager owns every collector. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	observationsReceived  *prometheus.CounterVec
	observationsRecorded  *prometheus.CounterVec
	classificationRejects *prometheus.CounterVec
	priceParseErrors      *prometheus.CounterVec
	anomaliesDeleted      *prometheus.CounterVec
	reportsPublished      *prometheus.CounterVec
	sourceFetches         *prometheus.CounterVec
	sourceFetchDuration   *prometheus.HistogramVec
	cycleDuration         *prometheus.HistogramVec
}

// NewManager creates a metrics manager on its own registry unless one is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bestdeal",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}
	histogram := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      name,
			Help:      help,
			Buckets:   m.histogramBuckets,
		}, labels)
	}

	m.observationsReceived = counter("observations_received_total", "Vendor offers submitted for ingestion", "category")
	m.observationsRecorded = counter("observations_recorded_total", "Observations written after deduplication", "category")
	m.classificationRejects = counter("classification_rejected_total", "Offers skipped because they could not be classified", "category")
	m.priceParseErrors = counter("price_parse_errors_total", "Offers skipped because the price could not be parsed", "category")
	m.anomaliesDeleted = counter("anomalies_deleted_total", "Observations removed by the anomaly sweep", "category")
	m.reportsPublished = counter("reports_published_total", "Cheapest price reports published", "category")
	m.sourceFetches = counter("source_fetches_total", "Vendor page fetches by outcome", "source", "status")
	m.sourceFetchDuration = histogram("source_fetch_duration_seconds", "Vendor page fetch duration", "source")
	m.cycleDuration = histogram("cycle_duration_seconds", "Duration of one watch cycle", "category")
}

// Handler serves the manager's registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Manager) ObservationReceived(category string) {
	if m == nil {
		return
	}
	m.observationsReceived.WithLabelValues(category).Inc()
}

func (m *Manager) ObservationsRecorded(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.observationsRecorded.WithLabelValues(category).Add(float64(n))
}

func (m *Manager) ClassificationRejected(category string) {
	if m == nil {
		return
	}
	m.classificationRejects.WithLabelValues(category).Inc()
}

func (m *Manager) PriceParseFailed(category string) {
	if m == nil {
		return
	}
	m.priceParseErrors.WithLabelValues(category).Inc()
}

func (m *Manager) AnomaliesDeleted(category string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.anomaliesDeleted.WithLabelValues(category).Add(float64(n))
}

func (m *Manager) ReportPublished(category string) {
	if m == nil {
		return
	}
	m.reportsPublished.WithLabelValues(category).Inc()
}

// SourceFetched records one vendor fetch. status is "ok" or the error type.
func (m *Manager) SourceFetched(source, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sourceFetches.WithLabelValues(source, status).Inc()
	m.sourceFetchDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Manager) CycleCompleted(category string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cycleDuration.WithLabelValues(category).Observe(elapsed.Seconds())
}
