// Package metrics provides Prometheus metrics for jetrates runs.
//
// A chunk job is a short-lived batch process, so metrics are not scraped:
// the registry is dumped in text exposition format next to the rate outputs
// once the run finalizes.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultNamespace = "jetrates"
	defaultSubsystem = "scan"
)

// Default buckets for the max jet Et distribution, in GeV.
var defaultJetEtBuckets = []float64{5, 10, 20, 30, 40, 60, 80, 100, 150, 200, 300, 500} //nolint:gochecknoglobals // constant slice

// Manager manages all Prometheus metrics for a jetrates run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	jetEtBuckets     []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Scan metrics
	eventsScanned   prometheus.Counter
	eventsNoJets    prometheus.Counter
	totalEntries    prometheus.Gauge
	maxJetEt        prometheus.Histogram
	jetMultiplicity prometheus.Histogram
	scanDuration    prometheus.Histogram

	// Counter metrics
	counterFills    *prometheus.CounterVec
	counterFinalize *prometheus.CounterVec

	// Chunk metrics
	filesPlanned prometheus.Gauge
	chunkIndex   prometheus.Gauge
	totalJobs    prometheus.Gauge
	combineMode  prometheus.Gauge

	// Error metrics
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        defaultNamespace,
		subsystem:        defaultSubsystem,
		histogramBuckets: prometheus.DefBuckets,
		jetEtBuckets:     defaultJetEtBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // metric declarations
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.eventsScanned = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_total",
		Help:        "Total number of events read from the event source",
		ConstLabels: labels,
	})

	m.eventsNoJets = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "events_without_jets_total",
		Help:        "Events with no reconstructed jets (touch no counter)",
		ConstLabels: labels,
	})

	m.totalEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "entries",
		Help:        "Number of entries reported by the event source before the scan",
		ConstLabels: labels,
	})

	m.maxJetEt = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "max_jet_et_gev",
		Help:        "Distribution of the leading jet transverse energy per event",
		Buckets:     m.jetEtBuckets,
		ConstLabels: labels,
	})

	m.jetMultiplicity = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "jet_multiplicity",
		Help:        "Distribution of the number of jets per event",
		Buckets:     []float64{0, 1, 2, 3, 4, 6, 8, 12},
		ConstLabels: labels,
	})

	m.scanDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "duration_seconds",
		Help:        "Wall time spent in the event scan",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.counterFills = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "counter",
			Name:        "fills_total",
			Help:        "Accumulate calls per rate counter",
			ConstLabels: labels,
		},
		[]string{"counter"},
	)

	m.counterFinalize = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   "counter",
			Name:        "finalized_total",
			Help:        "Finalize calls per rate counter by outcome",
			ConstLabels: labels,
		},
		[]string{"counter", "outcome"},
	)

	m.filesPlanned = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "chunk",
		Name:        "files",
		Help:        "Number of input files owned by this chunk",
		ConstLabels: labels,
	})

	m.chunkIndex = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "chunk",
		Name:        "index",
		Help:        "Zero-based chunk index of this job",
		ConstLabels: labels,
	})

	m.totalJobs = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "chunk",
		Name:        "jobs",
		Help:        "Total number of chunk jobs the dataset is split into",
		ConstLabels: labels,
	})

	m.combineMode = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "chunk",
		Name:        "combine",
		Help:        "1 when the run re-finalizes stored counters instead of scanning",
		ConstLabels: labels,
	})

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Name:        "errors_total",
			Help:        "Total number of errors by component",
			ConstLabels: labels,
		},
		[]string{"component", "error_type"},
	)
}

// RecordEvent records one scanned event with its feature values.
func RecordEvent(maxJetEt float64, jetCount int) {
	globalManager.eventsScanned.Inc()
	globalManager.jetMultiplicity.Observe(float64(jetCount))
	if jetCount == 0 {
		globalManager.eventsNoJets.Inc()
		return
	}
	globalManager.maxJetEt.Observe(maxJetEt)
}

// UpdateTotalEntries sets the entry count reported by the event source.
func UpdateTotalEntries(n int64) {
	globalManager.totalEntries.Set(float64(n))
}

// RecordScanDuration records the scan wall time in seconds.
func RecordScanDuration(seconds float64) {
	globalManager.scanDuration.Observe(seconds)
}

// RecordCounterFill increments the fill count for a rate counter.
func RecordCounterFill(counter string) {
	globalManager.counterFills.WithLabelValues(counter).Inc()
}

// RecordCounterFinalize records the outcome of finalizing a rate counter.
func RecordCounterFinalize(counter string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	globalManager.counterFinalize.WithLabelValues(counter, outcome).Inc()
}

// UpdateChunk records the chunk assignment of this job.
func UpdateChunk(chunkIndex, totalJobs, files int, combine bool) {
	globalManager.chunkIndex.Set(float64(chunkIndex))
	globalManager.totalJobs.Set(float64(totalJobs))
	globalManager.filesPlanned.Set(float64(files))
	if combine {
		globalManager.combineMode.Set(1)
	} else {
		globalManager.combineMode.Set(0)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile dumps the registry to path in text exposition format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
