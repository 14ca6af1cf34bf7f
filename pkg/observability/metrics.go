package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global metrics instance for singleton pattern
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Memory metrics
	MessagesRecorded *prometheus.CounterVec
	Consolidations   prometheus.Counter
	GraphResets      prometheus.Counter
	FallbackSize     prometheus.Gauge

	// Health metrics
	DegradedTransitions prometheus.Counter
	ReconciledRecords   prometheus.Counter

	// Simulation metrics
	SimulationJobs *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	// Use singleton pattern to avoid duplicate registration in tests
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	// Return existing collector if already created
	if globalCollector != nil {
		return globalCollector
	}

	// Create a new registry for this collector
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	messagesRecorded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_recorded_total",
			Help:      "Total number of short-term messages recorded, by write path",
		},
		[]string{"path"},
	)

	consolidations := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consolidations_total",
			Help:      "Total number of successful memory consolidations",
		},
	)

	graphResets := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_resets_total",
			Help:      "Total number of graph resets",
		},
	)

	fallbackSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fallback_cache_records",
			Help:      "Current number of records held in the fallback cache",
		},
	)

	degradedTransitions := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_transitions_total",
			Help:      "Total number of healthy to degraded transitions",
		},
	)

	reconciledRecords := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciled_records_total",
			Help:      "Total number of fallback records replayed into the graph store",
		},
	)

	simulationJobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_jobs_total",
			Help:      "Total number of simulation jobs by terminal status",
		},
		[]string{"status"},
	)

	// Register all metrics with the registry
	registry.MustRegister(
		httpRequests,
		httpDuration,
		messagesRecorded,
		consolidations,
		graphResets,
		fallbackSize,
		degradedTransitions,
		reconciledRecords,
		simulationJobs,
	)

	globalCollector = &Collector{
		registry:            registry,
		HTTPRequests:        httpRequests,
		HTTPDuration:        httpDuration,
		MessagesRecorded:    messagesRecorded,
		Consolidations:      consolidations,
		GraphResets:         graphResets,
		FallbackSize:        fallbackSize,
		DegradedTransitions: degradedTransitions,
		ReconciledRecords:   reconciledRecords,
		SimulationJobs:      simulationJobs,
	}

	return globalCollector
}

// ResetForTesting resets the global collector for testing purposes
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}
