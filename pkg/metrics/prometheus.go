// Package metrics provides Prometheus metrics for the speedcube results service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Competition metrics
	resultsSubmitted  *prometheus.CounterVec
	roundsOpened      prometheus.Counter
	roundsCleared     prometheus.Counter
	competitorsSeeded prometheus.Counter
	advancersSelected prometheus.Counter
	openRounds        prometheus.Gauge
	totalCompetitors  prometheus.Gauge
	totalResults      prometheus.Gauge
	rankingLatency    prometheus.Histogram

	// Store metrics
	storeQueryLatency *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec

	// Feed metrics
	feedPublished     *prometheus.CounterVec
	feedPublishErrors prometheus.Counter
	feedSubscribers   prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "speedcube",
		subsystem:        "results",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.resultsSubmitted = auto.NewCounterVec(m.counter("results_submitted_total",
		"Total number of results submitted by scoring format"), []string{"format"})
	m.roundsOpened = auto.NewCounter(m.counter("rounds_opened_total",
		"Total number of rounds opened"))
	m.roundsCleared = auto.NewCounter(m.counter("rounds_cleared_total",
		"Total number of rounds cleared"))
	m.competitorsSeeded = auto.NewCounter(m.counter("competitors_seeded_total",
		"Total number of competitor rows seeded into opened rounds"))
	m.advancersSelected = auto.NewCounter(m.counter("advancers_selected_total",
		"Total number of competitors advanced from a previous round"))
	m.openRounds = auto.NewGauge(m.gauge("open_rounds",
		"Current number of open rounds"))
	m.totalCompetitors = auto.NewGauge(m.gauge("competitors",
		"Current number of registered competitors"))
	m.totalResults = auto.NewGauge(m.gauge("result_rows",
		"Current number of result rows across all rounds"))
	m.rankingLatency = auto.NewHistogram(m.histogram("ranking_latency_milliseconds",
		"Time spent ranking a round in milliseconds"))

	m.storeQueryLatency = auto.NewHistogramVec(m.histogram("store_query_latency_milliseconds",
		"Store operation latency in milliseconds"), []string{"operation"})
	m.storeErrors = auto.NewCounterVec(m.counter("store_errors_total",
		"Total number of failed store operations"), []string{"operation"})

	m.feedPublished = auto.NewCounterVec(m.counter("feed_messages_published_total",
		"Total number of round feed messages published by type"), []string{"type"})
	m.feedPublishErrors = auto.NewCounter(m.counter("feed_publish_errors_total",
		"Total number of round feed publish failures"))
	m.feedSubscribers = auto.NewGauge(m.gauge("feed_subscribers",
		"Current number of round feed subscribers"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.errorRateByType = auto.NewCounterVec(m.counter("errors_by_type_total",
		"Total number of errors by type"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counter("errors_by_endpoint_total",
		"Total number of errors by endpoint"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes",
		"System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count",
		"Number of goroutines"))
}

// RecordResultSubmitted counts a stored result for the given scoring format.
func RecordResultSubmitted(format string) {
	globalManager.resultsSubmitted.WithLabelValues(format).Inc()
}

// RecordRoundOpened increments the opened rounds counter.
func RecordRoundOpened() {
	globalManager.roundsOpened.Inc()
}

// RecordRoundCleared increments the cleared rounds counter.
func RecordRoundCleared() {
	globalManager.roundsCleared.Inc()
}

// RecordCompetitorsSeeded adds n seeded rows.
func RecordCompetitorsSeeded(n int) {
	globalManager.competitorsSeeded.Add(float64(n))
}

// RecordAdvancersSelected adds n advanced competitors.
func RecordAdvancersSelected(n int) {
	globalManager.advancersSelected.Add(float64(n))
}

// UpdateOpenRounds sets the open rounds gauge.
func UpdateOpenRounds(n int) {
	globalManager.openRounds.Set(float64(n))
}

// UpdateTotalCompetitors sets the competitors gauge.
func UpdateTotalCompetitors(n int) {
	globalManager.totalCompetitors.Set(float64(n))
}

// UpdateTotalResults sets the result rows gauge.
func UpdateTotalResults(n int) {
	globalManager.totalResults.Set(float64(n))
}

// RecordRankingLatency records ranking latency in milliseconds.
func RecordRankingLatency(latencyMs float64) {
	globalManager.rankingLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records the latency of a store operation.
func RecordStoreQueryLatency(operation string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// RecordFeedPublished counts a published feed message.
func RecordFeedPublished(kind string) {
	globalManager.feedPublished.WithLabelValues(kind).Inc()
}

// RecordFeedPublishError counts a failed feed publish.
func RecordFeedPublishError() {
	globalManager.feedPublishErrors.Inc()
}

// AddFeedSubscribers moves the subscriber gauge by delta.
func AddFeedSubscribers(delta int) {
	globalManager.feedSubscribers.Add(float64(delta))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
