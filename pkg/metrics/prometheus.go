// Package metrics provides Prometheus metrics for the skillmatch service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// scoreBuckets cover the usual 0-100 weight convention.
var scoreBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	registry       prometheus.Registerer

	// Scoring
	submissionsScored    prometheus.Counter
	submissionsRejected  *prometheus.CounterVec
	submissionsDuplicate prometheus.Counter
	matchScore           prometheus.Histogram
	scoringLatency       prometheus.Histogram
	thresholdMatches     *prometheus.CounterVec

	// Ranking
	rankingQueries prometheus.Counter
	rankingLatency prometheus.Histogram
	rankingSize    prometheus.Histogram

	// Inventory
	projectsTotal prometheus.Gauge
	resultsTotal  prometheus.Gauge

	// Repository
	repositoryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "skillmatch",
		subsystem:      "engine",
		latencyBuckets: prometheus.DefBuckets,
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.submissionsScored = m.counter("submissions_scored_total", "Submissions scored and stored")
	m.submissionsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "submissions_rejected_total",
		Help: "Submissions rejected before scoring, by reason",
	}, []string{"reason"})
	m.submissionsDuplicate = m.counter("submissions_duplicate_total", "Retried submissions answered from the idempotency cache")
	m.matchScore = m.histogram("match_score", "Distribution of computed match scores", scoreBuckets)
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Time spent in the scoring engine", m.latencyBuckets)
	m.thresholdMatches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "threshold_evaluations_total",
		Help: "Threshold match evaluations by outcome",
	}, []string{"matched"})

	m.rankingQueries = m.counter("ranking_queries_total", "Ranking queries served")
	m.rankingLatency = m.histogram("ranking_latency_milliseconds", "Ranking query latency", m.latencyBuckets)
	m.rankingSize = m.histogram("ranking_size", "Number of entries returned per ranking", prometheus.ExponentialBuckets(1, 2, 12))

	m.projectsTotal = m.gauge("projects_total", "Projects currently registered")
	m.resultsTotal = m.gauge("results_total", "Scoring results currently stored")

	m.repositoryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "repository_latency_milliseconds",
		Help:    "Repository operation latency by store and operation",
		Buckets: m.latencyBuckets,
	}, []string{"store", "operation"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_by_component_total",
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordSubmissionScored counts a stored submission and observes its score.
func RecordSubmissionScored(score float64) {
	globalManager.submissionsScored.Inc()
	globalManager.matchScore.Observe(score)
}

// RecordSubmissionRejected counts a submission that failed validation or lookup.
func RecordSubmissionRejected(reason string) {
	globalManager.submissionsRejected.WithLabelValues(reason).Inc()
}

// RecordSubmissionDuplicate counts a retried submission.
func RecordSubmissionDuplicate() {
	globalManager.submissionsDuplicate.Inc()
}

// RecordScoringLatency records engine latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordThresholdEvaluation counts a threshold evaluation by outcome.
func RecordThresholdEvaluation(matched bool) {
	label := "false"
	if matched {
		label = "true"
	}
	globalManager.thresholdMatches.WithLabelValues(label).Inc()
}

// RecordRankingQuery records a ranking query with its latency and size.
func RecordRankingQuery(latencyMs float64, size int) {
	globalManager.rankingQueries.Inc()
	globalManager.rankingLatency.Observe(latencyMs)
	globalManager.rankingSize.Observe(float64(size))
}

// UpdateProjectsTotal sets the registered project count.
func UpdateProjectsTotal(count int) {
	globalManager.projectsTotal.Set(float64(count))
}

// UpdateResultsTotal sets the stored result count.
func UpdateResultsTotal(count int) {
	globalManager.resultsTotal.Set(float64(count))
}

// RecordRepositoryLatency records a repository operation latency.
func RecordRepositoryLatency(store, operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(store, operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry backing the package-level recorders.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
