// Package metrics provides Prometheus metrics for the sentinel risk pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets in milliseconds.
var defaultLatencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // shared bucket layout

// Score buckets cover the additive rule table (max theoretical score is well under 400).
var defaultScoreBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 100, 120, 150, 200, 300} //nolint:gochecknoglobals // shared bucket layout

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace      string
	subsystem      string
	metricPrefix   string
	latencyBuckets []float64
	scoreBuckets   []float64
	constLabels    map[string]string
	registry       prometheus.Registerer

	// Scoring
	eventsScored      *prometheus.CounterVec
	scoreDistribution prometheus.Histogram
	evaluationLatency prometheus.Histogram

	// Reputation lookups
	reputationLookups *prometheus.CounterVec
	reputationLatency prometheus.Histogram

	// Event store
	storeOperations *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec

	// Queue
	queuePushes        prometheus.Counter
	queuePops          prometheus.Counter
	queueErrors        *prometheus.CounterVec
	queueNotifications prometheus.Counter
	queueLength        prometheus.Gauge

	// Dispatch worker
	dispatchOutcomes *prometheus.CounterVec
	dispatchAttempts prometheus.Counter
	dispatchLatency  prometheus.Histogram
	deadLetters      *prometheus.CounterVec
	workerIdle       prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegisterer(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "sentinel",
		subsystem:      "risk",
		latencyBuckets: defaultLatencyBuckets,
		scoreBuckets:   defaultScoreBuckets,
		constLabels:    make(map[string]string),
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	counterVec := func(name, help string, lbls ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		}, lbls)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels, Buckets: buckets,
		})
	}

	m.eventsScored = counterVec("events_scored_total", "Events scored by the rule engine, by verdict", "verdict")
	m.scoreDistribution = histogram("event_score", "Distribution of final rule scores", m.scoreBuckets)
	m.evaluationLatency = histogram("evaluation_latency_milliseconds", "End-to-end ingestion latency in milliseconds", m.latencyBuckets)

	m.reputationLookups = counterVec("reputation_lookups_total", "IP reputation lookups by resulting status", "status")
	m.reputationLatency = histogram("reputation_latency_milliseconds", "IP reputation lookup latency in milliseconds", m.latencyBuckets)

	m.storeOperations = counterVec("store_operations_total", "Event store operations by operation and result", "op", "result")
	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("store_latency_milliseconds"),
		Help: "Event store latency in milliseconds", ConstLabels: labels, Buckets: m.latencyBuckets,
	}, []string{"op"})

	m.queuePushes = counter("queue_pushes_total", "Messages pushed to the durable queue")
	m.queuePops = counter("queue_pops_total", "Messages popped from the durable queue")
	m.queueErrors = counterVec("queue_errors_total", "Durable queue errors by operation", "op")
	m.queueNotifications = counter("queue_notifications_total", "Advisory new-work notifications published")
	m.queueLength = gauge("queue_length", "Current durable queue backlog")

	m.dispatchOutcomes = counterVec("dispatch_outcomes_total", "Alert worker terminal outcomes per message", "outcome")
	m.dispatchAttempts = counter("dispatch_attempts_total", "Outbound webhook attempts including retries")
	m.dispatchLatency = histogram("dispatch_latency_milliseconds", "Webhook dispatch latency in milliseconds", m.latencyBuckets)
	m.deadLetters = counterVec("dead_letters_total", "Dead-letter writes by sink and result", "sink", "result")
	m.workerIdle = gauge("worker_idle", "1 while the alert worker is blocked waiting for work")

	m.httpRequests = counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("http_request_duration_milliseconds"),
		Help: "HTTP request duration in milliseconds", ConstLabels: labels, Buckets: m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = counterVec("errors_by_component_total", "Errors by component and error type", "component", "error_type")
	m.errorRateByType = counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordEventScored counts a scored event and observes its score.
func RecordEventScored(verdict string, score int) {
	globalManager.eventsScored.WithLabelValues(verdict).Inc()
	globalManager.scoreDistribution.Observe(float64(score))
}

// RecordEvaluationLatency records the full ingestion pipeline latency.
func RecordEvaluationLatency(latencyMs float64) {
	globalManager.evaluationLatency.Observe(latencyMs)
}

// RecordReputationLookup counts a lookup by resulting status and records its latency.
func RecordReputationLookup(status string, latencyMs float64) {
	globalManager.reputationLookups.WithLabelValues(status).Inc()
	globalManager.reputationLatency.Observe(latencyMs)
}

// RecordStoreOperation records an event store call.
func RecordStoreOperation(op string, err error, latencyMs float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	globalManager.storeOperations.WithLabelValues(op, result).Inc()
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordQueuePush increments the push counter.
func RecordQueuePush() {
	globalManager.queuePushes.Inc()
}

// RecordQueuePop increments the pop counter.
func RecordQueuePop() {
	globalManager.queuePops.Inc()
}

// RecordQueueError counts a queue failure for op (push, pop, notify, requeue, len).
func RecordQueueError(op string) {
	globalManager.queueErrors.WithLabelValues(op).Inc()
}

// RecordQueueNotification counts a published notification.
func RecordQueueNotification() {
	globalManager.queueNotifications.Inc()
}

// UpdateQueueLength sets the backlog gauge.
func UpdateQueueLength(n int64) {
	globalManager.queueLength.Set(float64(n))
}

// RecordDispatchOutcome counts a terminal per-message outcome
// (skipped, dropped, delivered, failed, duplicate, requeued).
func RecordDispatchOutcome(outcome string) {
	globalManager.dispatchOutcomes.WithLabelValues(outcome).Inc()
}

// RecordDispatchAttempt counts a single outbound webhook call.
func RecordDispatchAttempt(latencyMs float64) {
	globalManager.dispatchAttempts.Inc()
	globalManager.dispatchLatency.Observe(latencyMs)
}

// RecordDeadLetter counts a dead-letter write.
func RecordDeadLetter(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	globalManager.deadLetters.WithLabelValues(sink, result).Inc()
}

// SetWorkerIdle flags whether the worker is blocked on the queue.
func SetWorkerIdle(idle bool) {
	if idle {
		globalManager.workerIdle.Set(1)
		return
	}
	globalManager.workerIdle.Set(0)
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records errors by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records errors by HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage updates system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount updates goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
