// Package metrics provides Prometheus metrics for the Pulse scoring
// service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default metric configuration.
const (
	defaultNamespace       = "pulse"
	defaultRefreshInterval = 5 * time.Second
)

// Manager owns the metric vectors and the registry they live in.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	enabled          bool
	registry         prometheus.Registerer
	gatherer         *prometheus.Registry

	// Ingest
	readingsIngested  *prometheus.CounterVec
	readingsDuplicate prometheus.Counter
	readingsRejected  *prometheus.CounterVec

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueues    prometheus.Counter
	queueDequeues    prometheus.Counter
	queueErrors      *prometheus.CounterVec

	// Worker
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter
	workerActive  prometheus.Gauge

	// Repository
	repoInsertLatency prometheus.Histogram
	repoQueryLatency  prometheus.Histogram
	repoErrors        prometheus.Counter

	// Scoring and estimation
	scoresComputed    prometheus.Counter
	scoreValue        prometheus.Gauge
	scoresUnavailable prometheus.Counter
	dwellGated        prometheus.Counter
	profilesLearned   prometheus.Counter
	profileConfidence prometheus.Gauge

	// HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	// System
	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
	systemGCPause    prometheus.Histogram
}

var (
	defaultManager *Manager
	managerOnce    sync.Once
)

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	managerOnce.Do(func() {
		defaultManager = NewManager()
	})
}

// NewManager creates a metrics manager with configuration options.
func NewManager(opts ...Option) *Manager {
	registry := prometheus.NewRegistry()
	m := &Manager{
		namespace:        defaultNamespace,
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		enabled:          true,
		registry:         registry,
		gatherer:         registry,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	factory := func(name, help string) prometheus.Opts {
		return prometheus.Opts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      name,
			Help:      help,
		}
	}

	m.readingsIngested = prometheus.NewCounterVec(prometheus.CounterOpts(factory(
		"readings_ingested_total", "Sensor readings accepted for processing, by source.")), []string{"source"})
	m.readingsDuplicate = prometheus.NewCounter(prometheus.CounterOpts(factory(
		"readings_duplicate_total", "Readings dropped as already seen.")))
	m.readingsRejected = prometheus.NewCounterVec(prometheus.CounterOpts(factory(
		"readings_rejected_total", "Readings rejected before enqueue, by reason.")), []string{"reason"})

	m.queueSize = prometheus.NewGauge(prometheus.GaugeOpts(factory(
		"queue_size", "Current number of queued readings.")))
	m.queueCapacity = prometheus.NewGauge(prometheus.GaugeOpts(factory(
		"queue_capacity", "Configured queue capacity.")))
	m.queueUtilization = prometheus.NewGauge(prometheus.GaugeOpts(factory(
		"queue_utilization", "Queue fill ratio 0-1.")))
	m.queueEnqueues = prometheus.NewCounter(prometheus.CounterOpts(factory(
		"queue_enqueues_total", "Successful enqueues.")))
	m.queueDequeues = prometheus.NewCounter(prometheus.CounterOpts(factory(
		"queue_dequeues_total", "Successful dequeues.")))
	m.queueErrors = prometheus.NewCounterVec(prometheus.CounterOpts(factory(
		"queue_errors_total", "Enqueue failures, by cause.")), []string{"cause"})

	m.workerLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "worker_processing_latency_ms", Help: "Per-reading worker latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.workerErrors = prometheus.NewCounter(prometheus.CounterOpts(factory(
		"worker_errors_total", "Worker processing failures.")))
	m.workerActive = prometheus.NewGauge(prometheus.GaugeOpts(factory(
		"worker_active", "Number of running ingest workers.")))

	m.repoInsertLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "repository_insert_latency_ms", Help: "Reading insert latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.repoQueryLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "repository_query_latency_ms", Help: "Reading query latency in milliseconds.",
		Buckets: m.histogramBuckets,
	})
	m.repoErrors = prometheus.NewCounter(prometheus.CounterOpts(factory(
		"repository_errors_total", "Repository operation failures.")))

	m.scoresComputed = prometheus.NewCounter(prometheus.CounterOpts(factory(
		"scores_computed_total", "Pulse scores produced.")))
	m.scoreValue = prometheus.NewGauge(prometheus.GaugeOpts(factory(
		"score_value", "Most recent blended pulse score.")))
	m.scoresUnavailable = prometheus.NewCounter(prometheus.CounterOpts(factory(
		"scores_unavailable_total", "Score requests with no factor data at all.")))
	m.dwellGated = prometheus.NewCounter(prometheus.CounterOpts(factory(
		"dwell_estimates_gated_total", "Dwell estimates discarded by the sanity band.")))
	m.profilesLearned = prometheus.NewCounter(prometheus.CounterOpts(factory(
		"profiles_learned_total", "Learner refresh runs completed.")))
	m.profileConfidence = prometheus.NewGauge(prometheus.GaugeOpts(factory(
		"profile_confidence", "Learning confidence of the most recently learned profile.")))

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts(factory(
		"http_requests_total", "HTTP requests, by endpoint, method and status.")), []string{"endpoint", "method", "status"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_request_duration_ms", Help: "HTTP request duration in milliseconds.",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method"})

	m.systemMemory = prometheus.NewGauge(prometheus.GaugeOpts(factory(
		"system_memory_bytes", "Allocated heap bytes.")))
	m.systemGoroutines = prometheus.NewGauge(prometheus.GaugeOpts(factory(
		"system_goroutines", "Current goroutine count.")))
	m.systemGCPause = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_gc_pause_ms", Help: "Average GC pause in milliseconds.",
		Buckets: m.histogramBuckets,
	})

	m.registry.MustRegister(
		m.readingsIngested, m.readingsDuplicate, m.readingsRejected,
		m.queueSize, m.queueCapacity, m.queueUtilization,
		m.queueEnqueues, m.queueDequeues, m.queueErrors,
		m.workerLatency, m.workerErrors, m.workerActive,
		m.repoInsertLatency, m.repoQueryLatency, m.repoErrors,
		m.scoresComputed, m.scoreValue, m.scoresUnavailable,
		m.dwellGated, m.profilesLearned, m.profileConfidence,
		m.httpRequests, m.httpDuration,
		m.systemMemory, m.systemGoroutines, m.systemGCPause,
	)
}

// Package-level helpers against the default manager.

// RecordReadingIngested counts an accepted reading by source
// ("mqtt" or "http").
func RecordReadingIngested(source string) {
	defaultManager.readingsIngested.WithLabelValues(source).Inc()
}

// RecordReadingDuplicate counts a reading dropped as already seen.
func RecordReadingDuplicate() {
	defaultManager.readingsDuplicate.Inc()
}

// RecordReadingRejected counts a reading rejected before enqueue.
func RecordReadingRejected(reason string) {
	defaultManager.readingsRejected.WithLabelValues(reason).Inc()
}

// UpdateQueueSize sets the current queue depth.
func UpdateQueueSize(size int) {
	defaultManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the configured queue capacity.
func UpdateQueueCapacity(capacity int) {
	defaultManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	defaultManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts a successful enqueue.
func RecordQueueEnqueue() {
	defaultManager.queueEnqueues.Inc()
}

// RecordQueueDequeue counts a successful dequeue.
func RecordQueueDequeue() {
	defaultManager.queueDequeues.Inc()
}

// RecordQueueEnqueueError counts an enqueue failure by cause.
func RecordQueueEnqueueError(cause string) {
	defaultManager.queueErrors.WithLabelValues(cause).Inc()
}

// RecordWorkerProcessingLatency observes one reading's worker latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	defaultManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError counts a worker processing failure.
func RecordWorkerError() {
	defaultManager.workerErrors.Inc()
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	defaultManager.workerActive.Set(float64(count))
}

// RecordRepositoryInsertLatency observes a reading insert.
func RecordRepositoryInsertLatency(latencyMs float64) {
	defaultManager.repoInsertLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency observes a reading query.
func RecordRepositoryQueryLatency(latencyMs float64) {
	defaultManager.repoQueryLatency.Observe(latencyMs)
}

// RecordRepositoryError counts a repository failure.
func RecordRepositoryError() {
	defaultManager.repoErrors.Inc()
}

// RecordScoreComputed counts a produced score and records its value.
func RecordScoreComputed(score float64) {
	defaultManager.scoresComputed.Inc()
	defaultManager.scoreValue.Set(score)
}

// RecordScoreUnavailable counts a score request with no factor data.
func RecordScoreUnavailable() {
	defaultManager.scoresUnavailable.Inc()
}

// RecordDwellGated counts a dwell estimate discarded by its sanity band.
func RecordDwellGated() {
	defaultManager.dwellGated.Inc()
}

// RecordProfileLearned counts a learner run and records its confidence.
func RecordProfileLearned(confidence float64) {
	defaultManager.profilesLearned.Inc()
	defaultManager.profileConfidence.Set(confidence)
}

// RecordHTTPRequest counts one HTTP request.
func RecordHTTPRequest(endpoint, method, status string) {
	defaultManager.httpRequests.WithLabelValues(endpoint, method, status).Inc()
}

// RecordHTTPRequestDuration observes one HTTP request's duration.
func RecordHTTPRequestDuration(endpoint, method string, durationMs float64) {
	defaultManager.httpDuration.WithLabelValues(endpoint, method).Observe(durationMs)
}

// UpdateSystemMemoryUsage sets the allocated heap bytes gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	defaultManager.systemMemory.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	defaultManager.systemGoroutines.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	defaultManager.systemGCPause.Observe(pauseMs)
}

// GetRegistry returns the gatherable registry behind the default manager.
func GetRegistry() *prometheus.Registry {
	return defaultManager.gatherer
}
