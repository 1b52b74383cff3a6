package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/exam-scheduler-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, cache, storage and scheduling runs.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	dbQueryDuration   *prometheus.HistogramVec
	runsTotal         *prometheus.CounterVec
	runDuration       prometheus.Observer
	examsPlaced       prometheus.Counter
	manualAssignments *prometheus.CounterVec
	violations        *prometheus.CounterVec
	conflicts         prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "group", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "group", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of repository calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_runs_total",
		Help: "Scheduling runs by final status",
	}, []string{"status"})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_run_duration_seconds",
		Help:    "Wall time of scheduling runs from lock to commit",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	examsPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_exams_placed_total",
		Help: "Exams placed by batch runs",
	})

	manualAssignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_manual_assignments_total",
		Help: "Manual assignment requests by outcome",
	}, []string{"outcome"})

	violations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_violations_total",
		Help: "Constraint violations reported to callers",
	}, []string{"kind"})

	conflicts := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_conflicts_detected",
		Help: "Conflicts found by the latest scan",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, dbQueryDuration,
		runsTotal, runDuration, examsPlaced, manualAssignments, violations, conflicts, goroutines,
	)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		dbQueryDuration:   dbQueryDuration,
		runsTotal:         runsTotal,
		runDuration:       runDuration,
		examsPlaced:       examsPlaced,
		manualAssignments: manualAssignments,
		violations:        violations,
		conflicts:         conflicts,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics under the route group and template.
func (m *MetricsService) ObserveHTTPRequest(method, group, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, group, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, group, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records repository call timing under a short label such as "snapshot" or "commit".
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveRun records one finished batch run.
func (m *MetricsService) ObserveRun(status string, placed int, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(duration.Seconds())
	if placed > 0 {
		m.examsPlaced.Add(float64(placed))
	}
}

// ObserveManualAssignment records a manual request outcome and any violation kinds it carried.
func (m *MetricsService) ObserveManualAssignment(outcome string, violations []models.ViolationKind) {
	if m == nil {
		return
	}
	m.manualAssignments.WithLabelValues(outcome).Inc()
	for _, kind := range violations {
		m.violations.WithLabelValues(string(kind)).Inc()
	}
}

// SetConflictsDetected publishes the size of the latest conflict scan.
func (m *MetricsService) SetConflictsDetected(count int) {
	if m == nil {
		return
	}
	m.conflicts.Set(float64(count))
}
