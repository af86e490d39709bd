package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the scheduling API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	availabilityDuration *prometheus.HistogramVec
	tutorChecks          *prometheus.CounterVec
	bookingConflicts     prometheus.Counter
	extensionRuns        *prometheus.CounterVec
	lessonsMaterialized  prometheus.Counter

	cacheLatency  prometheus.Observer
	cacheWrite    prometheus.Observer
	cacheHitRatio prometheus.Gauge
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter

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
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	availabilityDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "availability_request_duration_seconds",
		Help:    "Duration of availability aggregation and ranking requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	tutorChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_checks_total",
		Help: "Per-tutor availability check outcomes",
	}, []string{"outcome"})

	bookingConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_conflicts_total",
		Help: "Bookings rejected by the write-time conflict re-check",
	})

	extensionRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recurring_extension_runs_total",
		Help: "Recurring series extension attempts by result",
	}, []string{"result"})

	lessonsMaterialized := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "recurring_lessons_materialized_total",
		Help: "Lesson instances created by the series materializer",
	})

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

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, availabilityDuration, tutorChecks,
		bookingConflicts, extensionRuns, lessonsMaterialized,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:             registry,
		handler:              handler,
		requestDuration:      requestDuration,
		requestTotal:         requestTotal,
		availabilityDuration: availabilityDuration,
		tutorChecks:          tutorChecks,
		bookingConflicts:     bookingConflicts,
		extensionRuns:        extensionRuns,
		lessonsMaterialized:  lessonsMaterialized,
		cacheLatency:         cacheLatency,
		cacheWrite:           cacheWrite,
		cacheHitRatio:        cacheHitRatio,
		cacheHits:            cacheHits,
		cacheMisses:          cacheMisses,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveAvailabilityRequest times one aggregation or ranking request.
func (m *MetricsService) ObserveAvailabilityRequest(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.availabilityDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTutorCheck counts a single per-tutor check outcome.
func (m *MetricsService) RecordTutorCheck(outcome string) {
	if m == nil {
		return
	}
	m.tutorChecks.WithLabelValues(outcome).Inc()
}

// RecordBookingConflict counts a booking lost to the write-time re-check.
func (m *MetricsService) RecordBookingConflict() {
	if m == nil {
		return
	}
	m.bookingConflicts.Inc()
}

// RecordExtensionRun counts one extension attempt.
func (m *MetricsService) RecordExtensionRun(result string) {
	if m == nil {
		return
	}
	m.extensionRuns.WithLabelValues(result).Inc()
}

// RecordLessonsMaterialized adds to the materialized lesson counter.
func (m *MetricsService) RecordLessonsMaterialized(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.lessonsMaterialized.Add(float64(count))
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
