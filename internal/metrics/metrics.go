// Package metrics provides Prometheus metrics for the busboard service.
package metrics

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Upstream API metrics, labelled by endpoint ("route", "route-stop", "stop", "eta")
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
	UpstreamRetriesTotal    *prometheus.CounterVec

	// Pipeline metrics
	ResolutionsTotal      *prometheus.CounterVec
	ResolutionsSuperseded prometheus.Counter
	ETAStopFailuresTotal  prometheus.Counter
	CatalogRoutes         prometheus.Gauge
	CatalogCacheEntries   prometheus.Gauge

	// logger for error reporting
	logger *slog.Logger

	// collectorStarted prevents spawning multiple collector goroutines
	collectorStarted atomic.Bool

	// cancel stops the cache stats collector goroutine
	cancel context.CancelFunc

	// wg tracks the collector goroutine for graceful shutdown
	wg sync.WaitGroup
}

// New creates and registers all application metrics with a new registry.
func New() *Metrics {
	return NewWithLogger(nil)
}

// NewWithLogger creates metrics with a logger for error reporting.
func NewWithLogger(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "busboard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "busboard_http_request_duration_seconds",
				Help:    "HTTP request latency distribution",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		UpstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "busboard_upstream_requests_total",
				Help: "Requests sent to the ETA open-data API",
			},
			[]string{"endpoint", "outcome"},
		),
		UpstreamRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "busboard_upstream_request_duration_seconds",
				Help:    "Upstream request latency distribution",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		UpstreamRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "busboard_upstream_retries_total",
				Help: "Retries scheduled after a failed upstream attempt",
			},
			[]string{"operation"},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "busboard_resolutions_total",
				Help: "Route resolutions by final outcome",
			},
			[]string{"outcome"},
		),
		ResolutionsSuperseded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busboard_resolutions_superseded_total",
			Help: "Resolutions discarded because a newer selection started",
		}),
		ETAStopFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busboard_eta_stop_failures_total",
			Help: "Per-stop ETA fetches that failed and were shown as empty",
		}),
		CatalogRoutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busboard_catalog_routes",
			Help: "Number of route variants in the last loaded catalog",
		}),
		CatalogCacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busboard_catalog_cache_entries",
			Help: "Entries currently held by the upstream response cache",
		}),
		logger: logger,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.UpstreamRequestsTotal,
		m.UpstreamRequestDuration,
		m.UpstreamRetriesTotal,
		m.ResolutionsTotal,
		m.ResolutionsSuperseded,
		m.ETAStopFailuresTotal,
		m.CatalogRoutes,
		m.CatalogCacheEntries,
	)

	return m
}

// ObserveHTTP records one served request. path should be the route pattern,
// not the raw URL.
func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveUpstream records one upstream call. A nil *Metrics is a no-op so
// components can run without instrumentation in tests.
func (m *Metrics) ObserveUpstream(endpoint string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveRetry counts one scheduled retry of operation.
func (m *Metrics) ObserveRetry(operation string) {
	if m == nil {
		return
	}
	m.UpstreamRetriesTotal.WithLabelValues(operation).Inc()
}

// ObserveResolution counts a finished route resolution.
func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSuperseded counts a resolution whose result was discarded.
func (m *Metrics) ObserveSuperseded() {
	if m == nil {
		return
	}
	m.ResolutionsSuperseded.Inc()
}

// ObserveETAStopFailure counts a stop whose ETA fetch failed.
func (m *Metrics) ObserveETAStopFailure() {
	if m == nil {
		return
	}
	m.ETAStopFailuresTotal.Inc()
}

// SetCatalogRoutes records the size of the last loaded catalog.
func (m *Metrics) SetCatalogRoutes(n int) {
	if m == nil {
		return
	}
	m.CatalogRoutes.Set(float64(n))
}

// StartCacheStatsCollector starts a goroutine that periodically samples the
// response cache size. size is called from the collector goroutine and must
// be safe for concurrent use.
// This method is idempotent - calling it multiple times has no effect after the first call.
// Call Shutdown() to stop the collector.
func (m *Metrics) StartCacheStatsCollector(size func() int, interval time.Duration) {
	if size == nil || interval <= 0 {
		return
	}

	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Add to WaitGroup BEFORE exposing cancel to avoid race with Shutdown
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				if m.logger != nil {
					m.logger.Error("panic in cache stats collector", "error", r)
				}
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		m.CatalogCacheEntries.Set(float64(size()))
		for {
			select {
			case <-ticker.C:
				m.CatalogCacheEntries.Set(float64(size()))
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the collector goroutine and waits for it to exit.
// This method is safe to call multiple times.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
