package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

// Metrics holds the process's Prometheus collectors. Every method is safe on
// a nil receiver so metrics can be switched off by not constructing one.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	proxyCalls   *prometheus.CounterVec
	proxyLatency *prometheus.HistogramVec

	settingsSaves       *prometheus.CounterVec
	settingsSaveLatency prometheus.Histogram
	settingsDirty       prometheus.Gauge

	nameLookups *prometheus.CounterVec

	busPublished *prometheus.CounterVec

	pgStats *prometheus.GaugeVec
	redisUp prometheus.Gauge
}

// NewMetrics registers collectors on a private registry, so several
// instances (one per test) can coexist.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fd_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fd_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "fd_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		proxyCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fd_submission_proxy_calls_total",
			Help: "Submission proxy calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		proxyLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fd_submission_proxy_duration_seconds",
			Help:    "Submission proxy call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		settingsSaves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fd_view_settings_saves_total",
			Help: "View settings saves by status.",
		}, []string{"status"}),
		settingsSaveLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fd_view_settings_save_duration_seconds",
			Help:    "View settings save latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		settingsDirty: f.NewGauge(prometheus.GaugeOpts{
			Name: "fd_view_settings_dirty_forms",
			Help: "Forms with unsaved view settings.",
		}),
		nameLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fd_form_name_lookups_total",
			Help: "Form name lookups by result (resolved, fallback, cached).",
		}, []string{"result"}),
		busPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fd_bus_published_total",
			Help: "View settings events published to the bus by status.",
		}, []string{"status"}),
		pgStats: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "fd_db_pool",
			Help: "Database pool statistics.",
		}, []string{"stat"}),
		redisUp: f.NewGauge(prometheus.GaugeOpts{
			Name: "fd_redis_up",
			Help: "1 when the last redis ping succeeded.",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveProxy(operation string, ok bool, dur time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.proxyCalls.WithLabelValues(operation, outcome).Inc()
	m.proxyLatency.WithLabelValues(operation).Observe(dur.Seconds())
}

func (m *Metrics) ObserveSettingsSave(err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.settingsSaves.WithLabelValues(status).Inc()
	m.settingsSaveLatency.Observe(dur.Seconds())
}

func (m *Metrics) SetDirtyForms(n int) {
	if m == nil {
		return
	}
	m.settingsDirty.Set(float64(n))
}

func (m *Metrics) IncNameLookup(result string) {
	if m == nil {
		return
	}
	m.nameLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) IncBusPublish(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.busPublished.WithLabelValues(status).Inc()
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil && !errors.Is(err, context.Canceled) {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
			}
		}
	}()
}
