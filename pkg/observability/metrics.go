package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	PermissionDecisionsTotal *prometheus.CounterVec

	// Lifecycle metrics
	CascadeFailuresTotal  *prometheus.CounterVec
	CascadeRowsDeleted    *prometheus.CounterVec
	PendingRelationsPurge prometheus.Counter
	EventsPublishedTotal  *prometheus.CounterVec
	RateLimitedTotal      *prometheus.CounterVec

	// Database metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitCount        prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenancy_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tenancy_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		PermissionDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenancy_permission_decisions_total",
				Help: "Permission checks by check name and outcome",
			},
			[]string{"check", "decision"},
		),

		CascadeFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenancy_cascade_failures_total",
				Help: "Dependent deletes that failed after the primary delete succeeded",
			},
			[]string{"entity", "step"},
		),
		CascadeRowsDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenancy_cascade_rows_deleted_total",
				Help: "Rows removed by dependent deletes",
			},
			[]string{"entity", "step"},
		),
		PendingRelationsPurge: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tenancy_pending_relations_purged_total",
				Help: "Expired pending relations removed by the janitor",
			},
		),
		EventsPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenancy_events_published_total",
				Help: "Domain events and SMS messages handed to the broker",
			},
			[]string{"topic", "status"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tenancy_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"limiter"},
		),

		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tenancy_db_connections_open",
			Help: "Number of open database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tenancy_db_connections_in_use",
			Help: "Number of database connections in use",
		}),
		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tenancy_db_connections_idle",
			Help: "Number of idle database connections",
		}),
		DBWaitCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tenancy_db_connections_wait_count",
			Help: "Total number of connections waited for",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PermissionDecisionsTotal,
		m.CascadeFailuresTotal,
		m.CascadeRowsDeleted,
		m.PendingRelationsPurge,
		m.EventsPublishedTotal,
		m.RateLimitedTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBWaitCount,
	)

	return m
}

// RecordDecision implements rbac.DecisionRecorder
func (m *Metrics) RecordDecision(check string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.PermissionDecisionsTotal.WithLabelValues(check, decision).Inc()
}

func (m *Metrics) RecordCascade(entity, step string, rows int64, err error) {
	if err != nil {
		m.CascadeFailuresTotal.WithLabelValues(entity, step).Inc()
		return
	}
	m.CascadeRowsDeleted.WithLabelValues(entity, step).Add(float64(rows))
}

func (m *Metrics) RecordPurge(rows int64) {
	m.PendingRelationsPurge.Add(float64(rows))
}

func (m *Metrics) RecordPublish(topic string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.EventsPublishedTotal.WithLabelValues(topic, status).Inc()
}

func (m *Metrics) RecordRateLimited(limiter string) {
	m.RateLimitedTotal.WithLabelValues(limiter).Inc()
}

// RecordDBStats copies pool statistics into the gauges
func (m *Metrics) RecordDBStats(stats sql.DBStats) {
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBWaitCount.Set(float64(stats.WaitCount))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel uses the mux path template so ids do not explode cardinality
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Register it with router.Use so the matched route is known.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
