package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the storefront Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Business metrics
	WebhookEventsTotal *prometheus.CounterVec
	RoleSyncTotal      *prometheus.CounterVec
	CheckoutsCreated   *prometheus.CounterVec
	LoginAttempts      *prometheus.CounterVec
	ContractsGenerated *prometheus.CounterVec
}

// New registers all collectors on reg. Pass a fresh registry in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_events_total",
				Help: "Stripe webhook deliveries by event type and outcome",
			},
			[]string{"type", "outcome"}, // processed, duplicate, skipped, ignored, error
		),
		RoleSyncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "role_sync_total",
				Help: "Discord role sync attempts by action and result",
			},
			[]string{"action", "result"}, // grant/revoke x ok/error/not_member
		),
		CheckoutsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkouts_created_total",
				Help: "Checkout sessions created by kind",
			},
			[]string{"kind"}, // course, membership
		),
		LoginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_attempts_total",
				Help: "Total number of admin login attempts",
			},
			[]string{"status"}, // success, failed
		),
		ContractsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contracts_generated_total",
				Help: "Contracts generated by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WebhookEventsTotal,
		m.RoleSyncTotal,
		m.CheckoutsCreated,
		m.LoginAttempts,
		m.ContractsGenerated,
	)
	return m
}

// NewWithRuntime registers the storefront collectors plus Go runtime and process collectors
func NewWithRuntime() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(reg)
}

// TrackDBPool exports connection pool gauges read from stats at scrape time
func (m *Metrics) TrackDBPool(stats func() sql.DBStats) {
	gauge := func(name, help string, value func(sql.DBStats) int) prometheus.GaugeFunc {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return float64(value(stats()))
		})
	}
	m.registry.MustRegister(
		gauge("db_open_connections", "Open database connections", func(s sql.DBStats) int { return s.OpenConnections }),
		gauge("db_in_use_connections", "Database connections in use", func(s sql.DBStats) int { return s.InUse }),
		gauge("db_idle_connections", "Idle database connections", func(s sql.DBStats) int { return s.Idle }),
	)
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			// Route pattern keeps label cardinality bounded
			path := c.Path()
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			labels := []string{req.Method, path, strconv.Itoa(status)}
			m.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
			m.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// WebhookEvent counts one webhook delivery
func (m *Metrics) WebhookEvent(eventType, outcome string) {
	m.WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// RoleSync counts one role sync attempt
func (m *Metrics) RoleSync(action, result string) {
	m.RoleSyncTotal.WithLabelValues(action, result).Inc()
}

// RecordCheckout counts a created checkout session
func (m *Metrics) RecordCheckout(kind string) {
	m.CheckoutsCreated.WithLabelValues(kind).Inc()
}

// RecordLoginAttempt increments login attempts counter
func (m *Metrics) RecordLoginAttempt(success bool) {
	status := "failed"
	if success {
		status = "success"
	}
	m.LoginAttempts.WithLabelValues(status).Inc()
}

// RecordContract counts a contract generation attempt
func (m *Metrics) RecordContract(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ContractsGenerated.WithLabelValues(result).Inc()
}
