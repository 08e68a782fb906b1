package metrics

import (
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.WebhookEvent("invoice.payment_succeeded", "processed")
	m.WebhookEvent("invoice.payment_succeeded", "processed")
	m.WebhookEvent("invoice.payment_succeeded", "duplicate")
	m.RoleSync("grant", "ok")
	m.RecordLoginAttempt(false)
	m.RecordContract(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.WebhookEventsTotal.WithLabelValues("invoice.payment_succeeded", "processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookEventsTotal.WithLabelValues("invoice.payment_succeeded", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoleSyncTotal.WithLabelValues("grant", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoginAttempts.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContractsGenerated.WithLabelValues("error")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/courses/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	})
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/courses/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/courses/:id", "200")))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `http_requests_total{method="GET",path="/api/courses/:id",status="200"} 3`))
}

func TestTrackDBPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	stats := sql.DBStats{OpenConnections: 4, InUse: 1, Idle: 3}
	m.TrackDBPool(func() sql.DBStats { return stats })

	expected := `
# HELP db_in_use_connections Database connections in use
# TYPE db_in_use_connections gauge
db_in_use_connections 1
# HELP db_open_connections Open database connections
# TYPE db_open_connections gauge
db_open_connections 4
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "db_open_connections", "db_in_use_connections"))

	count, err := testutil.GatherAndCount(reg, "db_idle_connections")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
