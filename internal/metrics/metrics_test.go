package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(NewRegistry(false))

	m.Operation("guest.create", nil)
	m.Operation("guest.create", nil)
	m.Operation("guest.create", errors.New("x"))
	m.EventPublished("seating.saved", nil)
	m.GuestsImported(3)
	m.GuestsImported(-1)
	m.OrphanedSeats(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.planningOps.WithLabelValues("guest.create", OK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.planningOps.WithLabelValues("guest.create", Error)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("seating.saved", OK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.guestsImported))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.orphaned))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Operation("x", nil)
	m.EventPublished("x", nil)
	m.GuestsImported(1)
	m.OrphanedSeats(1)

	e := echo.New()
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, m.Middleware())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New(NewRegistry(true))
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/guests", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	for i := 0; i < 2; i++ {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/guests", nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/guests", "200")))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `wedding_planner_http_requests_total{method="GET",route="/guests",status="200"} 2`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
