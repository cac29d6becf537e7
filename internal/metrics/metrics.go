// Package metrics owns the Prometheus registry exposed at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wedding_planner"

// Outcome label values.
const (
	OK    = "ok"
	Error = "error"
)

// Metrics groups the collectors recorded by the HTTP layer, the planning
// service and the event publisher. All methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	planningOps    *prometheus.CounterVec
	events         *prometheus.CounterVec
	guestsImported prometheus.Counter
	orphaned       prometheus.Counter
}

// NewRegistry creates a registry. With processMetrics the Go runtime and
// process collectors are registered too.
func NewRegistry(processMetrics bool) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if processMetrics {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return reg
}

// New registers every collector on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		planningOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planning",
			Name:      "operations_total",
			Help:      "Guest and seating operations by name and outcome.",
		}, []string{"op", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Planning events handed to the broker, by type and outcome.",
		}, []string{"type", "outcome"}),
		guestsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planning",
			Name:      "guests_imported_total",
			Help:      "Guests created through bulk import.",
		}),
		orphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "planning",
			Name:      "orphaned_seats_total",
			Help:      "Seat entries found pointing at guests that no longer exist.",
		}),
	}
	reg.MustRegister(m.requests, m.latency, m.planningOps, m.events, m.guestsImported, m.orphaned)
	return m
}

// Operation counts one planning operation.
func (m *Metrics) Operation(op string, err error) {
	if m == nil {
		return
	}
	m.planningOps.WithLabelValues(op, outcome(err)).Inc()
}

// EventPublished counts one publish attempt.
func (m *Metrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome(err)).Inc()
}

func (m *Metrics) GuestsImported(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.guestsImported.Add(float64(n))
}

func (m *Metrics) OrphanedSeats(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.orphaned.Add(float64(n))
}

// Middleware records request counts and latency keyed by route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if m == nil {
			return next
		}
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func outcome(err error) string {
	if err != nil {
		return Error
	}
	return OK
}
