package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and database reachability for load
// balancers and monitoring.
type HealthHandler struct {
	DB Pinger
}

// Health returns 200 "ok" while the database answers a ping and 503
// otherwise. Without a DB it only reports liveness.
func (h *HealthHandler) Health(c echo.Context) error {
	if h == nil || h.DB == nil {
		return c.String(http.StatusOK, "ok")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		return c.String(http.StatusServiceUnavailable, "db unavailable")
	}
	return c.String(http.StatusOK, "ok")
}
