package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger attaches l to the request context, so handlers can use
// zerolog.Ctx, and writes one line per request once the response is done.
func RequestLogger(l zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			reqLog := l.With().Str("method", req.Method).Str("path", req.URL.Path).Logger()
			c.SetRequest(req.WithContext(reqLog.WithContext(req.Context())))

			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			ev := reqLog.Info()
			switch {
			case status >= 500:
				ev = reqLog.Error()
			case status >= 400:
				ev = reqLog.Warn()
			}
			if id, ok := UserID(c); ok {
				ev = ev.Uint64("user_id", id)
			}
			ev.Int("status", status).
				Str("route", c.Path()).
				Dur("latency", time.Since(start)).
				Str("ip", c.RealIP()).
				Msg("request")
			return nil
		}
	}
}
