package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys written by JWTAuth.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// UserID returns the authenticated caller's id.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id > 0
}

// Role returns the caller's role claim, or "" when unauthenticated.
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}

// userKey is the caller identity used in rate limit and cache keys.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

// deny writes the error envelope shared with the handlers.
func deny(c echo.Context, status int, kind, code, message string) error {
	return c.JSON(status, echo.Map{"error": echo.Map{"kind": kind, "code": code, "message": message}})
}
