package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole admits callers whose role claim is one of roles. Claims are
// compared case-insensitively. Mount it after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToUpper(r)] = struct{}{}
	}
	msg := "requires role " + strings.Join(roles, " or ")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := allowed[strings.ToUpper(Role(c))]; !ok {
				return deny(c, http.StatusForbidden, "forbidden", "forbidden_role", msg)
			}
			return next(c)
		}
	}
}
