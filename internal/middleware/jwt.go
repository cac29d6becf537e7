package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/wedding-planner/internal/utils"
)

// RevocationChecker reports when a user last signed out.
type RevocationChecker interface {
	RevokedSince(ctx context.Context, userID uint64) (time.Time, bool, error)
}

// JWTAuth validates a Bearer access token and stores the caller's id
// (uint64) and role under CtxUserID and CtxRole. Tokens issued at or before
// the user's last signout are rejected. revocations may be nil; a failing
// revocation lookup is logged and the token is accepted.
func JWTAuth(secret string, revocations RevocationChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return deny(c, http.StatusUnauthorized, "unauthorized", "missing_token", "missing bearer token")
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return deny(c, http.StatusUnauthorized, "unauthorized", "invalid_token", "invalid token")
			}

			if revocations != nil {
				ctx := c.Request().Context()
				at, ok, err := revocations.RevokedSince(ctx, claims.UserID)
				switch {
				case err != nil:
					zerolog.Ctx(ctx).Warn().Err(err).Uint64("user_id", claims.UserID).Msg("revocation lookup failed")
				case ok && !claims.IssuedAt.After(at):
					return deny(c, http.StatusUnauthorized, "unauthorized", "session_revoked", "session has been signed out")
				}
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}
