// Package router registers the HTTP routes of the planning API and the
// middleware that guards each group.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/wedding-planner/internal/config"
	"github.com/iliyamo/wedding-planner/internal/handler"
	"github.com/iliyamo/wedding-planner/internal/metrics"
	"github.com/iliyamo/wedding-planner/internal/middleware"
	"github.com/iliyamo/wedding-planner/internal/model"
)

// Guards are the shared middleware settings.
type Guards struct {
	JWTSecret   string
	Revocations middleware.RevocationChecker
	Redis       *redis.Client
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig
}

// Handlers are the endpoint implementations.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Planning *handler.PlanningHandler
	Wedding  *handler.WeddingHandler
	Profile  *handler.ProfileHandler
}

// New builds the Echo instance with every route registered.
func New(h Handlers, g Guards, m *metrics.Metrics, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log))
	e.Use(m.Middleware())

	RegisterRoutes(e, h.Health, m)
	RegisterAuth(e, h.Auth, g)
	RegisterPlanning(e, h.Planning, h.Wedding, g)
	RegisterProfiles(e, h.Profile, g)
	return e
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, health *handler.HealthHandler, m *metrics.Metrics) {
	e.GET("/healthz", health.Health)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAuth registers the auth endpoints. Signout requires a valid
// access token; the others exchange credentials or refresh tokens.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	grp := e.Group("/auth")
	grp.Use(middleware.NewTokenBucket(g.RateLimit, g.Redis))
	grp.POST("/register", a.Register)
	grp.POST("/login", a.Login)
	grp.POST("/refresh", a.Refresh)

	jwt := middleware.JWTAuth(g.JWTSecret, g.Revocations)
	grp.POST("/signout", a.Signout, jwt)
	grp.GET("/me", a.Me, jwt)
}

// RegisterPlanning registers the wedding, guest and seating chart routes.
// They are reserved to couples; writes share a smaller rate limit bucket.
func RegisterPlanning(e *echo.Echo, p *handler.PlanningHandler, w *handler.WeddingHandler, g Guards) {
	read := []echo.MiddlewareFunc{
		middleware.JWTAuth(g.JWTSecret, g.Revocations),
		middleware.RequireRole(model.RoleCouple),
		middleware.NewTokenBucket(g.RateLimit, g.Redis),
	}
	write := []echo.MiddlewareFunc{
		middleware.JWTAuth(g.JWTSecret, g.Revocations),
		middleware.RequireRole(model.RoleCouple),
		middleware.NewTokenBucket(g.RateLimit.WriteLimits(), g.Redis),
	}

	e.GET("/wedding", w.Get, read...)
	e.POST("/wedding", w.Create, write...)

	e.GET("/guests", p.ListGuests, read...)
	e.POST("/guests", p.PostGuests, write...)
	e.PATCH("/guests/:id/rsvp", p.SetRSVP, write...)
	e.POST("/guests/import", p.ImportGuests, write...)
	e.GET("/guests/export", p.ExportGuests, read...)
	e.GET("/guests/template", p.GuestTemplate, read...)

	e.GET("/seating-chart", p.GetChart, read...)
	e.PUT("/seating-chart", p.SaveChart, write...)
	e.DELETE("/seating-chart", p.DeleteChart, write...)
	e.POST("/seating-chart/assign", p.AssignSeat, write...)
	e.POST("/seating-chart/unassign", p.UnassignSeat, write...)
	e.POST("/seating-chart/move", p.MoveGuest, write...)
	e.POST("/seating-chart/reconcile", p.ReconcileChart, write...)
}

// RegisterProfiles registers public profile lookups. Any authenticated role
// may read them and responses are cached in Redis.
func RegisterProfiles(e *echo.Echo, prof *handler.ProfileHandler, g Guards) {
	grp := e.Group("/profiles",
		middleware.JWTAuth(g.JWTSecret, g.Revocations),
		middleware.RequireRole(model.RoleCouple, model.RoleVendor),
		middleware.NewTokenBucket(g.RateLimit, g.Redis),
		middleware.NewRedisCache(g.Cache, g.Redis),
	)
	grp.GET("/:id", prof.Get)
}
