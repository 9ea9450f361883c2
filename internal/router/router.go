// Package router wires the HTTP routes of the ticketing API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/evenio/event-ticketing/internal/config"
	"github.com/evenio/event-ticketing/internal/handler"
	"github.com/evenio/event-ticketing/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication. Currently
// only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the auth endpoints. Register, login, refresh,
// logout and forgot-password are unauthenticated; /v1/me sits behind the
// Bearer-token middleware. All auth routes share a rate-limit bucket so
// credential stuffing burns through it quickly.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/forgot-password", a.ForgotPassword)

	me := e.Group("/v1")
	me.Use(middleware.JWTAuth(jwtSecret))
	me.Use(middleware.RequireRole("admin", "owner", "customer"))
	me.GET("/me", a.Me)
}

// RegisterEvents registers the event catalog endpoints. The public listing
// is cached; the create route authenticates the refresh-token cookie and
// requires the admin or owner role before the handler runs. Redirecting
// plain browser navigations away from these JSON routes (the
// x-requested-with gate) is left to the page-rendering front end that sits
// in front of this API.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, verifier middleware.SessionVerifier,
	rdb *redis.Client, cacheCfg config.CacheConfig, limit echo.MiddlewareFunc) {

	e.GET("/v1/events", h.List, limit, middleware.NewRedisCache(cacheCfg, rdb))
	e.POST("/v1/events", h.Create,
		limit,
		middleware.RefreshSession(verifier),
		middleware.RequireSessionRole("admin", "owner"),
	)
}
