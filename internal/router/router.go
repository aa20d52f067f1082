package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/handler"
	"github.com/iliyamo/event-ticket-booking/internal/middleware"
	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// RegisterRoutes registers routes that need no authentication outside the
// API groups. Currently only the health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers signup and login under /v1/auth and the caller's
// profile at /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin))
}

// RegisterPublic registers the unauthenticated event browse endpoints.
// cache wraps every route in the group; pass nil to disable caching.
func RegisterPublic(e *echo.Echo, h *handler.EventHandler, cache echo.MiddlewareFunc) {
	var mws []echo.MiddlewareFunc
	if cache != nil {
		mws = append(mws, cache)
	}
	g := e.Group("/v1/events", mws...)
	g.GET("", h.List)
	g.GET("/upcoming", h.Upcoming)
	g.GET("/top", h.Top)
	g.GET("/search", h.Search)
	g.GET("/category/:category", h.ByCategory)
	g.GET("/:id", h.Get)
}
