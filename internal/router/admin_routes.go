package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/handler"
	"github.com/iliyamo/event-ticket-booking/internal/middleware"
	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// RegisterAdmin registers ADMIN-scoped event management under /v1/admin.
func RegisterAdmin(e *echo.Echo, h *handler.EventHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	g.POST("/events", h.Create)
	g.DELETE("/events/:id", h.Delete)
}
