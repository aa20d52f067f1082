package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/handler"
	"github.com/iliyamo/event-ticket-booking/internal/middleware"
	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// RegisterBooking registers the booking endpoints. Every route requires a
// valid JWT; ownership of individual bookings is enforced by the service.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1/bookings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	g.POST("", h.Create)
	g.GET("/me", h.ListMine)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Cancel)
}
