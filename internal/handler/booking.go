package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// BookingService is implemented by *booking.Service.
type BookingService interface {
	CreateBooking(ctx context.Context, user model.Identity, eventID uint64, qty int) (model.Booking, error)
	CancelBooking(ctx context.Context, user model.Identity, bookingID uint64) (model.Booking, error)
	GetBooking(ctx context.Context, user model.Identity, bookingID uint64) (model.Booking, error)
	ListBookings(ctx context.Context, user model.Identity) ([]model.Booking, error)
}

// BookingHandler serves the authenticated /v1/bookings routes. Every
// service call runs under Timeout.
type BookingHandler struct {
	Svc     BookingService
	Timeout time.Duration
}

func NewBookingHandler(svc BookingService, timeout time.Duration) *BookingHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BookingHandler{Svc: svc, Timeout: timeout}
}

type createBookingReq struct {
	EventID  uint64 `json:"event_id"`
	Quantity int    `json:"quantity"`
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	b, err := h.Svc.CreateBooking(ctx, user, req.EventID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// ListMine handles GET /v1/bookings/me.
func (h *BookingHandler) ListMine(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	items, err := h.Svc.ListBookings(ctx, user)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	b, err := h.Svc.GetBooking(ctx, user, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Cancel handles DELETE /v1/bookings/:id. The booking is kept with status
// CANCELLED and returned.
func (h *BookingHandler) Cancel(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	b, err := h.Svc.CancelBooking(ctx, user, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
