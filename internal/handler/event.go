package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/repository"
)

// EventCatalog is implemented by *repository.EventRepo.
type EventCatalog interface {
	Get(ctx context.Context, id uint64) (model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	Upcoming(ctx context.Context, from time.Time) ([]model.Event, error)
	Search(ctx context.Context, query string) ([]model.Event, error)
	ByCategory(ctx context.Context, category string) ([]model.Event, error)
	TopBooked(ctx context.Context, limit int) ([]repository.EventPopularity, error)
	Create(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, id uint64) error
}

// EventHandler serves public browsing and admin event management. Purge,
// when set, drops cached browse responses after admin writes.
type EventHandler struct {
	Events  EventCatalog
	Purge   func(ctx context.Context) error
	Timeout time.Duration
	Now     func() time.Time
}

func NewEventHandler(events EventCatalog, purge func(ctx context.Context) error, timeout time.Duration) *EventHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EventHandler{Events: events, Purge: purge, Timeout: timeout, Now: time.Now}
}

const topEventsLimit = 3

func (h *EventHandler) list(c echo.Context, fetch func(ctx context.Context) ([]model.Event, error)) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	items, err := fetch(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// List handles GET /v1/events.
func (h *EventHandler) List(c echo.Context) error {
	return h.list(c, h.Events.List)
}

// Upcoming handles GET /v1/events/upcoming: events from today on.
func (h *EventHandler) Upcoming(c echo.Context) error {
	today := h.Now().UTC().Truncate(24 * time.Hour)
	return h.list(c, func(ctx context.Context) ([]model.Event, error) {
		return h.Events.Upcoming(ctx, today)
	})
}

// Search handles GET /v1/events/search?query=.
func (h *EventHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("query"))
	if q == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "query required"})
	}
	return h.list(c, func(ctx context.Context) ([]model.Event, error) {
		return h.Events.Search(ctx, q)
	})
}

// ByCategory handles GET /v1/events/category/:category.
func (h *EventHandler) ByCategory(c echo.Context) error {
	cat := strings.TrimSpace(c.Param("category"))
	if cat == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category required"})
	}
	return h.list(c, func(ctx context.Context) ([]model.Event, error) {
		return h.Events.ByCategory(ctx, cat)
	})
}

// Top handles GET /v1/events/top.
func (h *EventHandler) Top(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	items, err := h.Events.TopBooked(ctx, topEventsLimit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	ev, err := h.Events.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

type createEventReq struct {
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	StartsAt     time.Time   `json:"starts_at"`
	Location     string      `json:"location"`
	Category     string      `json:"category"`
	ImageURL     string      `json:"image_url"`
	Price        model.Money `json:"price"`
	TotalTickets int         `json:"total_tickets"`
}

func (r createEventReq) validate() string {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return "title required"
	case strings.TrimSpace(r.Location) == "":
		return "location required"
	case strings.TrimSpace(r.Category) == "":
		return "category required"
	case r.StartsAt.IsZero():
		return "starts_at required"
	case r.Price < 0:
		return "price must not be negative"
	case r.TotalTickets < 0:
		return "total_tickets must not be negative"
	}
	return ""
}

// Create handles POST /v1/admin/events.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ev := model.Event{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		StartsAt:     req.StartsAt.UTC(),
		Location:     strings.TrimSpace(req.Location),
		Category:     strings.TrimSpace(req.Category),
		ImageURL:     strings.TrimSpace(req.ImageURL),
		Price:        req.Price,
		TotalTickets: req.TotalTickets,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	if err := h.Events.Create(ctx, &ev); err != nil {
		return writeError(c, err)
	}
	h.purge(ctx)
	return c.JSON(http.StatusCreated, ev)
}

// Delete handles DELETE /v1/admin/events/:id. Events that have bookings are
// refused with 409.
func (h *EventHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	if err := h.Events.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	h.purge(ctx)
	return c.NoContent(http.StatusNoContent)
}

func (h *EventHandler) purge(ctx context.Context) {
	if h.Purge == nil {
		return
	}
	if err := h.Purge(ctx); err != nil {
		zap.L().Warn("purge event cache failed", zap.Error(err))
	}
}
