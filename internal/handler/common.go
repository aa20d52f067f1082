package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticket-booking/internal/booking"
	"github.com/iliyamo/event-ticket-booking/internal/middleware"
	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// getUserID extracts the user_id set by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.CtxUserID).(type) {
	case uint64:
		return t, nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// currentUser returns the authenticated caller or an error suitable for a
// 401 response.
func currentUser(c echo.Context) (model.Identity, error) {
	if id, ok := middleware.CurrentIdentity(c); ok {
		return id, nil
	}
	uid, err := getUserID(c)
	if err != nil || uid == 0 {
		return model.Identity{}, errors.New("unauthorized")
	}
	return model.Identity{ID: uid}, nil
}

func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// writeError maps domain errors to HTTP responses. Unknown errors are logged
// and reported as 500 without leaking details.
func writeError(c echo.Context, err error) error {
	var rl *booking.RateLimitError
	switch {
	case errors.As(err, &rl):
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many booking attempts, try again later", "retry_after": secs})
	case errors.Is(err, model.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many booking attempts, try again later"})
	case errors.Is(err, model.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, model.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, model.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, model.ErrInsufficientInventory):
		return c.JSON(http.StatusConflict, echo.Map{"error": "not enough tickets available"})
	case errors.Is(err, model.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is already cancelled"})
	case errors.Is(err, model.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid booking status transition"})
	case errors.Is(err, model.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "resource has dependent records"})
	}
	zap.L().Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
