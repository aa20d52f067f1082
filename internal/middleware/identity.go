package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// CurrentIdentity returns the caller set by JWTAuth. ok is false on routes
// that are not behind JWTAuth.
func CurrentIdentity(c echo.Context) (id model.Identity, ok bool) {
	uid, ok := c.Get(CtxUserID).(uint64)
	if !ok || uid == 0 {
		return model.Identity{}, false
	}
	id.ID = uid
	id.Email, _ = c.Get(CtxEmail).(string)
	id.Name, _ = c.Get(CtxName).(string)
	id.Role, _ = c.Get(CtxRole).(string)
	return id, true
}
