// Package inventory defines the ticket ledger contract and an in-process
// implementation of it.
//
// The ledger is the only writer of an event's available_tickets. Both
// operations collapse read-check-write into one serialized step per event,
// so concurrent callers can never oversell or over-release.
package inventory

import (
	"context"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// Ledger atomically reserves and releases tickets against an event.
//
// Reserve fails with model.ErrEventNotFound or model.ErrInsufficientInventory
// and changes nothing on failure. Release fails with model.ErrEventNotFound or
// model.ErrInventoryOverflow. Both reject qty < 1 with model.ErrValidation.
type Ledger interface {
	Reserve(ctx context.Context, eventID uint64, qty int) (Reservation, error)
	Release(ctx context.Context, eventID uint64, qty int) error
}

// Reservation is the result of a successful Reserve.
type Reservation struct {
	EventID   uint64
	Quantity  int
	UnitPrice model.Money
	// Remaining is available_tickets immediately after the reserve.
	Remaining int
}

// Total is the frozen booking price for this reservation.
func (r Reservation) Total() model.Money { return r.UnitPrice.Times(r.Quantity) }

// EventStore is the persistence contract the in-process ledger builds on.
// Get returns model.ErrEventNotFound for unknown ids.
type EventStore interface {
	Get(ctx context.Context, eventID uint64) (model.Event, error)
	SaveAvailability(ctx context.Context, eventID uint64, available int) error
}
