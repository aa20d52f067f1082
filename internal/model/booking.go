package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	// StatusConfirmed is the only entry state. A booking is created confirmed
	// in the same step that reserves its tickets.
	StatusConfirmed BookingStatus = "CONFIRMED"
	// StatusCancelled is terminal.
	StatusCancelled BookingStatus = "CANCELLED"
)

// Booking records a user's purchase of a quantity of tickets for one event.
// EventID, UserID, Quantity and TotalPrice never change after creation;
// TotalPrice is frozen at the event price in force when the booking was made.
// Bookings are never deleted.
type Booking struct {
	ID          uint64        `json:"id"`
	EventID     uint64        `json:"event_id"`
	UserID      uint64        `json:"user_id"`
	Quantity    int           `json:"quantity"`
	TotalPrice  Money         `json:"total_price"`
	Status      BookingStatus `json:"status"`
	BookingDate time.Time     `json:"booking_date"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Event is filled in by read paths that join the event row.
	Event *EventSummary `json:"event,omitempty"`
}

// OwnedBy reports whether userID owns the booking.
func (b Booking) OwnedBy(userID uint64) bool { return b.UserID == userID }
