// Package queue publishes booking lifecycle messages to RabbitMQ and runs
// the audit consumer that records them.
package queue

import (
	"time"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// Message kinds. Each kind is also the routing key of its default queue.
const (
	KindBookingConfirmed = "booking.confirmed"
	KindBookingCancelled = "booking.cancelled"
)

// BookingEvent is the payload of both booking.confirmed and
// booking.cancelled. It carries enough for downstream consumers to log or
// notify without reading the primary database.
type BookingEvent struct {
	Kind       string      `json:"kind"`
	BookingID  uint64      `json:"booking_id"`
	UserID     uint64      `json:"user_id"`
	EventID    uint64      `json:"event_id"`
	EventTitle string      `json:"event_title"`
	Location   string      `json:"location"`
	StartsAt   string      `json:"starts_at"`
	Quantity   int         `json:"quantity"`
	TotalPrice model.Money `json:"total_price"`
	Status     string      `json:"status"`
	OccurredAt string      `json:"occurred_at"`
}

// NewBookingEvent builds the payload for b.
func NewBookingEvent(kind string, b model.Booking, at time.Time) BookingEvent {
	ev := BookingEvent{
		Kind:       kind,
		BookingID:  b.ID,
		UserID:     b.UserID,
		EventID:    b.EventID,
		Quantity:   b.Quantity,
		TotalPrice: b.TotalPrice,
		Status:     string(b.Status),
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
	if b.Event != nil {
		ev.EventTitle = b.Event.Title
		ev.Location = b.Event.Location
		if !b.Event.StartsAt.IsZero() {
			ev.StartsAt = b.Event.StartsAt.UTC().Format(time.RFC3339)
		}
	}
	return ev
}
