package model

import "time"

// Event is a bookable event and the owner of a finite ticket pool.
//
// TotalTickets is fixed at creation. AvailableTickets is mutated only by an
// inventory ledger and always satisfies 0 <= AvailableTickets <= TotalTickets.
type Event struct {
	ID               uint64    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	StartsAt         time.Time `json:"starts_at"`
	Location         string    `json:"location"`
	Category         string    `json:"category"`
	ImageURL         string    `json:"image_url,omitempty"`
	Price            Money     `json:"price"`
	TotalTickets     int       `json:"total_tickets"`
	AvailableTickets int       `json:"available_tickets"`
	CreatedAt        time.Time `json:"created_at"`
}

// SoldOut reports whether no tickets remain.
func (e Event) SoldOut() bool { return e.AvailableTickets <= 0 }

// InventoryValid reports whether the availability counter is within bounds.
func (e Event) InventoryValid() bool {
	return e.TotalTickets >= 0 && e.AvailableTickets >= 0 && e.AvailableTickets <= e.TotalTickets
}

// EventSummary is the slice of an event embedded into booking responses.
type EventSummary struct {
	ID       uint64    `json:"id"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
	StartsAt time.Time `json:"starts_at"`
	ImageURL string    `json:"image_url,omitempty"`
}

// Summary returns the booking-facing view of the event.
func (e Event) Summary() EventSummary {
	return EventSummary{ID: e.ID, Title: e.Title, Location: e.Location, StartsAt: e.StartsAt, ImageURL: e.ImageURL}
}
