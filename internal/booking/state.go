package booking

import (
	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// Transition validates a booking status change. CONFIRMED may move to
// CANCELLED; CANCELLED is terminal. Unknown states are rejected.
func Transition(from, to model.BookingStatus) error {
	switch from {
	case model.StatusConfirmed:
		if to == model.StatusCancelled {
			return nil
		}
	case model.StatusCancelled:
		if to == model.StatusCancelled {
			return model.ErrAlreadyCancelled
		}
	}
	return model.ErrInvalidTransition
}

// Authorize fails with model.ErrForbidden unless userID owns b.
func Authorize(b model.Booking, userID uint64) error {
	if !b.OwnedBy(userID) {
		return model.ErrForbidden
	}
	return nil
}
