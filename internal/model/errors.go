package model

import "errors"

// Sentinel errors shared by the ledger, the booking service and the storage
// layer. Each is an expected, caller-recoverable condition; handlers map them
// to HTTP statuses with errors.Is. Storage failures are wrapped around these
// with %w rather than replacing them.
var (
	// ErrEventNotFound is returned when an event id does not exist.
	ErrEventNotFound = errors.New("event not found")

	// ErrBookingNotFound is returned when a booking id does not exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInsufficientInventory is returned when a reservation asks for more
	// tickets than are currently available. No state has been changed.
	ErrInsufficientInventory = errors.New("not enough tickets available")

	// ErrInventoryOverflow is returned when a release would push available
	// tickets above the event's total. It signals a caller bug.
	ErrInventoryOverflow = errors.New("release exceeds total tickets")

	// ErrRateLimited is returned when the user has no booking tokens left.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrForbidden is returned when a user acts on a booking they do not own.
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyCancelled is returned when cancelling a cancelled booking.
	ErrAlreadyCancelled = errors.New("booking is already cancelled")

	// ErrInvalidTransition is returned for any other disallowed status change.
	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrValidation is returned for malformed input such as quantity < 1.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when an operation cannot proceed because of
	// dependent records, e.g. deleting an event that has bookings.
	ErrConflict = errors.New("conflict")
)
