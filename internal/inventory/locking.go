package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// LockingLedger serializes reserve and release per event with a mutex held
// across the store read and write. Events never contend with each other.
//
// It is only correct when this process is the sole writer of
// available_tickets; multi-instance deployments use the row-locking ledger
// in the repository package instead.
type LockingLedger struct {
	store EventStore
	locks sync.Map // uint64 -> *sync.Mutex
}

// NewLockingLedger returns a ledger backed by store.
func NewLockingLedger(store EventStore) *LockingLedger {
	return &LockingLedger{store: store}
}

func (l *LockingLedger) lockFor(eventID uint64) *sync.Mutex {
	mu, _ := l.locks.LoadOrStore(eventID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Reserve implements Ledger.
func (l *LockingLedger) Reserve(ctx context.Context, eventID uint64, qty int) (Reservation, error) {
	if qty < 1 {
		return Reservation{}, fmt.Errorf("%w: quantity must be at least 1", model.ErrValidation)
	}
	mu := l.lockFor(eventID)
	mu.Lock()
	defer mu.Unlock()

	ev, err := l.store.Get(ctx, eventID)
	if err != nil {
		return Reservation{}, err
	}
	if ev.AvailableTickets < qty {
		return Reservation{}, model.ErrInsufficientInventory
	}
	remaining := ev.AvailableTickets - qty
	if err := l.store.SaveAvailability(ctx, eventID, remaining); err != nil {
		return Reservation{}, fmt.Errorf("save availability: %w", err)
	}
	return Reservation{EventID: eventID, Quantity: qty, UnitPrice: ev.Price, Remaining: remaining}, nil
}

// Release implements Ledger.
func (l *LockingLedger) Release(ctx context.Context, eventID uint64, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", model.ErrValidation)
	}
	mu := l.lockFor(eventID)
	mu.Lock()
	defer mu.Unlock()

	ev, err := l.store.Get(ctx, eventID)
	if err != nil {
		return err
	}
	if ev.AvailableTickets+qty > ev.TotalTickets {
		return model.ErrInventoryOverflow
	}
	if err := l.store.SaveAvailability(ctx, eventID, ev.AvailableTickets+qty); err != nil {
		return fmt.Errorf("save availability: %w", err)
	}
	return nil
}
