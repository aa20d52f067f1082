package booking

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/event-ticket-booking/internal/inventory"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/ratelimit"
)

type fakeEvents struct {
	mu     sync.Mutex
	events map[uint64]model.Event
}

func newFakeEvents(evs ...model.Event) *fakeEvents {
	f := &fakeEvents{events: map[uint64]model.Event{}}
	for _, e := range evs {
		f.events[e.ID] = e
	}
	return f
}

func (f *fakeEvents) Get(_ context.Context, id uint64) (model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return model.Event{}, model.ErrEventNotFound
	}
	return e, nil
}

func (f *fakeEvents) SaveAvailability(_ context.Context, id uint64, available int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.events[id]
	e.AvailableTickets = available
	f.events[id] = e
	return nil
}

func (f *fakeEvents) setPrice(id uint64, p model.Money) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.events[id]
	e.Price = p
	f.events[id] = e
}

func (f *fakeEvents) available(id uint64) int {
	e, _ := f.Get(context.Background(), id)
	return e.AvailableTickets
}

type fakeStore struct {
	mu        sync.Mutex
	seq       uint64
	rows      map[uint64]model.Booking
	createErr error
	casErr    error
}

func newFakeStore() *fakeStore { return &fakeStore{rows: map[uint64]model.Booking{}} }

func (f *fakeStore) Create(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.seq++
	b.ID = f.seq
	f.rows[b.ID] = *b
	return nil
}

func (f *fakeStore) Get(_ context.Context, id uint64) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeStore) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Booking
	for _, b := range f.rows {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) TransitionStatus(_ context.Context, id uint64, from, to model.BookingStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.casErr != nil {
		return false, f.casErr
	}
	b, ok := f.rows[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	f.rows[id] = b
	return true, nil
}

func (f *fakeStore) status(id uint64) model.BookingStatus {
	b, _ := f.Get(context.Background(), id)
	return b.Status
}

// flakyLedger fails Release with releaseErr while it is set.
type flakyLedger struct {
	inventory.Ledger
	releaseErr error
}

func (l *flakyLedger) Release(ctx context.Context, eventID uint64, qty int) error {
	if l.releaseErr != nil {
		return l.releaseErr
	}
	return l.Ledger.Release(ctx, eventID, qty)
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []uint64
	cancelled []uint64
}

func (n *recordingNotifier) BookingConfirmed(_ context.Context, b model.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, b.ID)
	return nil
}

func (n *recordingNotifier) BookingCancelled(_ context.Context, b model.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, b.ID)
	return nil
}

// countingLimiter allows everything and counts calls.
type countingLimiter struct {
	mu    sync.Mutex
	calls int
}

func (c *countingLimiter) TryConsume(context.Context, uint64) ratelimit.Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return ratelimit.Decision{Allowed: true}
}
