// Package booking coordinates the rate limiter, the inventory ledger and
// booking persistence into the create and cancel flows.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/event-ticket-booking/internal/inventory"
	"github.com/iliyamo/event-ticket-booking/internal/model"
	"github.com/iliyamo/event-ticket-booking/internal/ratelimit"
)

// EventReader resolves events. Get returns model.ErrEventNotFound for
// unknown ids.
type EventReader interface {
	Get(ctx context.Context, eventID uint64) (model.Event, error)
}

// Store persists bookings. Get returns model.ErrBookingNotFound for unknown
// ids. TransitionStatus is a compare-and-set: it reports false without error
// when the booking is not currently in status from.
type Store interface {
	Create(ctx context.Context, b *model.Booking) error
	Get(ctx context.Context, id uint64) (model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	TransitionStatus(ctx context.Context, id uint64, from, to model.BookingStatus) (bool, error)
}

// Notifier announces committed lifecycle changes. Delivery is best effort.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b model.Booking) error
	BookingCancelled(ctx context.Context, b model.Booking) error
}

// RateLimitError is returned by CreateBooking when the caller's bucket is
// empty. It matches model.ErrRateLimited under errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", model.ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return model.ErrRateLimited }

// Deps bundles the collaborators of a Service. Notifier and Log may be nil.
type Deps struct {
	Limiter  ratelimit.Limiter
	Ledger   inventory.Ledger
	Events   EventReader
	Bookings Store
	Notifier Notifier
	Log      *zap.Logger
	Now      func() time.Time
}

// Service implements booking creation, cancellation and lookup.
type Service struct {
	limiter  ratelimit.Limiter
	ledger   inventory.Ledger
	events   EventReader
	bookings Store
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		limiter:  d.Limiter,
		ledger:   d.Ledger,
		events:   d.Events,
		bookings: d.Bookings,
		notifier: d.Notifier,
		log:      d.Log,
		now:      d.Now,
	}
	if s.limiter == nil {
		s.limiter = ratelimit.Unlimited{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateBooking books qty tickets of eventID for user.
//
// The rate limit token is taken before inventory is touched, so a rejected
// attempt leaves availability unchanged. If the booking row cannot be written
// after a successful reserve, the tickets are released again.
func (s *Service) CreateBooking(ctx context.Context, user model.Identity, eventID uint64, qty int) (model.Booking, error) {
	if qty < 1 {
		return model.Booking{}, fmt.Errorf("%w: quantity must be at least 1", model.ErrValidation)
	}
	if d := s.limiter.TryConsume(ctx, user.ID); !d.Allowed {
		return model.Booking{}, &RateLimitError{RetryAfter: d.RetryAfter}
	}

	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return model.Booking{}, err
	}

	res, err := s.ledger.Reserve(ctx, eventID, qty)
	if err != nil {
		return model.Booking{}, err
	}

	now := s.now().UTC()
	summary := ev.Summary()
	b := model.Booking{
		EventID:     eventID,
		UserID:      user.ID,
		Quantity:    qty,
		TotalPrice:  res.Total(),
		Status:      model.StatusConfirmed,
		BookingDate: now,
		UpdatedAt:   now,
		Event:       &summary,
	}
	if err := s.bookings.Create(ctx, &b); err != nil {
		// the request context may already be done; compensation must still run
		if relErr := s.ledger.Release(context.WithoutCancel(ctx), eventID, qty); relErr != nil {
			s.log.Error("booking not persisted and tickets not released",
				zap.Bool("consistency_fault", true),
				zap.Uint64("event_id", eventID),
				zap.Uint64("user_id", user.ID),
				zap.Int("quantity", qty),
				zap.NamedError("persist_error", err),
				zap.NamedError("release_error", relErr),
			)
		}
		return model.Booking{}, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("booking confirmed",
		zap.Uint64("booking_id", b.ID),
		zap.Uint64("event_id", eventID),
		zap.Uint64("user_id", user.ID),
		zap.Int("quantity", qty),
		zap.Int("remaining", res.Remaining),
	)
	s.notify(ctx, b, true)
	return b, nil
}

// CancelBooking cancels a confirmed booking owned by user and returns its
// tickets to the event. Only the caller that wins the status change releases
// inventory, so concurrent cancels restore tickets exactly once.
func (s *Service) CancelBooking(ctx context.Context, user model.Identity, bookingID uint64) (model.Booking, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if err := Authorize(b, user.ID); err != nil {
		return model.Booking{}, err
	}
	if err := Transition(b.Status, model.StatusCancelled); err != nil {
		return model.Booking{}, err
	}

	won, err := s.bookings.TransitionStatus(ctx, bookingID, model.StatusConfirmed, model.StatusCancelled)
	if err != nil {
		return model.Booking{}, fmt.Errorf("cancel booking: %w", err)
	}
	if !won {
		cur, err := s.bookings.Get(ctx, bookingID)
		if err != nil {
			return model.Booking{}, err
		}
		if tErr := Transition(cur.Status, model.StatusCancelled); tErr != nil {
			return model.Booking{}, tErr
		}
		return model.Booking{}, model.ErrInvalidTransition
	}

	if relErr := s.ledger.Release(ctx, b.EventID, b.Quantity); relErr != nil {
		bg := context.WithoutCancel(ctx)
		reverted, revErr := s.bookings.TransitionStatus(bg, bookingID, model.StatusCancelled, model.StatusConfirmed)
		if revErr != nil || !reverted {
			s.log.Error("booking cancelled but tickets not released",
				zap.Bool("consistency_fault", true),
				zap.Uint64("booking_id", bookingID),
				zap.Uint64("event_id", b.EventID),
				zap.Int("quantity", b.Quantity),
				zap.NamedError("release_error", relErr),
				zap.NamedError("revert_error", revErr),
			)
		}
		return model.Booking{}, fmt.Errorf("release tickets: %w", relErr)
	}

	b.Status = model.StatusCancelled
	b.UpdatedAt = s.now().UTC()
	s.log.Info("booking cancelled",
		zap.Uint64("booking_id", bookingID),
		zap.Uint64("event_id", b.EventID),
		zap.Uint64("user_id", user.ID),
		zap.Int("quantity", b.Quantity),
	)
	s.notify(ctx, b, false)
	return b, nil
}

// GetBooking returns one of the caller's bookings.
func (s *Service) GetBooking(ctx context.Context, user model.Identity, bookingID uint64) (model.Booking, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if err := Authorize(b, user.ID); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// ListBookings returns the caller's bookings, newest first.
func (s *Service) ListBookings(ctx context.Context, user model.Identity) ([]model.Booking, error) {
	items, err := s.bookings.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return items, nil
}

func (s *Service) notify(ctx context.Context, b model.Booking, confirmed bool) {
	if s.notifier == nil {
		return
	}
	var err error
	if confirmed {
		err = s.notifier.BookingConfirmed(ctx, b)
	} else {
		err = s.notifier.BookingCancelled(ctx, b)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("publish booking event failed", zap.Uint64("booking_id", b.ID), zap.Error(err))
	}
}
