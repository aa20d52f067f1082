package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/event-ticket-booking/internal/inventory"
	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// EventRepo persists events and is also the default inventory ledger:
// Reserve and Release lock the event row for the duration of one
// transaction, so availability stays consistent across every instance
// sharing the database.
type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

var _ inventory.Ledger = (*EventRepo)(nil)
var _ inventory.EventStore = (*EventRepo)(nil)

const eventColumns = `e.id, e.title, e.description, e.starts_at, e.location, e.category, e.image_url, e.price_cents, e.total_tickets, e.available_tickets, e.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner, extra ...any) (model.Event, error) {
	var e model.Event
	var image sql.NullString
	var price int64
	dest := []any{
		&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.Location, &e.Category,
		&image, &price, &e.TotalTickets, &e.AvailableTickets, &e.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Event{}, err
	}
	e.ImageURL = image.String
	e.Price = model.Money(price)
	return e, nil
}

func (r *EventRepo) queryEvents(ctx context.Context, q string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// Get returns one event or model.ErrEventNotFound.
func (r *EventRepo) Get(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, model.ErrEventNotFound
	}
	return e, err
}

// SaveAvailability overwrites available_tickets. It is the write half of the
// in-process ledger and must only be called while that ledger holds the
// event's lock.
func (r *EventRepo) SaveAvailability(ctx context.Context, id uint64, available int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE events SET available_tickets = ? WHERE id = ?`, available, id)
	return err
}

// List returns every event ordered by start time.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	return r.queryEvents(ctx, `SELECT `+eventColumns+` FROM events e ORDER BY e.starts_at ASC, e.id ASC`)
}

// Upcoming returns events starting at or after from, soonest first.
func (r *EventRepo) Upcoming(ctx context.Context, from time.Time) ([]model.Event, error) {
	return r.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.starts_at >= ? ORDER BY e.starts_at ASC, e.id ASC`,
		from.UTC())
}

// Search matches query case-insensitively against title and location.
func (r *EventRepo) Search(ctx context.Context, query string) ([]model.Event, error) {
	p := likePattern(query)
	return r.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE LOWER(e.title) LIKE ? OR LOWER(e.location) LIKE ? ORDER BY e.starts_at ASC, e.id ASC`,
		p, p)
}

// ByCategory returns events whose category equals category, ignoring case.
func (r *EventRepo) ByCategory(ctx context.Context, category string) ([]model.Event, error) {
	return r.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE LOWER(e.category) = LOWER(?) ORDER BY e.starts_at ASC, e.id ASC`,
		category)
}

// EventPopularity is an event with its confirmed booking totals.
type EventPopularity struct {
	model.Event
	BookedTickets int64 `json:"booked_tickets"`
	BookingCount  int64 `json:"booking_count"`
}

// TopBooked ranks events by tickets held in CONFIRMED bookings, then by the
// number of such bookings. Cancelled bookings do not count.
func (r *EventRepo) TopBooked(ctx context.Context, limit int) ([]EventPopularity, error) {
	if limit <= 0 {
		limit = 3
	}
	q := `SELECT ` + eventColumns + `, SUM(b.quantity) AS booked, COUNT(b.id) AS cnt
		FROM events e
		JOIN bookings b ON b.event_id = e.id AND b.status = ?
		GROUP BY e.id
		ORDER BY booked DESC, cnt DESC, e.id ASC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, string(model.StatusConfirmed), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]EventPopularity, 0, limit)
	for rows.Next() {
		var p EventPopularity
		p.Event, err = scanEvent(rows, &p.BookedTickets, &p.BookingCount)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// Create inserts e with all of its tickets available and fills in ID and
// CreatedAt.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	e.AvailableTickets = e.TotalTickets
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var image sql.NullString
	if e.ImageURL != "" {
		image = sql.NullString{String: e.ImageURL, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO events (title, description, starts_at, location, category, image_url, price_cents, total_tickets, available_tickets, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, e.StartsAt.UTC(), e.Location, e.Category, image,
		e.Price.Cents(), e.TotalTickets, e.AvailableTickets, e.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return nil
}

// Delete removes an event that has never been booked. Events with bookings,
// cancelled ones included, are kept and model.ErrConflict is returned.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var found uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ? FOR UPDATE`, id).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrEventNotFound
		}
		return err
	}
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE event_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return model.ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		// a booking inserted after the count still trips the foreign key
		if mysqlErrorIs(err, mysqlRowIsReferenced) {
			return model.ErrConflict
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// lockInventory reads price and counters under a row lock held until tx
// ends.
func lockInventory(ctx context.Context, tx *sql.Tx, id uint64) (price int64, total, available int, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT price_cents, total_tickets, available_tickets FROM events WHERE id = ? FOR UPDATE`, id,
	).Scan(&price, &total, &available)
	if errors.Is(err, sql.ErrNoRows) {
		err = model.ErrEventNotFound
	}
	return
}

// Reserve implements inventory.Ledger with SELECT ... FOR UPDATE.
func (r *EventRepo) Reserve(ctx context.Context, id uint64, qty int) (inventory.Reservation, error) {
	if qty < 1 {
		return inventory.Reservation{}, fmt.Errorf("%w: quantity must be at least 1", model.ErrValidation)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return inventory.Reservation{}, fmt.Errorf("begin reserve: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	price, _, available, err := lockInventory(ctx, tx, id)
	if err != nil {
		return inventory.Reservation{}, err
	}
	if available < qty {
		return inventory.Reservation{}, model.ErrInsufficientInventory
	}
	remaining := available - qty
	if _, err := tx.ExecContext(ctx, `UPDATE events SET available_tickets = ? WHERE id = ?`, remaining, id); err != nil {
		return inventory.Reservation{}, fmt.Errorf("reserve tickets: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return inventory.Reservation{}, fmt.Errorf("commit reserve: %w", err)
	}
	committed = true
	return inventory.Reservation{EventID: id, Quantity: qty, UnitPrice: model.Money(price), Remaining: remaining}, nil
}

// Release implements inventory.Ledger with SELECT ... FOR UPDATE.
func (r *EventRepo) Release(ctx context.Context, id uint64, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", model.ErrValidation)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	_, total, available, err := lockInventory(ctx, tx, id)
	if err != nil {
		return err
	}
	if available+qty > total {
		return model.ErrInventoryOverflow
	}
	if _, err := tx.ExecContext(ctx, `UPDATE events SET available_tickets = ? WHERE id = ?`, available+qty, id); err != nil {
		return fmt.Errorf("release tickets: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit release: %w", err)
	}
	committed = true
	return nil
}
