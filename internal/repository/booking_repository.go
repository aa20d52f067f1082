package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// BookingRepo persists bookings. Rows are never deleted; cancellation is a
// status change.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingSelect = `SELECT b.id, b.event_id, b.user_id, b.quantity, b.total_price_cents, b.status, b.booking_date, b.updated_at, e.title, e.location, e.starts_at, e.image_url FROM bookings b JOIN events e ON e.id = b.event_id`

func scanBooking(row rowScanner) (model.Booking, error) {
	var b model.Booking
	var total int64
	var status string
	var ev model.EventSummary
	var image sql.NullString
	err := row.Scan(&b.ID, &b.EventID, &b.UserID, &b.Quantity, &total, &status, &b.BookingDate, &b.UpdatedAt,
		&ev.Title, &ev.Location, &ev.StartsAt, &image)
	if err != nil {
		return model.Booking{}, err
	}
	b.TotalPrice = model.Money(total)
	b.Status = model.BookingStatus(status)
	ev.ID = b.EventID
	ev.ImageURL = image.String
	b.Event = &ev
	return b, nil
}

// Create inserts b and sets its ID. The booking's price, status and dates
// are written exactly as given.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (event_id, user_id, quantity, total_price_cents, status, booking_date, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.EventID, b.UserID, b.Quantity, b.TotalPrice.Cents(), string(b.Status), b.BookingDate, b.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// Get returns a booking with its event summary, or model.ErrBookingNotFound.
func (r *BookingRepo) Get(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return b, err
}

// ListByUser returns every booking of userID, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, bookingSelect+` WHERE b.user_id = ? ORDER BY b.booking_date DESC, b.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

// TransitionStatus moves a booking from one status to another only if it is
// currently in from. It reports whether this call made the change.
func (r *BookingRepo) TransitionStatus(ctx context.Context, id uint64, from, to model.BookingStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		string(to), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
