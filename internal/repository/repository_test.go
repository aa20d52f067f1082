package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-booking/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

var (
	lockSQL   = regexp.QuoteMeta(`SELECT price_cents, total_tickets, available_tickets FROM events WHERE id = ? FOR UPDATE`)
	updateSQL = regexp.QuoteMeta(`UPDATE events SET available_tickets = ? WHERE id = ?`)
)

func inventoryRow(price int64, total, available int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"price_cents", "total_tickets", "available_tickets"}).AddRow(price, total, available)
}

func TestReserveLocksRowAndDecrements(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs(1).WillReturnRows(inventoryRow(10000, 10, 10))
	mock.ExpectExec(updateSQL).WithArgs(7, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := NewEventRepo(db).Reserve(context.Background(), 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Remaining)
	assert.Equal(t, "300.00", res.Total().String())
}

func TestReserveInsufficientRollsBack(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs(1).WillReturnRows(inventoryRow(100, 10, 2))
	mock.ExpectRollback()

	_, err := NewEventRepo(db).Reserve(context.Background(), 1, 3)
	assert.ErrorIs(t, err, model.ErrInsufficientInventory)
}

func TestReserveUnknownEvent(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs(9).WillReturnRows(sqlmock.NewRows([]string{"price_cents", "total_tickets", "available_tickets"}))
	mock.ExpectRollback()

	_, err := NewEventRepo(db).Reserve(context.Background(), 9, 1)
	assert.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestReserveRejectsBadQuantityWithoutQuerying(t *testing.T) {
	db, _ := newMock(t)
	_, err := NewEventRepo(db).Reserve(context.Background(), 1, 0)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestReleaseIncrementsAndGuardsOverflow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs(1).WillReturnRows(inventoryRow(100, 10, 7))
	mock.ExpectExec(updateSQL).WithArgs(10, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, repo.Release(context.Background(), 1, 3))

	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs(1).WillReturnRows(inventoryRow(100, 10, 10))
	mock.ExpectRollback()
	assert.ErrorIs(t, repo.Release(context.Background(), 1, 1), model.ErrInventoryOverflow)
}

func TestReserveUpdateFailureRollsBack(t *testing.T) {
	db, mock := newMock(t)
	boom := errors.New("lock wait timeout")
	mock.ExpectBegin()
	mock.ExpectQuery(lockSQL).WithArgs(1).WillReturnRows(inventoryRow(100, 10, 10))
	mock.ExpectExec(updateSQL).WillReturnError(boom)
	mock.ExpectRollback()

	_, err := NewEventRepo(db).Reserve(context.Background(), 1, 1)
	assert.ErrorIs(t, err, boom)
}

var eventCols = []string{"id", "title", "description", "starts_at", "location", "category", "image_url", "price_cents", "total_tickets", "available_tickets", "created_at"}

func TestGetEvent(t *testing.T) {
	db, mock := newMock(t)
	starts := time.Date(2025, 3, 1, 19, 30, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM events e WHERE e.id = ?`)).WithArgs(5).
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow(5, "Jazz Night", "", starts, "Blue Room", "music", nil, 4550, 100, 60, starts))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM events e WHERE e.id = ?`)).WithArgs(6).
		WillReturnRows(sqlmock.NewRows(eventCols))

	repo := NewEventRepo(db)
	e, err := repo.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", e.Title)
	assert.Equal(t, model.Money(4550), e.Price)
	assert.Equal(t, 60, e.AvailableTickets)
	assert.Empty(t, e.ImageURL)

	_, err = repo.Get(context.Background(), 6)
	assert.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestSearchEscapesWildcards(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE LOWER(e.title) LIKE ? OR LOWER(e.location) LIKE ?`)).
		WithArgs(`%100\%%`, `%100\%%`).
		WillReturnRows(sqlmock.NewRows(eventCols))

	items, err := NewEventRepo(db).Search(context.Background(), " 100% ")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
}

func TestTopBookedCountsConfirmedOnly(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	cols := append(append([]string{}, eventCols...), "booked", "cnt")
	mock.ExpectQuery(regexp.QuoteMeta(`JOIN bookings b ON b.event_id = e.id AND b.status = ?`)).
		WithArgs("CONFIRMED", 3).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(2, "B", "", now, "X", "c", nil, 100, 50, 10, now, 40, 3).
			AddRow(1, "A", "", now, "Y", "c", "http://img", 100, 50, 45, now, 5, 5))

	items, err := NewEventRepo(db).TopBooked(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, uint64(2), items[0].ID)
	assert.EqualValues(t, 40, items[0].BookedTickets)
	assert.Equal(t, "http://img", items[1].ImageURL)
}

func TestCreateEventStartsFullyAvailable(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO events`)).
		WithArgs("Gala", "", sqlmock.AnyArg(), "Hall", "party", nil, int64(2500), 80, 80, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(12, 1))

	e := &model.Event{Title: "Gala", StartsAt: time.Now(), Location: "Hall", Category: "party", Price: 2500, TotalTickets: 80}
	require.NoError(t, NewEventRepo(db).Create(context.Background(), e))
	assert.Equal(t, uint64(12), e.ID)
	assert.Equal(t, 80, e.AvailableTickets)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestDeleteEvent(t *testing.T) {
	findSQL := regexp.QuoteMeta(`SELECT id FROM events WHERE id = ? FOR UPDATE`)
	countSQL := regexp.QuoteMeta(`SELECT COUNT(*) FROM bookings WHERE event_id = ?`)
	deleteSQL := regexp.QuoteMeta(`DELETE FROM events WHERE id = ?`)

	t.Run("with bookings", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(findSQL).WithArgs(3).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
		mock.ExpectQuery(countSQL).WithArgs(3).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
		mock.ExpectRollback()
		assert.ErrorIs(t, NewEventRepo(db).Delete(context.Background(), 3), model.ErrConflict)
	})
	t.Run("foreign key race", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(findSQL).WithArgs(3).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
		mock.ExpectQuery(countSQL).WithArgs(3).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
		mock.ExpectExec(deleteSQL).WithArgs(3).WillReturnError(&mysql.MySQLError{Number: 1451, Message: "row is referenced"})
		mock.ExpectRollback()
		assert.ErrorIs(t, NewEventRepo(db).Delete(context.Background(), 3), model.ErrConflict)
	})
	t.Run("missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(findSQL).WithArgs(4).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()
		assert.ErrorIs(t, NewEventRepo(db).Delete(context.Background(), 4), model.ErrEventNotFound)
	})
	t.Run("unbooked", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(findSQL).WithArgs(5).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
		mock.ExpectQuery(countSQL).WithArgs(5).WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
		mock.ExpectExec(deleteSQL).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		assert.NoError(t, NewEventRepo(db).Delete(context.Background(), 5))
	})
}

var bookingCols = []string{"id", "event_id", "user_id", "quantity", "total_price_cents", "status", "booking_date", "updated_at", "title", "location", "starts_at", "image_url"}

func TestBookingCreateAndGet(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO bookings`)).
		WithArgs(uint64(10), uint64(1), 3, int64(30000), "CONFIRMED", now, now).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM bookings b JOIN events e ON e.id = b.event_id WHERE b.id = ?`)).
		WithArgs(77).
		WillReturnRows(sqlmock.NewRows(bookingCols).AddRow(77, 10, 1, 3, 30000, "CONFIRMED", now, now, "Concert", "Arena", now, nil))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE b.id = ?`)).WithArgs(78).WillReturnRows(sqlmock.NewRows(bookingCols))

	repo := NewBookingRepo(db)
	b := &model.Booking{EventID: 10, UserID: 1, Quantity: 3, TotalPrice: 30000, Status: model.StatusConfirmed, BookingDate: now, UpdatedAt: now}
	require.NoError(t, repo.Create(context.Background(), b))
	assert.Equal(t, uint64(77), b.ID)

	got, err := repo.Get(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
	assert.Equal(t, "300.00", got.TotalPrice.String())
	require.NotNil(t, got.Event)
	assert.Equal(t, "Concert", got.Event.Title)
	assert.Equal(t, uint64(10), got.Event.ID)

	_, err = repo.Get(context.Background(), 78)
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
}

func TestBookingListByUserNewestFirst(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE b.user_id = ? ORDER BY b.booking_date DESC, b.id DESC`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(2, 10, 1, 1, 100, "CANCELLED", now, now, "A", "L", now, nil).
			AddRow(1, 10, 1, 2, 200, "CONFIRMED", now.Add(-time.Hour), now, "A", "L", now, nil))

	items, err := NewBookingRepo(db).ListByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.StatusCancelled, items[0].Status)
}

func TestTransitionStatusIsCompareAndSet(t *testing.T) {
	db, mock := newMock(t)
	q := regexp.QuoteMeta(`UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`)
	mock.ExpectExec(q).WithArgs("CANCELLED", 5, "CONFIRMED").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("CANCELLED", 5, "CONFIRMED").WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewBookingRepo(db)
	won, err := repo.TransitionStatus(context.Background(), 5, model.StatusConfirmed, model.StatusCancelled)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.TransitionStatus(context.Background(), 5, model.StatusConfirmed, model.StatusCancelled)
	require.NoError(t, err)
	assert.False(t, won)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users (email, name, password_hash, role)`)).
		WithArgs("ada@example.com", "Ada", sqlmock.AnyArg(), "USER").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := NewUserRepo(db).Create(context.Background(), " Ada@Example.com ", "Ada", "pw", "USER", 4)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestUserGetByEmail(t *testing.T) {
	db, mock := newMock(t)
	cols := []string{"id", "email", "name", "password_hash", "role", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email=? LIMIT 1`)).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "ada@example.com", "Ada", "hash", "ADMIN", time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id=? LIMIT 1`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(cols))

	repo := NewUserRepo(db)
	u, err := repo.GetByEmail(context.Background(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, model.RoleAdmin, u.Role)

	_, err = repo.GetByID(context.Background(), 2)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
