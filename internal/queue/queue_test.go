package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/model"
)

func sampleBooking() model.Booking {
	starts := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	return model.Booking{
		ID: 9, EventID: 3, UserID: 4, Quantity: 2, TotalPrice: 12050,
		Status: model.StatusConfirmed,
		Event:  &model.EventSummary{ID: 3, Title: "Opera", Location: "Main Stage", StartsAt: starts},
	}
}

func TestBuildPublishing(t *testing.T) {
	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	ev := NewBookingEvent(KindBookingConfirmed, sampleBooking(), at)

	msg, err := buildPublishing(ev, at)
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, KindBookingConfirmed, msg.Type)
	assert.Len(t, msg.MessageId, 36)

	var back map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &back))
	assert.Equal(t, "Opera", back["event_title"])
	assert.Equal(t, 120.5, back["total_price"])
	assert.Equal(t, "2025-06-01T20:00:00Z", back["starts_at"])
	assert.Equal(t, "2025-05-01T10:00:00Z", back["occurred_at"])
}

func TestConsumerAppendsAuditLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")
	c := NewConsumer(config.QueueConfig{AuditLogPath: path}, nil)
	at := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	b := sampleBooking()
	confirmed, _ := json.Marshal(NewBookingEvent(KindBookingConfirmed, b, at))
	b.Status = model.StatusCancelled
	cancelled, _ := json.Marshal(NewBookingEvent(KindBookingCancelled, b, at.Add(time.Minute)))

	require.NoError(t, c.Handle(confirmed))
	require.NoError(t, c.Handle(cancelled))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `[2025-05-01T10:00:00Z] Booking confirmed | booking_id=9 | user_id=4 | event_id=3 | event="Opera" | location="Main Stage" | starts_at=2025-06-01T20:00:00Z | quantity=2 | total=120.50`, lines[0])
	assert.Contains(t, lines[1], "Booking cancelled | booking_id=9")
}

func TestConsumerRejectsBadMessages(t *testing.T) {
	c := NewConsumer(config.QueueConfig{AuditLogPath: filepath.Join(t.TempDir(), "b.log")}, nil)
	assert.Error(t, c.Handle([]byte("not json")))
	assert.Error(t, c.Handle([]byte(`{"kind":"booking.refunded"}`)))
}

func TestPublisherDisabledIsNoop(t *testing.T) {
	p := NewPublisher(config.QueueConfig{Enabled: false, URL: "amqp://nowhere"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	assert.NoError(t, p.BookingConfirmed(ctx, sampleBooking()))
}
