package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticket-booking/internal/config"
	"github.com/iliyamo/event-ticket-booking/internal/model"
)

// Publisher sends booking events to durable queues on the default exchange.
// It dials per publish, so a broker outage never wedges the request path.
type Publisher struct {
	cfg config.QueueConfig
	log *zap.Logger
	now func() time.Time
}

func NewPublisher(cfg config.QueueConfig, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{cfg: cfg, log: log, now: time.Now}
}

// BookingConfirmed publishes to the confirmed queue.
func (p *Publisher) BookingConfirmed(ctx context.Context, b model.Booking) error {
	return p.publish(ctx, p.cfg.ConfirmedQueue, NewBookingEvent(KindBookingConfirmed, b, p.now()))
}

// BookingCancelled publishes to the cancelled queue.
func (p *Publisher) BookingCancelled(ctx context.Context, b model.Booking) error {
	return p.publish(ctx, p.cfg.CancelledQueue, NewBookingEvent(KindBookingCancelled, b, p.now()))
}

func buildPublishing(ev BookingEvent, at time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         ev.Kind,
		Timestamp:    at.UTC(),
		Body:         body,
	}, nil
}

func (p *Publisher) publish(ctx context.Context, queueName string, ev BookingEvent) error {
	if !p.cfg.Enabled {
		return nil
	}
	msg, err := buildPublishing(ev, p.now())
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq declare %s: %w", queueName, err)
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", queueName, err)
	}
	p.log.Debug("booking event published",
		zap.String("queue", queueName),
		zap.String("message_id", msg.MessageId),
		zap.Uint64("booking_id", ev.BookingID))
	return nil
}
