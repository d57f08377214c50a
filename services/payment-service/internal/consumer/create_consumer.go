package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Kaiser2484/bida-booking/pkg/events"
)

type Opener interface {
	Open(ctx context.Context, ev events.CreatePayment) error
}

type Deliverer interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

// CreateConsumer drains payment_queue and opens a pending payment for each
// new booking.
type CreateConsumer struct {
	svc  Opener
	cons Deliverer
}

func NewCreateConsumer(svc Opener, cons Deliverer) *CreateConsumer {
	return &CreateConsumer{svc: svc, cons: cons}
}

func (c *CreateConsumer) Run(ctx context.Context) error {
	deliveries, err := c.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				log.Printf("[payment] handle failed, requeueing: %v", err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle settles one message. Malformed or foreign events are dropped; only
// transient failures (db down) return an error for requeue.
func (c *CreateConsumer) Handle(ctx context.Context, body []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Printf("[payment] dropping malformed event: %v", err)
		return nil
	}
	if env.Type != events.TypeCreatePayment {
		log.Printf("[payment] ignoring event type %s", env.Type)
		return nil
	}
	ev, err := events.Unmarshal[events.CreatePayment](env.Data)
	if err != nil {
		log.Printf("[payment] dropping undecodable %s: %v", env.Type, err)
		return nil
	}
	if ev.BookingID == "" {
		log.Printf("[payment] dropping %s without bookingId", env.Type)
		return nil
	}
	return c.svc.Open(ctx, ev)
}
