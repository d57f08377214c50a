package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Kaiser2484/bida-booking/pkg/events"
	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/domain"
)

// Confirmer applies the payment-driven confirm exactly once per event id.
type Confirmer interface {
	ConfirmIfNotProcessed(ctx context.Context, bookingID, eventID string) (applied bool, b *domain.Booking, err error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, queue string, v any) error
}

type Deliverer interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

// PaymentConsumer drains booking_events. PAYMENT_COMPLETED confirms the
// booking idempotently; the BOOKING_CONFIRMED notification goes out only on
// the delivery whose transition actually applied, so redeliveries stay quiet.
type PaymentConsumer struct {
	repo Confirmer
	pub  Publisher
	cons Deliverer
}

func NewPaymentConsumer(repo Confirmer, pub Publisher, cons Deliverer) *PaymentConsumer {
	return &PaymentConsumer{repo: repo, pub: pub, cons: cons}
}

func (pc *PaymentConsumer) Run(ctx context.Context) error {
	msgs, err := pc.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := pc.Handle(ctx, d.Body); err != nil {
				log.Printf("[booking] booking_events handle error: %v -> nack & requeue", err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle processes one raw message. Malformed payloads are dropped (returning
// nil acks them); only transient failures bubble up for redelivery.
func (pc *PaymentConsumer) Handle(ctx context.Context, body []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Printf("[booking] drop undecodable booking event: %v", err)
		return nil
	}
	if env.Type != events.TypePaymentCompleted {
		return nil
	}
	ev, err := events.Unmarshal[events.PaymentCompleted](env.Data)
	if err != nil {
		log.Printf("[booking] drop malformed PAYMENT_COMPLETED: %v", err)
		return nil
	}
	if ev.BookingID == "" || ev.PaymentID == "" {
		log.Printf("[booking] drop PAYMENT_COMPLETED without ids")
		return nil
	}

	applied, b, err := pc.repo.ConfirmIfNotProcessed(ctx, ev.BookingID, ev.PaymentID)
	if errors.Is(err, domain.ErrBookingNotFound) {
		// Requeueing would redeliver forever; the ledger will never grow
		// this id.
		log.Printf("[booking] drop PAYMENT_COMPLETED for unknown booking %s", ev.BookingID)
		return nil
	}
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	env2, err := events.Wrap(events.TypeBookingConfirmed, events.BookingData{BookingID: b.ID, UserID: b.UserID})
	if err != nil {
		return nil
	}
	if err := pc.pub.PublishJSON(ctx, events.QueueNotification, env2); err != nil {
		log.Printf("[booking] publish confirmed notification failed, manual reconciliation needed: %v", err)
	}
	return nil
}
