package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Kaiser2484/bida-booking/pkg/events"
	"github.com/Kaiser2484/bida-booking/services/notification-service/internal/notifier"
)

type FeedStore interface {
	Push(ctx context.Context, msg notifier.Message) error
}

type Deliverer interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

// Worker drains notification_queue, renders each event into a user-facing
// message, stores it in the feed and hands it to the notifier.
type Worker struct {
	feed FeedStore
	out  notifier.Notifier
	cons Deliverer
}

func NewWorker(feed FeedStore, out notifier.Notifier, cons Deliverer) *Worker {
	return &Worker{feed: feed, out: out, cons: cons}
}

func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.cons.Deliveries(ctx)
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
			if err := w.Handle(ctx, d.Body); err != nil {
				log.Printf("[notify] handle failed, requeueing: %v", err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle renders and stores one event. Unknown or malformed events are
// dropped; only feed-store failures requeue.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Printf("[notify] dropping malformed event: %v", err)
		return nil
	}

	msg, ok := Render(env)
	if !ok {
		log.Printf("[notify] no template for event type %s, dropping", env.Type)
		return nil
	}
	if msg.UserID == "" {
		log.Printf("[notify] dropping %s without userId", env.Type)
		return nil
	}
	msg.ID = uuid.NewString()
	msg.SentAt = time.Now().UTC()

	if err := w.feed.Push(ctx, msg); err != nil {
		return err
	}
	if err := w.out.Send(ctx, msg); err != nil {
		// Delivery channel is best-effort; the feed already has the message.
		log.Printf("[notify] send failed for %s: %v", msg.UserID, err)
	}
	return nil
}

// Render maps an event to its message template. ok is false for types this
// service has no template for.
func Render(env events.Envelope) (notifier.Message, bool) {
	switch env.Type {
	case events.TypeBookingCreated:
		ev, err := events.Unmarshal[events.BookingData](env.Data)
		if err != nil {
			return notifier.Message{}, false
		}
		return notifier.Message{
			UserID: ev.UserID,
			Title:  "Booking received",
			Body: fmt.Sprintf("Your table is held for %s. Complete payment to confirm.",
				notifier.HumanTimeRange(ev.StartTime, ev.EndTime)),
		}, true
	case events.TypeBookingConfirmed:
		ev, err := events.Unmarshal[events.BookingData](env.Data)
		if err != nil {
			return notifier.Message{}, false
		}
		return notifier.Message{
			UserID: ev.UserID,
			Title:  "Booking confirmed",
			Body:   fmt.Sprintf("Payment received. See you at the table (booking %s).", ev.BookingID),
		}, true
	case events.TypeBookingCancelled:
		ev, err := events.Unmarshal[events.BookingData](env.Data)
		if err != nil {
			return notifier.Message{}, false
		}
		body := fmt.Sprintf("Booking %s was cancelled.", ev.BookingID)
		if ev.Reason != "" {
			body += " Reason: " + ev.Reason
		}
		return notifier.Message{UserID: ev.UserID, Title: "Booking cancelled", Body: body}, true
	case events.TypeBookingCompleted:
		ev, err := events.Unmarshal[events.BookingData](env.Data)
		if err != nil {
			return notifier.Message{}, false
		}
		return notifier.Message{
			UserID: ev.UserID,
			Title:  "Thanks for playing",
			Body:   fmt.Sprintf("Booking %s is complete. Hope to see you again.", ev.BookingID),
		}, true
	case events.TypePaymentCompleted:
		ev, err := events.Unmarshal[events.PaymentCompleted](env.Data)
		if err != nil {
			return notifier.Message{}, false
		}
		return notifier.Message{
			UserID: ev.UserID,
			Title:  "Payment received",
			Body:   fmt.Sprintf("We received your payment for booking %s.", ev.BookingID),
		}, true
	case events.TypePaymentRefunded:
		ev, err := events.Unmarshal[events.PaymentRefunded](env.Data)
		if err != nil {
			return notifier.Message{}, false
		}
		body := fmt.Sprintf("Your payment for booking %s was refunded.", ev.BookingID)
		if ev.Reason != "" {
			body += " Reason: " + ev.Reason
		}
		return notifier.Message{UserID: ev.UserID, Title: "Payment refunded", Body: body}, true
	}
	return notifier.Message{}, false
}
