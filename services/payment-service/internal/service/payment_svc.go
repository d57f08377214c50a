package service

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/Kaiser2484/bida-booking/pkg/events"
	"github.com/Kaiser2484/bida-booking/services/payment-service/internal/domain"
)

type Ledger interface {
	CreatePending(ctx context.Context, p *domain.Payment) (bool, error)
	ByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error)
	MarkCompleted(ctx context.Context, bookingID, method, txRef string) (*domain.Payment, error)
	MarkFailed(ctx context.Context, bookingID string) (*domain.Payment, error)
	MarkRefunded(ctx context.Context, bookingID string) (*domain.Payment, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, queue string, v any) error
}

type PaymentSvc struct {
	ledger Ledger
	pub    Publisher
}

func NewPaymentSvc(ledger Ledger, pub Publisher) *PaymentSvc {
	return &PaymentSvc{ledger: ledger, pub: pub}
}

// Open records a pending payment for a freshly created booking. Called from
// the payment_queue consumer, so it must tolerate redelivery.
func (s *PaymentSvc) Open(ctx context.Context, ev events.CreatePayment) error {
	created, err := s.ledger.CreatePending(ctx, &domain.Payment{
		BookingID: ev.BookingID,
		UserID:    ev.UserID,
		Amount:    ev.Amount,
	})
	if err != nil {
		return err
	}
	if !created {
		log.Printf("[payment] payment for booking %s already open, skipping", ev.BookingID)
	}
	return nil
}

// Complete settles the payment and tells the rest of the system. The charge
// itself is out of band (cash at the counter, transfer slip checked by staff),
// so there is no gateway call here.
func (s *PaymentSvc) Complete(ctx context.Context, bookingID, method string) (*domain.Payment, error) {
	if method == "" {
		method = "cash"
	}
	p, err := s.ledger.MarkCompleted(ctx, bookingID, method, uuid.NewString())
	if err != nil {
		return nil, err
	}

	done := events.PaymentCompleted{
		BookingID: p.BookingID,
		PaymentID: p.ID,
		UserID:    p.UserID,
		Amount:    p.Amount,
		Method:    p.Method,
	}
	s.publish(ctx, events.QueueBooking, events.TypePaymentCompleted, done)
	s.publish(ctx, events.QueueNotification, events.TypePaymentCompleted, done)
	return p, nil
}

func (s *PaymentSvc) Refund(ctx context.Context, bookingID, reason string) (*domain.Payment, error) {
	p, err := s.ledger.MarkRefunded(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.QueueNotification, events.TypePaymentRefunded, events.PaymentRefunded{
		BookingID: p.BookingID,
		PaymentID: p.ID,
		UserID:    p.UserID,
		Amount:    p.Amount,
		Reason:    reason,
	})
	return p, nil
}

func (s *PaymentSvc) Get(ctx context.Context, bookingID string) (*domain.Payment, error) {
	return s.ledger.ByBookingID(ctx, bookingID)
}

func (s *PaymentSvc) Stats(ctx context.Context) (*domain.Stats, error) {
	return s.ledger.Stats(ctx)
}

func (s *PaymentSvc) publish(ctx context.Context, queue, typ string, data any) {
	env, err := events.Wrap(typ, data)
	if err != nil {
		log.Printf("[payment] encode %s failed: %v", typ, err)
		return
	}
	if err := s.pub.PublishJSON(ctx, queue, env); err != nil {
		log.Printf("[payment] publish to %s failed, manual reconciliation needed: %v", queue, err)
	}
}
