package events

import (
	"encoding/json"
	"fmt"
)

// Durable queue names shared by every service.
const (
	QueueTableStatus  = "table_status_update"
	QueueNotification = "notification_queue"
	QueuePayment      = "payment_queue"
	QueueBooking      = "booking_events"
)

// Event types carried in the Envelope.
const (
	TypeBookingCreated   = "BOOKING_CREATED"
	TypeBookingConfirmed = "BOOKING_CONFIRMED"
	TypeBookingCancelled = "BOOKING_CANCELLED"
	TypeBookingCompleted = "BOOKING_COMPLETED"
	TypePaymentCompleted = "PAYMENT_COMPLETED"
	TypePaymentRefunded  = "PAYMENT_REFUNDED"
	TypeCreatePayment    = "CREATE_PAYMENT"
)

// Envelope is the wire format for notification_queue, payment_queue and
// booking_events. Data always carries enough ids for consumers to act
// idempotently.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TableStatus goes on table_status_update. BookingID is empty when the
// status change is not tied to a booking (staff toggles, maintenance).
type TableStatus struct {
	TableID   string `json:"tableId"`
	Status    string `json:"status"`
	BookingID string `json:"bookingId,omitempty"`
}

type BookingData struct {
	BookingID  string `json:"bookingId"`
	UserID     string `json:"userId"`
	TableID    string `json:"tableId,omitempty"`
	StartTime  string `json:"startTime,omitempty"` // RFC3339
	EndTime    string `json:"endTime,omitempty"`
	TotalPrice int64  `json:"totalPrice,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type CreatePayment struct {
	BookingID string `json:"bookingId"`
	Amount    int64  `json:"amount"`
	UserID    string `json:"userId"`
}

type PaymentCompleted struct {
	BookingID string `json:"bookingId"`
	PaymentID string `json:"paymentId"`
	UserID    string `json:"userId"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
}

type PaymentRefunded struct {
	BookingID string `json:"bookingId"`
	PaymentID string `json:"paymentId"`
	UserID    string `json:"userId"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

// Wrap builds an Envelope around any payload struct.
func Wrap(typ string, data any) (Envelope, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return Envelope{Type: typ, Data: b}, nil
}

// Unmarshal decodes an Envelope's data into the given payload type.
func Unmarshal[T any](raw json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(raw, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
