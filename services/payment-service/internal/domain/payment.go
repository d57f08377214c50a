package domain

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Payment is one charge per booking. The unique booking_id index is what makes
// CREATE_PAYMENT redeliveries harmless.
type Payment struct {
	ID             string        `gorm:"primaryKey" json:"id"`
	BookingID      string        `gorm:"uniqueIndex" json:"bookingId"`
	UserID         string        `gorm:"index" json:"userId"`
	Amount         int64         `json:"amount"`
	Method         string        `json:"method,omitempty"`
	Status         PaymentStatus `gorm:"index;default:pending" json:"status"`
	TransactionRef string        `json:"transactionRef,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Stats is the aggregate view served to staff dashboards.
type Stats struct {
	TotalCompleted int64 `json:"totalCompleted"`
	CountCompleted int64 `json:"countCompleted"`
	CountPending   int64 `json:"countPending"`
	CountRefunded  int64 `json:"countRefunded"`
}
