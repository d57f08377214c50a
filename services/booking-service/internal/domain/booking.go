package domain

import "time"

// Status is the closed set of booking states. Transition legality lives in
// the transitions table below, not in ad hoc string comparisons.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// CanTransition reports whether from -> to is a legal move. Terminal states
// (completed, cancelled, no_show) have no outgoing edges.
func (s Status) CanTransition(to Status) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// SourceStates lists every state that may legally move to target. Used by the
// repository to phrase conditional updates.
func SourceStates(target Status) []Status {
	var out []Status
	for from, tos := range transitions {
		for _, t := range tos {
			if t == target {
				out = append(out, from)
			}
		}
	}
	return out
}

// Booking is the ledger row. TotalPrice is in currency minor units so pricing
// never goes through floating point. Intervals are half-open [start, end).
type Booking struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"index" json:"userId"`
	TableID    string    `gorm:"index" json:"tableId"`
	ClubID     string    `gorm:"index" json:"clubId"` // denormalized for listing filters
	StartTime  time.Time `gorm:"index" json:"startTime"`
	EndTime    time.Time `gorm:"index" json:"endTime"`
	TotalPrice int64     `json:"totalPrice"`
	Notes      string    `json:"notes,omitempty"`
	Status     Status    `gorm:"index" json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// EventConsumed records already-processed bus messages so payment-driven
// confirms stay idempotent under at-least-once delivery.
type EventConsumed struct {
	ID          string `gorm:"primaryKey"` // unique event id (e.g. payment id)
	EventKey    string `gorm:"index"`
	ProcessedAt time.Time
}

func (EventConsumed) TableName() string { return "events_consumed" }
