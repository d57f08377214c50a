package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Kaiser2484/bida-booking/services/payment-service/internal/domain"
)

type PaymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepo(db *gorm.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

func (r *PaymentRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Payment{})
}

// CreatePending inserts a pending payment for the booking. Redeliveries hit
// the unique booking_id index and turn into no-ops; created reports whether
// this call inserted the row.
func (r *PaymentRepo) CreatePending(ctx context.Context, p *domain.Payment) (created bool, err error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Status = domain.PaymentPending
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "booking_id"}},
		DoNothing: true,
	}).Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentRepo) ByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).First(&p, "booking_id = ?", bookingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// MarkCompleted moves pending -> completed with a conditional update so two
// concurrent completions cannot both win.
func (r *PaymentRepo) MarkCompleted(ctx context.Context, bookingID, method, txRef string) (*domain.Payment, error) {
	return r.transition(ctx, bookingID, domain.PaymentPending, domain.PaymentCompleted, map[string]any{
		"status":          domain.PaymentCompleted,
		"method":          method,
		"transaction_ref": txRef,
	})
}

func (r *PaymentRepo) MarkFailed(ctx context.Context, bookingID string) (*domain.Payment, error) {
	return r.transition(ctx, bookingID, domain.PaymentPending, domain.PaymentFailed, map[string]any{
		"status": domain.PaymentFailed,
	})
}

func (r *PaymentRepo) MarkRefunded(ctx context.Context, bookingID string) (*domain.Payment, error) {
	return r.transition(ctx, bookingID, domain.PaymentCompleted, domain.PaymentRefunded, map[string]any{
		"status": domain.PaymentRefunded,
	})
}

func (r *PaymentRepo) transition(ctx context.Context, bookingID string, from, to domain.PaymentStatus, updates map[string]any) (*domain.Payment, error) {
	res := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("booking_id = ? AND status = ?", bookingID, from).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		current, err := r.ByBookingID(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		return nil, &domain.IllegalStateError{Current: current.Status, Target: to}
	}
	return r.ByBookingID(ctx, bookingID)
}

func (r *PaymentRepo) Stats(ctx context.Context) (*domain.Stats, error) {
	var s domain.Stats
	err := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Select(`COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0) AS total_completed,
			COUNT(*) FILTER (WHERE status = 'completed') AS count_completed,
			COUNT(*) FILTER (WHERE status = 'pending') AS count_pending,
			COUNT(*) FILTER (WHERE status = 'refunded') AS count_refunded`).
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
