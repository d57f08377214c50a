package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/domain"
)

type BookingRepo struct{ db *gorm.DB }

func NewBookingRepo(db *gorm.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Booking{}, &domain.EventConsumed{})
}

// FindConflicts returns non-cancelled bookings on the table whose half-open
// interval intersects [start, end): existing.start < end AND existing.end >
// start. Callers must hold the slot lock so the check and the insert are one
// critical section.
func (r *BookingRepo) FindConflicts(ctx context.Context, tableID string, start, end time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("table_id = ? AND status IN ?", tableID, []domain.Status{domain.StatusPending, domain.StatusConfirmed}).
		Where("start_time < ? AND end_time > ?", end, start).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

type tableRate struct {
	Rate   int64
	ClubID string
}

// TableRate resolves the effective hourly rate (table override, else the
// type default) and the owning club, both needed at pricing time.
func (r *BookingRepo) TableRate(ctx context.Context, tableID string) (rate int64, clubID string, err error) {
	var row tableRate
	res := r.db.WithContext(ctx).Raw(
		`SELECT COALESCE(t.hourly_rate, tt.price_per_hour) AS rate, t.club_id
		 FROM tables t JOIN table_types tt ON t.table_type_id = tt.id
		 WHERE t.id = ?`, tableID).Scan(&row)
	if res.Error != nil {
		return 0, "", res.Error
	}
	if res.RowsAffected == 0 {
		return 0, "", domain.ErrTableNotFound
	}
	return row.Rate, row.ClubID, nil
}

// CreateWithNoOverlap inserts inside a transaction that re-runs the overlap
// check with the candidate rows locked. The slot lock serializes same-slot
// requests; this is the ledger-level backstop for overlapping windows with
// different start times, which hash to different lock keys.
func (r *BookingRepo) CreateWithNoOverlap(ctx context.Context, b *domain.Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Booking
		err := tx.Model(&domain.Booking{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("table_id = ? AND status IN ?", b.TableID, []domain.Status{domain.StatusPending, domain.StatusConfirmed}).
			Where("start_time < ? AND end_time > ?", b.EndTime, b.StartTime).
			Take(&existing).Error
		if err == nil {
			return domain.ErrSchedulingConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		return tx.Create(b).Error
	})
}

func (r *BookingRepo) ByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// Transition applies a conditional update: the row moves to target only if
// its current status still permits it. Zero affected rows means some other
// caller won (or the id is unknown); the loser gets a typed error.
func (r *BookingRepo) Transition(ctx context.Context, id string, target domain.Status, extra map[string]any) (*domain.Booking, error) {
	updates := map[string]any{"status": target, "updated_at": time.Now().UTC()}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ? AND status IN ?", id, domain.SourceStates(target)).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		cur, err := r.ByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &domain.IllegalTransitionError{Current: cur.Status, Target: target}
	}
	return r.ByID(ctx, id)
}

// Cancel appends the reason to the notes so the row keeps its audit trail.
func (r *BookingRepo) Cancel(ctx context.Context, id, reason string) (*domain.Booking, error) {
	if reason == "" {
		reason = "no reason given"
	}
	return r.Transition(ctx, id, domain.StatusCancelled, map[string]any{
		"notes": gorm.Expr("COALESCE(notes, '') || ?", " | cancelled: "+reason),
	})
}

// ConfirmIfNotProcessed is the idempotent payment-driven confirm. The event
// id and the conditional update commit in one transaction, so a redelivered
// PAYMENT_COMPLETED neither double-confirms nor double-notifies. applied is
// true only for the delivery that actually moved the row.
func (r *BookingRepo) ConfirmIfNotProcessed(ctx context.Context, bookingID, eventID string) (applied bool, b *domain.Booking, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&domain.EventConsumed{}).Where("id = ?", eventID).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			return nil
		}
		res := tx.Model(&domain.Booking{}).
			Where("id = ? AND status = ?", bookingID, domain.StatusPending).
			Updates(map[string]any{"status": domain.StatusConfirmed, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected > 0
		rec := domain.EventConsumed{ID: eventID, EventKey: "payment.completed", ProcessedAt: time.Now().UTC()}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return false, nil, err
	}
	b, err = r.ByID(ctx, bookingID)
	if err != nil {
		return false, nil, err
	}
	return applied, b, nil
}

type ListFilter struct {
	Date   string // YYYY-MM-DD, matches bookings starting that day
	Status domain.Status
	ClubID string
	UserID string
}

func (r *BookingRepo) List(ctx context.Context, f ListFilter) ([]domain.Booking, error) {
	qb := r.db.WithContext(ctx).Model(&domain.Booking{})
	if f.UserID != "" {
		qb = qb.Where("user_id = ?", f.UserID)
	}
	if f.ClubID != "" {
		qb = qb.Where("club_id = ?", f.ClubID)
	}
	if f.Status != "" {
		qb = qb.Where("status = ?", f.Status)
	}
	if f.Date != "" {
		d, err := time.Parse("2006-01-02", f.Date)
		if err != nil {
			return nil, domain.Validationf("date must be YYYY-MM-DD, got %q", f.Date)
		}
		from := d.UTC()
		to := from.Add(24 * time.Hour)
		qb = qb.Where("start_time >= ? AND start_time < ?", from, to)
	}
	var out []domain.Booking
	if err := qb.Order("start_time DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
