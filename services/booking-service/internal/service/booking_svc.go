package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Kaiser2484/bida-booking/pkg/events"
	"github.com/Kaiser2484/bida-booking/pkg/lock"
	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/domain"
	"github.com/Kaiser2484/bida-booking/services/booking-service/internal/repository"
)

// Ledger is the slice of the booking repository the service needs.
type Ledger interface {
	FindConflicts(ctx context.Context, tableID string, start, end time.Time) ([]domain.Booking, error)
	TableRate(ctx context.Context, tableID string) (rate int64, clubID string, err error)
	CreateWithNoOverlap(ctx context.Context, b *domain.Booking) error
	ByID(ctx context.Context, id string) (*domain.Booking, error)
	Transition(ctx context.Context, id string, target domain.Status, extra map[string]any) (*domain.Booking, error)
	Cancel(ctx context.Context, id, reason string) (*domain.Booking, error)
	List(ctx context.Context, f repository.ListFilter) ([]domain.Booking, error)
}

// Locker provides the scoped slot lock; fn runs only while the lock is held
// and release happens on every exit path.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type Publisher interface {
	PublishJSON(ctx context.Context, queue string, v any) error
}

type BookingSvc struct {
	repo  Ledger
	locks Locker
	pub   Publisher
}

func NewBookingSvc(repo Ledger, locks Locker, pub Publisher) *BookingSvc {
	return &BookingSvc{repo: repo, locks: locks, pub: pub}
}

type CreateInput struct {
	UserID    string
	TableID   string
	StartTime time.Time
	EndTime   time.Time
	Notes     string
}

func (in CreateInput) validate() error {
	if in.UserID == "" {
		return domain.Validationf("userId is required")
	}
	if in.TableID == "" {
		return domain.Validationf("tableId is required")
	}
	if !in.EndTime.After(in.StartTime) {
		return domain.Validationf("end time must be strictly after start time")
	}
	return nil
}

// Create is the coordination core's critical section: slot lock, conflict
// check, pricing and insert all happen while the lock is held, then the
// lock is released and the three saga events go out. Events are independent
// and fire-and-forget; a publish failure after the row is persisted is
// logged for manual reconciliation, not compensated.
func (s *BookingSvc) Create(ctx context.Context, in CreateInput) (*domain.Booking, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var b *domain.Booking
	key := lock.SlotKey(in.TableID, in.StartTime)
	err := s.locks.WithLock(ctx, key, func(ctx context.Context) error {
		conflicts, err := s.repo.FindConflicts(ctx, in.TableID, in.StartTime, in.EndTime)
		if err != nil {
			return fmt.Errorf("%w: conflict check: %v", domain.ErrDownstreamUnavailable, err)
		}
		if len(conflicts) > 0 {
			return domain.ErrSchedulingConflict
		}

		rate, clubID, err := s.repo.TableRate(ctx, in.TableID)
		if err != nil {
			if errors.Is(err, domain.ErrTableNotFound) {
				return err
			}
			return fmt.Errorf("%w: rate lookup: %v", domain.ErrDownstreamUnavailable, err)
		}
		price, err := Price(rate, in.StartTime, in.EndTime)
		if err != nil {
			return err
		}

		b = &domain.Booking{
			UserID:     in.UserID,
			TableID:    in.TableID,
			ClubID:     clubID,
			StartTime:  in.StartTime.UTC(),
			EndTime:    in.EndTime.UTC(),
			TotalPrice: price,
			Notes:      in.Notes,
			Status:     domain.StatusPending,
		}
		// re-checks the overlap under row locks before inserting; catches
		// overlapping windows whose start times map to different lock keys
		if err := s.repo.CreateWithNoOverlap(ctx, b); err != nil {
			if errors.Is(err, domain.ErrSchedulingConflict) {
				return err
			}
			return fmt.Errorf("%w: persist booking: %v", domain.ErrDownstreamUnavailable, err)
		}
		return nil
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, domain.ErrLockContention
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.QueueTableStatus, events.TableStatus{
		TableID: b.TableID, Status: "reserved", BookingID: b.ID,
	})
	s.publishEnvelope(ctx, events.QueueNotification, events.TypeBookingCreated, events.BookingData{
		BookingID: b.ID, UserID: b.UserID, TableID: b.TableID,
		StartTime: b.StartTime.Format(time.RFC3339), EndTime: b.EndTime.Format(time.RFC3339),
		TotalPrice: b.TotalPrice,
	})
	s.publishEnvelope(ctx, events.QueuePayment, events.TypeCreatePayment, events.CreatePayment{
		BookingID: b.ID, Amount: b.TotalPrice, UserID: b.UserID,
	})
	return b, nil
}

// Confirm moves pending -> confirmed. The table stays reserved, so no table
// event goes out; the one outward event is the notification.
func (s *BookingSvc) Confirm(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.repo.Transition(ctx, id, domain.StatusConfirmed, nil)
	if err != nil {
		return nil, err
	}
	s.publishEnvelope(ctx, events.QueueNotification, events.TypeBookingConfirmed, events.BookingData{
		BookingID: b.ID, UserID: b.UserID,
	})
	return b, nil
}

func (s *BookingSvc) Cancel(ctx context.Context, id, reason string) (*domain.Booking, error) {
	b, err := s.repo.Cancel(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.QueueTableStatus, events.TableStatus{
		TableID: b.TableID, Status: "available", BookingID: b.ID,
	})
	s.publishEnvelope(ctx, events.QueueNotification, events.TypeBookingCancelled, events.BookingData{
		BookingID: b.ID, UserID: b.UserID, Reason: reason,
	})
	return b, nil
}

func (s *BookingSvc) Complete(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.repo.Transition(ctx, id, domain.StatusCompleted, nil)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.QueueTableStatus, events.TableStatus{
		TableID: b.TableID, Status: "available", BookingID: b.ID,
	})
	s.publishEnvelope(ctx, events.QueueNotification, events.TypeBookingCompleted, events.BookingData{
		BookingID: b.ID, UserID: b.UserID,
	})
	return b, nil
}

// NoShow is a staff action from confirmed. It frees the table; there is no
// no-show entry in the notification catalog, so none is sent.
func (s *BookingSvc) NoShow(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.repo.Transition(ctx, id, domain.StatusNoShow, nil)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.QueueTableStatus, events.TableStatus{
		TableID: b.TableID, Status: "available", BookingID: b.ID,
	})
	return b, nil
}

func (s *BookingSvc) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return s.repo.ByID(ctx, id)
}

func (s *BookingSvc) List(ctx context.Context, f repository.ListFilter) ([]domain.Booking, error) {
	if f.Date != "" {
		if _, err := time.Parse("2006-01-02", f.Date); err != nil {
			return nil, domain.Validationf("date must be YYYY-MM-DD, got %q", f.Date)
		}
	}
	return s.repo.List(ctx, f)
}

func (s *BookingSvc) publish(ctx context.Context, queue string, v any) {
	if err := s.pub.PublishJSON(ctx, queue, v); err != nil {
		log.Printf("[booking] publish to %s failed, manual reconciliation needed: %v", queue, err)
	}
}

func (s *BookingSvc) publishEnvelope(ctx context.Context, queue, typ string, data any) {
	env, err := events.Wrap(typ, data)
	if err != nil {
		log.Printf("[booking] encode %s event: %v", typ, err)
		return
	}
	s.publish(ctx, queue, env)
}
