package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Kaiser2484/bida-booking/services/table-service/internal/domain"
)

type TableRepo struct {
	db *gorm.DB
}

func NewTableRepo(db *gorm.DB) *TableRepo {
	return &TableRepo{db: db}
}

func (r *TableRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.Club{}, &domain.TableType{}, &domain.Table{})
}

// List returns joined listing rows, newest clubs first so floor plans stay
// stable across pages.
func (r *TableRepo) List(ctx context.Context, clubID string, status domain.TableStatus) ([]domain.TableInfo, error) {
	q := r.db.WithContext(ctx).Table("tables t").
		Select("t.*, c.name AS club_name, tt.name AS type_name").
		Joins("JOIN clubs c ON c.id = t.club_id").
		Joins("JOIN table_types tt ON tt.id = t.table_type_id").
		Where("t.is_active = ?", true)
	if clubID != "" {
		q = q.Where("t.club_id = ?", clubID)
	}
	if status != "" {
		q = q.Where("t.status = ?", status)
	}
	var rows []domain.TableInfo
	if err := q.Order("t.club_id, t.floor, t.table_number").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TableRepo) ByID(ctx context.Context, id string) (*domain.Table, error) {
	var t domain.Table
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TableRepo) Create(ctx context.Context, t *domain.Table) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = domain.TableAvailable
	}
	return r.db.WithContext(ctx).Create(t).Error
}

// UpdateStatus writes the projected status and returns the updated row so the
// caller knows which club's cache to invalidate.
func (r *TableRepo) UpdateStatus(ctx context.Context, id string, status domain.TableStatus) (*domain.Table, error) {
	res := r.db.WithContext(ctx).Model(&domain.Table{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrTableNotFound
	}
	return r.ByID(ctx, id)
}

// AvailableForSlot lists tables in a club with no pending or confirmed booking
// overlapping [start, end). The bookings table lives in the booking schema but
// both services share the database, same as the court finder did.
func (r *TableRepo) AvailableForSlot(ctx context.Context, clubID string, start, end time.Time) ([]domain.TableInfo, error) {
	q := r.db.WithContext(ctx).Table("tables t").
		Select("t.*, c.name AS club_name, tt.name AS type_name").
		Joins("JOIN clubs c ON c.id = t.club_id").
		Joins("JOIN table_types tt ON tt.id = t.table_type_id").
		Where("t.is_active = ?", true).
		Where("t.status <> ?", domain.TableMaintenance).
		Where(`t.id NOT IN (
			SELECT b.table_id FROM bookings b
			WHERE b.status IN ('pending','confirmed')
			  AND b.start_time < ? AND b.end_time > ?)`, end, start)
	if clubID != "" {
		q = q.Where("t.club_id = ?", clubID)
	}
	var rows []domain.TableInfo
	if err := q.Order("t.floor, t.table_number").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *TableRepo) Clubs(ctx context.Context) ([]domain.Club, error) {
	var clubs []domain.Club
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&clubs).Error
	return clubs, err
}

func (r *TableRepo) TableTypes(ctx context.Context) ([]domain.TableType, error) {
	var types []domain.TableType
	err := r.db.WithContext(ctx).Order("price_per_hour").Find(&types).Error
	return types, err
}
