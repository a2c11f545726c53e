package repository

import (
	"context"
	"time"

	"rental-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DepositRefundRepository defines data access for deposit settlements.
type DepositRefundRepository interface {
	Create(ctx context.Context, refund *models.DepositRefund) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.DepositRefund, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RefundStatus, completedAt *time.Time) error
}

// DamageRecordRepository persists per-side verdicts for the audit trail.
type DamageRecordRepository interface {
	SaveAll(ctx context.Context, records []models.DamageRecord) error
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.DamageRecord, error)
}

type GormDepositRefundRepository struct {
	db *gorm.DB
}

func NewGormDepositRefundRepository(db *gorm.DB) *GormDepositRefundRepository {
	return &GormDepositRefundRepository{db: db}
}

func (r *GormDepositRefundRepository) Create(ctx context.Context, refund *models.DepositRefund) error {
	return r.db.WithContext(ctx).Create(refund).Error
}

func (r *GormDepositRefundRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.DepositRefund, error) {
	var refund models.DepositRefund
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

func (r *GormDepositRefundRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RefundStatus, completedAt *time.Time) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	return r.db.WithContext(ctx).
		Model(&models.DepositRefund{}).
		Where("id = ?", id).
		Updates(updates).Error
}

type GormDamageRecordRepository struct {
	db *gorm.DB
}

func NewGormDamageRecordRepository(db *gorm.DB) *GormDamageRecordRepository {
	return &GormDamageRecordRepository{db: db}
}

func (r *GormDamageRecordRepository) SaveAll(ctx context.Context, records []models.DamageRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *GormDamageRecordRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.DamageRecord, error) {
	var records []models.DamageRecord
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
