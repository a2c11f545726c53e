package repository

import (
	"context"
	"time"

	"rental-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepository defines data access for payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.Payment, error)
	FindByBookingAndKind(ctx context.Context, bookingID uuid.UUID, kind models.PaymentKind) (*models.Payment, error)
	SetGatewayResult(ctx context.Context, id uuid.UUID, gatewayPaymentID, redirectURL string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
}

// ReconciliationHoldRepository records webhook deliveries whose booking
// transition could not be applied yet.
type ReconciliationHoldRepository interface {
	Create(ctx context.Context, hold *models.ReconciliationHold) error
}

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *GormPaymentRepository) FindByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("gateway_payment_id = ?", gatewayPaymentID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *GormPaymentRepository) FindByBookingAndKind(ctx context.Context, bookingID uuid.UUID, kind models.PaymentKind) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("booking_id = ? AND kind = ?", bookingID, kind).
		Order("created_at DESC").
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *GormPaymentRepository) SetGatewayResult(ctx context.Context, id uuid.UUID, gatewayPaymentID, redirectURL string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"gateway_payment_id": gatewayPaymentID,
			"redirect_url":       redirectURL,
			"updated_at":         time.Now(),
		}).Error
}

func (r *GormPaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

type GormReconciliationHoldRepository struct {
	db *gorm.DB
}

func NewGormReconciliationHoldRepository(db *gorm.DB) *GormReconciliationHoldRepository {
	return &GormReconciliationHoldRepository{db: db}
}

func (r *GormReconciliationHoldRepository) Create(ctx context.Context, hold *models.ReconciliationHold) error {
	return r.db.WithContext(ctx).Create(hold).Error
}
