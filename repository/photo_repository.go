package repository

import (
	"context"
	"errors"

	"rental-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PhotoCheckRepository defines data access for per-phase photo checks.
type PhotoCheckRepository interface {
	// GetOrCreate returns the check for (booking, phase), creating an empty
	// MISSING row on first use.
	GetOrCreate(ctx context.Context, bookingID uuid.UUID, phase models.Phase) (*models.PhotoCheck, error)
	Find(ctx context.Context, bookingID uuid.UUID, phase models.Phase) (*models.PhotoCheck, error)
	Save(ctx context.Context, check *models.PhotoCheck) error
}

type GormPhotoCheckRepository struct {
	db *gorm.DB
}

func NewGormPhotoCheckRepository(db *gorm.DB) *GormPhotoCheckRepository {
	return &GormPhotoCheckRepository{db: db}
}

func (r *GormPhotoCheckRepository) GetOrCreate(ctx context.Context, bookingID uuid.UUID, phase models.Phase) (*models.PhotoCheck, error) {
	check, err := r.Find(ctx, bookingID, phase)
	if err == nil {
		return check, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	check = &models.PhotoCheck{
		BookingID: bookingID,
		Phase:     phase,
		Status:    models.PhotoCheckMissing,
	}
	if err := r.db.WithContext(ctx).Create(check).Error; err != nil {
		return nil, err
	}
	return check, nil
}

func (r *GormPhotoCheckRepository) Find(ctx context.Context, bookingID uuid.UUID, phase models.Phase) (*models.PhotoCheck, error) {
	var check models.PhotoCheck
	if err := r.db.WithContext(ctx).
		Where("booking_id = ? AND phase = ?", bookingID, phase).
		First(&check).Error; err != nil {
		return nil, err
	}
	return &check, nil
}

func (r *GormPhotoCheckRepository) Save(ctx context.Context, check *models.PhotoCheck) error {
	return r.db.WithContext(ctx).Save(check).Error
}
