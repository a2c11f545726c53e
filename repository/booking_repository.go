package repository

import (
	"context"
	"time"

	"rental-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingRepository defines data access for bookings.
type BookingRepository interface {
	// CreateIfAvailable atomically checks for conflicting bookings on the same
	// trailer and creates the booking when none exist. Returns false without
	// mutating state when the window conflicts.
	CreateIfAvailable(ctx context.Context, booking *models.Booking) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	// UpdateStatus moves the booking from one status to another, guarded on
	// the current status so concurrent transitions from the same state cannot
	// overwrite each other. Returns false when no row matched (unknown id or
	// the status changed underneath the caller).
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.BookingStatus, extra map[string]interface{}) (bool, error)
}

type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// A booking conflicts when it is non-terminal and its half-open window
// intersects the requested one. Touching endpoints do not conflict.
func (r *GormBookingRepository) CreateIfAvailable(ctx context.Context, booking *models.Booking) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Booking{}).
			Where("trailer_id = ?", booking.TrailerID).
			Where("status NOT IN ?", []models.BookingStatus{models.BookingClosed, models.BookingCancelled}).
			Where("start_time < ? AND end_time > ?", booking.EndTime, booking.StartTime).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if err := tx.Create(booking).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *GormBookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.BookingStatus, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
