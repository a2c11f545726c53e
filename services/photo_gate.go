package services

import (
	"context"
	"errors"
	"time"

	"rental-service/events"
	"rental-service/models"
	"rental-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PhotoGate tracks completeness of the four-side photo set per booking per
// phase. It only sees opaque photo refs; upload and storage live elsewhere.
// When the check-out set completes it publishes CheckoutCompleted rather than
// invoking settlement directly.
type PhotoGate struct {
	photos     repository.PhotoCheckRepository
	bookings   *BookingService
	bus        *events.Bus
	checkLocks *keyedMutex
	logger     *zap.Logger
}

func NewPhotoGate(photos repository.PhotoCheckRepository, bookings *BookingService, bus *events.Bus, logger *zap.Logger) *PhotoGate {
	return &PhotoGate{
		photos:     photos,
		bookings:   bookings,
		bus:        bus,
		checkLocks: newKeyedMutex(),
		logger:     logger,
	}
}

// Attach upserts one side's photo ref. Re-uploading a side overwrites. When
// the check-out set just completed on an ACTIVE booking, the booking moves to
// RETURNED and the settlement trigger fires.
func (s *PhotoGate) Attach(ctx context.Context, bookingID uuid.UUID, phase models.Phase, side models.Side, photoRef string) (*models.PhotoCheck, error) {
	// Sides of the same check are read-modify-write on one row; serialize them
	// so concurrent uploads cannot drop each other's refs.
	unlock := s.checkLocks.Lock(bookingID.String() + "/" + string(phase))
	defer unlock()

	booking, err := s.bookings.Find(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if models.IsTerminal(booking.Status) {
		return nil, ErrBookingTerminal
	}

	check, err := s.photos.GetOrCreate(ctx, bookingID, phase)
	if err != nil {
		return nil, err
	}

	ref := photoRef
	check.SetRef(side, &ref)
	completed := check.Recompute()
	if err := s.photos.Save(ctx, check); err != nil {
		return nil, err
	}

	if completed && phase == models.PhaseCheckOut && booking.Status == models.BookingActive {
		if _, err := s.bookings.Transition(ctx, bookingID, models.BookingReturned); err != nil {
			return check, err
		}
		s.logger.Info("check-out photo set complete; settlement triggered",
			zap.String("booking_id", bookingID.String()),
		)
		s.bus.Publish(events.CheckoutCompleted{BookingID: bookingID, At: time.Now().UTC()})
	}
	return check, nil
}

// Remove deletes one side's ref; a completed check flips back to MISSING.
func (s *PhotoGate) Remove(ctx context.Context, bookingID uuid.UUID, phase models.Phase, side models.Side) (*models.PhotoCheck, error) {
	unlock := s.checkLocks.Lock(bookingID.String() + "/" + string(phase))
	defer unlock()

	check, err := s.photos.Find(ctx, bookingID, phase)
	if err != nil {
		return nil, err
	}
	check.SetRef(side, nil)
	check.Recompute()
	if err := s.photos.Save(ctx, check); err != nil {
		return nil, err
	}
	return check, nil
}

// IsComplete reports whether all four sides are present for a phase.
func (s *PhotoGate) IsComplete(ctx context.Context, bookingID uuid.UUID, phase models.Phase) (bool, error) {
	check, err := s.photos.Find(ctx, bookingID, phase)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return check.Status == models.PhotoCheckCompleted, nil
}
