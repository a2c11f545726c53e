package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rental-service/models"
	"rental-service/pricing"
	"rental-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateBookingRequest struct {
	TrailerID  uuid.UUID
	StartTime  time.Time
	EndTime    time.Time
	RentalType models.RentalType
	AddOns     []string
}

// BookingService owns bookings and their state transitions. Creation is
// serialized per trailer so two overlapping requests cannot both pass the
// conflict check.
type BookingService struct {
	bookings     repository.BookingRepository
	payments     repository.PaymentRepository
	catalog      Catalog
	gateway      GatewayAPI
	producer     EventPublisher
	logger       *zap.Logger
	trailerLocks *keyedMutex
}

func NewBookingService(
	bookings repository.BookingRepository,
	payments repository.PaymentRepository,
	catalog Catalog,
	gw GatewayAPI,
	producer EventPublisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:     bookings,
		payments:     payments,
		catalog:      catalog,
		gateway:      gw,
		producer:     producer,
		logger:       logger,
		trailerLocks: newKeyedMutex(),
	}
}

// CreateBooking quotes the window, then atomically checks availability and
// creates the booking with the frozen pricing snapshot.
func (s *BookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req *CreateBookingRequest) (*models.Booking, error) {
	trailer, err := s.catalog.GetTrailer(ctx, req.TrailerID)
	if err != nil {
		return nil, err
	}

	breakdown, err := pricing.Quote(req.StartTime, req.EndTime, req.RentalType, req.AddOns, trailer.Rates())
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ID:            uuid.New(),
		UserID:        userID,
		TrailerID:     req.TrailerID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		RentalType:    req.RentalType,
		AddOns:        strings.Join(req.AddOns, ","),
		BaseCost:      breakdown.BaseCost,
		AddOnCost:     breakdown.AddOnCost,
		DepositAmount: breakdown.DepositAmount,
		TotalAmount:   breakdown.Total,
		Status:        models.BookingPendingPayment,
	}

	unlock := s.trailerLocks.Lock(req.TrailerID.String())
	defer unlock()

	created, err := s.bookings.CreateIfAvailable(ctx, booking)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, ErrSlotUnavailable
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("trailer_id", booking.TrailerID.String()),
		zap.Int64("total", booking.TotalAmount),
	)
	s.publish("booking_created", booking)
	return booking, nil
}

// Find loads a booking without an ownership check, for internal callers.
func (s *BookingService) Find(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return s.bookings.FindByID(ctx, id)
}

// GetBooking loads a booking scoped to its owner.
func (s *BookingService) GetBooking(ctx context.Context, userID, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, ErrForbidden
	}
	return booking, nil
}

// Transition moves a booking one step along the lifecycle. Same-state is a
// no-op; anything else outside the state machine is an error, logged loudly.
func (s *BookingService) Transition(ctx context.Context, bookingID uuid.UUID, target models.BookingStatus) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == target {
		return booking, nil
	}
	if !models.CanTransition(booking.Status, target) {
		s.logger.Error("invalid booking transition attempted",
			zap.String("booking_id", bookingID.String()),
			zap.String("from", string(booking.Status)),
			zap.String("to", string(target)),
		)
		return nil, fmt.Errorf("%s -> %s: %w", booking.Status, target, ErrInvalidTransition)
	}

	extra := map[string]interface{}{}
	now := time.Now()
	switch target {
	case models.BookingCancelled:
		extra["canceled_at"] = &now
	case models.BookingClosed:
		extra["closed_at"] = &now
	}

	updated, err := s.bookings.UpdateStatus(ctx, booking.ID, booking.Status, target, extra)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Lost the write to a concurrent transition from the same state.
		current, err := s.bookings.FindByID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == target {
			return current, nil
		}
		s.logger.Error("booking transition lost to a concurrent update",
			zap.String("booking_id", bookingID.String()),
			zap.String("read", string(booking.Status)),
			zap.String("now", string(current.Status)),
			zap.String("target", string(target)),
		)
		return nil, fmt.Errorf("%s -> %s: %w", current.Status, target, ErrInvalidTransition)
	}
	booking.Status = target

	s.publish("booking_"+strings.ToLower(string(target)), booking)
	return booking, nil
}

// Cancel honors a cancellation request only while the booking is
// PENDING_PAYMENT or PAID. A deposit hold that was already authorized is
// voided at the gateway; if the void fails the webhook/poll path reconciles
// it later.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingPendingPayment && booking.Status != models.BookingPaid {
		return nil, ErrNotCancellable
	}

	if dep, err := s.payments.FindByBookingAndKind(ctx, booking.ID, models.PaymentDepositHold); err == nil &&
		dep.GatewayPaymentID != nil && dep.Status != models.PaymentCancelled {
		if err := s.gateway.Cancel(ctx, *dep.GatewayPaymentID); err != nil {
			s.logger.Warn("deposit hold void failed during cancellation; will reconcile",
				zap.String("booking_id", bookingID.String()),
				zap.Error(err),
			)
		} else {
			_ = s.payments.UpdateStatus(ctx, dep.ID, map[string]interface{}{
				"status": models.PaymentCancelled,
			})
		}
	}

	return s.Transition(ctx, booking.ID, models.BookingCancelled)
}

func (s *BookingService) publish(eventType string, booking *models.Booking) {
	if s.producer == nil {
		return
	}
	event := models.BookingEvent{
		Type:      eventType,
		BookingID: booking.ID.String(),
		UserID:    booking.UserID.String(),
		TrailerID: booking.TrailerID.String(),
		Status:    string(booking.Status),
		Amount:    booking.TotalAmount,
		Timestamp: time.Now().UTC(),
	}
	if err := s.producer.SendBookingEvent(event); err != nil {
		s.logger.Warn("booking event publish failed",
			zap.String("event_type", eventType),
			zap.String("booking_id", event.BookingID),
			zap.Error(err),
		)
	}
}
