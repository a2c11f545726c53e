package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rental-service/gateway"
	"rental-service/models"
	"rental-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WebhookReconciler is the authoritative writer of payment status. It applies
// provider callbacks idempotently and drives booking transitions only when
// the booking is in the state the transition expects; anything out of order
// is parked durably for operator replay, never forced.
type WebhookReconciler struct {
	payments     repository.PaymentRepository
	holds        repository.ReconciliationHoldRepository
	bookings     *BookingService
	gateway      GatewayAPI
	logger       *zap.Logger
	paymentLocks *keyedMutex
}

func NewWebhookReconciler(
	payments repository.PaymentRepository,
	holds repository.ReconciliationHoldRepository,
	bookings *BookingService,
	gw GatewayAPI,
	logger *zap.Logger,
) *WebhookReconciler {
	return &WebhookReconciler{
		payments:     payments,
		holds:        holds,
		bookings:     bookings,
		gateway:      gw,
		logger:       logger,
		paymentLocks: newKeyedMutex(),
	}
}

// MapProviderStatus translates the provider vocabulary to the internal enum.
func MapProviderStatus(s gateway.Status) models.PaymentStatus {
	switch s {
	case gateway.StatusConfirmed:
		return models.PaymentCompleted
	case gateway.StatusCancelled:
		return models.PaymentCancelled
	case gateway.StatusRejected:
		return models.PaymentFailed
	default:
		return models.PaymentPending
	}
}

// OnCallback processes one provider delivery. At-least-once and out-of-order
// delivery are both safe: redeliveries of an applied status are no-ops.
func (s *WebhookReconciler) OnCallback(ctx context.Context, payload gateway.WebhookPayload) error {
	if !s.gateway.VerifyWebhook(payload) {
		s.logger.Warn("webhook signature verification failed",
			zap.String("gateway_payment_id", payload.GatewayPaymentID),
			zap.String("order_id", payload.OrderID),
		)
		return ErrInvalidSignature
	}

	unlock := s.paymentLocks.Lock(payload.GatewayPaymentID)
	defer unlock()

	payment, err := s.payments.FindByGatewayID(ctx, payload.GatewayPaymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("webhook for unknown payment",
				zap.String("gateway_payment_id", payload.GatewayPaymentID),
				zap.String("order_id", payload.OrderID),
			)
			return ErrUnknownPayment
		}
		return err
	}

	raw, _ := json.Marshal(payload)
	return s.apply(ctx, payment, MapProviderStatus(payload.Status), string(raw))
}

// ApplyProviderStatus applies a polled gateway status through the same
// idempotent path a webhook takes.
func (s *WebhookReconciler) ApplyProviderStatus(ctx context.Context, paymentID uuid.UUID, status gateway.Status) error {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.GatewayPaymentID != nil {
		unlock := s.paymentLocks.Lock(*payment.GatewayPaymentID)
		defer unlock()
	}
	return s.apply(ctx, payment, MapProviderStatus(status), "")
}

func (s *WebhookReconciler) apply(ctx context.Context, payment *models.Payment, target models.PaymentStatus, rawPayload string) error {
	if payment.Status == target {
		if target == models.PaymentCompleted {
			// A redelivery can arrive after whatever blocked the booking
			// transition has cleared (e.g. a parked deposit completion once
			// the rental lands). The drive is idempotent; don't re-park.
			s.driveBooking(ctx, payment, false)
		}
		s.logger.Info("duplicate payment status delivery; no-op",
			zap.String("payment_id", payment.ID.String()),
			zap.String("status", string(target)),
		)
		return nil
	}
	if payment.Status != models.PaymentPending {
		// Provider status regressions are recorded but never applied.
		s.logger.Warn("ignoring status change on settled payment",
			zap.String("payment_id", payment.ID.String()),
			zap.String("current", string(payment.Status)),
			zap.String("delivered", string(target)),
		)
		return nil
	}
	if target == models.PaymentPending {
		return nil
	}

	now := time.Now()
	updates := map[string]interface{}{"status": target}
	if rawPayload != "" {
		updates["gateway_payload"] = rawPayload
	}
	switch target {
	case models.PaymentCompleted:
		updates["succeeded_at"] = &now
	case models.PaymentFailed:
		updates["failed_at"] = &now
	}

	if err := s.payments.UpdateStatus(ctx, payment.ID, updates); err != nil {
		return err
	}
	payment.Status = target

	switch target {
	case models.PaymentCompleted:
		s.driveBooking(ctx, payment, true)
	case models.PaymentFailed:
		if payment.Kind == models.PaymentRental {
			s.cancelOnRentalFailure(ctx, payment)
		}
	}
	return nil
}

// driveBooking advances the booking for a COMPLETED payment: rental charge
// moves PENDING_PAYMENT → PAID, deposit hold moves PAID → ACTIVE. park is
// skipped on redeliveries so a still-blocked completion holds one row, not one
// per delivery.
func (s *WebhookReconciler) driveBooking(ctx context.Context, payment *models.Payment, parkIfBlocked bool) {
	target := models.BookingPaid
	if payment.Kind == models.PaymentDepositHold {
		target = models.BookingActive
	}

	booking, err := s.bookings.Find(ctx, payment.BookingID)
	if err != nil {
		s.logger.Error("booking lookup failed while applying payment",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
		return
	}
	if booking.Status == target {
		return
	}
	if !models.CanTransition(booking.Status, target) {
		if parkIfBlocked {
			s.park(ctx, payment, booking, fmt.Sprintf(
				"booking in %s; cannot apply %s completion", booking.Status, payment.Kind))
		}
		return
	}
	if _, err := s.bookings.Transition(ctx, booking.ID, target); err != nil {
		s.logger.Error("booking transition failed after payment completion",
			zap.String("booking_id", booking.ID.String()),
			zap.String("target", string(target)),
			zap.Error(err),
		)
	}
}

func (s *WebhookReconciler) cancelOnRentalFailure(ctx context.Context, payment *models.Payment) {
	booking, err := s.bookings.Find(ctx, payment.BookingID)
	if err != nil {
		return
	}
	if booking.Status != models.BookingPendingPayment && booking.Status != models.BookingPaid {
		return
	}
	if _, err := s.bookings.Transition(ctx, booking.ID, models.BookingCancelled); err != nil {
		s.logger.Error("booking cancellation after rental failure did not apply",
			zap.String("booking_id", booking.ID.String()),
			zap.Error(err),
		)
	}
}

// park records an out-of-order delivery durably and loudly instead of forcing
// an invalid booking jump. The payment row itself is already correct.
func (s *WebhookReconciler) park(ctx context.Context, payment *models.Payment, booking *models.Booking, reason string) {
	hold := &models.ReconciliationHold{
		PaymentID:     payment.ID,
		BookingID:     booking.ID,
		BookingStatus: booking.Status,
		PaymentStatus: payment.Status,
		Reason:        reason,
	}
	if err := s.holds.Create(ctx, hold); err != nil {
		s.logger.Error("failed to persist reconciliation hold",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
	s.logger.Error("out-of-order webhook parked for manual reconciliation",
		zap.String("payment_id", payment.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_status", string(booking.Status)),
		zap.String("reason", reason),
	)
}
