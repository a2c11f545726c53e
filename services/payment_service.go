package services

import (
	"context"
	"errors"
	"time"

	"rental-service/gateway"
	"rental-service/models"
	"rental-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentService authorizes rental charges and deposit holds. The PENDING row
// is persisted before every gateway call so a crash mid-call is recoverable
// by re-querying the gateway with the recorded order id.
type PaymentService struct {
	payments   repository.PaymentRepository
	bookings   *BookingService
	gateway    GatewayAPI
	reconciler *WebhookReconciler
	logger     *zap.Logger
}

func NewPaymentService(
	payments repository.PaymentRepository,
	bookings *BookingService,
	gw GatewayAPI,
	reconciler *WebhookReconciler,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments:   payments,
		bookings:   bookings,
		gateway:    gw,
		reconciler: reconciler,
		logger:     logger,
	}
}

// InitiatePayment creates the rental charge or deposit hold for a booking.
// Repeated calls for the same (booking, kind) with a live payment return the
// existing one instead of re-authorizing.
func (s *PaymentService) InitiatePayment(ctx context.Context, userID, bookingID uuid.UUID, kind models.PaymentKind) (*models.Payment, error) {
	booking, err := s.bookings.GetBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	var amount int64
	switch kind {
	case models.PaymentRental:
		if booking.Status != models.BookingPendingPayment {
			return nil, ErrPaymentNotAllowed
		}
		amount = booking.TotalAmount
	case models.PaymentDepositHold:
		if booking.Status != models.BookingPaid {
			return nil, ErrPaymentNotAllowed
		}
		amount = booking.DepositAmount
	default:
		return nil, ErrPaymentNotAllowed
	}

	if existing, err := s.payments.FindByBookingAndKind(ctx, bookingID, kind); err == nil {
		switch {
		case existing.Status == models.PaymentCompleted:
			return existing, nil
		case existing.Status == models.PaymentPending && existing.GatewayPaymentID != nil:
			return existing, nil
		case existing.Status == models.PaymentPending:
			// A prior authorize never yielded a gateway id. Re-issue with
			// the stored order id; the gateway deduplicates on it.
			return s.authorize(ctx, existing, userID)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	payment := &models.Payment{
		ID:        uuid.New(),
		BookingID: bookingID,
		OrderID:   newOrderID(kind),
		Amount:    amount,
		Kind:      kind,
		Status:    models.PaymentPending,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}
	return s.authorize(ctx, payment, userID)
}

// authorize drives the gateway call for a persisted PENDING payment and
// records its result.
func (s *PaymentService) authorize(ctx context.Context, payment *models.Payment, userID uuid.UUID) (*models.Payment, error) {
	result, err := s.gateway.Authorize(ctx, payment.OrderID, payment.Amount, payment.Kind, userID.String())
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			// Outcome unknown: the PENDING row keeps the order id, so a later
			// retry re-issues the same idempotent authorize.
			s.logger.Warn("gateway unavailable during authorize; payment left pending",
				zap.String("payment_id", payment.ID.String()),
				zap.String("order_id", payment.OrderID),
				zap.Error(err),
			)
			return payment, err
		}
		now := time.Now()
		_ = s.payments.UpdateStatus(ctx, payment.ID, map[string]interface{}{
			"status":    models.PaymentFailed,
			"failed_at": &now,
		})
		return nil, err
	}

	if err := s.payments.SetGatewayResult(ctx, payment.ID, result.GatewayPaymentID, result.RedirectURL); err != nil {
		return nil, err
	}
	payment.GatewayPaymentID = &result.GatewayPaymentID
	payment.RedirectURL = &result.RedirectURL

	s.logger.Info("payment authorized",
		zap.String("payment_id", payment.ID.String()),
		zap.String("kind", string(payment.Kind)),
		zap.String("gateway_payment_id", result.GatewayPaymentID),
	)
	return payment, nil
}

// GetStatus returns a payment, reconciling a still-PENDING one against the
// gateway on read (poll fallback for lost webhooks).
func (s *PaymentService) GetStatus(ctx context.Context, userID, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.bookings.GetBooking(ctx, userID, payment.BookingID); err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentPending && payment.GatewayPaymentID != nil {
		status, err := s.gateway.QueryStatus(ctx, *payment.GatewayPaymentID)
		if err != nil {
			s.logger.Warn("gateway status query failed",
				zap.String("payment_id", paymentID.String()),
				zap.Error(err),
			)
			return payment, nil
		}
		if err := s.reconciler.ApplyProviderStatus(ctx, payment.ID, status); err != nil {
			return payment, nil
		}
		return s.payments.FindByID(ctx, paymentID)
	}
	return payment, nil
}

func newOrderID(kind models.PaymentKind) string {
	prefix := "rnt"
	if kind == models.PaymentDepositHold {
		prefix = "dep"
	}
	return prefix + "-" + uuid.NewString()
}
