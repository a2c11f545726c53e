package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental-service/events"
	"rental-service/models"
	"rental-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DamageCostTable maps damage levels to fixed charge amounts.
type DamageCostTable struct {
	Minor    int64
	Moderate int64
	Severe   int64
}

func (t DamageCostTable) Cost(level models.DamageLevel) int64 {
	switch level {
	case models.DamageMinor:
		return t.Minor
	case models.DamageModerate:
		return t.Moderate
	case models.DamageSevere:
		return t.Severe
	}
	return 0
}

// Decision is the settlement outcome expressed as "amount returned to the
// customer"; the gateway call encodes the retained share.
type Decision struct {
	RefundType   models.RefundType
	RefundAmount int64
	DamageAmount int64
}

// Decide aggregates per-side verdicts into a refund decision. Rules apply in
// order: all clean → FULL; any SEVERE or damage ≥ deposit → NONE; else
// PARTIAL with the damage total deducted.
func Decide(verdicts map[models.Side]models.DamageVerdict, depositAmount int64, costs DamageCostTable) Decision {
	var total int64
	anyDamage := false
	severe := false
	for _, v := range verdicts {
		if !v.HasDamage {
			continue
		}
		anyDamage = true
		total += costs.Cost(v.Level)
		if v.Level == models.DamageSevere {
			severe = true
		}
	}

	switch {
	case !anyDamage:
		return Decision{RefundType: models.RefundFull, RefundAmount: depositAmount}
	case severe || total >= depositAmount:
		return Decision{RefundType: models.RefundNone, RefundAmount: 0, DamageAmount: total}
	default:
		return Decision{RefundType: models.RefundPartial, RefundAmount: depositAmount - total, DamageAmount: total}
	}
}

// SettlementService resolves a returned booking's deposit hold: fans out
// damage assessment per side, persists the refund decision before any gateway
// call, and finalizes it from the gateway result. Runs at most once
// concurrently per booking.
type SettlementService struct {
	refunds      repository.DepositRefundRepository
	damage       repository.DamageRecordRepository
	payments     repository.PaymentRepository
	photos       repository.PhotoCheckRepository
	bookings     *BookingService
	assessor     DamageAssessor
	gateway      GatewayAPI
	costs        DamageCostTable
	logger       *zap.Logger
	bookingLocks *keyedMutex
}

func NewSettlementService(
	refunds repository.DepositRefundRepository,
	damage repository.DamageRecordRepository,
	payments repository.PaymentRepository,
	photos repository.PhotoCheckRepository,
	bookings *BookingService,
	assessor DamageAssessor,
	gw GatewayAPI,
	costs DamageCostTable,
	logger *zap.Logger,
) *SettlementService {
	return &SettlementService{
		refunds:      refunds,
		damage:       damage,
		payments:     payments,
		photos:       photos,
		bookings:     bookings,
		assessor:     assessor,
		gateway:      gw,
		costs:        costs,
		logger:       logger,
		bookingLocks: newKeyedMutex(),
	}
}

// Start consumes checkout-completed triggers from the bus until it closes.
func (s *SettlementService) Start(ctx context.Context, bus *events.Bus) {
	ch := bus.Subscribe()
	go func() {
		for e := range ch {
			if err := s.Settle(ctx, e.BookingID); err != nil {
				s.logger.Error("settlement run failed",
					zap.String("booking_id", e.BookingID.String()),
					zap.Error(err),
				)
			}
		}
	}()
}

// Settle drives one booking's deposit settlement. A second trigger while a
// refund already exists is a no-op, except a FAILED refund, which is resumed
// against the gateway without re-assessing.
func (s *SettlementService) Settle(ctx context.Context, bookingID uuid.UUID) error {
	unlock := s.bookingLocks.Lock(bookingID.String())
	defer unlock()

	booking, err := s.bookings.Find(ctx, bookingID)
	if err != nil {
		return err
	}

	if existing, err := s.refunds.FindByBookingID(ctx, bookingID); err == nil {
		if existing.Status == models.RefundFailed {
			return s.execute(ctx, booking, existing)
		}
		s.logger.Info("settlement already in progress or done; no-op",
			zap.String("booking_id", bookingID.String()),
			zap.String("refund_status", string(existing.Status)),
		)
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if booking.Status != models.BookingReturned {
		s.logger.Warn("settlement trigger for booking not in RETURNED; skipping",
			zap.String("booking_id", bookingID.String()),
			zap.String("status", string(booking.Status)),
		)
		return nil
	}

	deposit, err := s.payments.FindByBookingAndKind(ctx, bookingID, models.PaymentDepositHold)
	if err != nil || deposit.GatewayPaymentID == nil || deposit.Status != models.PaymentCompleted {
		return fmt.Errorf("no completed deposit hold for booking %s: %w", bookingID, ErrSettlementFailed)
	}

	verdicts, records, err := s.assess(ctx, bookingID)
	if err != nil {
		return err
	}
	if err := s.damage.SaveAll(ctx, records); err != nil {
		return err
	}

	decision := Decide(verdicts, booking.DepositAmount, s.costs)
	refund := &models.DepositRefund{
		ID:             uuid.New(),
		BookingID:      bookingID,
		OriginalHoldID: *deposit.GatewayPaymentID,
		RefundType:     decision.RefundType,
		RefundAmount:   decision.RefundAmount,
		Status:         models.RefundPending,
	}
	if decision.DamageAmount > 0 {
		amount := decision.DamageAmount
		refund.DamageAmount = &amount
	}
	if err := s.refunds.Create(ctx, refund); err != nil {
		return err
	}

	return s.execute(ctx, booking, refund)
}

// assess fans out one assessor call per side, pairing the check-out photo
// with the matching check-in photo. A side whose check-in photo is missing is
// recorded as NONE with confidence 0, not assessable — settlement proceeds
// rather than blocking.
func (s *SettlementService) assess(ctx context.Context, bookingID uuid.UUID) (map[models.Side]models.DamageVerdict, []models.DamageRecord, error) {
	checkOut, err := s.photos.Find(ctx, bookingID, models.PhaseCheckOut)
	if err != nil {
		return nil, nil, fmt.Errorf("check-out photos missing for booking %s: %w", bookingID, ErrSettlementFailed)
	}

	var checkIn *models.PhotoCheck
	if ci, err := s.photos.Find(ctx, bookingID, models.PhaseCheckIn); err == nil {
		checkIn = ci
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	verdicts := make(map[models.Side]models.DamageVerdict, len(models.AllSides))
	records := make([]models.DamageRecord, 0, len(models.AllSides))

	for _, side := range models.AllSides {
		after := checkOut.Ref(side)
		var before *string
		if checkIn != nil {
			before = checkIn.Ref(side)
		}

		var verdict models.DamageVerdict
		if before == nil || after == nil {
			verdict = models.DamageVerdict{Level: models.DamageNone, Confidence: 0, Assessable: false}
			s.logger.Warn("side not assessable; counting as no damage",
				zap.String("booking_id", bookingID.String()),
				zap.String("side", string(side)),
			)
		} else {
			verdict, err = s.assessor.Assess(ctx, *before, *after)
			if err != nil {
				return nil, nil, fmt.Errorf("damage assessment for side %s: %w", side, err)
			}
			verdict.Assessable = true
		}

		verdicts[side] = verdict
		records = append(records, models.DamageRecord{
			BookingID:  bookingID,
			Side:       side,
			HasDamage:  verdict.HasDamage,
			Level:      verdict.Level,
			Confidence: verdict.Confidence,
			Assessable: verdict.Assessable,
		})
	}
	return verdicts, records, nil
}

// execute drives the gateway operation for a persisted refund and finalizes
// it. On gateway failure the refund goes FAILED and the booking stays
// RETURNED so a retry can be issued — never silently CLOSED.
func (s *SettlementService) execute(ctx context.Context, booking *models.Booking, refund *models.DepositRefund) error {
	if err := s.refunds.UpdateStatus(ctx, refund.ID, models.RefundProcessing, nil); err != nil {
		return err
	}

	var gerr error
	switch refund.RefundType {
	case models.RefundFull:
		gerr = s.gateway.ReturnToCustomer(ctx, refund.OriginalHoldID)
	case models.RefundNone:
		gerr = s.gateway.RetainForMerchant(ctx, refund.OriginalHoldID, booking.DepositAmount)
	case models.RefundPartial:
		gerr = s.gateway.RetainForMerchant(ctx, refund.OriginalHoldID, booking.DepositAmount-refund.RefundAmount)
	}

	if gerr != nil {
		_ = s.refunds.UpdateStatus(ctx, refund.ID, models.RefundFailed, nil)
		s.logger.Error("deposit settlement gateway call failed; booking stays RETURNED",
			zap.String("booking_id", booking.ID.String()),
			zap.String("refund_type", string(refund.RefundType)),
			zap.Error(gerr),
		)
		return fmt.Errorf("%s settlement for booking %s: %w", refund.RefundType, booking.ID, ErrSettlementFailed)
	}

	now := time.Now()
	if err := s.refunds.UpdateStatus(ctx, refund.ID, models.RefundCompleted, &now); err != nil {
		return err
	}

	s.logger.Info("deposit settled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("refund_type", string(refund.RefundType)),
		zap.Int64("refund_amount", refund.RefundAmount),
	)

	_, err := s.bookings.Transition(ctx, booking.ID, models.BookingClosed)
	return err
}

// RetrySettlement re-drives the gateway step for a booking whose refund is
// FAILED.
func (s *SettlementService) RetrySettlement(ctx context.Context, bookingID uuid.UUID) error {
	return s.Settle(ctx, bookingID)
}
