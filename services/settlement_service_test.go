package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"rental-service/gateway"
	"rental-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var testCosts = DamageCostTable{Minor: 500, Moderate: 1500, Severe: 5000}

func verdict(level models.DamageLevel) models.DamageVerdict {
	return models.DamageVerdict{
		HasDamage:  level != models.DamageNone,
		Level:      level,
		Confidence: 0.9,
		Assessable: true,
	}
}

func TestDecide_AllClean_FullRefund(t *testing.T) {
	verdicts := map[models.Side]models.DamageVerdict{
		models.SideFront: verdict(models.DamageNone),
		models.SideRear:  verdict(models.DamageNone),
		models.SideLeft:  verdict(models.DamageNone),
		models.SideRight: verdict(models.DamageNone),
	}
	d := Decide(verdicts, 5000, testCosts)
	assert.Equal(t, models.RefundFull, d.RefundType)
	assert.Equal(t, int64(5000), d.RefundAmount)
}

func TestDecide_AnySevere_NoRefund(t *testing.T) {
	verdicts := map[models.Side]models.DamageVerdict{
		models.SideFront: verdict(models.DamageSevere),
		models.SideRear:  verdict(models.DamageNone),
		models.SideLeft:  verdict(models.DamageNone),
		models.SideRight: verdict(models.DamageNone),
	}
	d := Decide(verdicts, 5000, testCosts)
	assert.Equal(t, models.RefundNone, d.RefundType)
	assert.Equal(t, int64(0), d.RefundAmount)
}

func TestDecide_TwoMinor_PartialRefund(t *testing.T) {
	verdicts := map[models.Side]models.DamageVerdict{
		models.SideFront: verdict(models.DamageMinor),
		models.SideRear:  verdict(models.DamageMinor),
		models.SideLeft:  verdict(models.DamageNone),
		models.SideRight: verdict(models.DamageNone),
	}
	d := Decide(verdicts, 5000, testCosts)
	assert.Equal(t, models.RefundPartial, d.RefundType)
	assert.Equal(t, int64(4000), d.RefundAmount)
	assert.Equal(t, int64(1000), d.DamageAmount)
}

func TestDecide_DamageExceedsDeposit_NoRefund(t *testing.T) {
	verdicts := map[models.Side]models.DamageVerdict{
		models.SideFront: verdict(models.DamageModerate),
		models.SideRear:  verdict(models.DamageModerate),
		models.SideLeft:  verdict(models.DamageModerate),
		models.SideRight: verdict(models.DamageModerate),
	}
	d := Decide(verdicts, 5000, testCosts)
	assert.Equal(t, models.RefundNone, d.RefundType)
	assert.Equal(t, int64(0), d.RefundAmount)
	assert.Equal(t, int64(6000), d.DamageAmount)
}

type settlementFixture struct {
	settlement *SettlementService
	bookings   *memBookingRepo
	payments   *memPaymentRepo
	photos     *memPhotoRepo
	refunds    *memRefundRepo
	damage     *memDamageRepo
	gw         *fakeGateway
	booking    *models.Booking
	holdID     string
}

func newSettlementFixture(t *testing.T, assessor DamageAssessor) *settlementFixture {
	t.Helper()
	bookings := newMemBookingRepo()
	payments := newMemPaymentRepo()
	photos := newMemPhotoRepo()
	refunds := newMemRefundRepo()
	damage := newMemDamageRepo()
	gw := newFakeGateway()
	bookingSvc := NewBookingService(bookings, payments, testCatalog(), gw, nil, zap.NewNop())

	settlement := NewSettlementService(refunds, damage, payments, photos, bookingSvc, assessor, gw, testCosts, zap.NewNop())

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	booking, err := bookingSvc.CreateBooking(context.Background(), uuid.New(), &CreateBookingRequest{
		TrailerID: uuid.New(), StartTime: start, EndTime: start.Add(2 * time.Hour), RentalType: models.RentalHourly,
	})
	assert.NoError(t, err)
	advanceBooking(t, bookings, booking.ID, models.BookingPaid, models.BookingActive, models.BookingReturned)

	holdID := "gw-hold"
	assert.NoError(t, payments.Create(context.Background(), &models.Payment{
		ID:               uuid.New(),
		BookingID:        booking.ID,
		OrderID:          "dep-1",
		GatewayPaymentID: &holdID,
		Amount:           booking.DepositAmount,
		Kind:             models.PaymentDepositHold,
		Status:           models.PaymentCompleted,
	}))

	f := &settlementFixture{
		settlement: settlement,
		bookings:   bookings,
		payments:   payments,
		photos:     photos,
		refunds:    refunds,
		damage:     damage,
		gw:         gw,
		booking:    booking,
		holdID:     holdID,
	}
	return f
}

func (f *settlementFixture) addPhotos(t *testing.T, phase models.Phase, sides ...models.Side) {
	t.Helper()
	check, err := f.photos.GetOrCreate(context.Background(), f.booking.ID, phase)
	assert.NoError(t, err)
	for _, side := range sides {
		ref := string(phase) + "-" + string(side)
		check.SetRef(side, &ref)
	}
	check.Recompute()
	assert.NoError(t, f.photos.Save(context.Background(), check))
}

func TestSettle_FullRefund_CancelsHoldAndCloses(t *testing.T) {
	f := newSettlementFixture(t, &fixedAssessor{})
	f.addPhotos(t, models.PhaseCheckIn, models.AllSides...)
	f.addPhotos(t, models.PhaseCheckOut, models.AllSides...)

	assert.NoError(t, f.settlement.Settle(context.Background(), f.booking.ID))

	refund, err := f.refunds.FindByBookingID(context.Background(), f.booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.RefundFull, refund.RefundType)
	assert.Equal(t, int64(5000), refund.RefundAmount)
	assert.Equal(t, models.RefundCompleted, refund.Status)
	assert.NotNil(t, refund.CompletedAt)

	cancels := f.gw.callsOf("cancel")
	if assert.Len(t, cancels, 1) {
		assert.Equal(t, f.holdID, cancels[0].id)
	}

	b, err := f.bookings.FindByID(context.Background(), f.booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BookingClosed, b.Status)
}

func TestSettle_PartialRefund_CapturesDamageShare(t *testing.T) {
	assessor := &fixedAssessor{verdicts: map[string]models.DamageVerdict{
		"CHECK_OUT-FRONT": verdict(models.DamageMinor),
		"CHECK_OUT-REAR":  verdict(models.DamageMinor),
	}}
	f := newSettlementFixture(t, assessor)
	f.addPhotos(t, models.PhaseCheckIn, models.AllSides...)
	f.addPhotos(t, models.PhaseCheckOut, models.AllSides...)

	assert.NoError(t, f.settlement.Settle(context.Background(), f.booking.ID))

	refund, err := f.refunds.FindByBookingID(context.Background(), f.booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.RefundPartial, refund.RefundType)
	assert.Equal(t, int64(4000), refund.RefundAmount)

	captures := f.gw.callsOf("capture")
	if assert.Len(t, captures, 1) {
		assert.Equal(t, int64(1000), captures[0].amount)
	}
}

func TestSettle_Severe_CapturesFullDeposit(t *testing.T) {
	assessor := &fixedAssessor{verdicts: map[string]models.DamageVerdict{
		"CHECK_OUT-LEFT": verdict(models.DamageSevere),
	}}
	f := newSettlementFixture(t, assessor)
	f.addPhotos(t, models.PhaseCheckIn, models.AllSides...)
	f.addPhotos(t, models.PhaseCheckOut, models.AllSides...)

	assert.NoError(t, f.settlement.Settle(context.Background(), f.booking.ID))

	refund, err := f.refunds.FindByBookingID(context.Background(), f.booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.RefundNone, refund.RefundType)

	captures := f.gw.callsOf("capture")
	if assert.Len(t, captures, 1) {
		assert.Equal(t, int64(5000), captures[0].amount)
	}
}

func TestSettle_MissingCheckInSide_CountsAsNotAssessable(t *testing.T) {
	// The assessor would report severe damage, but the FRONT side has no
	// check-in photo so it must be skipped, not assessed.
	assessor := &fixedAssessor{verdicts: map[string]models.DamageVerdict{
		"CHECK_OUT-FRONT": verdict(models.DamageSevere),
	}}
	f := newSettlementFixture(t, assessor)
	f.addPhotos(t, models.PhaseCheckIn, models.SideRear, models.SideLeft, models.SideRight)
	f.addPhotos(t, models.PhaseCheckOut, models.AllSides...)

	assert.NoError(t, f.settlement.Settle(context.Background(), f.booking.ID))

	refund, err := f.refunds.FindByBookingID(context.Background(), f.booking.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.RefundFull, refund.RefundType)

	records, err := f.damage.ListByBooking(context.Background(), f.booking.ID)
	assert.NoError(t, err)
	assessable := 0
	for _, rec := range records {
		if rec.Assessable {
			assessable++
		} else {
			assert.Equal(t, models.SideFront, rec.Side)
			assert.Equal(t, float64(0), rec.Confidence)
		}
	}
	assert.Equal(t, 3, assessable)
}

func TestSettle_GatewayFailure_BookingStaysReturnedAndRetryWorks(t *testing.T) {
	f := newSettlementFixture(t, &fixedAssessor{})
	f.addPhotos(t, models.PhaseCheckIn, models.AllSides...)
	f.addPhotos(t, models.PhaseCheckOut, models.AllSides...)

	f.gw.cancelErr = gateway.ErrUnavailable
	err := f.settlement.Settle(context.Background(), f.booking.ID)
	assert.ErrorIs(t, err, ErrSettlementFailed)

	refund, err2 := f.refunds.FindByBookingID(context.Background(), f.booking.ID)
	assert.NoError(t, err2)
	assert.Equal(t, models.RefundFailed, refund.Status)

	b, err2 := f.bookings.FindByID(context.Background(), f.booking.ID)
	assert.NoError(t, err2)
	assert.Equal(t, models.BookingReturned, b.Status)

	// Retry after the gateway recovers resumes the stored decision.
	f.gw.cancelErr = nil
	assert.NoError(t, f.settlement.RetrySettlement(context.Background(), f.booking.ID))

	refund, err2 = f.refunds.FindByBookingID(context.Background(), f.booking.ID)
	assert.NoError(t, err2)
	assert.Equal(t, models.RefundCompleted, refund.Status)

	b, err2 = f.bookings.FindByID(context.Background(), f.booking.ID)
	assert.NoError(t, err2)
	assert.Equal(t, models.BookingClosed, b.Status)
}

func TestSettle_SecondTriggerIsNoOp(t *testing.T) {
	f := newSettlementFixture(t, &fixedAssessor{})
	f.addPhotos(t, models.PhaseCheckIn, models.AllSides...)
	f.addPhotos(t, models.PhaseCheckOut, models.AllSides...)

	assert.NoError(t, f.settlement.Settle(context.Background(), f.booking.ID))
	assert.NoError(t, f.settlement.Settle(context.Background(), f.booking.ID))

	// One gateway resolution in total.
	assert.Len(t, f.gw.callsOf("cancel"), 1)
	assert.Empty(t, f.gw.callsOf("capture"))
}

func TestSettle_NoDepositHold_Fails(t *testing.T) {
	f := newSettlementFixture(t, &fixedAssessor{})
	f.addPhotos(t, models.PhaseCheckIn, models.AllSides...)
	f.addPhotos(t, models.PhaseCheckOut, models.AllSides...)

	// Replace fixture payments with a fresh repo holding no deposit.
	f.settlement.payments = newMemPaymentRepo()
	err := f.settlement.Settle(context.Background(), f.booking.ID)
	assert.True(t, errors.Is(err, ErrSettlementFailed))
}
