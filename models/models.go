package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingPaid           BookingStatus = "PAID"
	BookingActive         BookingStatus = "ACTIVE"
	BookingReturned       BookingStatus = "RETURNED"
	BookingClosed         BookingStatus = "CLOSED"
	BookingCancelled      BookingStatus = "CANCELLED"
)

type RentalType string

const (
	RentalHourly RentalType = "HOURLY"
	RentalDaily  RentalType = "DAILY"
)

type PaymentKind string

const (
	PaymentRental      PaymentKind = "RENTAL"
	PaymentDepositHold PaymentKind = "DEPOSIT_HOLD"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentFailed    PaymentStatus = "FAILED"
)

type Phase string

const (
	PhaseCheckIn  Phase = "CHECK_IN"
	PhaseCheckOut Phase = "CHECK_OUT"
)

type Side string

const (
	SideFront Side = "FRONT"
	SideRear  Side = "REAR"
	SideLeft  Side = "LEFT"
	SideRight Side = "RIGHT"
)

// AllSides is the canonical ordering used for fan-out and completeness checks.
var AllSides = []Side{SideFront, SideRear, SideLeft, SideRight}

type PhotoCheckStatus string

const (
	PhotoCheckMissing   PhotoCheckStatus = "MISSING"
	PhotoCheckCompleted PhotoCheckStatus = "COMPLETED"
)

type DamageLevel string

const (
	DamageNone     DamageLevel = "NONE"
	DamageMinor    DamageLevel = "MINOR"
	DamageModerate DamageLevel = "MODERATE"
	DamageSevere   DamageLevel = "SEVERE"
)

type RefundType string

const (
	RefundFull    RefundType = "FULL"
	RefundPartial RefundType = "PARTIAL"
	RefundNone    RefundType = "NONE"
)

type RefundStatus string

const (
	RefundPending    RefundStatus = "PENDING"
	RefundProcessing RefundStatus = "PROCESSING"
	RefundCompleted  RefundStatus = "COMPLETED"
	RefundFailed     RefundStatus = "FAILED"
)

const AddOnPickup = "pickup"

// Booking holds a rental window for one trailer. Amounts are minor currency
// units. The pricing columns are a snapshot frozen at creation time.
type Booking struct {
	ID            uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID     `gorm:"type:uuid;not null;index"`
	TrailerID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	StartTime     time.Time     `gorm:"not null"`
	EndTime       time.Time     `gorm:"not null"`
	RentalType    RentalType    `gorm:"type:varchar(10);not null"`
	AddOns        string        `gorm:"type:varchar(255)"` // comma-separated
	BaseCost      int64         `gorm:"not null"`
	AddOnCost     int64         `gorm:"not null"`
	DepositAmount int64         `gorm:"not null"`
	TotalAmount   int64         `gorm:"not null"`
	Status        BookingStatus `gorm:"type:varchar(20);not null;default:'PENDING_PAYMENT';index"`
	CanceledAt    *time.Time
	ClosedAt      *time.Time
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (b *Booking) AddOnList() []string {
	if b.AddOns == "" {
		return nil
	}
	return strings.Split(b.AddOns, ",")
}

// Payment is one gateway-side obligation for a booking: the rental charge or
// the deposit hold. OrderID is generated once at authorization time and never
// reused; GatewayPaymentID is the join key for webhook reconciliation.
type Payment struct {
	ID               uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID        uuid.UUID     `gorm:"type:uuid;not null;index"`
	OrderID          string        `gorm:"type:varchar(64);uniqueIndex;not null"`
	GatewayPaymentID *string       `gorm:"uniqueIndex"`
	Amount           int64         `gorm:"not null"`
	Kind             PaymentKind   `gorm:"type:varchar(20);not null"`
	Status           PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	RedirectURL      *string       `gorm:"type:varchar(1024)"`
	GatewayPayload   *string       `gorm:"type:jsonb"` // last raw callback, for audit
	SucceededAt      *time.Time
	FailedAt         *time.Time
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

// PhotoCheck tracks the four-side photo set for one booking phase. Created
// lazily on first upload; status derives from presence of all four refs.
type PhotoCheck struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_photo_checks_booking_phase"`
	Phase     Phase            `gorm:"type:varchar(10);not null;uniqueIndex:idx_photo_checks_booking_phase"`
	FrontRef  *string          `gorm:"type:varchar(512)"`
	RearRef   *string          `gorm:"type:varchar(512)"`
	LeftRef   *string          `gorm:"type:varchar(512)"`
	RightRef  *string          `gorm:"type:varchar(512)"`
	Status    PhotoCheckStatus `gorm:"type:varchar(10);not null;default:'MISSING'"`
	CreatedAt time.Time        `gorm:"autoCreateTime"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime"`
}

func (p *PhotoCheck) Ref(side Side) *string {
	switch side {
	case SideFront:
		return p.FrontRef
	case SideRear:
		return p.RearRef
	case SideLeft:
		return p.LeftRef
	case SideRight:
		return p.RightRef
	}
	return nil
}

func (p *PhotoCheck) SetRef(side Side, ref *string) {
	switch side {
	case SideFront:
		p.FrontRef = ref
	case SideRear:
		p.RearRef = ref
	case SideLeft:
		p.LeftRef = ref
	case SideRight:
		p.RightRef = ref
	}
}

func (p *PhotoCheck) AllSidesPresent() bool {
	for _, s := range AllSides {
		if p.Ref(s) == nil {
			return false
		}
	}
	return true
}

// Recompute derives Status from the four side refs and reports whether the
// check just flipped to COMPLETED.
func (p *PhotoCheck) Recompute() bool {
	prev := p.Status
	if p.AllSidesPresent() {
		p.Status = PhotoCheckCompleted
	} else {
		p.Status = PhotoCheckMissing
	}
	return prev != PhotoCheckCompleted && p.Status == PhotoCheckCompleted
}

// DamageVerdict is the assessor's answer for one side. Assessable is false
// when the check-in photo for that side was missing and no comparison ran.
type DamageVerdict struct {
	HasDamage  bool
	Level      DamageLevel
	Confidence float64
	Assessable bool
}

// DamageRecord persists one verdict per (booking, side) for the audit trail.
type DamageRecord struct {
	ID         uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID  uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_damage_records_booking_side"`
	Side       Side        `gorm:"type:varchar(10);not null;uniqueIndex:idx_damage_records_booking_side"`
	HasDamage  bool        `gorm:"not null"`
	Level      DamageLevel `gorm:"type:varchar(10);not null"`
	Confidence float64     `gorm:"not null"`
	Assessable bool        `gorm:"not null"`
	CreatedAt  time.Time   `gorm:"autoCreateTime"`
}

// DepositRefund is the settlement outcome for a booking's deposit hold.
// Exactly one live row per booking.
type DepositRefund struct {
	ID             uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID      uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex"`
	OriginalHoldID string       `gorm:"type:varchar(64);not null"`
	RefundType     RefundType   `gorm:"type:varchar(10);not null"`
	RefundAmount   int64        `gorm:"not null"`
	DamageAmount   *int64
	Status         RefundStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	CreatedAt      time.Time    `gorm:"autoCreateTime"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime"`
	CompletedAt    *time.Time
}

// ReconciliationHold parks a webhook whose payment update succeeded but whose
// implied booking transition was not valid yet (out-of-order delivery).
// Operators replay these; nothing is silently dropped.
type ReconciliationHold struct {
	ID            uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	BookingID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	BookingStatus BookingStatus `gorm:"type:varchar(20);not null"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null"`
	Reason        string        `gorm:"type:varchar(255)"`
	CreatedAt     time.Time     `gorm:"autoCreateTime"`
}
