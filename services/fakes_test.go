package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"rental-service/gateway"
	"rental-service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// In-memory repositories and collaborator fakes shared by the service tests.

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*models.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[uuid.UUID]*models.Booking)}
}

func (r *memBookingRepo) CreateIfAvailable(ctx context.Context, booking *models.Booking) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.TrailerID != booking.TrailerID || models.IsTerminal(b.Status) {
			continue
		}
		if b.StartTime.Before(booking.EndTime) && b.EndTime.After(booking.StartTime) {
			return false, nil
		}
	}
	clone := *booking
	r.bookings[booking.ID] = &clone
	return true, nil
}

func (r *memBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *b
	return &clone, nil
}

func (r *memBookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.BookingStatus, extra map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

// advanceBooking force-steps a booking through statuses, guarding each step.
func advanceBooking(t *testing.T, repo *memBookingRepo, id uuid.UUID, path ...models.BookingStatus) {
	t.Helper()
	for _, next := range path {
		b, err := repo.FindByID(context.Background(), id)
		assert.NoError(t, err)
		ok, err := repo.UpdateStatus(context.Background(), id, b.Status, next, nil)
		assert.NoError(t, err)
		assert.True(t, ok)
	}
}

type memPaymentRepo struct {
	mu       sync.Mutex
	payments []*models.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{}
}

func (r *memPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *payment
	clone.CreatedAt = time.Now()
	r.payments = append(r.payments, &clone)
	return nil
}

func (r *memPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			clone := *p
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memPaymentRepo) FindByGatewayID(ctx context.Context, gatewayPaymentID string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.GatewayPaymentID != nil && *p.GatewayPaymentID == gatewayPaymentID {
			clone := *p
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memPaymentRepo) FindByBookingAndKind(ctx context.Context, bookingID uuid.UUID, kind models.PaymentKind) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.Payment
	for _, p := range r.payments {
		if p.BookingID == bookingID && p.Kind == kind {
			if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
				latest = p
			}
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *latest
	return &clone, nil
}

func (r *memPaymentRepo) SetGatewayResult(ctx context.Context, id uuid.UUID, gatewayPaymentID, redirectURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			gid, url := gatewayPaymentID, redirectURL
			p.GatewayPaymentID = &gid
			p.RedirectURL = &url
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *memPaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.ID == id {
			if v, ok := updates["status"]; ok {
				p.Status = v.(models.PaymentStatus)
			}
			if v, ok := updates["succeeded_at"]; ok {
				p.SucceededAt = v.(*time.Time)
			}
			if v, ok := updates["failed_at"]; ok {
				p.FailedAt = v.(*time.Time)
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type memPhotoRepo struct {
	mu     sync.Mutex
	checks map[string]*models.PhotoCheck
}

func newMemPhotoRepo() *memPhotoRepo {
	return &memPhotoRepo{checks: make(map[string]*models.PhotoCheck)}
}

func photoKey(bookingID uuid.UUID, phase models.Phase) string {
	return bookingID.String() + "/" + string(phase)
}

func (r *memPhotoRepo) GetOrCreate(ctx context.Context, bookingID uuid.UUID, phase models.Phase) (*models.PhotoCheck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.checks[photoKey(bookingID, phase)]; ok {
		clone := *c
		return &clone, nil
	}
	c := &models.PhotoCheck{
		ID:        uuid.New(),
		BookingID: bookingID,
		Phase:     phase,
		Status:    models.PhotoCheckMissing,
	}
	r.checks[photoKey(bookingID, phase)] = c
	clone := *c
	return &clone, nil
}

func (r *memPhotoRepo) Find(ctx context.Context, bookingID uuid.UUID, phase models.Phase) (*models.PhotoCheck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.checks[photoKey(bookingID, phase)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *memPhotoRepo) Save(ctx context.Context, check *models.PhotoCheck) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *check
	r.checks[photoKey(check.BookingID, check.Phase)] = &clone
	return nil
}

type memRefundRepo struct {
	mu      sync.Mutex
	refunds map[uuid.UUID]*models.DepositRefund
}

func newMemRefundRepo() *memRefundRepo {
	return &memRefundRepo{refunds: make(map[uuid.UUID]*models.DepositRefund)}
}

func (r *memRefundRepo) Create(ctx context.Context, refund *models.DepositRefund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *refund
	r.refunds[refund.BookingID] = &clone
	return nil
}

func (r *memRefundRepo) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.DepositRefund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	refund, ok := r.refunds[bookingID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *refund
	return &clone, nil
}

func (r *memRefundRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RefundStatus, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, refund := range r.refunds {
		if refund.ID == id {
			refund.Status = status
			if completedAt != nil {
				refund.CompletedAt = completedAt
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type memDamageRepo struct {
	mu      sync.Mutex
	records []models.DamageRecord
}

func newMemDamageRepo() *memDamageRepo {
	return &memDamageRepo{}
}

func (r *memDamageRepo) SaveAll(ctx context.Context, records []models.DamageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

func (r *memDamageRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.DamageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DamageRecord
	for _, rec := range r.records {
		if rec.BookingID == bookingID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type memHoldRepo struct {
	mu    sync.Mutex
	holds []*models.ReconciliationHold
}

func newMemHoldRepo() *memHoldRepo {
	return &memHoldRepo{}
}

func (r *memHoldRepo) Create(ctx context.Context, hold *models.ReconciliationHold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *hold
	r.holds = append(r.holds, &clone)
	return nil
}

func (r *memHoldRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.holds)
}

const testSecret = "test-secret"

type gatewayCall struct {
	op     string
	id     string
	amount int64
}

type fakeGateway struct {
	mu           sync.Mutex
	calls        []gatewayCall
	statuses     map[string]gateway.Status
	authorizeErr error
	captureErr   error
	cancelErr    error
	nextID       int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: make(map[string]gateway.Status)}
}

func (f *fakeGateway) Authorize(ctx context.Context, orderID string, amount int64, kind models.PaymentKind, customerKey string) (*gateway.AuthorizeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authorizeErr != nil {
		return nil, f.authorizeErr
	}
	f.nextID++
	id := fmt.Sprintf("gw-%d", f.nextID)
	f.statuses[id] = gateway.StatusPending
	f.calls = append(f.calls, gatewayCall{op: "authorize", id: id, amount: amount})
	return &gateway.AuthorizeResult{
		GatewayPaymentID: id,
		RedirectURL:      "https://pay.example/" + id,
	}, nil
}

func (f *fakeGateway) Capture(ctx context.Context, gatewayPaymentID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.captureErr != nil {
		return f.captureErr
	}
	f.calls = append(f.calls, gatewayCall{op: "capture", id: gatewayPaymentID, amount: amount})
	return nil
}

func (f *fakeGateway) Cancel(ctx context.Context, gatewayPaymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.calls = append(f.calls, gatewayCall{op: "cancel", id: gatewayPaymentID})
	return nil
}

func (f *fakeGateway) QueryStatus(ctx context.Context, gatewayPaymentID string) (gateway.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.statuses[gatewayPaymentID]; ok {
		return s, nil
	}
	return gateway.StatusPending, nil
}

func (f *fakeGateway) ReturnToCustomer(ctx context.Context, holdID string) error {
	return f.Cancel(ctx, holdID)
}

func (f *fakeGateway) RetainForMerchant(ctx context.Context, holdID string, amount int64) error {
	return f.Capture(ctx, holdID, amount)
}

func (f *fakeGateway) VerifyWebhook(p gateway.WebhookPayload) bool {
	return gateway.VerifyToken(p.SignedFields(), testSecret, p.Token)
}

func (f *fakeGateway) callsOf(op string) []gatewayCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []gatewayCall
	for _, c := range f.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

type fakeCatalog struct {
	trailer TrailerInfo
}

func (f *fakeCatalog) GetTrailer(ctx context.Context, id uuid.UUID) (*TrailerInfo, error) {
	t := f.trailer
	t.ID = id
	return &t, nil
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{trailer: TrailerInfo{
		MinHours:      2,
		MinCost:       500,
		HourPrice:     100,
		DayPrice:      2000,
		PickupPrice:   300,
		DepositAmount: 5000,
	}}
}

// fixedAssessor returns a canned verdict per "after" photo ref.
type fixedAssessor struct {
	verdicts map[string]models.DamageVerdict
}

func (f *fixedAssessor) Assess(ctx context.Context, beforeRef, afterRef string) (models.DamageVerdict, error) {
	if v, ok := f.verdicts[afterRef]; ok {
		return v, nil
	}
	return models.DamageVerdict{Level: models.DamageNone, Confidence: 0.9, Assessable: true}, nil
}

type fakeProducer struct {
	mu     sync.Mutex
	events []models.BookingEvent
}

func (f *fakeProducer) SendBookingEvent(event models.BookingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}
