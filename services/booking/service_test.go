package booking

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	bookingRepo "parkwise/database/repository/booking"
	lotRepo "parkwise/database/repository/lot"
	"parkwise/models"
	"parkwise/services/ledger"
	"parkwise/services/payment"
)

const testSecret = "test_secret"

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 1, hour, min, 0, 0, time.UTC)
}

func sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// --- fakes ---

type memLots struct {
	mu   sync.Mutex
	lots map[string]*models.Lot
}

func copyLot(l *models.Lot) *models.Lot {
	dup := *l
	dup.Slots = make(map[string]*models.Slot, len(l.Slots))
	for id, slot := range l.Slots {
		slotCopy := *slot
		slotCopy.Reservations = append([]models.Reservation(nil), slot.Reservations...)
		dup.Slots[id] = &slotCopy
	}
	return &dup
}

func (r *memLots) GetByID(_ context.Context, id string) (*models.Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lots[id]
	if !ok {
		return nil, lotRepo.ErrNotFound
	}
	return copyLot(l), nil
}

func (r *memLots) GetAll(_ context.Context) ([]models.Lot, error) { return nil, nil }

func (r *memLots) Create(_ context.Context, lot *models.Lot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lots[lot.ID] = copyLot(lot)
	return nil
}

func (r *memLots) ReplaceVersioned(_ context.Context, lot *models.Lot, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.lots[lot.ID]
	if !ok || cur.Version != expectedVersion {
		return lotRepo.ErrVersionConflict
	}
	lot.Version = expectedVersion + 1
	r.lots[lot.ID] = copyLot(lot)
	return nil
}

func (r *memLots) lot(id string) *models.Lot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyLot(r.lots[id])
}

type memBookings struct {
	mu          sync.Mutex
	bookings    map[string]*models.Booking
	history     map[string][]models.Booking
	denyHistory bool
}

func newMemBookings() *memBookings {
	return &memBookings{
		bookings: make(map[string]*models.Booking),
		history:  make(map[string][]models.Booking),
	}
}

func (r *memBookings) Insert(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dup := *b
	r.bookings[b.ID] = &dup
	return nil
}

func (r *memBookings) Update(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bookings[b.ID]; !ok {
		return bookingRepo.ErrNotFound
	}
	dup := *b
	r.bookings[b.ID] = &dup
	return nil
}

func (r *memBookings) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	dup := *b
	return &dup, nil
}

func (r *memBookings) GetByOrderID(_ context.Context, orderID string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.OrderID == orderID {
			dup := *b
			return &dup, nil
		}
	}
	return nil, bookingRepo.ErrNotFound
}

func (r *memBookings) ListOpen(_ context.Context) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status == models.BookingPending || b.Status == models.BookingConfirmed {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookings) AppendHistory(_ context.Context, userID string, b models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.denyHistory {
		return bookingRepo.ErrPermissionDenied
	}
	r.history[userID] = append(r.history[userID], b)
	return nil
}

type fakeGateway struct {
	mu         sync.Mutex
	orders     int
	failOrders bool
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount int64, currency string) (*models.PaymentOrder, error) {
	if amount <= 0 {
		return nil, payment.ErrInvalidAmount
	}
	if g.failOrders {
		return nil, fmt.Errorf("%w: processor unreachable", payment.ErrOrderCreationFailed)
	}
	g.mu.Lock()
	g.orders++
	id := fmt.Sprintf("order_%d", g.orders)
	g.mu.Unlock()
	if currency == "" {
		currency = "INR"
	}
	return &models.PaymentOrder{ID: id, Amount: amount, Currency: currency, Receipt: "rcpt_" + id}, nil
}

func (g *fakeGateway) Verify(orderID, paymentID, signature string) bool {
	return payment.VerifySignature(testSecret, orderID, paymentID, signature)
}

// --- fixture ---

type fixture struct {
	svc     *DefaultBookingService
	lots    *memLots
	records *memBookings
	gateway *fakeGateway
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lots := &memLots{lots: map[string]*models.Lot{
		"lot-1": {
			ID:           "lot-1",
			TotalSlots:   2,
			PricePerHour: 2500,
			Currency:     "INR",
			Slots: map[string]*models.Slot{
				"S-1": {},
				"S-2": {},
			},
			AvailableSpots: 2,
		},
	}}
	f := &fixture{lots: lots, records: newMemBookings(), gateway: &fakeGateway{}, now: at(9, 0)}

	l := &ledger.DefaultLedger{
		Repo:        lots,
		Logger:      zap.NewNop(),
		MaxRetries:  3,
		NoShowAfter: time.Hour,
		Now:         func() time.Time { return f.now },
	}
	f.svc = &DefaultBookingService{
		Repo:            f.records,
		Ledger:          l,
		Payments:        f.gateway,
		Logger:          zap.NewNop(),
		Grace:           15 * time.Minute,
		NoShowWarnAfter: 30 * time.Minute,
		NoShowAfter:     time.Hour,
		Now:             func() time.Time { return f.now },
	}
	return f
}

func (f *fixture) book(t *testing.T) *BookingResult {
	t.Helper()
	result, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID:  "u-1",
		LotID:   "lot-1",
		SlotID:  "S-1",
		Vehicle: "KA-01-1234",
		Start:   at(10, 0),
		End:     at(12, 0),
		Method:  models.MethodPrepaid,
	})
	require.NoError(t, err)
	return result
}

// --- tests ---

func TestCreateBookingReservesSlotAndIssuesOrder(t *testing.T) {
	f := newFixture(t)
	result := f.book(t)

	b := result.Booking
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, "order_1", b.OrderID)
	require.NotNil(t, result.Order)
	// Two hours at 2500 minor units per hour.
	assert.Equal(t, int64(5000), result.Order.Amount)
	assert.Equal(t, "INR", result.Order.Currency)

	lot := f.lots.lot("lot-1")
	require.Len(t, lot.Slots["S-1"].Reservations, 1)
	assert.Equal(t, b.ReservationID, lot.Slots["S-1"].Reservations[0].ID)
	assert.Equal(t, models.PaymentUnpaid, lot.Slots["S-1"].Reservations[0].Payment)
}

func TestCreateBookingPartialHourRoundsUp(t *testing.T) {
	f := newFixture(t)
	result, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: "u-1", LotID: "lot-1", SlotID: "S-2",
		Start: at(10, 0), End: at(11, 30), Method: models.MethodPrepaid,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), result.Order.Amount)
}

func TestCreateBookingConflict(t *testing.T) {
	f := newFixture(t)
	f.book(t)

	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: "u-2", LotID: "lot-1", SlotID: "S-1",
		Start: at(11, 0), End: at(13, 0), Method: models.MethodPrepaid,
	})
	assert.ErrorIs(t, err, ledger.ErrSlotTaken)
}

func TestCreateBookingOrderFailureLeavesReservationUnpaid(t *testing.T) {
	f := newFixture(t)
	f.gateway.failOrders = true

	_, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: "u-1", LotID: "lot-1", SlotID: "S-1",
		Start: at(10, 0), End: at(12, 0), Method: models.MethodPrepaid,
	})
	require.ErrorIs(t, err, payment.ErrOrderCreationFailed)

	// The reservation still holds the slot, unpaid, awaiting the no-show
	// timeout.
	lot := f.lots.lot("lot-1")
	require.Len(t, lot.Slots["S-1"].Reservations, 1)
	assert.Equal(t, models.PaymentUnpaid, lot.Slots["S-1"].Reservations[0].Payment)
	assert.False(t, lot.Slots["S-1"].Reservations[0].Cancelled)
}

func TestConfirmPaymentGoodSignature(t *testing.T) {
	f := newFixture(t)
	result := f.book(t)
	orderID := result.Booking.OrderID

	b, err := f.svc.ConfirmPayment(context.Background(), orderID, "pay_1", sign(orderID, "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)
	assert.Equal(t, "pay_1", b.PaymentID)

	lot := f.lots.lot("lot-1")
	assert.Equal(t, models.PaymentPaid, lot.Slots["S-1"].Reservations[0].Payment)

	require.Len(t, f.records.history["u-1"], 1)
	assert.Equal(t, b.ID, f.records.history["u-1"][0].ID)
}

func TestConfirmPaymentBadSignatureCancelsAndReleases(t *testing.T) {
	f := newFixture(t)
	f.now = at(10, 30) // inside the reserved window, so the slot counts as occupied
	result := f.book(t)
	orderID := result.Booking.OrderID
	require.Equal(t, 1, f.lots.lot("lot-1").AvailableSpots)

	_, err := f.svc.ConfirmPayment(context.Background(), orderID, "pay_1", "forged-signature")
	require.ErrorIs(t, err, payment.ErrSignatureMismatch)

	stored, getErr := f.records.GetByID(context.Background(), result.Booking.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.BookingCancelled, stored.Status)

	lot := f.lots.lot("lot-1")
	assert.True(t, lot.Slots["S-1"].Reservations[0].Cancelled)
	// Releasing the slot restored the available-spot count.
	assert.Equal(t, 2, lot.AvailableSpots)
	assert.Empty(t, f.records.history["u-1"])
}

func TestConfirmPaymentUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfirmPayment(context.Background(), "order_404", "pay_1", sign("order_404", "pay_1"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmPaymentOnlyFromPending(t *testing.T) {
	f := newFixture(t)
	result := f.book(t)
	orderID := result.Booking.OrderID

	_, err := f.svc.ConfirmPayment(context.Background(), orderID, "pay_1", sign(orderID, "pay_1"))
	require.NoError(t, err)

	// A second settlement of the same order is an invalid transition.
	_, err = f.svc.ConfirmPayment(context.Background(), orderID, "pay_2", sign(orderID, "pay_2"))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmPaymentHistoryPermissionDegradesToWarning(t *testing.T) {
	f := newFixture(t)
	f.records.denyHistory = true
	result := f.book(t)
	orderID := result.Booking.OrderID

	b, err := f.svc.ConfirmPayment(context.Background(), orderID, "pay_1", sign(orderID, "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)
	assert.Empty(t, f.records.history["u-1"])
}

func TestEntryAndExitFlow(t *testing.T) {
	f := newFixture(t)
	result := f.book(t)
	orderID := result.Booking.OrderID

	// Entry before payment is an invalid transition.
	_, err := f.svc.RecordEntry(context.Background(), result.Booking.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.svc.ConfirmPayment(context.Background(), orderID, "pay_1", sign(orderID, "pay_1"))
	require.NoError(t, err)

	f.now = at(10, 5) // within the grace window
	b, err := f.svc.RecordEntry(context.Background(), result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingActive, b.Status)
	require.NotNil(t, b.EntryAt)

	f.now = at(11, 45)
	b, err = f.svc.RecordExit(context.Background(), result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, b.Status)
	require.NotNil(t, b.ExitAt)

	// Terminal: no further transitions.
	_, err = f.svc.Cancel(context.Background(), b.ID, "too late")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.svc.RecordExit(context.Background(), b.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelFromTerminalAndActiveStates(t *testing.T) {
	f := newFixture(t)
	result := f.book(t)

	b, err := f.svc.Cancel(context.Background(), result.Booking.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, b.Status)
	assert.True(t, f.lots.lot("lot-1").Slots["S-1"].Reservations[0].Cancelled)

	// Cancelling a cancelled booking fails.
	_, err = f.svc.Cancel(context.Background(), b.ID, "again")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestNoShowWarningThenCancellation(t *testing.T) {
	f := newFixture(t)
	result := f.book(t) // created at 09:00, PENDING

	// 35 minutes in: warned, still pending.
	f.now = at(9, 35)
	b, err := f.svc.GetBooking(context.Background(), result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)

	stored, _ := f.records.GetByID(context.Background(), b.ID)
	assert.True(t, stored.NoShowWarned)

	// 61 minutes in: cancelled and released.
	f.now = at(10, 1)
	b, err = f.svc.GetBooking(context.Background(), result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, b.Status)
	assert.True(t, f.lots.lot("lot-1").Slots["S-1"].Reservations[0].Cancelled)
}

func TestNoShowAfterConfirmationRunsFromStart(t *testing.T) {
	f := newFixture(t)
	result := f.book(t)
	orderID := result.Booking.OrderID
	_, err := f.svc.ConfirmPayment(context.Background(), orderID, "pay_1", sign(orderID, "pay_1"))
	require.NoError(t, err)

	// Reservation starts at 10:00; at 10:45 the holder is late but inside
	// the window.
	f.now = at(10, 45)
	b, err := f.svc.GetBooking(context.Background(), result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, b.Status)

	// At 11:05 the no-show window has elapsed with no entry.
	f.now = at(11, 5)
	b, err = f.svc.GetBooking(context.Background(), result.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, b.Status)
}

func TestSweepNoShows(t *testing.T) {
	f := newFixture(t)
	first := f.book(t)

	second, err := f.svc.CreateBooking(context.Background(), CreateBookingInput{
		UserID: "u-2", LotID: "lot-1", SlotID: "S-2",
		Start: at(14, 0), End: at(15, 0), Method: models.MethodPrepaid,
	})
	require.NoError(t, err)

	// Settle the second booking so only the first is overdue-unpaid.
	_, err = f.svc.ConfirmPayment(context.Background(), second.Booking.OrderID, "pay_2",
		sign(second.Booking.OrderID, "pay_2"))
	require.NoError(t, err)

	f.now = at(10, 30)
	cancelled, err := f.svc.SweepNoShows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)

	b, _ := f.records.GetByID(context.Background(), first.Booking.ID)
	assert.Equal(t, models.BookingCancelled, b.Status)
}
