package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	lotRepo "parkwise/database/repository/lot"
	"parkwise/models"
)

// Ledger owns the authoritative per-lot slot map. All mutations are
// read-modify-write cycles against one lot document, guarded by the
// document version and retried a bounded number of times on conflict.
type Ledger interface {
	Reserve(ctx context.Context, lotID, slotID string, res models.Reservation) (*models.Reservation, error)
	Release(ctx context.Context, lotID, slotID, reservationID string) error
	MarkPaid(ctx context.Context, lotID, slotID, reservationID, orderID, paymentID string) error
	Availability(ctx context.Context, lotID string, q *models.Interval) (map[string]models.SlotStatus, error)
	ExpireNoShows(ctx context.Context, lotID string) ([]string, error)
	GetLot(ctx context.Context, lotID string) (*models.Lot, error)
	ListLots(ctx context.Context) ([]models.Lot, error)
}

// DefaultLedger is the document-store implementation of Ledger.
type DefaultLedger struct {
	Repo        lotRepo.LotRepository
	Logger      *zap.Logger
	MaxRetries  int           // conditional-write attempts before ErrRetryExhausted
	NoShowAfter time.Duration // unpaid reservations older than this are lazily expired
	Now         func() time.Time
}

func (l *DefaultLedger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *DefaultLedger) retries() int {
	if l.MaxRetries > 0 {
		return l.MaxRetries
	}
	return 3
}

// Reserve appends an unpaid reservation to the slot's list iff the candidate
// interval conflicts with no live reservation, recomputing the lot's
// available-spot counter in the same document write. A version conflict
// restarts the whole read-modify-write; overlap fails with ErrSlotTaken and
// performs no mutation.
func (l *DefaultLedger) Reserve(ctx context.Context, lotID, slotID string, res models.Reservation) (*models.Reservation, error) {
	candidate := res.Window()
	if !candidate.Valid() {
		return nil, ErrInvalidInterval
	}

	for attempt := 0; attempt < l.retries(); attempt++ {
		lot, slot, err := l.fetchSlot(ctx, lotID, slotID)
		if err != nil {
			return nil, err
		}

		now := l.now()
		l.expireInPlace(slot, now)

		if Overlaps(liveReservations(slot, now, l.NoShowAfter), candidate) {
			return nil, ErrSlotTaken
		}

		stored := res
		if stored.ID == "" {
			stored.ID = uuid.New().String()
		}
		stored.Payment = models.PaymentUnpaid
		stored.Cancelled = false
		stored.CreatedAt = now

		slot.Reservations = append(slot.Reservations, stored)
		sort.Slice(slot.Reservations, func(i, j int) bool {
			return slot.Reservations[i].Start.Before(slot.Reservations[j].Start)
		})
		lot.RecountAvailable(now)

		err = l.Repo.ReplaceVersioned(ctx, lot, lot.Version)
		if errors.Is(err, lotRepo.ErrVersionConflict) {
			l.Logger.Debug("reserve lost version race, retrying",
				zap.String("lotId", lotID), zap.String("slotId", slotID), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reserve write failed: %w", err)
		}
		return &stored, nil
	}
	return nil, ErrRetryExhausted
}

// Release marks the reservation cancelled and recomputes the available-spot
// counter. Idempotent: releasing a reservation that is already cancelled,
// or that no longer exists, is a no-op.
func (l *DefaultLedger) Release(ctx context.Context, lotID, slotID, reservationID string) error {
	for attempt := 0; attempt < l.retries(); attempt++ {
		lot, slot, err := l.fetchSlot(ctx, lotID, slotID)
		if err != nil {
			return err
		}

		idx := findReservation(slot, reservationID)
		if idx < 0 || slot.Reservations[idx].Cancelled {
			return nil
		}

		slot.Reservations[idx].Cancelled = true
		lot.RecountAvailable(l.now())

		err = l.Repo.ReplaceVersioned(ctx, lot, lot.Version)
		if errors.Is(err, lotRepo.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("release write failed: %w", err)
		}
		return nil
	}
	return ErrRetryExhausted
}

// MarkPaid flips the reservation's payment state after signature
// verification succeeded, recording the processor identifiers. Calling it
// on an already-paid reservation is a no-op; a released reservation cannot
// be paid.
func (l *DefaultLedger) MarkPaid(ctx context.Context, lotID, slotID, reservationID, orderID, paymentID string) error {
	for attempt := 0; attempt < l.retries(); attempt++ {
		lot, slot, err := l.fetchSlot(ctx, lotID, slotID)
		if err != nil {
			return err
		}

		idx := findReservation(slot, reservationID)
		if idx < 0 {
			return fmt.Errorf("reservation %s: %w", reservationID, ErrNotFound)
		}
		r := &slot.Reservations[idx]
		if r.Cancelled {
			return fmt.Errorf("reservation %s already released: %w", reservationID, ErrNotFound)
		}
		if r.Payment == models.PaymentPaid {
			return nil
		}

		r.Payment = models.PaymentPaid
		r.OrderID = orderID
		r.PaymentID = paymentID
		lot.RecountAvailable(l.now())

		err = l.Repo.ReplaceVersioned(ctx, lot, lot.Version)
		if errors.Is(err, lotRepo.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("mark-paid write failed: %w", err)
		}
		return nil
	}
	return ErrRetryExhausted
}

// Availability derives per-slot statuses for the lot, recomputed from the
// current document on every call.
func (l *DefaultLedger) Availability(ctx context.Context, lotID string, q *models.Interval) (map[string]models.SlotStatus, error) {
	if q != nil && !q.Valid() {
		return nil, ErrInvalidInterval
	}
	lot, err := l.GetLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	return Availability(lot, q, l.now(), l.NoShowAfter), nil
}

// ExpireNoShows persists the cancellation of every overdue unpaid
// reservation in the lot and returns their IDs. Used by the periodic sweep;
// reads additionally expire lazily via liveReservations.
func (l *DefaultLedger) ExpireNoShows(ctx context.Context, lotID string) ([]string, error) {
	for attempt := 0; attempt < l.retries(); attempt++ {
		lot, err := l.GetLot(ctx, lotID)
		if err != nil {
			return nil, err
		}

		now := l.now()
		var expired []string
		for _, slot := range lot.Slots {
			expired = append(expired, l.expireInPlace(slot, now)...)
		}
		if len(expired) == 0 {
			return nil, nil
		}
		lot.RecountAvailable(now)

		err = l.Repo.ReplaceVersioned(ctx, lot, lot.Version)
		if errors.Is(err, lotRepo.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("no-show expiry write failed: %w", err)
		}
		l.Logger.Info("expired no-show reservations",
			zap.String("lotId", lotID), zap.Strings("reservationIds", expired))
		return expired, nil
	}
	return nil, ErrRetryExhausted
}

func (l *DefaultLedger) GetLot(ctx context.Context, lotID string) (*models.Lot, error) {
	lot, err := l.Repo.GetByID(ctx, lotID)
	if errors.Is(err, lotRepo.ErrNotFound) {
		return nil, fmt.Errorf("lot %s: %w", lotID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return lot, nil
}

func (l *DefaultLedger) ListLots(ctx context.Context) ([]models.Lot, error) {
	return l.Repo.GetAll(ctx)
}

func (l *DefaultLedger) fetchSlot(ctx context.Context, lotID, slotID string) (*models.Lot, *models.Slot, error) {
	lot, err := l.GetLot(ctx, lotID)
	if err != nil {
		return nil, nil, err
	}
	slot, ok := lot.Slots[slotID]
	if !ok || slot == nil {
		return nil, nil, fmt.Errorf("slot %s in lot %s: %w", slotID, lotID, ErrNotFound)
	}
	return lot, slot, nil
}

// expireInPlace marks overdue unpaid reservations cancelled and returns
// their IDs.
func (l *DefaultLedger) expireInPlace(slot *models.Slot, now time.Time) []string {
	var expired []string
	for i := range slot.Reservations {
		r := &slot.Reservations[i]
		if !r.Cancelled && expiredNoShow(*r, now, l.NoShowAfter) {
			r.Cancelled = true
			expired = append(expired, r.ID)
		}
	}
	return expired
}

func findReservation(slot *models.Slot, reservationID string) int {
	for i := range slot.Reservations {
		if slot.Reservations[i].ID == reservationID {
			return i
		}
	}
	return -1
}
