package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingRepo "parkwise/database/repository/booking"
	"parkwise/models"
	"parkwise/services/ledger"
	"parkwise/services/payment"
)

// CreateBookingInput is the request to open a booking.
type CreateBookingInput struct {
	UserID  string
	LotID   string
	SlotID  string
	Vehicle string
	Start   time.Time
	End     time.Time
	Method  models.PaymentMethod
}

// BookingResult pairs the created record with its payment order.
type BookingResult struct {
	Booking *models.Booking      `json:"booking"`
	Order   *models.PaymentOrder `json:"order,omitempty"`
}

// BookingService drives the booking record lifecycle and coordinates the
// ledger and payment gateway around it.
type BookingService interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*BookingResult, error)
	ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID, reason string) (*models.Booking, error)
	RecordEntry(ctx context.Context, bookingID string) (*models.Booking, error)
	RecordExit(ctx context.Context, bookingID string) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID string) (*models.Booking, error)
	SweepNoShows(ctx context.Context) (int, error)
}

// DefaultBookingService is the production BookingService.
type DefaultBookingService struct {
	Repo     bookingRepo.BookingRepository
	Ledger   ledger.Ledger
	Payments payment.Gateway
	Cache    *redis.Client // replay guard for processor callbacks; optional
	Logger   *zap.Logger

	Grace           time.Duration // entry tolerance after reservation start
	NoShowWarnAfter time.Duration // warning before the no-show cancel
	NoShowAfter     time.Duration // cancel when no entry within this window
	Now             func() time.Time
}

func (s *DefaultBookingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateBooking reserves the slot, opens a PENDING record and issues the
// payment order. An order-creation failure leaves the reservation unpaid
// and subject to the no-show timeout; it performs no ledger mutation.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*BookingResult, error) {
	lot, err := s.Ledger.GetLot(ctx, input.LotID)
	if err != nil {
		return nil, err
	}

	reserved, err := s.Ledger.Reserve(ctx, input.LotID, input.SlotID, models.Reservation{
		UserID:  input.UserID,
		Vehicle: input.Vehicle,
		Start:   input.Start,
		End:     input.End,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	b := &models.Booking{
		ID:            uuid.New().String(),
		UserID:        input.UserID,
		LotID:         input.LotID,
		SlotID:        input.SlotID,
		ReservationID: reserved.ID,
		Vehicle:       input.Vehicle,
		Method:        input.Method,
		Status:        models.BookingPending,
		Start:         input.Start,
		End:           input.End,
		Amount:        priceFor(lot, input.Start, input.End),
		Currency:      lot.Currency,
		CreatedAt:     now,
	}
	if err := s.Repo.Insert(ctx, b); err != nil {
		// The reservation would otherwise dangle until the no-show sweep.
		if relErr := s.Ledger.Release(ctx, b.LotID, b.SlotID, b.ReservationID); relErr != nil {
			s.Logger.Error("failed to release reservation after booking insert failure",
				zap.String("reservationId", b.ReservationID), zap.Error(relErr))
		}
		return nil, fmt.Errorf("failed to persist booking: %w", err)
	}

	order, err := s.Payments.CreateOrder(ctx, b.Amount, b.Currency)
	if err != nil {
		s.Logger.Warn("payment order creation failed; reservation remains unpaid",
			zap.String("bookingId", b.ID), zap.Error(err))
		return nil, err
	}
	b.OrderID = order.ID
	if err := s.Repo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to attach order to booking: %w", err)
	}

	s.Logger.Info("booking created",
		zap.String("bookingId", b.ID), zap.String("lotId", b.LotID),
		zap.String("slotId", b.SlotID), zap.String("orderId", order.ID))
	return &BookingResult{Booking: b, Order: order}, nil
}

// priceFor charges whole hours of the lot's hourly rate, rounding the
// reserved window up.
func priceFor(lot *models.Lot, start, end time.Time) int64 {
	hours := int64(end.Sub(start) / time.Hour)
	if end.Sub(start)%time.Hour != 0 {
		hours++
	}
	if hours < 1 {
		hours = 1
	}
	return hours * lot.PricePerHour
}

// ConfirmPayment settles the processor callback. A good signature moves the
// record PENDING -> CONFIRMED, marks the ledger reservation paid and appends
// the booking to the user's history; a bad one cancels the record and
// releases the slot. A failed verification is final for the order.
func (s *DefaultBookingService) ConfirmPayment(ctx context.Context, orderID, paymentID, signature string) (*models.Booking, error) {
	b, err := s.Repo.GetByOrderID(ctx, orderID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if s.alreadyProcessed(ctx, paymentID) {
		s.Logger.Info("duplicate payment callback acknowledged",
			zap.String("orderId", orderID), zap.String("paymentId", paymentID))
		return b, nil
	}

	if !s.Payments.Verify(orderID, paymentID, signature) {
		s.Logger.Warn("payment signature mismatch; cancelling booking",
			zap.String("bookingId", b.ID), zap.String("orderId", orderID))
		if cancelErr := s.cancelAndRelease(ctx, b, "payment could not be verified"); cancelErr != nil {
			s.Logger.Error("failed to cancel booking after signature mismatch",
				zap.String("bookingId", b.ID), zap.Error(cancelErr))
		}
		return nil, payment.ErrSignatureMismatch
	}

	if err := markPaid(b); err != nil {
		return nil, err
	}
	b.PaymentID = paymentID
	if err := s.Ledger.MarkPaid(ctx, b.LotID, b.SlotID, b.ReservationID, orderID, paymentID); err != nil {
		return nil, fmt.Errorf("failed to mark reservation paid: %w", err)
	}
	if err := s.Repo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to persist confirmed booking: %w", err)
	}

	// The money is captured at this point: a history write the store
	// rejects degrades to a warning, never a failure.
	if err := s.Repo.AppendHistory(ctx, b.UserID, *b); err != nil {
		if errors.Is(err, bookingRepo.ErrPermissionDenied) {
			s.Logger.Warn("booking confirmed but history not recorded",
				zap.String("bookingId", b.ID), zap.String("userId", b.UserID))
		} else {
			s.Logger.Error("failed to append booking history",
				zap.String("bookingId", b.ID), zap.Error(err))
		}
	}

	s.markProcessed(ctx, paymentID)
	s.Logger.Info("booking confirmed",
		zap.String("bookingId", b.ID), zap.String("paymentId", paymentID))
	return b, nil
}

// Cancel cancels a PENDING or CONFIRMED booking and releases its slot.
func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID, reason string) (*models.Booking, error) {
	b, err := s.get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.cancelAndRelease(ctx, b, reason); err != nil {
		return nil, err
	}
	return b, nil
}

// RecordEntry marks physical entry. Entry outside the grace window is a
// policy violation surfaced as a warning, not a hard error: software cannot
// block the physical gate.
func (s *DefaultBookingService) RecordEntry(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := recordEntry(b); err != nil {
		return nil, err
	}

	now := s.now()
	if now.Before(b.Start) || !now.Before(b.Start.Add(s.Grace)) {
		s.Logger.Warn("entry outside grace window",
			zap.String("bookingId", b.ID), zap.Time("start", b.Start), zap.Time("entry", now))
	}
	b.EntryAt = &now
	if err := s.Repo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to persist entry: %w", err)
	}
	return b, nil
}

// RecordExit marks physical exit and completes the booking.
func (s *DefaultBookingService) RecordExit(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := recordExit(b); err != nil {
		return nil, err
	}
	now := s.now()
	b.ExitAt = &now
	if err := s.Repo.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to persist exit: %w", err)
	}
	return b, nil
}

// GetBooking fetches a booking, lazily applying the no-show policy so an
// overdue record reads as cancelled without waiting for the sweep.
func (s *DefaultBookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if _, err := s.applyNoShow(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// SweepNoShows applies the no-show policy across all open bookings and
// returns how many it cancelled. Run periodically by the worker.
func (s *DefaultBookingService) SweepNoShows(ctx context.Context) (int, error) {
	open, err := s.Repo.ListOpen(ctx)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for i := range open {
		done, err := s.applyNoShow(ctx, &open[i])
		if err != nil {
			s.Logger.Error("no-show sweep failed for booking",
				zap.String("bookingId", open[i].ID), zap.Error(err))
			continue
		}
		if done {
			cancelled++
		}
	}
	return cancelled, nil
}

// applyNoShow warns at NoShowWarnAfter and cancels at NoShowAfter. For a
// PENDING record the clock runs from creation (payment never arrived); for
// a CONFIRMED one from the reservation start (holder never showed up).
// Reports whether the booking was cancelled.
func (s *DefaultBookingService) applyNoShow(ctx context.Context, b *models.Booking) (bool, error) {
	if b.Terminal() || b.Status == models.BookingActive || b.EntryAt != nil {
		return false, nil
	}

	now := s.now()
	var since time.Time
	switch b.Status {
	case models.BookingPending:
		since = b.CreatedAt
	case models.BookingConfirmed:
		since = b.Start
	default:
		return false, nil
	}
	if now.Before(since) {
		return false, nil
	}
	overdue := now.Sub(since)

	if overdue >= s.NoShowAfter {
		if err := s.cancelAndRelease(ctx, b, "no-show timeout"); err != nil {
			return false, err
		}
		s.Logger.Info("booking cancelled as no-show", zap.String("bookingId", b.ID))
		return true, nil
	}

	if overdue >= s.NoShowWarnAfter && !b.NoShowWarned {
		b.NoShowWarned = true
		if err := s.Repo.Update(ctx, b); err != nil {
			return false, fmt.Errorf("failed to persist no-show warning: %w", err)
		}
		s.Logger.Warn("no-show warning issued", zap.String("bookingId", b.ID))
	}
	return false, nil
}

func (s *DefaultBookingService) cancelAndRelease(ctx context.Context, b *models.Booking, reason string) error {
	if err := cancel(b, reason); err != nil {
		return err
	}
	if err := s.Ledger.Release(ctx, b.LotID, b.SlotID, b.ReservationID); err != nil {
		return fmt.Errorf("failed to release reservation %s: %w", b.ReservationID, err)
	}
	if err := s.Repo.Update(ctx, b); err != nil {
		return fmt.Errorf("failed to persist cancellation: %w", err)
	}
	return nil
}

func (s *DefaultBookingService) get(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := s.Repo.GetByID(ctx, bookingID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// alreadyProcessed checks the redis replay guard for the payment ID.
func (s *DefaultBookingService) alreadyProcessed(ctx context.Context, paymentID string) bool {
	if s.Cache == nil {
		return false
	}
	n, err := s.Cache.Exists(ctx, processedKey(paymentID)).Result()
	if err != nil {
		s.Logger.Warn("payment replay guard unavailable", zap.Error(err))
		return false
	}
	return n > 0
}

func (s *DefaultBookingService) markProcessed(ctx context.Context, paymentID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Set(ctx, processedKey(paymentID), "1", 24*time.Hour).Err(); err != nil {
		s.Logger.Warn("failed to record processed payment", zap.Error(err))
	}
}

func processedKey(paymentID string) string {
	return "payment:processed:" + paymentID
}
