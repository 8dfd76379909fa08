package booking

import (
	"fmt"

	"parkwise/models"
)

// Lifecycle: PENDING -> CONFIRMED -> ACTIVE -> COMPLETED, with
// PENDING/CONFIRMED -> CANCELLED. COMPLETED and CANCELLED are terminal.

// markPaid moves the record to CONFIRMED. Only reachable from PENDING and
// only ever triggered by a successful signature verification.
func markPaid(b *models.Booking) error {
	if b.Status != models.BookingPending {
		return fmt.Errorf("mark paid from %s: %w", b.Status, ErrInvalidState)
	}
	b.Status = models.BookingConfirmed
	return nil
}

// recordEntry moves the record to ACTIVE on physical entry.
func recordEntry(b *models.Booking) error {
	if b.Status != models.BookingConfirmed {
		return fmt.Errorf("record entry from %s: %w", b.Status, ErrInvalidState)
	}
	b.Status = models.BookingActive
	return nil
}

// recordExit moves the record to COMPLETED on physical exit.
func recordExit(b *models.Booking) error {
	if b.Status != models.BookingActive {
		return fmt.Errorf("record exit from %s: %w", b.Status, ErrInvalidState)
	}
	b.Status = models.BookingCompleted
	return nil
}

// cancel moves the record to CANCELLED. Unreachable from ACTIVE and from
// the terminal states.
func cancel(b *models.Booking, reason string) error {
	if b.Status != models.BookingPending && b.Status != models.BookingConfirmed {
		return fmt.Errorf("cancel from %s: %w", b.Status, ErrInvalidState)
	}
	b.Status = models.BookingCancelled
	b.CancelReason = reason
	return nil
}
