// File: database/repository/booking/interface.go
package bookingRepo

import (
	"context"
	"errors"

	"parkwise/models"
)

var (
	// ErrNotFound indicates the booking record does not exist.
	ErrNotFound = errors.New("booking not found")
	// ErrPermissionDenied indicates the store rejected the write for lack
	// of privileges. The caller degrades to a warning instead of failing
	// the flow, since the payment has already been captured.
	ErrPermissionDenied = errors.New("store write permission denied")
)

// BookingRepository persists booking records and the per-user booking
// history.
type BookingRepository interface {
	Insert(ctx context.Context, b *models.Booking) error
	Update(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Booking, error)
	// ListOpen returns bookings still in PENDING or CONFIRMED state,
	// the population the no-show sweep inspects.
	ListOpen(ctx context.Context) ([]models.Booking, error)
	// AppendHistory pushes a settled booking onto the user's history
	// array. Returns ErrPermissionDenied when the store refuses the write.
	AppendHistory(ctx context.Context, userID string, b models.Booking) error
}
