// File: database/repository/lot/interface.go
package lotRepo

import (
	"context"
	"errors"

	"parkwise/models"
)

var (
	// ErrNotFound indicates the requested lot document does not exist.
	ErrNotFound = errors.New("lot not found")
	// ErrVersionConflict indicates the conditional write lost a race:
	// the document's version changed between read and write.
	ErrVersionConflict = errors.New("lot version conflict")
)

// LotRepository is the document-store boundary for lot documents. The slot
// map and availableSpots counter are treated as one atomic unit: writes go
// through ReplaceVersioned, which only succeeds if the document still
// carries the version the caller read.
type LotRepository interface {
	GetByID(ctx context.Context, id string) (*models.Lot, error)
	GetAll(ctx context.Context) ([]models.Lot, error)
	Create(ctx context.Context, lot *models.Lot) error
	// ReplaceVersioned overwrites the whole lot document iff its stored
	// version equals expectedVersion, bumping the version by one.
	// Returns ErrVersionConflict when the condition fails.
	ReplaceVersioned(ctx context.Context, lot *models.Lot, expectedVersion int64) error
}
