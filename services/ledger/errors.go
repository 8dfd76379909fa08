package ledger

import "errors"

var (
	// ErrInvalidInterval rejects a candidate whose end does not come after
	// its start.
	ErrInvalidInterval = errors.New("reservation interval end must be after start")
	// ErrSlotTaken indicates the candidate interval conflicts with an
	// existing reservation on the slot.
	ErrSlotTaken = errors.New("slot already reserved for the requested interval")
	// ErrRetryExhausted indicates the conditional write kept losing races
	// and the bounded retry budget ran out.
	ErrRetryExhausted = errors.New("slot reservation retries exhausted")
	// ErrNotFound indicates the lot or slot does not exist.
	ErrNotFound = errors.New("lot or slot not found")
)
