package payment

import "errors"

var (
	// ErrInvalidAmount rejects a non-positive order amount before the
	// processor is ever contacted.
	ErrInvalidAmount = errors.New("order amount must be a positive number of minor units")
	// ErrOrderCreationFailed indicates the external processor refused or
	// failed to create the order.
	ErrOrderCreationFailed = errors.New("payment order creation failed")
	// ErrSignatureMismatch indicates the callback signature did not match
	// the order it claims to settle.
	ErrSignatureMismatch = errors.New("payment signature could not be verified")
)
