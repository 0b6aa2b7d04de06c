package stock

import "errors"

var (
	// ErrInvalidAdjustment rejects a malformed append: zero delta or a
	// delta whose sign does not match the adjustment type.
	ErrInvalidAdjustment = errors.New("invalid stock adjustment")

	ErrInvalidQuantity = errors.New("quantity must be positive")

	// Referential integrity failures, rejected before any write.
	ErrUnknownVariant  = errors.New("unknown variant")
	ErrUnknownLocation = errors.New("unknown location")

	// ErrInsufficientStock is an expected, frequent reservation outcome,
	// not a fault.
	ErrInsufficientStock = errors.New("insufficient stock")

	ErrUnknownReservation = errors.New("unknown reservation")
)
