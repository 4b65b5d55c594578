package domain

import "errors"

// Errors
var (
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrConcurrentAppendConflict = errors.New("concurrent append conflict")
	ErrTokenAlreadyConsumed     = errors.New("reservation token already consumed")
	ErrOrderLocked              = errors.New("income order is not editable")
	ErrInvalidStateTransition   = errors.New("invalid income order state transition")
	ErrInvalidQuantity          = errors.New("invalid quantity")
	ErrOrderNotFound            = errors.New("income order not found")
	ErrOrderHasNoItems          = errors.New("income order has no items")
	ErrAggregateNotFound        = errors.New("stock aggregate not found")
	ErrLinkNotFound             = errors.New("warehouse link not found")
	ErrLinkAlreadyExists        = errors.New("warehouse link already exists")
	ErrReservationNotFound      = errors.New("no active reservation for reference")
	ErrUnknownMarketplace       = errors.New("unknown marketplace")
	ErrInvalidEventReason       = errors.New("invalid stock event reason")
)
