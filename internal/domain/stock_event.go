package domain

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventReason classifies why a stock event was appended to the ledger.
type EventReason string

const (
	ReasonIncomeAccept  EventReason = "income_accept"
	ReasonIncomeCancel  EventReason = "income_cancel"
	ReasonManualAdjust  EventReason = "manual_adjust"
	ReasonOrderReserve  EventReason = "order_reserve"
	ReasonOrderRelease  EventReason = "order_release"
	ReasonOrderFulfill  EventReason = "order_fulfill"
	ReasonChannelImport EventReason = "channel_import"
)

// IsValid checks if the event reason is valid
func (r EventReason) IsValid() bool {
	switch r {
	case ReasonIncomeAccept, ReasonIncomeCancel, ReasonManualAdjust,
		ReasonOrderReserve, ReasonOrderRelease, ReasonOrderFulfill, ReasonChannelImport:
		return true
	default:
		return false
	}
}

// MutatesQuantity reports whether events with this reason change physical
// quantity (as opposed to only moving the reservation counter).
func (r EventReason) MutatesQuantity() bool {
	switch r {
	case ReasonIncomeAccept, ReasonIncomeCancel, ReasonManualAdjust, ReasonChannelImport, ReasonOrderFulfill:
		return true
	default:
		return false
	}
}

// StockKey identifies one ledger stream: a (warehouse, article) pair.
type StockKey struct {
	WarehouseID string `bson:"warehouseId" json:"warehouseId"`
	Article     string `bson:"article" json:"article"`
}

// StockEvent is an immutable ledger row. Events are only ever appended;
// a correction is a new event with an opposite-signed delta.
type StockEvent struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	EventID     string             `bson:"eventId" json:"eventId"`
	WarehouseID string             `bson:"warehouseId" json:"warehouseId"`
	Article     string             `bson:"article" json:"article"`
	Delta       int                `bson:"delta" json:"delta"`
	Reason      EventReason        `bson:"reason" json:"reason"`
	ReferenceID string             `bson:"referenceId,omitempty" json:"referenceId,omitempty"`
	ActorID     string             `bson:"actorId" json:"actorId"`
	Note        string             `bson:"note,omitempty" json:"note,omitempty"`
	OccurredAt  time.Time          `bson:"occurredAt" json:"occurredAt"`
	SequenceNo  int64              `bson:"sequenceNo" json:"sequenceNo"`
}

// NewStockEvent creates an unsequenced stock event. The ledger store assigns
// SequenceNo atomically on append.
func NewStockEvent(warehouseID, article string, delta int, reason EventReason, referenceID, actorID string) (*StockEvent, error) {
	if !reason.IsValid() {
		return nil, ErrInvalidEventReason
	}
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}

	return &StockEvent{
		EventID:     uuid.New().String(),
		WarehouseID: warehouseID,
		Article:     article,
		Delta:       delta,
		Reason:      reason,
		ReferenceID: referenceID,
		ActorID:     actorID,
		OccurredAt:  time.Now().UTC(),
	}, nil
}

// Key returns the ledger stream this event belongs to.
func (e *StockEvent) Key() StockKey {
	return StockKey{WarehouseID: e.WarehouseID, Article: e.Article}
}

// Quantity returns the absolute delta.
func (e *StockEvent) Quantity() int {
	if e.Delta < 0 {
		return -e.Delta
	}
	return e.Delta
}
