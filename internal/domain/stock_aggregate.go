package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StockAggregate is the materialized view for one (warehouse, article) pair.
// It is a rebuildable cache of the ledger: dropping it and folding the event
// stream from sequence 0 reproduces the same row.
type StockAggregate struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	WarehouseID    string             `bson:"warehouseId" json:"warehouseId"`
	Article        string             `bson:"article" json:"article"`
	Quantity       int                `bson:"quantity" json:"quantity"`
	Reserved       int                `bson:"reserved" json:"reserved"`
	AlertThreshold int                `bson:"alertThreshold" json:"alertThreshold"`
	LastSequenceNo int64              `bson:"lastSequenceNo" json:"lastSequenceNo"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`

	domainEvents []DomainEvent
}

// NewStockAggregate creates an empty aggregate for a key.
func NewStockAggregate(warehouseID, article string) *StockAggregate {
	return &StockAggregate{
		WarehouseID: warehouseID,
		Article:     article,
		UpdatedAt:   time.Now().UTC(),
	}
}

// Key returns the (warehouse, article) pair of this row.
func (a *StockAggregate) Key() StockKey {
	return StockKey{WarehouseID: a.WarehouseID, Article: a.Article}
}

// Available is the quantity not held by reservations.
func (a *StockAggregate) Available() int {
	return a.Quantity - a.Reserved
}

// CanFold validates an event against the aggregate's invariants without
// mutating state. Used to reject operations before anything is appended.
func (a *StockAggregate) CanFold(event *StockEvent) error {
	if event.SequenceNo != 0 && event.SequenceNo <= a.LastSequenceNo {
		return nil // replay of an already-folded event is a no-op
	}

	switch event.Reason {
	case ReasonOrderReserve:
		if a.Available() < event.Quantity() {
			return ErrInsufficientAvailability
		}
	case ReasonOrderFulfill:
		if a.Quantity < event.Quantity() {
			return ErrInsufficientAvailability
		}
	}
	return nil
}

// Fold applies one ledger event to the aggregate. Folding an event whose
// sequence number is at or below LastSequenceNo is a silent no-op, which makes
// replay-based recovery and at-least-once delivery safe.
func (a *StockAggregate) Fold(event *StockEvent) error {
	if event.SequenceNo <= a.LastSequenceNo {
		return nil
	}

	qty := event.Quantity()
	before := a.Available()

	switch event.Reason {
	case ReasonIncomeAccept, ReasonIncomeCancel, ReasonManualAdjust, ReasonChannelImport:
		a.Quantity += event.Delta
	case ReasonOrderReserve:
		if a.Available() < qty {
			return ErrInsufficientAvailability
		}
		a.Reserved += qty
	case ReasonOrderRelease:
		// Floored at zero: releasing an already-released reservation is a
		// logged anomaly upstream, never a fatal error here.
		a.Reserved -= qty
		if a.Reserved < 0 {
			a.Reserved = 0
		}
	case ReasonOrderFulfill:
		// Fulfilling consumes the physical unit and its reservation together.
		a.Quantity -= qty
		a.Reserved -= qty
		if a.Reserved < 0 {
			a.Reserved = 0
		}
	default:
		return ErrInvalidEventReason
	}

	a.LastSequenceNo = event.SequenceNo
	a.UpdatedAt = time.Now().UTC()

	a.addDomainEvent(&StockLevelChangedEvent{
		WarehouseID: a.WarehouseID,
		Article:     a.Article,
		Reason:      string(event.Reason),
		Delta:       event.Delta,
		Quantity:    a.Quantity,
		Reserved:    a.Reserved,
		Available:   a.Available(),
		SequenceNo:  event.SequenceNo,
		ChangedAt:   time.Now().UTC(),
	})

	if a.AlertThreshold > 0 && a.Available() <= a.AlertThreshold && before > a.AlertThreshold {
		a.addDomainEvent(&LowStockAlertEvent{
			WarehouseID:    a.WarehouseID,
			Article:        a.Article,
			Available:      a.Available(),
			AlertThreshold: a.AlertThreshold,
			AlertedAt:      time.Now().UTC(),
		})
	}

	return nil
}

// PullEvents returns and clears pending domain events.
func (a *StockAggregate) PullEvents() []DomainEvent {
	events := a.domainEvents
	a.domainEvents = nil
	return events
}

func (a *StockAggregate) addDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}
