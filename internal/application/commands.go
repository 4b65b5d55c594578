package application

import "time"

// AdjustStockCommand sets or corrects physical quantity by a signed delta.
type AdjustStockCommand struct {
	WarehouseID string
	Article     string
	Delta       int
	Note        string
	ActorID     string
}

// ReserveStockCommand places a hold against available stock.
type ReserveStockCommand struct {
	WarehouseID string
	Article     string
	Quantity    int
	ReferenceID string
	ActorID     string
}

// ReleaseReservationCommand returns a hold to the available pool.
type ReleaseReservationCommand struct {
	WarehouseID string
	Article     string
	ReferenceID string
	ActorID     string
}

// FulfillReservationCommand consumes a hold: the units ship and leave stock.
type FulfillReservationCommand struct {
	WarehouseID string
	Article     string
	ReferenceID string
	ActorID     string
}

// SetAlertThresholdCommand changes the low-stock alert level for a key.
type SetAlertThresholdCommand struct {
	WarehouseID    string
	Article        string
	AlertThreshold int
}

// RebuildAggregateCommand refolds one key's aggregate from its ledger stream.
type RebuildAggregateCommand struct {
	WarehouseID string
	Article     string
}

// CreateIncomeOrderCommand opens a draft supplier receipt.
type CreateIncomeOrderCommand struct {
	WarehouseID string
	SupplierID  string
	Items       []IncomeOrderItemInput
}

// IncomeOrderItemInput is one receipt line as submitted by the caller.
type IncomeOrderItemInput struct {
	Article   string
	Quantity  int
	UnitCost  int64
	ExtraCost int64
}

// UpdateIncomeOrderCommand replaces a draft's items.
type UpdateIncomeOrderCommand struct {
	OrderID string
	Items   []IncomeOrderItemInput
}

// AcceptIncomeOrderCommand posts a draft receipt to stock.
type AcceptIncomeOrderCommand struct {
	OrderID string
	ActorID string
}

// CancelIncomeOrderCommand reverses an accepted receipt.
type CancelIncomeOrderCommand struct {
	OrderID string
	ActorID string
}

// CreateLinkCommand binds a warehouse to a marketplace warehouse.
type CreateLinkCommand struct {
	WarehouseID         string
	Marketplace         string
	ExternalWarehouseID string
}

// SetLinkEnabledCommand toggles a link.
type SetLinkEnabledCommand struct {
	LinkID  string
	Enabled bool
}

// ListStockQuery narrows a warehouse stock listing.
type ListStockQuery struct {
	WarehouseID    string
	Article        string
	BelowThreshold bool
	Limit          int
	Offset         int
}

// SyncHistoryQuery narrows the sync audit listing.
type SyncHistoryQuery struct {
	Marketplace string
	WarehouseID string
	Article     string
	Status      string
	From        time.Time
	To          time.Time
	Limit       int
	Offset      int
}
