package application

import "time"

// StockDTO represents one materialized stock row in responses.
type StockDTO struct {
	WarehouseID    string    `json:"warehouseId"`
	Article        string    `json:"article"`
	Quantity       int       `json:"quantity"`
	Reserved       int       `json:"reserved"`
	Available      int       `json:"available"`
	AlertThreshold int       `json:"alertThreshold"`
	LastSequenceNo int64     `json:"lastSequenceNo"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ReservationDTO represents a hold and its ledger-derived state.
type ReservationDTO struct {
	WarehouseID string `json:"warehouseId"`
	Article     string `json:"article"`
	ReferenceID string `json:"referenceId"`
	Quantity    int    `json:"quantity"`
	Outstanding int    `json:"outstanding"`
	Active      bool   `json:"active"`
}

// IncomeOrderDTO represents a supplier receipt in responses.
type IncomeOrderDTO struct {
	OrderID     string               `json:"orderId"`
	WarehouseID string               `json:"warehouseId"`
	SupplierID  string               `json:"supplierId"`
	Status      string               `json:"status"`
	Items       []IncomeOrderItemDTO `json:"items"`
	AcceptedAt  *time.Time           `json:"acceptedAt,omitempty"`
	CancelledAt *time.Time           `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// IncomeOrderItemDTO is one receipt line in responses.
type IncomeOrderItemDTO struct {
	Article   string `json:"article"`
	Quantity  int    `json:"quantity"`
	UnitCost  int64  `json:"unitCost"`
	ExtraCost int64  `json:"extraCost"`
}

// IncomeOrderPostingDTO reports an accept or cancel outcome: the order in
// its new state plus the stock rows the posting changed, so callers can
// refresh their view without a follow-up read.
type IncomeOrderPostingDTO struct {
	Order *IncomeOrderDTO `json:"order"`
	Stock []StockDTO      `json:"stock"`
}

// WarehouseLinkDTO represents a warehouse link in responses.
type WarehouseLinkDTO struct {
	LinkID              string    `json:"linkId"`
	WarehouseID         string    `json:"warehouseId"`
	Marketplace         string    `json:"marketplace"`
	ExternalWarehouseID string    `json:"externalWarehouseId"`
	Enabled             bool      `json:"enabled"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// SyncAttemptDTO represents one audit row in responses.
type SyncAttemptDTO struct {
	AttemptID    string    `json:"attemptId"`
	LinkID       string    `json:"linkId"`
	WarehouseID  string    `json:"warehouseId"`
	Marketplace  string    `json:"marketplace"`
	Article      string    `json:"article"`
	QuantitySent int       `json:"quantitySent"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	Retryable    bool      `json:"retryable"`
	AttemptNo    int       `json:"attemptNo"`
	AttemptedAt  time.Time `json:"attemptedAt"`
}

// ExternalWarehouseDTO is one marketplace warehouse in responses.
type ExternalWarehouseDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RebuildResultDTO reports the outcome of an aggregate rebuild.
type RebuildResultDTO struct {
	Stock        StockDTO `json:"stock"`
	EventsFolded int      `json:"eventsFolded"`
}
