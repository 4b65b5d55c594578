package domain

import "time"

// DomainEvent is implemented by all events emitted by aggregates.
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// StockLevelChangedEvent is emitted on every successful fold.
type StockLevelChangedEvent struct {
	WarehouseID string    `json:"warehouseId"`
	Article     string    `json:"article"`
	Reason      string    `json:"reason"`
	Delta       int       `json:"delta"`
	Quantity    int       `json:"quantity"`
	Reserved    int       `json:"reserved"`
	Available   int       `json:"available"`
	SequenceNo  int64     `json:"sequenceNo"`
	ChangedAt   time.Time `json:"changedAt"`
}

func (e *StockLevelChangedEvent) EventType() string     { return "stock.level.changed" }
func (e *StockLevelChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// LowStockAlertEvent is emitted when available crosses the alert threshold
// from above.
type LowStockAlertEvent struct {
	WarehouseID    string    `json:"warehouseId"`
	Article        string    `json:"article"`
	Available      int       `json:"available"`
	AlertThreshold int       `json:"alertThreshold"`
	AlertedAt      time.Time `json:"alertedAt"`
}

func (e *LowStockAlertEvent) EventType() string     { return "stock.low.alert" }
func (e *LowStockAlertEvent) OccurredAt() time.Time { return e.AlertedAt }

// IncomeOrderAcceptedEvent is emitted when a draft receipt is accepted.
type IncomeOrderAcceptedEvent struct {
	OrderID     string    `json:"orderId"`
	WarehouseID string    `json:"warehouseId"`
	SupplierID  string    `json:"supplierId"`
	ItemCount   int       `json:"itemCount"`
	AcceptedAt  time.Time `json:"acceptedAt"`
}

func (e *IncomeOrderAcceptedEvent) EventType() string     { return "income.order.accepted" }
func (e *IncomeOrderAcceptedEvent) OccurredAt() time.Time { return e.AcceptedAt }

// IncomeOrderCancelledEvent is emitted when an accepted receipt is reversed.
type IncomeOrderCancelledEvent struct {
	OrderID     string    `json:"orderId"`
	WarehouseID string    `json:"warehouseId"`
	ItemCount   int       `json:"itemCount"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *IncomeOrderCancelledEvent) EventType() string     { return "income.order.cancelled" }
func (e *IncomeOrderCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// SyncExhaustedEvent is emitted when a sync intent has burned through its
// retry budget and is dropped from the queue. Attempts counts real
// marketplace calls; Suppressed counts tries swallowed by an open circuit,
// so zero attempts with a positive Suppressed means the channel was down
// the whole time.
type SyncExhaustedEvent struct {
	LinkID      string    `json:"linkId"`
	Marketplace string    `json:"marketplace"`
	Article     string    `json:"article"`
	Quantity    int       `json:"quantity"`
	Attempts    int       `json:"attempts"`
	Suppressed  int       `json:"suppressed"`
	LastError   string    `json:"lastError"`
	DroppedAt   time.Time `json:"droppedAt"`
}

func (e *SyncExhaustedEvent) EventType() string     { return "sync.retries.exhausted" }
func (e *SyncExhaustedEvent) OccurredAt() time.Time { return e.DroppedAt }
