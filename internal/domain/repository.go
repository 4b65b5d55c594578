package domain

import "context"

// EventCursor iterates a ledger stream in ascending sequence order.
type EventCursor interface {
	Next(ctx context.Context) bool
	Event() *StockEvent
	Err() error
	Close(ctx context.Context) error
}

// LedgerStore is the append-only event log, the sole owner of historical
// truth. Append assigns the next sequence number for the event's key
// atomically with the insert and fails with ErrConcurrentAppendConflict when
// two callers race for the same slot.
type LedgerStore interface {
	Append(ctx context.Context, event *StockEvent) (int64, error)
	Replay(ctx context.Context, key StockKey, fromSeq int64) (EventCursor, error)
	FindByReference(ctx context.Context, key StockKey, referenceID string) ([]*StockEvent, error)
}

// AggregateFilter narrows aggregate listings.
type AggregateFilter struct {
	Article        string
	BelowThreshold bool
	Limit          int
	Offset         int
}

// AggregateStore persists the materialized stock rows. Get returns nil when
// no row exists for the key.
type AggregateStore interface {
	Get(ctx context.Context, key StockKey) (*StockAggregate, error)
	Put(ctx context.Context, aggregate *StockAggregate) error
	List(ctx context.Context, warehouseID string, filter AggregateFilter) ([]*StockAggregate, error)
	ListAll(ctx context.Context) ([]*StockAggregate, error)
}

// AuditStore records push attempts. Rows are append-only.
type AuditStore interface {
	Append(ctx context.Context, attempt *SyncAttempt) error
	List(ctx context.Context, filter SyncHistoryFilter) ([]*SyncAttempt, error)
	Latest(ctx context.Context, linkID, article string) (*SyncAttempt, error)
}

// IncomeOrderStore persists supplier receipts.
type IncomeOrderStore interface {
	Save(ctx context.Context, order *IncomeOrder) error
	FindByID(ctx context.Context, orderID string) (*IncomeOrder, error)
	List(ctx context.Context, warehouseID string, status IncomeOrderStatus, limit, offset int) ([]*IncomeOrder, error)
}

// LinkStore persists warehouse links.
type LinkStore interface {
	Save(ctx context.Context, link *WarehouseLink) error
	FindByID(ctx context.Context, linkID string) (*WarehouseLink, error)
	FindByWarehouse(ctx context.Context, warehouseID string, enabledOnly bool) ([]*WarehouseLink, error)
	Delete(ctx context.Context, linkID string) error
}

// TxRunner executes a function inside one storage transaction. The mongo
// implementation opens a session; the in-memory implementation just calls fn.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
