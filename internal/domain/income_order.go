package domain

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IncomeOrderStatus represents the lifecycle state of a supplier receipt.
type IncomeOrderStatus string

const (
	IncomeOrderDraft     IncomeOrderStatus = "draft"
	IncomeOrderAccepted  IncomeOrderStatus = "accepted"
	IncomeOrderCancelled IncomeOrderStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s IncomeOrderStatus) IsValid() bool {
	switch s {
	case IncomeOrderDraft, IncomeOrderAccepted, IncomeOrderCancelled:
		return true
	default:
		return false
	}
}

// IncomeOrderItem is one receipt line.
type IncomeOrderItem struct {
	Article   string `bson:"article" json:"article"`
	Quantity  int    `bson:"quantity" json:"quantity"`
	UnitCost  int64  `bson:"unitCost" json:"unitCost"`
	ExtraCost int64  `bson:"extraCost" json:"extraCost"`
}

// IncomeOrder is the aggregate root for supplier receipts. It is the only
// path by which total stock increases (acceptance) or is reversed back out
// (cancellation of an accepted order).
//
// Lifecycle: draft -> accepted -> cancelled, each transition exactly once.
type IncomeOrder struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrderID     string             `bson:"orderId" json:"orderId"`
	WarehouseID string             `bson:"warehouseId" json:"warehouseId"`
	SupplierID  string             `bson:"supplierId" json:"supplierId"`
	Status      IncomeOrderStatus  `bson:"status" json:"status"`
	Items       []IncomeOrderItem  `bson:"items" json:"items"`
	AcceptedAt  *time.Time         `bson:"acceptedAt,omitempty" json:"acceptedAt,omitempty"`
	CancelledAt *time.Time         `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`

	domainEvents []DomainEvent
}

// NewIncomeOrder creates a draft income order.
func NewIncomeOrder(warehouseID, supplierID string) *IncomeOrder {
	now := time.Now().UTC()
	return &IncomeOrder{
		OrderID:     "INC-" + uuid.New().String(),
		WarehouseID: warehouseID,
		SupplierID:  supplierID,
		Status:      IncomeOrderDraft,
		Items:       make([]IncomeOrderItem, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetItems replaces the draft's items. Any mutation of a non-draft order
// fails with ErrOrderLocked.
func (o *IncomeOrder) SetItems(items []IncomeOrderItem) error {
	if o.Status != IncomeOrderDraft {
		return ErrOrderLocked
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	o.Items = items
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// AddItem appends one line to a draft order.
func (o *IncomeOrder) AddItem(item IncomeOrderItem) error {
	if o.Status != IncomeOrderDraft {
		return ErrOrderLocked
	}
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	o.Items = append(o.Items, item)
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Accept flips the order to accepted and returns the stock events to append,
// one per item with a positive delta. The caller must persist the order and
// the events as one atomic unit of work.
func (o *IncomeOrder) Accept(actorID string) ([]*StockEvent, error) {
	if o.Status != IncomeOrderDraft {
		return nil, ErrInvalidStateTransition
	}
	if len(o.Items) == 0 {
		return nil, ErrOrderHasNoItems
	}

	events := make([]*StockEvent, 0, len(o.Items))
	for _, item := range o.Items {
		event, err := NewStockEvent(o.WarehouseID, item.Article, item.Quantity, ReasonIncomeAccept, o.OrderID, actorID)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	now := time.Now().UTC()
	o.Status = IncomeOrderAccepted
	o.AcceptedAt = &now
	o.UpdatedAt = now

	o.addDomainEvent(&IncomeOrderAcceptedEvent{
		OrderID:     o.OrderID,
		WarehouseID: o.WarehouseID,
		SupplierID:  o.SupplierID,
		ItemCount:   len(o.Items),
		AcceptedAt:  now,
	})

	return events, nil
}

// Cancel flips an accepted order to cancelled and returns the compensating
// stock events, one per item with a negative delta.
func (o *IncomeOrder) Cancel(actorID string) ([]*StockEvent, error) {
	if o.Status != IncomeOrderAccepted {
		return nil, ErrInvalidStateTransition
	}

	events := make([]*StockEvent, 0, len(o.Items))
	for _, item := range o.Items {
		event, err := NewStockEvent(o.WarehouseID, item.Article, -item.Quantity, ReasonIncomeCancel, o.OrderID, actorID)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	now := time.Now().UTC()
	o.Status = IncomeOrderCancelled
	o.CancelledAt = &now
	o.UpdatedAt = now

	o.addDomainEvent(&IncomeOrderCancelledEvent{
		OrderID:     o.OrderID,
		WarehouseID: o.WarehouseID,
		ItemCount:   len(o.Items),
		CancelledAt: now,
	})

	return events, nil
}

// Articles returns the distinct articles referenced by the order's items.
func (o *IncomeOrder) Articles() []string {
	seen := make(map[string]struct{}, len(o.Items))
	articles := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.Article]; ok {
			continue
		}
		seen[item.Article] = struct{}{}
		articles = append(articles, item.Article)
	}
	return articles
}

// PullEvents returns and clears pending domain events.
func (o *IncomeOrder) PullEvents() []DomainEvent {
	events := o.domainEvents
	o.domainEvents = nil
	return events
}

func (o *IncomeOrder) addDomainEvent(event DomainEvent) {
	o.domainEvents = append(o.domainEvents, event)
}
