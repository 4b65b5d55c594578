package domain

import (
	"testing"
)

func TestIncomeOrder_Lifecycle(t *testing.T) {
	order := NewIncomeOrder("W1", "SUP-1")

	if order.Status != IncomeOrderDraft {
		t.Fatalf("expected draft status, got %s", order.Status)
	}

	if err := order.SetItems([]IncomeOrderItem{{Article: "A123", Quantity: 50, UnitCost: 1200}}); err != nil {
		t.Fatalf("unexpected error setting items: %v", err)
	}

	events, err := order.Accept("operator")
	if err != nil {
		t.Fatalf("unexpected error accepting: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 stock event, got %d", len(events))
	}
	if events[0].Delta != 50 || events[0].Reason != ReasonIncomeAccept {
		t.Errorf("unexpected accept event: delta=%d reason=%s", events[0].Delta, events[0].Reason)
	}
	if events[0].ReferenceID != order.OrderID {
		t.Errorf("accept event not linked to order: %s", events[0].ReferenceID)
	}

	compensating, err := order.Cancel("operator")
	if err != nil {
		t.Fatalf("unexpected error cancelling: %v", err)
	}
	if len(compensating) != 1 || compensating[0].Delta != -50 || compensating[0].Reason != ReasonIncomeCancel {
		t.Errorf("unexpected compensating events: %+v", compensating)
	}
	if order.Status != IncomeOrderCancelled {
		t.Errorf("expected cancelled status, got %s", order.Status)
	}
}

func TestIncomeOrder_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*IncomeOrder)
		action  func(*IncomeOrder) error
		want    error
	}{
		{
			name:    "accept without items",
			prepare: func(o *IncomeOrder) {},
			action: func(o *IncomeOrder) error {
				_, err := o.Accept("operator")
				return err
			},
			want: ErrOrderHasNoItems,
		},
		{
			name: "double accept",
			prepare: func(o *IncomeOrder) {
				_ = o.SetItems([]IncomeOrderItem{{Article: "A123", Quantity: 1}})
				_, _ = o.Accept("operator")
			},
			action: func(o *IncomeOrder) error {
				_, err := o.Accept("operator")
				return err
			},
			want: ErrInvalidStateTransition,
		},
		{
			name:    "cancel a draft",
			prepare: func(o *IncomeOrder) {},
			action: func(o *IncomeOrder) error {
				_, err := o.Cancel("operator")
				return err
			},
			want: ErrInvalidStateTransition,
		},
		{
			name: "cancel twice",
			prepare: func(o *IncomeOrder) {
				_ = o.SetItems([]IncomeOrderItem{{Article: "A123", Quantity: 1}})
				_, _ = o.Accept("operator")
				_, _ = o.Cancel("operator")
			},
			action: func(o *IncomeOrder) error {
				_, err := o.Cancel("operator")
				return err
			},
			want: ErrInvalidStateTransition,
		},
		{
			name: "edit items after accept",
			prepare: func(o *IncomeOrder) {
				_ = o.SetItems([]IncomeOrderItem{{Article: "A123", Quantity: 1}})
				_, _ = o.Accept("operator")
			},
			action: func(o *IncomeOrder) error {
				return o.SetItems([]IncomeOrderItem{{Article: "B456", Quantity: 2}})
			},
			want: ErrOrderLocked,
		},
		{
			name:    "zero quantity item",
			prepare: func(o *IncomeOrder) {},
			action: func(o *IncomeOrder) error {
				return o.AddItem(IncomeOrderItem{Article: "A123", Quantity: 0})
			},
			want: ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := NewIncomeOrder("W1", "SUP-1")
			tt.prepare(order)
			if err := tt.action(order); err != tt.want {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestIncomeOrder_AcceptCancelNetsToZero(t *testing.T) {
	order := NewIncomeOrder("W1", "SUP-1")
	_ = order.SetItems([]IncomeOrderItem{
		{Article: "A123", Quantity: 50},
		{Article: "B456", Quantity: 20},
	})

	agg := map[string]*StockAggregate{
		"A123": NewStockAggregate("W1", "A123"),
		"B456": NewStockAggregate("W1", "B456"),
	}
	var seq int64

	acceptEvents, err := order.Accept("operator")
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	for _, event := range acceptEvents {
		seq++
		event.SequenceNo = seq
		if err := agg[event.Article].Fold(event); err != nil {
			t.Fatalf("fold failed: %v", err)
		}
	}

	cancelEvents, err := order.Cancel("operator")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	for _, event := range cancelEvents {
		seq++
		event.SequenceNo = seq
		if err := agg[event.Article].Fold(event); err != nil {
			t.Fatalf("fold failed: %v", err)
		}
	}

	for article, a := range agg {
		if a.Quantity != 0 {
			t.Errorf("article %s: expected quantity back at 0, got %d", article, a.Quantity)
		}
	}
}
