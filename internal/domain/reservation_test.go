package domain

import "testing"

func TestFoldReservation(t *testing.T) {
	events := []*StockEvent{
		mustEvent(t, "W1", "A123", -30, ReasonOrderReserve, "order-1", 1),
		mustEvent(t, "W1", "A123", -10, ReasonOrderReserve, "order-2", 2),
		mustEvent(t, "W1", "A123", 10, ReasonOrderRelease, "order-2", 3),
	}

	active := FoldReservation(events, "order-1")
	if !active.Active() {
		t.Error("expected order-1 reservation to be active")
	}
	if active.Outstanding() != 30 {
		t.Errorf("expected 30 outstanding, got %d", active.Outstanding())
	}

	released := FoldReservation(events, "order-2")
	if released.Active() {
		t.Error("expected order-2 reservation to be released")
	}
	if released.Outstanding() != 0 {
		t.Errorf("expected 0 outstanding, got %d", released.Outstanding())
	}

	unknown := FoldReservation(events, "order-3")
	if unknown.Active() {
		t.Error("expected no reservation for unknown reference")
	}
}

func TestFoldReservation_Fulfilled(t *testing.T) {
	events := []*StockEvent{
		mustEvent(t, "W1", "A123", -30, ReasonOrderReserve, "order-1", 1),
		mustEvent(t, "W1", "A123", -30, ReasonOrderFulfill, "order-1", 2),
	}

	state := FoldReservation(events, "order-1")
	if state.Active() {
		t.Error("fulfilled reservation must not be active")
	}
}
