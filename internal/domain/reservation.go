package domain

// ReservationToken identifies a hold against available stock. It carries no
// server state beyond the key/quantity/reference triple: the hold itself is
// reconstructable from the ledger by folding the events that share its
// reference, so tokens survive process restarts.
type ReservationToken struct {
	WarehouseID string `json:"warehouseId"`
	Article     string `json:"article"`
	Quantity    int    `json:"quantity"`
	ReferenceID string `json:"referenceId"`
}

// Key returns the ledger stream the token belongs to.
func (t ReservationToken) Key() StockKey {
	return StockKey{WarehouseID: t.WarehouseID, Article: t.Article}
}

// ReservationState is the ledger-derived state of one reference's hold.
type ReservationState struct {
	Reserved  int
	Released  int
	Fulfilled int
}

// Active reports whether any reserved quantity is still outstanding.
func (s ReservationState) Active() bool {
	return s.Reserved-s.Released-s.Fulfilled > 0
}

// Outstanding returns the quantity still held.
func (s ReservationState) Outstanding() int {
	out := s.Reserved - s.Released - s.Fulfilled
	if out < 0 {
		return 0
	}
	return out
}

// FoldReservation derives a reference's reservation state from its ledger
// events. Events with other reasons are ignored.
func FoldReservation(events []*StockEvent, referenceID string) ReservationState {
	var state ReservationState
	for _, event := range events {
		if event.ReferenceID != referenceID {
			continue
		}
		switch event.Reason {
		case ReasonOrderReserve:
			state.Reserved += event.Quantity()
		case ReasonOrderRelease:
			state.Released += event.Quantity()
		case ReasonOrderFulfill:
			state.Fulfilled += event.Quantity()
		}
	}
	return state
}
