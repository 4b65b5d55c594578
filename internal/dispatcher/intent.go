package dispatcher

// intentKey identifies one coalescing slot: the newest requested quantity for
// one article on one link.
type intentKey struct {
	LinkID  string
	Article string
}

// pendingIntent is the slot's state. While queued, a newer quantity simply
// overwrites the older one. While a push is in flight, a newer quantity is
// parked in dirtyQuantity and becomes a fresh intent when the push finishes,
// so the marketplace always converges on the latest value.
type pendingIntent struct {
	Quantity      int
	InFlight      bool
	Dirty         bool
	DirtyQuantity int
}
