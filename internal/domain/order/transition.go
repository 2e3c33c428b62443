package order

// IsNewlyFulfilled reports whether applying the incoming record transitions
// the order into a fulfilled state for the first time. It must be evaluated
// against the pre-update snapshot (existing may be nil for a first insert),
// never against the row after the upsert wrote it.
//
// The signal requires non-empty tracking info on the incoming record so the
// shipped notification always carries a tracking number. It is a pure
// boolean; dispatching the notification is the caller's concern.
func IsNewlyFulfilled(existing *Order, incoming *Order) bool {
	if existing != nil && existing.IsFulfilled() {
		return false
	}
	return incoming.IsFulfilled() && incoming.HasTracking()
}
