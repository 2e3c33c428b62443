package order

// ---------------------------------------------------------------------------
// Reconciliation Decision
// ---------------------------------------------------------------------------

// Decision classifies an incoming record against the stored state.
type Decision string

const (
	// DecisionNew means no row exists for the upstream order id; always insert
	DecisionNew Decision = "NEW"
	// DecisionUpdated means the incoming record is strictly newer than the stored row
	DecisionUpdated Decision = "UPDATED"
	// DecisionStale means the incoming record must not mutate any field
	DecisionStale Decision = "STALE"
)

// Classify decides whether an incoming record is new, an update, or stale
// relative to the existing row. This timestamp rule is the engine's core
// correctness invariant: a record with UpstreamUpdatedAt less than or equal
// to the stored value never mutates existing state, so a delayed webhook or
// a stale poll can never clobber fresher data written by the other path.
//
// The rule deliberately does not apply to first inserts: an unseen upstream
// order id is always DecisionNew, even with an epoch-zero timestamp.
func Classify(incoming *Order, existing *Order) Decision {
	if existing == nil {
		return DecisionNew
	}
	if incoming.UpstreamUpdatedAt.After(existing.UpstreamUpdatedAt) {
		return DecisionUpdated
	}
	return DecisionStale
}
