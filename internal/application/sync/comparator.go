package sync

import (
	"github.com/shopsync/backend/internal/domain/order"
)

// ---------------------------------------------------------------------------
// Reconciliation Comparator
// ---------------------------------------------------------------------------

// Partition groups incoming records by the reconciliation decision taken
// against the existing rows.
type Partition struct {
	// New contains records with no existing row; always inserted
	New []*order.Order
	// Updated contains records strictly newer than the stored row
	Updated []*order.Order
	// Stale contains records that must not mutate stored state
	Stale []*order.Order
}

// PartitionOrders classifies a batch of incoming records against a lookup of
// existing rows keyed by upstream order id. The per-record rule is
// order.Classify; the upsert re-checks it inside the transaction so the
// invariant also holds when a webhook races this batch.
func PartitionOrders(incoming []*order.Order, existing map[string]*order.Order) Partition {
	var p Partition
	for _, o := range incoming {
		switch order.Classify(o, existing[o.UpstreamOrderID]) {
		case order.DecisionNew:
			p.New = append(p.New, o)
		case order.DecisionUpdated:
			p.Updated = append(p.Updated, o)
		default:
			p.Stale = append(p.Stale, o)
		}
	}
	return p
}
