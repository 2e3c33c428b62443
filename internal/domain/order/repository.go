package order

import (
	"context"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Repository Interfaces
// ---------------------------------------------------------------------------

// UpsertResult reports what a transactional upsert did. Previous carries the
// pre-update snapshot (nil on first insert) so callers can detect fulfillment
// transitions without re-reading the row.
type UpsertResult struct {
	// Order is the row as stored after the operation
	Order *Order
	// Previous is the row as it was before the operation (nil for inserts)
	Previous *Order
	// Created is true if a new row was inserted
	Created bool
	// Updated is true if an existing row was mutated
	Updated bool
}

// OrderRepository defines persistence for canonical orders.
type OrderRepository interface {
	// FindByUpstreamID finds an order by its namespaced upstream id within a merchant.
	// Returns ErrOrderNotFound if no row exists.
	FindByUpstreamID(ctx context.Context, merchantID uuid.UUID, upstreamOrderID string) (*Order, error)

	// FindByUpstreamIDs bulk-loads existing rows for a set of upstream ids,
	// keyed by upstream id. Missing ids are simply absent from the map.
	FindByUpstreamIDs(ctx context.Context, merchantID uuid.UUID, upstreamOrderIDs []string) (map[string]*Order, error)

	// Upsert creates or updates the order in a single transaction honoring the
	// Classify rule: inserts unseen ids unconditionally, applies strictly newer
	// records, and returns the stored row unmodified for stale records.
	// A known CustomerCorrelationKey is never regressed to empty.
	Upsert(ctx context.Context, o *Order) (*UpsertResult, error)

	// Count returns the total number of orders stored for all merchants.
	Count(ctx context.Context) (int64, error)
}

// ListQuery bounds and sorts a merchant order listing. Zero values fall back
// to implementation defaults.
type ListQuery struct {
	SortField string
	SortOrder string
	Limit     int
	Offset    int
}

// OrderLister serves read-only order listings for operator surfaces.
type OrderLister interface {
	// ListByMerchant returns a page of the merchant's orders plus the total
	// row count for that merchant.
	ListByMerchant(ctx context.Context, merchantID uuid.UUID, q ListQuery) ([]Order, int64, error)
}

// DeadLetterRepository defines persistence for the dead-letter retry queue.
type DeadLetterRepository interface {
	// Save creates or updates an entry by its idempotency key.
	Save(ctx context.Context, entry *DeadLetterEntry) error

	// FindByKey returns the entry for the key, or ErrDeadLetterNotFound.
	FindByKey(ctx context.Context, key string) (*DeadLetterEntry, error)

	// FindAll returns all entries, oldest failure first.
	FindAll(ctx context.Context) ([]DeadLetterEntry, error)

	// Delete removes an entry after successful replay.
	Delete(ctx context.Context, key string) error

	// Count returns the current queue depth, including abandoned entries.
	Count(ctx context.Context) (int64, error)
}
