package sync

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopsync/backend/internal/domain/order"
	"github.com/shopsync/backend/internal/domain/upstream"
)

// ---------------------------------------------------------------------------
// Reconciliation Pipeline
// ---------------------------------------------------------------------------

// ProcessResult reports what processing one raw record did.
type ProcessResult struct {
	// Order is the stored row after the operation
	Order *order.Order
	// Created is true if a new row was inserted
	Created bool
	// Updated is true if an existing row was mutated
	Updated bool
	// Notified is true if a shipped notification was dispatched
	Notified bool
}

// Pipeline is the shared normalize -> compare -> upsert -> detect sequence.
// The poller, the webhook ingest, and the dead-letter worker all feed it;
// they never coordinate with each other because correctness is enforced at
// the data layer by the timestamp rule and the uniqueness constraint.
type Pipeline struct {
	normalizer *Normalizer
	orders     order.OrderRepository
	notifier   upstream.NotificationDispatcher
	logger     *zap.Logger
}

// NewPipeline creates a new Pipeline.
func NewPipeline(
	normalizer *Normalizer,
	orders order.OrderRepository,
	notifier upstream.NotificationDispatcher,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		normalizer: normalizer,
		orders:     orders,
		notifier:   notifier,
		logger:     logger,
	}
}

// Process normalizes and reconciles one raw record.
func (p *Pipeline) Process(ctx context.Context, merchantID uuid.UUID, raw *upstream.RawOrder) (ProcessResult, error) {
	o, err := p.normalizer.ParseOrder(raw, merchantID)
	if err != nil {
		return ProcessResult{}, err
	}
	return p.ProcessNormalized(ctx, raw, o)
}

// ProcessNormalized reconciles an already-normalized record. The raw payload
// is still needed for correlation-key resolution.
func (p *Pipeline) ProcessNormalized(ctx context.Context, raw *upstream.RawOrder, o *order.Order) (ProcessResult, error) {
	o.CustomerCorrelationKey = p.normalizer.ResolveCorrelationKey(ctx, raw, o.MerchantID)

	res, err := p.orders.Upsert(ctx, o)
	if err != nil {
		return ProcessResult{}, err
	}

	out := ProcessResult{
		Order:   res.Order,
		Created: res.Created,
		Updated: res.Updated,
	}

	// Stale records are idempotent no-ops: no write happened, so no
	// notification may fire either.
	if !res.Created && !res.Updated {
		return out, nil
	}

	if order.IsNewlyFulfilled(res.Previous, o) {
		if err := p.notifier.NotifyShipped(ctx, res.Order); err != nil {
			// Delivery failure never rolls back the upsert.
			p.logger.Warn("Shipped notification dispatch failed",
				zap.String("merchant_id", o.MerchantID.String()),
				zap.String("upstream_order_id", o.UpstreamOrderID),
				zap.Error(err),
			)
		} else {
			out.Notified = true
		}
	}

	return out, nil
}
