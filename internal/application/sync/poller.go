package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopsync/backend/internal/domain/order"
	"github.com/shopsync/backend/internal/domain/upstream"
)

// ---------------------------------------------------------------------------
// Poll Outcome Types
// ---------------------------------------------------------------------------

// PollOutcome is the terminal status of one merchant's polling sweep.
// Routine skips are ordinary outcomes, not errors, so callers never need
// error handling to detect a merchant that simply has no integration.
type PollOutcome string

const (
	// PollOutcomeSuccess indicates the sweep completed
	PollOutcomeSuccess PollOutcome = "SUCCESS"
	// PollOutcomeSkippedNoIntegration indicates no or unverified credentials
	PollOutcomeSkippedNoIntegration PollOutcome = "SKIPPED_NO_INTEGRATION"
	// PollOutcomeSkippedLockExists indicates another process holds the poll lock
	PollOutcomeSkippedLockExists PollOutcome = "SKIPPED_LOCK_EXISTS"
	// PollOutcomeErrorAuth indicates the platform rejected the credentials
	PollOutcomeErrorAuth PollOutcome = "ERROR_AUTH"
	// PollOutcomeErrorAPI indicates a transient platform failure
	PollOutcomeErrorAPI PollOutcome = "ERROR_API"
)

// IsValid returns true if the outcome is a known value
func (o PollOutcome) IsValid() bool {
	switch o {
	case PollOutcomeSuccess, PollOutcomeSkippedNoIntegration, PollOutcomeSkippedLockExists,
		PollOutcomeErrorAuth, PollOutcomeErrorAPI:
		return true
	default:
		return false
	}
}

// String returns the string representation of PollOutcome
func (o PollOutcome) String() string {
	return string(o)
}

// IsError returns true for outcomes that count toward consecutive errors
func (o PollOutcome) IsError() bool {
	return o == PollOutcomeErrorAuth || o == PollOutcomeErrorAPI
}

// PollReport aggregates what one merchant's sweep did.
type PollReport struct {
	MerchantID        uuid.UUID
	Outcome           PollOutcome
	OrdersPolled      int
	OrdersCreated     int
	OrdersUpdated     int
	OrdersSkipped     int
	NotificationsSent int
	OrderErrors       int
	Err               string
}

// MerchantPollingStatus is ephemeral per-merchant telemetry. It is never
// correctness-critical; losing it on restart is fine.
type MerchantPollingStatus struct {
	LastPollAt        time.Time
	Outcome           PollOutcome
	ConsecutiveErrors int
}

// ---------------------------------------------------------------------------
// PollerConfig
// ---------------------------------------------------------------------------

// PollerConfig holds polling sweep configuration.
type PollerConfig struct {
	// LockKeyPrefix prefixes the per-merchant lock key
	LockKeyPrefix string
	// LockTTL bounds how long a crashed sweep can hold the lock
	LockTTL time.Duration
	// Lookback bounds the sweep to recently created orders
	Lookback time.Duration
	// MerchantDelay is the fixed delay between merchants in a full sweep
	MerchantDelay time.Duration
}

// DefaultPollerConfig returns the default polling configuration.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		LockKeyPrefix: "poll-lock:",
		LockTTL:       600 * time.Second,
		Lookback:      24 * time.Hour,
		MerchantDelay: 2 * time.Second,
	}
}

// Validate validates the configuration.
func (c *PollerConfig) Validate() error {
	if c.LockTTL <= 0 {
		return errors.New("sync: poller lock ttl must be positive")
	}
	if c.Lookback <= 0 {
		return errors.New("sync: poller lookback must be positive")
	}
	if c.MerchantDelay < 0 {
		return errors.New("sync: poller merchant delay cannot be negative")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Poller
// ---------------------------------------------------------------------------

// Poller runs the periodic polling sweep that backstops webhook ingestion.
// Sweeps are sequential across merchants to bound upstream rate-limit
// exposure; the per-merchant distributed lock keeps concurrent replicas from
// double-polling the same tenant. All per-merchant bookkeeping lives on the
// instance, passed by handle to callers.
type Poller struct {
	config   PollerConfig
	creds    upstream.CredentialResolver
	fetcher  upstream.OrderFetcher
	locks    upstream.LockStore
	orders   order.OrderRepository
	pipeline *Pipeline
	health   *Health
	logger   *zap.Logger

	statusMu sync.RWMutex
	statuses map[uuid.UUID]*MerchantPollingStatus
}

// NewPoller creates a new Poller.
func NewPoller(
	config PollerConfig,
	creds upstream.CredentialResolver,
	fetcher upstream.OrderFetcher,
	locks upstream.LockStore,
	orders order.OrderRepository,
	pipeline *Pipeline,
	health *Health,
	logger *zap.Logger,
) (*Poller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Poller{
		config:   config,
		creds:    creds,
		fetcher:  fetcher,
		locks:    locks,
		orders:   orders,
		pipeline: pipeline,
		health:   health,
		logger:   logger,
		statuses: make(map[uuid.UUID]*MerchantPollingStatus),
	}, nil
}

// PollRecentOrders runs one reconciliation sweep for a single merchant.
func (p *Poller) PollRecentOrders(ctx context.Context, merchantID uuid.UUID) PollReport {
	report := p.pollRecentOrders(ctx, merchantID)
	p.recordOutcome(merchantID, report)
	return report
}

func (p *Poller) pollRecentOrders(ctx context.Context, merchantID uuid.UUID) PollReport {
	report := PollReport{MerchantID: merchantID}

	creds, err := p.creds.GetCredentials(ctx, merchantID)
	if err != nil {
		report.Outcome = PollOutcomeErrorAPI
		report.Err = fmt.Sprintf("resolve credentials: %v", err)
		return report
	}
	if creds == nil {
		report.Outcome = PollOutcomeSkippedNoIntegration
		return report
	}
	verified, err := p.creds.IsVerified(ctx, merchantID)
	if err != nil || !verified {
		report.Outcome = PollOutcomeSkippedNoIntegration
		return report
	}

	lockKey := p.config.LockKeyPrefix + merchantID.String()
	token, lockErr := p.locks.Acquire(ctx, lockKey, p.config.LockTTL)
	degraded := false
	switch {
	case lockErr != nil:
		// Fail open: the idempotent upsert makes the small duplicate-
		// processing risk acceptable, while refusing to poll at all would
		// silently stop reconciliation for the whole fleet.
		degraded = true
		p.logger.Warn("Lock store unavailable, polling in degraded mode",
			zap.String("merchant_id", merchantID.String()),
			zap.Error(lockErr),
		)
	case token == "":
		report.Outcome = PollOutcomeSkippedLockExists
		return report
	}
	if !degraded {
		defer func() {
			if err := p.locks.Release(ctx, lockKey); err != nil {
				p.logger.Warn("Failed to release poll lock",
					zap.String("merchant_id", merchantID.String()),
					zap.Error(err),
				)
			}
		}()
	}

	now := time.Now()
	cutoff := now.Add(-p.config.Lookback)

	raws, err := p.fetcher.FetchOrders(ctx, merchantID, *creds, cutoff)
	if err != nil {
		if errors.Is(err, upstream.ErrAuthRejected) {
			if mdErr := p.creds.MarkDisconnected(ctx, merchantID, err.Error()); mdErr != nil {
				p.logger.Error("Failed to flag merchant disconnected",
					zap.String("merchant_id", merchantID.String()),
					zap.Error(mdErr),
				)
			}
			report.Outcome = PollOutcomeErrorAuth
			report.Err = err.Error()
			return report
		}
		report.Outcome = PollOutcomeErrorAPI
		report.Err = err.Error()
		return report
	}

	recent := p.filterRecent(raws, cutoff)
	report.OrdersPolled = len(recent)

	p.reconcileBatch(ctx, merchantID, recent, &report)

	report.Outcome = PollOutcomeSuccess
	p.logger.Info("Polling sweep completed",
		zap.String("merchant_id", merchantID.String()),
		zap.Bool("degraded", degraded),
		zap.Int("orders_polled", report.OrdersPolled),
		zap.Int("orders_created", report.OrdersCreated),
		zap.Int("orders_updated", report.OrdersUpdated),
		zap.Int("orders_skipped", report.OrdersSkipped),
		zap.Int("notifications_sent", report.NotificationsSent),
		zap.Int("order_errors", report.OrderErrors),
	)
	return report
}

// reconcileBatch normalizes the batch, partitions it against existing rows,
// and upserts the new and updated records. One record's failure is logged
// and skipped; it never aborts the batch.
func (p *Poller) reconcileBatch(ctx context.Context, merchantID uuid.UUID, raws []upstream.RawOrder, report *PollReport) {
	type pair struct {
		raw        *upstream.RawOrder
		normalized *order.Order
	}

	pairs := make([]pair, 0, len(raws))
	normalized := make([]*order.Order, 0, len(raws))
	ids := make([]string, 0, len(raws))
	for i := range raws {
		raw := &raws[i]
		o, err := p.pipeline.normalizer.ParseOrder(raw, merchantID)
		if err != nil {
			report.OrderErrors++
			p.health.RecordError(time.Now())
			p.logger.Error("Failed to normalize polled order",
				zap.String("merchant_id", merchantID.String()),
				zap.Int64("raw_order_id", raw.ID),
				zap.Error(err),
			)
			continue
		}
		pairs = append(pairs, pair{raw: raw, normalized: o})
		normalized = append(normalized, o)
		ids = append(ids, o.UpstreamOrderID)
	}

	existing, err := p.orders.FindByUpstreamIDs(ctx, merchantID, ids)
	if err != nil {
		// Fall back to per-record upserts; the repository re-checks
		// staleness inside each transaction anyway.
		p.logger.Warn("Bulk lookup failed, upserting without pre-partition",
			zap.String("merchant_id", merchantID.String()),
			zap.Error(err),
		)
		existing = map[string]*order.Order{}
	}

	partition := PartitionOrders(normalized, existing)
	report.OrdersSkipped += len(partition.Stale)

	stale := make(map[*order.Order]bool, len(partition.Stale))
	for _, o := range partition.Stale {
		stale[o] = true
	}

	for _, pr := range pairs {
		if stale[pr.normalized] {
			continue
		}
		res, err := p.pipeline.ProcessNormalized(ctx, pr.raw, pr.normalized)
		if err != nil {
			report.OrderErrors++
			p.health.RecordError(time.Now())
			p.logger.Error("Failed to reconcile polled order",
				zap.String("merchant_id", merchantID.String()),
				zap.String("upstream_order_id", pr.normalized.UpstreamOrderID),
				zap.Error(err),
			)
			continue
		}
		switch {
		case res.Created:
			report.OrdersCreated++
		case res.Updated:
			report.OrdersUpdated++
		default:
			report.OrdersSkipped++
		}
		if res.Notified {
			report.NotificationsSent++
		}
	}

	p.health.RecordSynced(report.OrdersCreated + report.OrdersUpdated)
}

// filterRecent keeps orders created within the lookback window. Orders with
// an unparseable created_at are kept; the upsert path is idempotent, so
// over-processing is safe while silently dropping a record is not.
func (p *Poller) filterRecent(raws []upstream.RawOrder, cutoff time.Time) []upstream.RawOrder {
	recent := make([]upstream.RawOrder, 0, len(raws))
	for _, raw := range raws {
		if raw.CreatedAt != "" {
			createdAt, err := time.Parse(time.RFC3339, raw.CreatedAt)
			if err == nil && createdAt.Before(cutoff) {
				continue
			}
		}
		recent = append(recent, raw)
	}
	return recent
}

// PollAllMerchants sweeps the given merchants sequentially with a fixed
// inter-merchant delay. One merchant's failure, including a panic, never
// blocks the remaining merchants.
func (p *Poller) PollAllMerchants(ctx context.Context, merchantIDs []uuid.UUID) []PollReport {
	reports := make([]PollReport, 0, len(merchantIDs))
	for i, merchantID := range merchantIDs {
		if ctx.Err() != nil {
			break
		}
		reports = append(reports, p.pollSafely(ctx, merchantID))

		if i < len(merchantIDs)-1 && p.config.MerchantDelay > 0 {
			select {
			case <-ctx.Done():
				return reports
			case <-time.After(p.config.MerchantDelay):
			}
		}
	}
	p.health.RecordPoll(time.Now())
	return reports
}

// pollSafely contains a single merchant's sweep, converting panics into an
// error report so the rest of the fleet still gets polled.
func (p *Poller) pollSafely(ctx context.Context, merchantID uuid.UUID) (report PollReport) {
	defer func() {
		if r := recover(); r != nil {
			report = PollReport{
				MerchantID: merchantID,
				Outcome:    PollOutcomeErrorAPI,
				Err:        fmt.Sprintf("panic during sweep: %v", r),
			}
			p.recordOutcome(merchantID, report)
			p.logger.Error("Recovered from panic during polling sweep",
				zap.String("merchant_id", merchantID.String()),
				zap.Any("panic", r),
			)
		}
	}()
	return p.PollRecentOrders(ctx, merchantID)
}

// recordOutcome updates the per-merchant telemetry.
func (p *Poller) recordOutcome(merchantID uuid.UUID, report PollReport) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()

	status, ok := p.statuses[merchantID]
	if !ok {
		status = &MerchantPollingStatus{}
		p.statuses[merchantID] = status
	}
	status.LastPollAt = time.Now()
	status.Outcome = report.Outcome
	if report.Outcome.IsError() {
		status.ConsecutiveErrors++
		p.health.RecordError(status.LastPollAt)
	} else {
		status.ConsecutiveErrors = 0
	}
}

// Statuses returns a snapshot of per-merchant polling telemetry.
func (p *Poller) Statuses() map[uuid.UUID]MerchantPollingStatus {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()

	out := make(map[uuid.UUID]MerchantPollingStatus, len(p.statuses))
	for id, s := range p.statuses {
		out[id] = *s
	}
	return out
}
