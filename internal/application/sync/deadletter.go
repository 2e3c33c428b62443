package sync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopsync/backend/internal/domain/order"
	"github.com/shopsync/backend/internal/domain/upstream"
)

// ---------------------------------------------------------------------------
// Dead Letter Worker
// ---------------------------------------------------------------------------

// DeadLetterConfig holds retry policy for failed webhook events.
type DeadLetterConfig struct {
	// MaxAttempts bounds replay attempts before an entry is abandoned
	MaxAttempts int
	// BackoffDelays is indexed by the entry's attempt count
	BackoffDelays []time.Duration
	// ProcessInterval is the background sweep interval
	ProcessInterval time.Duration
}

// DefaultDeadLetterConfig returns the default retry policy.
func DefaultDeadLetterConfig() DeadLetterConfig {
	return DeadLetterConfig{
		MaxAttempts:     3,
		BackoffDelays:   []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second},
		ProcessInterval: 60 * time.Second,
	}
}

// Validate validates the configuration.
func (c *DeadLetterConfig) Validate() error {
	if c.MaxAttempts <= 0 {
		return errors.New("sync: dead letter max attempts must be positive")
	}
	if len(c.BackoffDelays) < c.MaxAttempts {
		return errors.New("sync: dead letter backoff delays must cover max attempts")
	}
	if c.ProcessInterval <= 0 {
		return errors.New("sync: dead letter process interval must be positive")
	}
	return nil
}

// DeadLetterMetrics is the operational view of the retry queue.
type DeadLetterMetrics struct {
	// QueueDepth is the number of stored entries, abandoned included
	QueueDepth int64 `json:"queue_depth"`
	// Healthy is false when the queue could not be inspected
	Healthy bool `json:"healthy"`
	// MaxAttempts echoes the configured retry bound
	MaxAttempts int `json:"max_attempts"`
	// BackoffSeconds echoes the configured delays
	BackoffSeconds []int64 `json:"backoff_seconds"`
}

// DeadLetterWorker captures failed webhook events and replays them through
// the pipeline with bounded exponential-style backoff. Replay goes through
// the same idempotent path as live traffic, so a retry racing a fresh
// delivery of the same event is harmless.
type DeadLetterWorker struct {
	config   DeadLetterConfig
	entries  order.DeadLetterRepository
	pipeline *Pipeline
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewDeadLetterWorker creates a new DeadLetterWorker.
func NewDeadLetterWorker(
	config DeadLetterConfig,
	entries order.DeadLetterRepository,
	pipeline *Pipeline,
	logger *zap.Logger,
) (*DeadLetterWorker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &DeadLetterWorker{
		config:   config,
		entries:  entries,
		pipeline: pipeline,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Enqueue records a failed event. LastAttemptAt is only stamped by replay,
// never here: a fresh entry stays zero so the next sweep picks it up
// immediately, and redelivery of an event already queued preserves both the
// attempt count and the backoff clock.
func (w *DeadLetterWorker) Enqueue(ctx context.Context, merchantID uuid.UUID, upstreamOrderID, eventID string, payload []byte, procErr error) error {
	key := order.DeadLetterKey(merchantID, upstreamOrderID, eventID)

	entry, err := w.entries.FindByKey(ctx, key)
	switch {
	case errors.Is(err, order.ErrDeadLetterNotFound):
		entry = &order.DeadLetterEntry{
			Key:             key,
			MerchantID:      merchantID,
			UpstreamOrderID: upstreamOrderID,
			EventID:         eventID,
			Payload:         payload,
			Attempts:        0,
			FirstFailedAt:   w.now(),
		}
	case err != nil:
		return err
	}

	entry.Payload = payload
	entry.LastError = procErr.Error()

	if err := w.entries.Save(ctx, entry); err != nil {
		return err
	}

	w.logger.Warn("Event moved to dead letter queue",
		zap.String("merchant_id", merchantID.String()),
		zap.String("upstream_order_id", upstreamOrderID),
		zap.String("event_id", eventID),
		zap.Int("attempts", entry.Attempts),
		zap.Error(procErr),
	)
	return nil
}

// ShouldRetry reports whether an entry is eligible for replay and, if not
// yet due, how long until it is. Entries at or past the attempt bound are
// abandoned and return false.
func (w *DeadLetterWorker) ShouldRetry(entry *order.DeadLetterEntry, now time.Time) (bool, time.Duration) {
	if entry.Attempts >= w.config.MaxAttempts {
		return false, 0
	}
	backoff := w.config.BackoffDelays[entry.Attempts]
	elapsed := now.Sub(entry.LastAttemptAt)
	if elapsed >= backoff {
		return true, 0
	}
	return true, backoff - elapsed
}

// ProcessQueue replays every due entry once. Succeeding entries are removed;
// failing ones get their attempt count bumped and wait out the next backoff.
func (w *DeadLetterWorker) ProcessQueue(ctx context.Context) {
	all, err := w.entries.FindAll(ctx)
	if err != nil {
		w.logger.Error("Failed to load dead letter queue", zap.Error(err))
		return
	}

	now := w.now()
	for i := range all {
		if ctx.Err() != nil {
			return
		}
		entry := &all[i]
		eligible, wait := w.ShouldRetry(entry, now)
		if !eligible || wait > 0 {
			continue
		}
		w.replay(ctx, entry)
	}
}

func (w *DeadLetterWorker) replay(ctx context.Context, entry *order.DeadLetterEntry) {
	var raw upstream.RawOrder
	replayErr := json.Unmarshal(entry.Payload, &raw)
	if replayErr == nil {
		_, replayErr = w.pipeline.Process(ctx, entry.MerchantID, &raw)
	}

	if replayErr == nil {
		if err := w.entries.Delete(ctx, entry.Key); err != nil {
			w.logger.Error("Failed to remove replayed dead letter entry",
				zap.String("key", entry.Key),
				zap.Error(err),
			)
			return
		}
		w.logger.Info("Dead letter entry replayed successfully",
			zap.String("merchant_id", entry.MerchantID.String()),
			zap.String("upstream_order_id", entry.UpstreamOrderID),
			zap.Int("attempts", entry.Attempts),
		)
		return
	}

	entry.Attempts++
	entry.LastError = replayErr.Error()
	entry.LastAttemptAt = w.now()
	if err := w.entries.Save(ctx, entry); err != nil {
		w.logger.Error("Failed to update dead letter entry after replay failure",
			zap.String("key", entry.Key),
			zap.Error(err),
		)
		return
	}

	if entry.Attempts >= w.config.MaxAttempts {
		w.logger.Error("Dead letter entry abandoned after max attempts",
			zap.String("merchant_id", entry.MerchantID.String()),
			zap.String("upstream_order_id", entry.UpstreamOrderID),
			zap.String("event_id", entry.EventID),
			zap.Int("attempts", entry.Attempts),
			zap.String("last_error", entry.LastError),
		)
		return
	}
	w.logger.Warn("Dead letter replay failed",
		zap.String("key", entry.Key),
		zap.Int("attempts", entry.Attempts),
		zap.Error(replayErr),
	)
}

// Metrics returns the operational view of the queue.
func (w *DeadLetterWorker) Metrics(ctx context.Context) DeadLetterMetrics {
	m := DeadLetterMetrics{
		Healthy:     true,
		MaxAttempts: w.config.MaxAttempts,
	}
	for _, d := range w.config.BackoffDelays {
		m.BackoffSeconds = append(m.BackoffSeconds, int64(d.Seconds()))
	}

	depth, err := w.entries.Count(ctx)
	if err != nil {
		w.logger.Error("Failed to count dead letter queue", zap.Error(err))
		m.Healthy = false
		return m
	}
	m.QueueDepth = depth
	return m
}

// Start launches the background replay loop.
func (w *DeadLetterWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return errors.New("sync: dead letter worker already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.isRunning = true

	w.wg.Add(1)
	go w.run(runCtx)

	w.logger.Info("Dead letter worker started",
		zap.Duration("process_interval", w.config.ProcessInterval),
		zap.Int("max_attempts", w.config.MaxAttempts),
	)
	return nil
}

// Stop halts the background loop and waits for the in-flight sweep.
func (w *DeadLetterWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.cancel()
	w.isRunning = false
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("Dead letter worker stopped")
}

func (w *DeadLetterWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ProcessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessQueue(ctx)
		}
	}
}
