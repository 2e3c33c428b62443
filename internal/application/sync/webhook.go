package sync

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopsync/backend/internal/domain/upstream"
)

// ---------------------------------------------------------------------------
// Webhook Ingest
// ---------------------------------------------------------------------------

// unknownUpstreamOrderID keys dead-letter entries for payloads too broken to
// carry an order id. The event id still disambiguates them.
const unknownUpstreamOrderID = "unknown"

// WebhookIngest feeds verified webhook deliveries into the pipeline. Any
// processing failure parks the event in the dead-letter queue instead of
// bouncing it back to the platform, so the platform never disables the
// webhook subscription over our own downstream trouble.
type WebhookIngest struct {
	pipeline *Pipeline
	dlq      *DeadLetterWorker
	health   *Health
	logger   *zap.Logger
}

// NewWebhookIngest creates a new WebhookIngest.
func NewWebhookIngest(pipeline *Pipeline, dlq *DeadLetterWorker, health *Health, logger *zap.Logger) *WebhookIngest {
	return &WebhookIngest{
		pipeline: pipeline,
		dlq:      dlq,
		health:   health,
		logger:   logger,
	}
}

// ProcessOrderEvent reconciles one order webhook delivery. The returned error
// reflects only dead-letter capture failure; ordinary processing failures are
// absorbed after the event is safely queued for retry.
func (w *WebhookIngest) ProcessOrderEvent(ctx context.Context, merchantID uuid.UUID, eventID string, payload []byte) (ProcessResult, error) {
	var raw upstream.RawOrder
	if err := json.Unmarshal(payload, &raw); err != nil {
		return ProcessResult{}, w.park(ctx, merchantID, unknownUpstreamOrderID, eventID, payload, err)
	}

	res, err := w.pipeline.Process(ctx, merchantID, &raw)
	if err != nil {
		upstreamOrderID := unknownUpstreamOrderID
		if raw.ID != 0 {
			upstreamOrderID = UpstreamOrderID(raw.ID)
		}
		return ProcessResult{}, w.park(ctx, merchantID, upstreamOrderID, eventID, payload, err)
	}

	if res.Created || res.Updated {
		w.health.RecordSynced(1)
	}
	w.logger.Debug("Webhook event reconciled",
		zap.String("merchant_id", merchantID.String()),
		zap.String("event_id", eventID),
		zap.Bool("created", res.Created),
		zap.Bool("updated", res.Updated),
		zap.Bool("notified", res.Notified),
	)
	return res, nil
}

func (w *WebhookIngest) park(ctx context.Context, merchantID uuid.UUID, upstreamOrderID, eventID string, payload []byte, procErr error) error {
	w.health.RecordError(w.dlq.now())
	if err := w.dlq.Enqueue(ctx, merchantID, upstreamOrderID, eventID, payload, procErr); err != nil {
		w.logger.Error("Failed to park webhook event in dead letter queue",
			zap.String("merchant_id", merchantID.String()),
			zap.String("event_id", eventID),
			zap.Error(err),
		)
		return err
	}
	return nil
}
