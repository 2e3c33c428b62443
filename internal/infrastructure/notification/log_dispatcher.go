package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/shopsync/backend/internal/domain/order"
	"github.com/shopsync/backend/internal/domain/upstream"
)

// LogDispatcher implements upstream.NotificationDispatcher by emitting a
// structured log line per notification. Deployments that deliver through a
// messaging provider swap this for a real adapter; the pipeline contract
// (dispatch failure never rolls back the upsert) is the same either way.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a dispatcher that logs notifications
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// NotifyShipped records the shipped notification for the order
func (d *LogDispatcher) NotifyShipped(ctx context.Context, o *order.Order) error {
	d.logger.Info("order shipped notification",
		zap.String("merchant_id", o.MerchantID.String()),
		zap.String("upstream_order_id", o.UpstreamOrderID),
		zap.String("order_number", o.OrderNumber),
		zap.String("tracking_number", o.TrackingNumber),
		zap.String("correlation_key", o.CustomerCorrelationKey),
	)
	return nil
}

// Ensure LogDispatcher implements NotificationDispatcher
var _ upstream.NotificationDispatcher = (*LogDispatcher)(nil)
