package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Dead Letter Queue Types
// ---------------------------------------------------------------------------

// DeadLetterEntry holds a failed webhook event awaiting bounded retry.
// Entries are keyed by a stable idempotency key so redelivery of the same
// failing event updates the existing entry instead of duplicating it.
type DeadLetterEntry struct {
	// Key is the stable idempotency key (merchant, upstream order, event)
	Key string
	// MerchantID is the tenant the event belongs to
	MerchantID uuid.UUID
	// UpstreamOrderID is the namespaced upstream order id
	UpstreamOrderID string
	// EventID is the upstream delivery id of the failed event
	EventID string
	// Payload is the raw event payload to replay
	Payload []byte
	// Attempts is the number of retries performed so far (0 on first failure)
	Attempts int
	// LastError is the most recent processing error
	LastError string
	// FirstFailedAt is when the entry was created
	FirstFailedAt time.Time
	// LastAttemptAt is when processing was last attempted
	LastAttemptAt time.Time
}

// DeadLetterKey builds the stable idempotency key for a failed event.
func DeadLetterKey(merchantID uuid.UUID, upstreamOrderID, eventID string) string {
	return fmt.Sprintf("%s:%s:%s", merchantID, upstreamOrderID, eventID)
}
