package upstream

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shopsync/backend/internal/domain/order"
)

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------
//
// Ports & Adapters: these interfaces are defined here in the domain layer and
// implemented in the infrastructure layer (HTTP client, persistence, Redis).

// Credentials holds what is needed to call the platform API for one merchant.
type Credentials struct {
	// ShopDomain is the merchant's platform shop domain
	ShopDomain string
	// AccessToken is the API access token
	AccessToken string
}

// OrderFetcher pulls recent raw orders from the platform.
type OrderFetcher interface {
	// FetchOrders returns orders created at or after createdAtMin.
	// Returns ErrAuthRejected if the platform rejects the credentials and
	// ErrUpstreamUnavailable (wrapped) for transient failures.
	FetchOrders(ctx context.Context, merchantID uuid.UUID, creds Credentials, createdAtMin time.Time) ([]RawOrder, error)
}

// CredentialResolver resolves and manages merchant platform credentials.
type CredentialResolver interface {
	// GetCredentials returns the merchant's credentials, or nil if none are configured.
	GetCredentials(ctx context.Context, merchantID uuid.UUID) (*Credentials, error)

	// IsVerified returns true if the merchant's integration passed verification.
	IsVerified(ctx context.Context, merchantID uuid.UUID) (bool, error)

	// MarkDisconnected flags the integration after the platform rejected its
	// credentials, so operators can re-authorize it.
	MarkDisconnected(ctx context.Context, merchantID uuid.UUID, reason string) error
}

// NotificationDispatcher delivers customer-facing notifications. A dispatch
// failure must never roll back the upsert that triggered it.
type NotificationDispatcher interface {
	// NotifyShipped notifies the customer their order has shipped.
	NotifyShipped(ctx context.Context, o *order.Order) error
}

// LockStore is the distributed lock substrate backing the per-merchant poll
// lock. Implementations must make Acquire an atomic set-if-absent with expiry.
type LockStore interface {
	// Acquire attempts to take the lock, returning a non-empty token on
	// success and "" if the lock is held elsewhere. Infrastructure failures
	// surface as ErrLockStoreUnavailable (wrapped) so callers can fail open.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Release frees the lock. Safe to call for a lock that already expired.
	Release(ctx context.Context, key string) error
}

// ConversationLookup resolves a customer correlation key from prior
// conversations when the order payload carries none.
type ConversationLookup interface {
	// FindCorrelationKey returns the sender key for the customer identity,
	// or "" when no prior conversation matches.
	FindCorrelationKey(ctx context.Context, merchantID uuid.UUID, email, phone string) (string, error)
}
