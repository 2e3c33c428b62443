package upstream

import "errors"

var (
	// ErrAuthRejected is returned when the platform rejects the merchant's
	// credentials. The merchant integration should be flagged disconnected.
	ErrAuthRejected = errors.New("upstream: platform rejected credentials")

	// ErrUpstreamUnavailable is returned for transient platform failures
	// (timeouts, 5xx, rate limiting). The sweep is retried at the next interval.
	ErrUpstreamUnavailable = errors.New("upstream: platform temporarily unavailable")

	// ErrInvalidResponse is returned when the platform response cannot be parsed
	ErrInvalidResponse = errors.New("upstream: invalid platform response")

	// ErrLockStoreUnavailable is returned when the lock/cache substrate cannot
	// be reached. The poller absorbs this into fail-open degraded mode.
	ErrLockStoreUnavailable = errors.New("upstream: lock store unavailable")

	// ErrNoCredentials is returned when no credentials exist for the merchant
	ErrNoCredentials = errors.New("upstream: no credentials configured")

	// ErrIntegrationNotFound is returned when a merchant has no integration row
	ErrIntegrationNotFound = errors.New("upstream: integration not found")
)
