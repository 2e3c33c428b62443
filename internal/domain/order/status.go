package order

import "strings"

// ---------------------------------------------------------------------------
// CanonicalStatus
// ---------------------------------------------------------------------------

// CanonicalStatus is the internal order status derived from the upstream
// financial and fulfillment statuses.
type CanonicalStatus string

const (
	// StatusPending is the default status for new or unrecognized orders
	StatusPending CanonicalStatus = "PENDING"
	// StatusConfirmed indicates payment was authorized but not captured
	StatusConfirmed CanonicalStatus = "CONFIRMED"
	// StatusProcessing indicates payment received, awaiting shipment
	StatusProcessing CanonicalStatus = "PROCESSING"
	// StatusShipped indicates the order has been fulfilled
	StatusShipped CanonicalStatus = "SHIPPED"
	// StatusCancelled indicates the order was cancelled or voided
	StatusCancelled CanonicalStatus = "CANCELLED"
	// StatusRefunded indicates the order was refunded
	StatusRefunded CanonicalStatus = "REFUNDED"
)

// IsValid returns true if the status is a known canonical status
func (s CanonicalStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing,
		StatusShipped, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// String returns the string representation of CanonicalStatus
func (s CanonicalStatus) String() string {
	return string(s)
}

// IsFinal returns true for terminal statuses
func (s CanonicalStatus) IsFinal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

// MapStatus maps the raw upstream financial and fulfillment statuses to a
// CanonicalStatus. Matching is case-insensitive with fixed precedence:
// cancelled/void wins over refunded, refunded over shipped, and so on.
// Unrecognized or empty input maps to StatusPending; it is never an error.
func MapStatus(financialStatus, fulfillmentStatus string) CanonicalStatus {
	financial := strings.ToLower(strings.TrimSpace(financialStatus))
	fulfillment := strings.ToLower(strings.TrimSpace(fulfillmentStatus))

	switch financial {
	case "cancelled", "canceled", "void", "voided":
		return StatusCancelled
	case "refunded":
		return StatusRefunded
	}

	paid := financial == "paid" || financial == "partially_paid"
	if paid && fulfillment == FulfillmentStatusFulfilled {
		return StatusShipped
	}
	if paid {
		return StatusProcessing
	}
	if financial == "authorized" {
		return StatusConfirmed
	}

	return StatusPending
}
