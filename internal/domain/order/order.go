package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Order Entity
// ---------------------------------------------------------------------------

// Order is the canonical, persisted representation of an upstream order.
// A row is uniquely identified by (MerchantID, UpstreamOrderID); the database
// enforces this with a unique constraint that the upsert path relies on.
type Order struct {
	// ID is the local row identifier
	ID uuid.UUID
	// MerchantID is the tenant this order belongs to
	MerchantID uuid.UUID
	// UpstreamOrderID is the namespaced platform order id (e.g. "shopify:order:123")
	UpstreamOrderID string
	// OrderNumber is the human-facing order number
	OrderNumber string
	// CustomerCorrelationKey links the order to a messaging conversation.
	// Empty means the order is stored unlinked.
	CustomerCorrelationKey string
	// FinancialStatus is the raw upstream payment status
	FinancialStatus string
	// FulfillmentStatus is the raw upstream fulfillment status ("" = not set)
	FulfillmentStatus string
	// CanonicalStatus is the mapped internal status
	CanonicalStatus CanonicalStatus
	// Items contains the order line items, in upstream order
	Items []OrderItem
	// Subtotal is the order subtotal before shipping/taxes
	Subtotal decimal.Decimal
	// Total is what the buyer paid
	Total decimal.Decimal
	// Currency is the ISO currency code
	Currency string
	// TrackingNumber is the shipment tracking number ("" = none)
	TrackingNumber string
	// TrackingURL is the shipment tracking URL ("" = none)
	TrackingURL string
	// ShippingAddress is the delivery address (nil = none provided)
	ShippingAddress *ShippingAddress
	// UpstreamUpdatedAt is the authoritative staleness clock for reconciliation
	UpstreamUpdatedAt time.Time
	// CreatedAt is when the local row was created
	CreatedAt time.Time
	// UpdatedAt is when the local row was last written
	UpdatedAt time.Time
}

// OrderItem is a single line item of an order.
type OrderItem struct {
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ShippingAddress is the structured delivery address attached to an order.
type ShippingAddress struct {
	Name     string `json:"name"`
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	Province string `json:"province,omitempty"`
	Country  string `json:"country"`
	Zip      string `json:"zip,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// HasTracking returns true if the order carries non-empty tracking info.
func (o *Order) HasTracking() bool {
	return o.TrackingNumber != ""
}

// IsFulfilled returns true if the upstream fulfillment status is fulfilled.
func (o *Order) IsFulfilled() bool {
	return o.FulfillmentStatus == FulfillmentStatusFulfilled
}

// FulfillmentStatusFulfilled is the upstream value indicating a completed shipment.
const FulfillmentStatusFulfilled = "fulfilled"
