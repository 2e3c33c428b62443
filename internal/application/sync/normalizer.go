package sync

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopsync/backend/internal/domain/order"
	"github.com/shopsync/backend/internal/domain/upstream"
)

// ErrInvalidPayload is returned when a raw order is missing its identity fields
var ErrInvalidPayload = errors.New("sync: invalid order payload")

// upstreamOrderIDPrefix namespaces raw platform ids so they cannot collide
// with ids of other upstream record types (draft orders, checkouts).
const upstreamOrderIDPrefix = "shopify:order:"

// senderKeyAttribute is the note/custom attribute carrying the messaging
// sender id when the order originated from a chat conversation.
const senderKeyAttribute = "chat_sender_id"

// UpstreamOrderID returns the namespaced upstream id for a raw platform order id.
func UpstreamOrderID(rawID int64) string {
	return upstreamOrderIDPrefix + strconv.FormatInt(rawID, 10)
}

// ---------------------------------------------------------------------------
// Normalizer
// ---------------------------------------------------------------------------

// Normalizer maps raw upstream records to canonical orders. Parsing is
// deterministic and side-effect-free; the only I/O is the optional
// conversation lookup used for correlation-key resolution.
type Normalizer struct {
	conversations upstream.ConversationLookup
	logger        *zap.Logger
}

// NewNormalizer creates a new Normalizer. conversations may be nil when no
// conversation store is wired; correlation then falls back to the payload
// attributes only.
func NewNormalizer(conversations upstream.ConversationLookup, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		conversations: conversations,
		logger:        logger,
	}
}

// ParseOrder converts a raw upstream record into a canonical Order.
// Monetary fields are parsed as fixed-point decimals (absent or malformed
// amounts become zero, never binary floats). A missing or malformed
// updated_at becomes the epoch-zero sentinel, the oldest possible value.
func (n *Normalizer) ParseOrder(raw *upstream.RawOrder, merchantID uuid.UUID) (*order.Order, error) {
	if raw == nil || raw.ID == 0 {
		return nil, ErrInvalidPayload
	}

	trackingNumber, trackingURL := resolveTracking(raw)

	o := &order.Order{
		MerchantID:        merchantID,
		UpstreamOrderID:   UpstreamOrderID(raw.ID),
		OrderNumber:       resolveOrderNumber(raw),
		FinancialStatus:   raw.FinancialStatus,
		FulfillmentStatus: raw.FulfillmentStatus,
		CanonicalStatus:   order.MapStatus(raw.FinancialStatus, raw.FulfillmentStatus),
		Items:             parseLineItems(raw.LineItems),
		Subtotal:          parseAmount(raw.SubtotalPrice),
		Total:             parseAmount(raw.TotalPrice),
		Currency:          raw.Currency,
		TrackingNumber:    trackingNumber,
		TrackingURL:       trackingURL,
		ShippingAddress:   parseAddress(raw.ShippingAddress),
		UpstreamUpdatedAt: n.parseUpdatedAt(raw),
	}

	return o, nil
}

// ResolveCorrelationKey resolves the messaging sender key for a raw order.
// Precedence: named note attribute, named custom attribute, then a
// best-effort reverse lookup against prior conversations. Returns "" when
// nothing matches; the order is still stored, just unlinked.
func (n *Normalizer) ResolveCorrelationKey(ctx context.Context, raw *upstream.RawOrder, merchantID uuid.UUID) string {
	if key := findAttribute(raw.NoteAttributes, senderKeyAttribute); key != "" {
		return key
	}
	if key := findAttribute(raw.CustomAttributes, senderKeyAttribute); key != "" {
		return key
	}

	if n.conversations == nil || raw.Customer == nil {
		return ""
	}
	if raw.Customer.Email == "" && raw.Customer.Phone == "" {
		return ""
	}

	key, err := n.conversations.FindCorrelationKey(ctx, merchantID, raw.Customer.Email, raw.Customer.Phone)
	if err != nil {
		n.logger.Debug("Conversation lookup failed, storing order unlinked",
			zap.String("merchant_id", merchantID.String()),
			zap.Int64("raw_order_id", raw.ID),
			zap.Error(err),
		)
		return ""
	}
	return key
}

// parseUpdatedAt parses the authoritative staleness clock. Malformed or
// absent values fall back to epoch zero, which the comparator treats as the
// oldest possible record. A malformed timestamp on an update to an existing
// row is therefore always rejected as stale; logged at warn so operators can
// observe it happening.
func (n *Normalizer) parseUpdatedAt(raw *upstream.RawOrder) time.Time {
	if raw.UpdatedAt == "" {
		return time.Unix(0, 0).UTC()
	}
	ts, err := time.Parse(time.RFC3339, raw.UpdatedAt)
	if err != nil {
		n.logger.Warn("Malformed updated_at on raw order, falling back to epoch zero",
			zap.Int64("raw_order_id", raw.ID),
			zap.String("updated_at", raw.UpdatedAt),
		)
		return time.Unix(0, 0).UTC()
	}
	return ts.UTC()
}

// ---------------------------------------------------------------------------
// Extraction helpers
// ---------------------------------------------------------------------------

// resolveOrderNumber falls back to the display name when the numeric order
// number is absent.
func resolveOrderNumber(raw *upstream.RawOrder) string {
	if raw.OrderNumber > 0 {
		return strconv.FormatInt(raw.OrderNumber, 10)
	}
	return raw.Name
}

// parseAmount parses an upstream money string into a fixed-point decimal.
// Absent or malformed input becomes zero.
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseLineItems(items []upstream.RawLineItem) []order.OrderItem {
	out := make([]order.OrderItem, len(items))
	for i, it := range items {
		out[i] = order.OrderItem{
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: parseAmount(it.Price),
		}
	}
	return out
}

// resolveTracking picks tracking info with fixed precedence: explicit
// top-level fields first, then the first fulfillment record carrying
// tracking data.
func resolveTracking(raw *upstream.RawOrder) (number, url string) {
	if len(raw.TrackingNumbers) > 0 && raw.TrackingNumbers[0] != "" {
		number = raw.TrackingNumbers[0]
		if len(raw.TrackingURLs) > 0 {
			url = raw.TrackingURLs[0]
		}
		return number, url
	}

	for _, f := range raw.Fulfillments {
		fn, fu := fulfillmentTracking(f)
		if fn != "" {
			return fn, fu
		}
	}
	return "", ""
}

func fulfillmentTracking(f upstream.RawFulfillment) (number, url string) {
	number = f.TrackingNumber
	if number == "" && len(f.TrackingNumbers) > 0 {
		number = f.TrackingNumbers[0]
	}
	url = f.TrackingURL
	if url == "" && len(f.TrackingURLs) > 0 {
		url = f.TrackingURLs[0]
	}
	return number, url
}

func findAttribute(attrs []upstream.RawNoteAttribute, name string) string {
	for _, a := range attrs {
		if a.Name == name && a.Value != "" {
			return a.Value
		}
	}
	return ""
}

func parseAddress(a *upstream.RawAddress) *order.ShippingAddress {
	if a == nil {
		return nil
	}
	return &order.ShippingAddress{
		Name:     a.Name,
		Address1: a.Address1,
		Address2: a.Address2,
		City:     a.City,
		Province: a.Province,
		Country:  a.Country,
		Zip:      a.Zip,
		Phone:    a.Phone,
	}
}
