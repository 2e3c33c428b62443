package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopsync/backend/internal/domain/order"
	"github.com/shopsync/backend/internal/domain/upstream"
)

func newTestNormalizer(conversations upstream.ConversationLookup) *Normalizer {
	return NewNormalizer(conversations, zap.NewNop())
}

func TestParseOrder(t *testing.T) {
	merchantID := uuid.New()
	n := newTestNormalizer(nil)

	t.Run("parses a paid fulfilled order", func(t *testing.T) {
		raw := &upstream.RawOrder{
			ID:                123456789,
			OrderNumber:       1001,
			FinancialStatus:   "paid",
			FulfillmentStatus: "fulfilled",
			SubtotalPrice:     "45.00",
			TotalPrice:        "49.99",
			Currency:          "USD",
			CreatedAt:         "2026-02-15T10:00:00Z",
			UpdatedAt:         "2026-02-17T15:30:00Z",
			TrackingNumbers:   []string{"TRACK123"},
			LineItems: []upstream.RawLineItem{
				{Title: "Blue Widget", Quantity: 2, Price: "22.50"},
			},
		}

		o, err := n.ParseOrder(raw, merchantID)
		require.NoError(t, err)

		assert.Equal(t, merchantID, o.MerchantID)
		assert.Equal(t, "shopify:order:123456789", o.UpstreamOrderID)
		assert.Equal(t, "1001", o.OrderNumber)
		assert.Equal(t, order.StatusShipped, o.CanonicalStatus)
		assert.Equal(t, "TRACK123", o.TrackingNumber)
		assert.True(t, o.Subtotal.Equal(decimal.RequireFromString("45.00")))
		assert.True(t, o.Total.Equal(decimal.RequireFromString("49.99")))
		assert.Equal(t, time.Date(2026, 2, 17, 15, 30, 0, 0, time.UTC), o.UpstreamUpdatedAt)
		require.Len(t, o.Items, 1)
		assert.Equal(t, "Blue Widget", o.Items[0].Title)
		assert.Equal(t, 2, o.Items[0].Quantity)
	})

	t.Run("rejects nil and zero-id payloads", func(t *testing.T) {
		_, err := n.ParseOrder(nil, merchantID)
		assert.ErrorIs(t, err, ErrInvalidPayload)

		_, err = n.ParseOrder(&upstream.RawOrder{}, merchantID)
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("falls back to display name when order number is absent", func(t *testing.T) {
		o, err := n.ParseOrder(&upstream.RawOrder{ID: 5, Name: "#1042"}, merchantID)
		require.NoError(t, err)
		assert.Equal(t, "#1042", o.OrderNumber)
	})

	t.Run("malformed amounts become zero", func(t *testing.T) {
		o, err := n.ParseOrder(&upstream.RawOrder{ID: 6, TotalPrice: "not-money"}, merchantID)
		require.NoError(t, err)
		assert.True(t, o.Total.IsZero())
		assert.True(t, o.Subtotal.IsZero())
	})

	t.Run("missing updated_at falls back to epoch zero", func(t *testing.T) {
		o, err := n.ParseOrder(&upstream.RawOrder{ID: 7}, merchantID)
		require.NoError(t, err)
		assert.Equal(t, time.Unix(0, 0).UTC(), o.UpstreamUpdatedAt)
	})

	t.Run("malformed updated_at falls back to epoch zero", func(t *testing.T) {
		o, err := n.ParseOrder(&upstream.RawOrder{ID: 8, UpdatedAt: "17/02/2026"}, merchantID)
		require.NoError(t, err)
		assert.Equal(t, time.Unix(0, 0).UTC(), o.UpstreamUpdatedAt)
	})

	t.Run("fulfillment tracking used when top-level fields are absent", func(t *testing.T) {
		raw := &upstream.RawOrder{
			ID: 9,
			Fulfillments: []upstream.RawFulfillment{
				{},
				{TrackingNumber: "FULF-42", TrackingURL: "https://t.example/FULF-42"},
			},
		}
		o, err := n.ParseOrder(raw, merchantID)
		require.NoError(t, err)
		assert.Equal(t, "FULF-42", o.TrackingNumber)
		assert.Equal(t, "https://t.example/FULF-42", o.TrackingURL)
	})

	t.Run("top-level tracking wins over fulfillments", func(t *testing.T) {
		raw := &upstream.RawOrder{
			ID:              10,
			TrackingNumbers: []string{"TOP-1"},
			Fulfillments: []upstream.RawFulfillment{
				{TrackingNumber: "FULF-1"},
			},
		}
		o, err := n.ParseOrder(raw, merchantID)
		require.NoError(t, err)
		assert.Equal(t, "TOP-1", o.TrackingNumber)
	})
}

func TestResolveCorrelationKey(t *testing.T) {
	merchantID := uuid.New()
	ctx := context.Background()

	t.Run("note attribute wins", func(t *testing.T) {
		n := newTestNormalizer(nil)
		raw := &upstream.RawOrder{
			ID:               1,
			NoteAttributes:   []upstream.RawNoteAttribute{{Name: "chat_sender_id", Value: "sender-note"}},
			CustomAttributes: []upstream.RawNoteAttribute{{Name: "chat_sender_id", Value: "sender-custom"}},
		}
		assert.Equal(t, "sender-note", n.ResolveCorrelationKey(ctx, raw, merchantID))
	})

	t.Run("custom attribute used when note attribute is absent", func(t *testing.T) {
		n := newTestNormalizer(nil)
		raw := &upstream.RawOrder{
			ID:               2,
			CustomAttributes: []upstream.RawNoteAttribute{{Name: "chat_sender_id", Value: "sender-custom"}},
		}
		assert.Equal(t, "sender-custom", n.ResolveCorrelationKey(ctx, raw, merchantID))
	})

	t.Run("falls back to conversation lookup by customer identity", func(t *testing.T) {
		conversations := new(mockConversationLookup)
		conversations.On("FindCorrelationKey", mock.Anything, merchantID, "jane@example.com", "").
			Return("sender-conv", nil)

		n := newTestNormalizer(conversations)
		raw := &upstream.RawOrder{
			ID:       3,
			Customer: &upstream.RawCustomer{Email: "jane@example.com"},
		}
		assert.Equal(t, "sender-conv", n.ResolveCorrelationKey(ctx, raw, merchantID))
		conversations.AssertExpectations(t)
	})

	t.Run("lookup failure stores unlinked", func(t *testing.T) {
		conversations := new(mockConversationLookup)
		conversations.On("FindCorrelationKey", mock.Anything, merchantID, "jane@example.com", "").
			Return("", errors.New("store offline"))

		n := newTestNormalizer(conversations)
		raw := &upstream.RawOrder{
			ID:       4,
			Customer: &upstream.RawCustomer{Email: "jane@example.com"},
		}
		assert.Equal(t, "", n.ResolveCorrelationKey(ctx, raw, merchantID))
	})

	t.Run("no identity means no lookup", func(t *testing.T) {
		n := newTestNormalizer(new(mockConversationLookup))
		raw := &upstream.RawOrder{ID: 5, Customer: &upstream.RawCustomer{}}
		assert.Equal(t, "", n.ResolveCorrelationKey(ctx, raw, merchantID))
	})
}
