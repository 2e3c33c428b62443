package sync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopsync/backend/internal/domain/order"
)

func newTestDeadLetterWorker(t *testing.T, entries *mockDeadLetterRepository, orders *mockOrderRepository) *DeadLetterWorker {
	t.Helper()
	logger := zap.NewNop()
	pipeline := NewPipeline(NewNormalizer(nil, logger), orders, new(mockNotificationDispatcher), logger)
	w, err := NewDeadLetterWorker(DefaultDeadLetterConfig(), entries, pipeline, logger)
	require.NoError(t, err)
	return w
}

func TestDeadLetterConfigValidate(t *testing.T) {
	t.Run("default is valid", func(t *testing.T) {
		config := DefaultDeadLetterConfig()
		assert.NoError(t, config.Validate())
		assert.Equal(t, 3, config.MaxAttempts)
		assert.Equal(t, []time.Duration{60 * time.Second, 300 * time.Second, 900 * time.Second}, config.BackoffDelays)
	})

	t.Run("delays must cover attempts", func(t *testing.T) {
		config := DefaultDeadLetterConfig()
		config.BackoffDelays = config.BackoffDelays[:2]
		assert.Error(t, config.Validate())
	})
}

func TestDeadLetterEnqueue(t *testing.T) {
	merchantID := uuid.New()
	ctx := context.Background()

	t.Run("first failure creates entry with zero attempts", func(t *testing.T) {
		entries := new(mockDeadLetterRepository)
		w := newTestDeadLetterWorker(t, entries, new(mockOrderRepository))

		key := order.DeadLetterKey(merchantID, "shopify:order:1", "evt-1")
		entries.On("FindByKey", mock.Anything, key).Return(nil, order.ErrDeadLetterNotFound)
		// LastAttemptAt stays zero so the next sweep replays it immediately.
		entries.On("Save", mock.Anything, mock.MatchedBy(func(e *order.DeadLetterEntry) bool {
			return e.Key == key && e.Attempts == 0 && e.LastError == "boom" &&
				!e.FirstFailedAt.IsZero() && e.LastAttemptAt.IsZero()
		})).Return(nil)

		err := w.Enqueue(ctx, merchantID, "shopify:order:1", "evt-1", []byte(`{"id":1}`), errors.New("boom"))
		require.NoError(t, err)
		entries.AssertExpectations(t)
	})

	t.Run("redelivery updates the existing entry without resetting attempts", func(t *testing.T) {
		entries := new(mockDeadLetterRepository)
		w := newTestDeadLetterWorker(t, entries, new(mockOrderRepository))

		lastAttempt := time.Date(2026, 2, 17, 11, 59, 30, 0, time.UTC)
		key := order.DeadLetterKey(merchantID, "shopify:order:1", "evt-1")
		entries.On("FindByKey", mock.Anything, key).Return(&order.DeadLetterEntry{
			Key:           key,
			Attempts:      2,
			LastAttemptAt: lastAttempt,
		}, nil)
		// Attempts and the backoff clock both survive redelivery.
		entries.On("Save", mock.Anything, mock.MatchedBy(func(e *order.DeadLetterEntry) bool {
			return e.Attempts == 2 && e.LastError == "still broken" && e.LastAttemptAt.Equal(lastAttempt)
		})).Return(nil)

		err := w.Enqueue(ctx, merchantID, "shopify:order:1", "evt-1", []byte(`{"id":1}`), errors.New("still broken"))
		require.NoError(t, err)
		entries.AssertExpectations(t)
	})
}

func TestShouldRetry(t *testing.T) {
	w := newTestDeadLetterWorker(t, new(mockDeadLetterRepository), new(mockOrderRepository))
	now := time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		attempts     int
		sinceAttempt time.Duration
		eligible     bool
		wait         time.Duration
	}{
		{"first retry due after 60s", 0, 61 * time.Second, true, 0},
		{"first retry not yet due", 0, 30 * time.Second, true, 30 * time.Second},
		{"second retry waits 300s", 1, 100 * time.Second, true, 200 * time.Second},
		{"second retry due", 1, 300 * time.Second, true, 0},
		{"third retry waits 900s", 2, 600 * time.Second, true, 300 * time.Second},
		{"abandoned at max attempts", 3, time.Hour, false, 0},
		{"abandoned past max attempts", 5, time.Hour, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &order.DeadLetterEntry{
				Attempts:      tt.attempts,
				LastAttemptAt: now.Add(-tt.sinceAttempt),
			}
			eligible, wait := w.ShouldRetry(entry, now)
			assert.Equal(t, tt.eligible, eligible)
			assert.Equal(t, tt.wait, wait)
		})
	}

	t.Run("never-attempted entry is due immediately", func(t *testing.T) {
		entry := &order.DeadLetterEntry{Attempts: 0}
		eligible, wait := w.ShouldRetry(entry, now)
		assert.True(t, eligible)
		assert.Zero(t, wait)
	})
}

func TestProcessQueue(t *testing.T) {
	merchantID := uuid.New()
	ctx := context.Background()
	now := time.Date(2026, 2, 17, 12, 0, 0, 0, time.UTC)

	validPayload, _ := json.Marshal(map[string]any{
		"id":         1,
		"updated_at": "2026-02-17T11:00:00Z",
	})

	dueEntry := func() order.DeadLetterEntry {
		return order.DeadLetterEntry{
			Key:             order.DeadLetterKey(merchantID, "shopify:order:1", "evt-1"),
			MerchantID:      merchantID,
			UpstreamOrderID: "shopify:order:1",
			EventID:         "evt-1",
			Payload:         validPayload,
			Attempts:        0,
			LastAttemptAt:   now.Add(-2 * time.Minute),
		}
	}

	t.Run("successful replay removes the entry", func(t *testing.T) {
		entries := new(mockDeadLetterRepository)
		orders := new(mockOrderRepository)
		w := newTestDeadLetterWorker(t, entries, orders)
		w.now = func() time.Time { return now }

		entries.On("FindAll", mock.Anything).Return([]order.DeadLetterEntry{dueEntry()}, nil)
		orders.On("Upsert", mock.Anything, mock.Anything).Return(&order.UpsertResult{
			Order:   &order.Order{UpstreamOrderID: "shopify:order:1"},
			Created: true,
		}, nil)
		entries.On("Delete", mock.Anything, dueEntry().Key).Return(nil)

		w.ProcessQueue(ctx)
		entries.AssertExpectations(t)
	})

	t.Run("failed replay increments attempts", func(t *testing.T) {
		entries := new(mockDeadLetterRepository)
		orders := new(mockOrderRepository)
		w := newTestDeadLetterWorker(t, entries, orders)
		w.now = func() time.Time { return now }

		entries.On("FindAll", mock.Anything).Return([]order.DeadLetterEntry{dueEntry()}, nil)
		orders.On("Upsert", mock.Anything, mock.Anything).Return(nil, errors.New("still broken"))
		entries.On("Save", mock.Anything, mock.MatchedBy(func(e *order.DeadLetterEntry) bool {
			return e.Attempts == 1 && e.LastError == "still broken" && e.LastAttemptAt.Equal(now)
		})).Return(nil)

		w.ProcessQueue(ctx)
		entries.AssertExpectations(t)
		entries.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("entry not yet due is left alone", func(t *testing.T) {
		entries := new(mockDeadLetterRepository)
		orders := new(mockOrderRepository)
		w := newTestDeadLetterWorker(t, entries, orders)
		w.now = func() time.Time { return now }

		entry := dueEntry()
		entry.LastAttemptAt = now.Add(-10 * time.Second)
		entries.On("FindAll", mock.Anything).Return([]order.DeadLetterEntry{entry}, nil)

		w.ProcessQueue(ctx)
		orders.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("abandoned entry is never replayed", func(t *testing.T) {
		entries := new(mockDeadLetterRepository)
		orders := new(mockOrderRepository)
		w := newTestDeadLetterWorker(t, entries, orders)
		w.now = func() time.Time { return now }

		entry := dueEntry()
		entry.Attempts = 3
		entry.LastAttemptAt = now.Add(-time.Hour)
		entries.On("FindAll", mock.Anything).Return([]order.DeadLetterEntry{entry}, nil)

		w.ProcessQueue(ctx)
		orders.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		entries.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("unparseable payload counts as a failed attempt", func(t *testing.T) {
		entries := new(mockDeadLetterRepository)
		orders := new(mockOrderRepository)
		w := newTestDeadLetterWorker(t, entries, orders)
		w.now = func() time.Time { return now }

		entry := dueEntry()
		entry.Payload = []byte("{not json")
		entries.On("FindAll", mock.Anything).Return([]order.DeadLetterEntry{entry}, nil)
		entries.On("Save", mock.Anything, mock.MatchedBy(func(e *order.DeadLetterEntry) bool {
			return e.Attempts == 1
		})).Return(nil)

		w.ProcessQueue(ctx)
		orders.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		entries.AssertExpectations(t)
	})
}

func TestDeadLetterMetrics(t *testing.T) {
	t.Run("reports queue depth and policy", func(t *testing.T) {
		entries := new(mockDeadLetterRepository)
		w := newTestDeadLetterWorker(t, entries, new(mockOrderRepository))
		entries.On("Count", mock.Anything).Return(int64(4), nil)

		m := w.Metrics(context.Background())
		assert.True(t, m.Healthy)
		assert.Equal(t, int64(4), m.QueueDepth)
		assert.Equal(t, 3, m.MaxAttempts)
		assert.Equal(t, []int64{60, 300, 900}, m.BackoffSeconds)
	})

	t.Run("unhealthy when queue cannot be counted", func(t *testing.T) {
		entries := new(mockDeadLetterRepository)
		w := newTestDeadLetterWorker(t, entries, new(mockOrderRepository))
		entries.On("Count", mock.Anything).Return(int64(0), errors.New("database gone"))

		m := w.Metrics(context.Background())
		assert.False(t, m.Healthy)
	})
}

func TestDeadLetterWorkerLifecycle(t *testing.T) {
	entries := new(mockDeadLetterRepository)
	w := newTestDeadLetterWorker(t, entries, new(mockOrderRepository))

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	w.Stop()
	// Stop is idempotent.
	w.Stop()
}
