package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appsync "github.com/shopsync/backend/internal/application/sync"
	"github.com/shopsync/backend/internal/domain/order"
	"github.com/shopsync/backend/internal/domain/upstream"
)

type pollFixture struct {
	creds   *mockCredentialResolver
	fetcher *mockOrderFetcher
	locks   *mockLockStore
	orders  *mockOrderRepository
	engine  *gin.Engine
}

func newPollFixture(t *testing.T) *pollFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	f := &pollFixture{
		creds:   &mockCredentialResolver{},
		fetcher: &mockOrderFetcher{},
		locks:   &mockLockStore{},
		orders:  &mockOrderRepository{},
	}

	normalizer := appsync.NewNormalizer(nil, logger)
	pipeline := appsync.NewPipeline(normalizer, f.orders, &mockNotificationDispatcher{}, logger)
	poller, err := appsync.NewPoller(
		appsync.DefaultPollerConfig(),
		f.creds,
		f.fetcher,
		f.locks,
		f.orders,
		pipeline,
		appsync.NewHealth(),
		logger,
	)
	require.NoError(t, err)

	h := NewPollHandler(poller)
	f.engine = gin.New()
	h.RegisterRoutes(f.engine.Group("/api/v1"))
	return f
}

func (f *pollFixture) trigger(merchantID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/poll/"+merchantID, nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decodePollReport(t *testing.T, w *httptest.ResponseRecorder) PollReportResponse {
	t.Helper()
	var envelope struct {
		Success bool               `json:"success"`
		Data    PollReportResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func TestPollHandler_TriggerPoll(t *testing.T) {
	t.Run("rejects malformed merchant id", func(t *testing.T) {
		f := newPollFixture(t)

		w := f.trigger("not-a-uuid")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.creds.AssertNotCalled(t, "GetCredentials", mock.Anything, mock.Anything)
	})

	t.Run("reports skip when merchant has no integration", func(t *testing.T) {
		f := newPollFixture(t)
		merchantID := uuid.New()
		f.creds.On("GetCredentials", mock.Anything, merchantID).Return(nil, nil)

		w := f.trigger(merchantID.String())

		assert.Equal(t, http.StatusOK, w.Code)
		report := decodePollReport(t, w)
		assert.Equal(t, merchantID.String(), report.MerchantID)
		assert.Equal(t, "SKIPPED_NO_INTEGRATION", report.Outcome)
	})

	t.Run("reports skip when another sweep holds the lock", func(t *testing.T) {
		f := newPollFixture(t)
		merchantID := uuid.New()
		f.creds.On("GetCredentials", mock.Anything, merchantID).
			Return(&upstream.Credentials{ShopDomain: "demo.myshopify.com", AccessToken: "shpat_token"}, nil)
		f.creds.On("IsVerified", mock.Anything, merchantID).Return(true, nil)
		f.locks.On("Acquire", mock.Anything, "poll-lock:"+merchantID.String(), 600*time.Second).
			Return("", nil)

		w := f.trigger(merchantID.String())

		assert.Equal(t, http.StatusOK, w.Code)
		report := decodePollReport(t, w)
		assert.Equal(t, "SKIPPED_LOCK_EXISTS", report.Outcome)
		f.fetcher.AssertNotCalled(t, "FetchOrders", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("runs a full sweep and reports counters", func(t *testing.T) {
		f := newPollFixture(t)
		merchantID := uuid.New()
		creds := &upstream.Credentials{ShopDomain: "demo.myshopify.com", AccessToken: "shpat_token"}
		f.creds.On("GetCredentials", mock.Anything, merchantID).Return(creds, nil)
		f.creds.On("IsVerified", mock.Anything, merchantID).Return(true, nil)
		f.locks.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return("token", nil)
		f.locks.On("Release", mock.Anything, mock.Anything).Return(nil)

		raw := upstream.RawOrder{
			ID:              987,
			OrderNumber:     1002,
			FinancialStatus: "paid",
			TotalPrice:      "10.00",
			Currency:        "USD",
			CreatedAt:       time.Now().UTC().Format(time.RFC3339),
			UpdatedAt:       time.Now().UTC().Format(time.RFC3339),
		}
		f.fetcher.On("FetchOrders", mock.Anything, merchantID, *creds, mock.Anything).
			Return([]upstream.RawOrder{raw}, nil)
		f.orders.On("FindByUpstreamIDs", mock.Anything, merchantID, []string{"shopify:order:987"}).
			Return(map[string]*order.Order{}, nil)
		f.orders.On("Upsert", mock.Anything, mock.Anything).
			Return(&order.UpsertResult{Order: &order.Order{MerchantID: merchantID}, Created: true}, nil)

		w := f.trigger(merchantID.String())

		assert.Equal(t, http.StatusOK, w.Code)
		report := decodePollReport(t, w)
		assert.Equal(t, "SUCCESS", report.Outcome)
		assert.Equal(t, 1, report.OrdersPolled)
		assert.Equal(t, 1, report.OrdersCreated)
		assert.Zero(t, report.OrderErrors)
		f.orders.AssertExpectations(t)
	})

	t.Run("reports auth error outcome and flags disconnect", func(t *testing.T) {
		f := newPollFixture(t)
		merchantID := uuid.New()
		creds := &upstream.Credentials{ShopDomain: "demo.myshopify.com", AccessToken: "shpat_revoked"}
		f.creds.On("GetCredentials", mock.Anything, merchantID).Return(creds, nil)
		f.creds.On("IsVerified", mock.Anything, merchantID).Return(true, nil)
		f.locks.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return("token", nil)
		f.locks.On("Release", mock.Anything, mock.Anything).Return(nil)
		f.fetcher.On("FetchOrders", mock.Anything, merchantID, *creds, mock.Anything).
			Return(nil, upstream.ErrAuthRejected)
		f.creds.On("MarkDisconnected", mock.Anything, merchantID, mock.Anything).Return(nil)

		w := f.trigger(merchantID.String())

		assert.Equal(t, http.StatusOK, w.Code)
		report := decodePollReport(t, w)
		assert.Equal(t, "ERROR_AUTH", report.Outcome)
		assert.NotEmpty(t, report.Error)
		f.creds.AssertCalled(t, "MarkDisconnected", mock.Anything, merchantID, mock.Anything)
	})
}
