package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/shopsync/backend/internal/domain/order"
	"github.com/shopsync/backend/internal/domain/upstream"
)

// Mock implementations

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) FindByUpstreamID(ctx context.Context, merchantID uuid.UUID, upstreamOrderID string) (*order.Order, error) {
	args := m.Called(ctx, merchantID, upstreamOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *mockOrderRepository) FindByUpstreamIDs(ctx context.Context, merchantID uuid.UUID, upstreamOrderIDs []string) (map[string]*order.Order, error) {
	args := m.Called(ctx, merchantID, upstreamOrderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*order.Order), args.Error(1)
}

func (m *mockOrderRepository) Upsert(ctx context.Context, o *order.Order) (*order.UpsertResult, error) {
	args := m.Called(ctx, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.UpsertResult), args.Error(1)
}

func (m *mockOrderRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockOrderLister struct {
	mock.Mock
}

func (m *mockOrderLister) ListByMerchant(ctx context.Context, merchantID uuid.UUID, q order.ListQuery) ([]order.Order, int64, error) {
	args := m.Called(ctx, merchantID, q)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]order.Order), args.Get(1).(int64), args.Error(2)
}

type mockDeadLetterRepository struct {
	mock.Mock
}

func (m *mockDeadLetterRepository) Save(ctx context.Context, entry *order.DeadLetterEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockDeadLetterRepository) FindByKey(ctx context.Context, key string) (*order.DeadLetterEntry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.DeadLetterEntry), args.Error(1)
}

func (m *mockDeadLetterRepository) FindAll(ctx context.Context) ([]order.DeadLetterEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.DeadLetterEntry), args.Error(1)
}

func (m *mockDeadLetterRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockDeadLetterRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockIntegrationRepository struct {
	mock.Mock
}

func (m *mockIntegrationRepository) Save(ctx context.Context, integration *upstream.MerchantIntegration) error {
	args := m.Called(ctx, integration)
	return args.Error(0)
}

func (m *mockIntegrationRepository) FindByMerchantID(ctx context.Context, merchantID uuid.UUID) (*upstream.MerchantIntegration, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.MerchantIntegration), args.Error(1)
}

func (m *mockIntegrationRepository) FindByShopDomain(ctx context.Context, shopDomain string) (*upstream.MerchantIntegration, error) {
	args := m.Called(ctx, shopDomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.MerchantIntegration), args.Error(1)
}

func (m *mockIntegrationRepository) ListVerifiedMerchantIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type mockCredentialResolver struct {
	mock.Mock
}

func (m *mockCredentialResolver) GetCredentials(ctx context.Context, merchantID uuid.UUID) (*upstream.Credentials, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*upstream.Credentials), args.Error(1)
}

func (m *mockCredentialResolver) IsVerified(ctx context.Context, merchantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, merchantID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCredentialResolver) MarkDisconnected(ctx context.Context, merchantID uuid.UUID, reason string) error {
	args := m.Called(ctx, merchantID, reason)
	return args.Error(0)
}

type mockOrderFetcher struct {
	mock.Mock
}

func (m *mockOrderFetcher) FetchOrders(ctx context.Context, merchantID uuid.UUID, creds upstream.Credentials, createdAtMin time.Time) ([]upstream.RawOrder, error) {
	args := m.Called(ctx, merchantID, creds, createdAtMin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]upstream.RawOrder), args.Error(1)
}

type mockLockStore struct {
	mock.Mock
}

func (m *mockLockStore) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockLockStore) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type mockNotificationDispatcher struct {
	mock.Mock
}

func (m *mockNotificationDispatcher) NotifyShipped(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}
