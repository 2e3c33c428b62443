package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopsync/backend/internal/domain/order"
	"github.com/shopsync/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements order.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var (
	_ order.OrderRepository = (*GormOrderRepository)(nil)
	_ order.OrderLister     = (*GormOrderRepository)(nil)
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// FindByUpstreamID finds an order by its namespaced upstream id within a merchant
func (r *GormOrderRepository) FindByUpstreamID(ctx context.Context, merchantID uuid.UUID, upstreamOrderID string) (*order.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND upstream_order_id = ?", merchantID, upstreamOrderID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUpstreamIDs bulk-loads existing rows for a set of upstream ids
func (r *GormOrderRepository) FindByUpstreamIDs(ctx context.Context, merchantID uuid.UUID, upstreamOrderIDs []string) (map[string]*order.Order, error) {
	out := make(map[string]*order.Order, len(upstreamOrderIDs))
	if len(upstreamOrderIDs) == 0 {
		return out, nil
	}

	var orderModels []models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND upstream_order_id IN ?", merchantID, upstreamOrderIDs).
		Find(&orderModels).Error; err != nil {
		return nil, err
	}

	for i := range orderModels {
		o := orderModels[i].ToDomain()
		out[o.UpstreamOrderID] = o
	}
	return out, nil
}

// Upsert creates or updates the order in a single transaction. The existing
// row is read under FOR UPDATE so two concurrent writers for the same order
// serialize, and each re-evaluates the staleness rule against committed
// state. An insert that loses the unique-constraint race aborts its
// transaction, so the whole upsert is retried once in a fresh one; the
// winner's row is committed by then and the retry takes the update path.
func (r *GormOrderRepository) Upsert(ctx context.Context, o *order.Order) (*order.UpsertResult, error) {
	result, err := r.upsertOnce(ctx, o)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		result, err = r.upsertOnce(ctx, o)
	}
	return result, err
}

func (r *GormOrderRepository) upsertOnce(ctx context.Context, o *order.Order) (*order.UpsertResult, error) {
	var result *order.UpsertResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := r.upsertTx(tx, o)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *GormOrderRepository) upsertTx(tx *gorm.DB, o *order.Order) (*order.UpsertResult, error) {
	var existing models.OrderModel
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("merchant_id = ? AND upstream_order_id = ?", o.MerchantID, o.UpstreamOrderID).
		First(&existing).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.insertTx(tx, o)
	case err != nil:
		return nil, err
	}

	return r.updateTx(tx, &existing, o)
}

func (r *GormOrderRepository) insertTx(tx *gorm.DB, o *order.Order) (*order.UpsertResult, error) {
	now := time.Now()
	stored := *o
	stored.ID = uuid.New()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	model := models.OrderModelFromDomain(&stored)
	if err := tx.Create(model).Error; err != nil {
		// A duplicate-key error here means a concurrent writer won the insert
		// race. Postgres has aborted this transaction, so recovery happens in
		// the caller's retry, not here.
		return nil, err
	}

	return &order.UpsertResult{
		Order:   model.ToDomain(),
		Created: true,
	}, nil
}

func (r *GormOrderRepository) updateTx(tx *gorm.DB, existing *models.OrderModel, o *order.Order) (*order.UpsertResult, error) {
	previous := existing.ToDomain()

	// Equal or older upstream timestamps never mutate stored state.
	if order.Classify(o, previous) != order.DecisionUpdated {
		return &order.UpsertResult{
			Order:    previous,
			Previous: previous,
		}, nil
	}

	stored := *o
	stored.ID = previous.ID
	stored.CreatedAt = previous.CreatedAt
	stored.UpdatedAt = time.Now()
	// A known correlation key is never regressed to empty by a payload that
	// lost its attribution.
	if stored.CustomerCorrelationKey == "" {
		stored.CustomerCorrelationKey = previous.CustomerCorrelationKey
	}

	model := models.OrderModelFromDomain(&stored)
	if err := tx.Model(&models.OrderModel{}).
		Where("id = ?", previous.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(model).Error; err != nil {
		return nil, err
	}

	return &order.UpsertResult{
		Order:    model.ToDomain(),
		Previous: previous,
		Updated:  true,
	}, nil
}

// ListByMerchant returns a page of the merchant's orders. Sort inputs are
// validated against a column whitelist before being interpolated.
func (r *GormOrderRepository) ListByMerchant(ctx context.Context, merchantID uuid.UUID, q order.ListQuery) ([]order.Order, int64, error) {
	sortField := ValidateSortField(q.SortField, OrderSortFields, "upstream_updated_at")
	sortOrder := ValidateSortOrder(q.SortOrder)

	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("merchant_id = ?", merchantID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orderModels []models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order(sortField + " " + sortOrder).
		Limit(limit).
		Offset(offset).
		Find(&orderModels).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]order.Order, 0, len(orderModels))
	for i := range orderModels {
		orders = append(orders, *orderModels[i].ToDomain())
	}
	return orders, total, nil
}

// Count returns the total number of orders stored for all merchants
func (r *GormOrderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
