package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsync/backend/internal/domain/order"
)

// OrderModel is the persistence model for the Order domain entity. The
// composite unique index on (merchant_id, upstream_order_id) is what makes
// the upsert path safe under concurrent webhook and poll writes.
type OrderModel struct {
	ID                     uuid.UUID             `gorm:"type:uuid;primary_key"`
	MerchantID             uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex:idx_orders_merchant_upstream,priority:1"`
	UpstreamOrderID        string                `gorm:"type:varchar(100);not null;uniqueIndex:idx_orders_merchant_upstream,priority:2"`
	OrderNumber            string                `gorm:"type:varchar(50)"`
	CustomerCorrelationKey string                `gorm:"type:varchar(100);index:idx_orders_correlation_key"`
	FinancialStatus        string                `gorm:"type:varchar(50)"`
	FulfillmentStatus      string                `gorm:"type:varchar(50)"`
	CanonicalStatus        order.CanonicalStatus `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_orders_canonical_status"`
	ItemsJSON              string                `gorm:"type:jsonb;column:items"`
	Subtotal               decimal.Decimal       `gorm:"type:numeric(20,4);not null;default:0"`
	Total                  decimal.Decimal       `gorm:"type:numeric(20,4);not null;default:0"`
	Currency               string                `gorm:"type:varchar(10)"`
	TrackingNumber         string                `gorm:"type:varchar(100)"`
	TrackingURL            string                `gorm:"type:text"`
	ShippingAddressJSON    *string               `gorm:"type:jsonb;column:shipping_address"`
	UpstreamUpdatedAt      time.Time             `gorm:"not null;index:idx_orders_upstream_updated_at"`
	CreatedAt              time.Time             `gorm:"not null"`
	UpdatedAt              time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order entity.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		ID:                     m.ID,
		MerchantID:             m.MerchantID,
		UpstreamOrderID:        m.UpstreamOrderID,
		OrderNumber:            m.OrderNumber,
		CustomerCorrelationKey: m.CustomerCorrelationKey,
		FinancialStatus:        m.FinancialStatus,
		FulfillmentStatus:      m.FulfillmentStatus,
		CanonicalStatus:        m.CanonicalStatus,
		Items:                  make([]order.OrderItem, 0),
		Subtotal:               m.Subtotal,
		Total:                  m.Total,
		Currency:               m.Currency,
		TrackingNumber:         m.TrackingNumber,
		TrackingURL:            m.TrackingURL,
		UpstreamUpdatedAt:      m.UpstreamUpdatedAt,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}

	if m.ItemsJSON != "" {
		var items []order.OrderItem
		if err := json.Unmarshal([]byte(m.ItemsJSON), &items); err == nil {
			o.Items = items
		}
	}
	if m.ShippingAddressJSON != nil {
		var addr order.ShippingAddress
		if err := json.Unmarshal([]byte(*m.ShippingAddressJSON), &addr); err == nil {
			o.ShippingAddress = &addr
		}
	}

	return o
}

// FromDomain populates the persistence model from a domain Order entity.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.ID = o.ID
	m.MerchantID = o.MerchantID
	m.UpstreamOrderID = o.UpstreamOrderID
	m.OrderNumber = o.OrderNumber
	m.CustomerCorrelationKey = o.CustomerCorrelationKey
	m.FinancialStatus = o.FinancialStatus
	m.FulfillmentStatus = o.FulfillmentStatus
	m.CanonicalStatus = o.CanonicalStatus
	m.Subtotal = o.Subtotal
	m.Total = o.Total
	m.Currency = o.Currency
	m.TrackingNumber = o.TrackingNumber
	m.TrackingURL = o.TrackingURL
	m.UpstreamUpdatedAt = o.UpstreamUpdatedAt
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt

	if len(o.Items) > 0 {
		if jsonBytes, err := json.Marshal(o.Items); err == nil {
			m.ItemsJSON = string(jsonBytes)
		}
	} else {
		m.ItemsJSON = "[]"
	}
	// The column is jsonb, which rejects the empty string. Orders without a
	// shipping address must bind NULL.
	m.ShippingAddressJSON = nil
	if o.ShippingAddress != nil {
		if jsonBytes, err := json.Marshal(o.ShippingAddress); err == nil {
			s := string(jsonBytes)
			m.ShippingAddressJSON = &s
		}
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order entity.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}
