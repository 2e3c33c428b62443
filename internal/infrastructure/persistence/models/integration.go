package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopsync/backend/internal/domain/upstream"
)

// MerchantIntegrationModel is the persistence model for a merchant's platform
// connection. Each merchant has at most one row; the shop domain is unique
// across merchants so webhook deliveries can be routed by domain.
type MerchantIntegrationModel struct {
	ID               uuid.UUID                  `gorm:"type:uuid;primary_key"`
	MerchantID       uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_merchant_integrations_merchant"`
	ShopDomain       string                     `gorm:"type:varchar(255);not null;uniqueIndex:idx_merchant_integrations_shop_domain"`
	AccessToken      string                     `gorm:"type:text;not null"`
	Status           upstream.IntegrationStatus `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_merchant_integrations_status"`
	DisconnectReason string                     `gorm:"type:text"`
	VerifiedAt       *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MerchantIntegrationModel) TableName() string {
	return "merchant_integrations"
}

// ToDomain converts the persistence model to a domain MerchantIntegration.
func (m *MerchantIntegrationModel) ToDomain() *upstream.MerchantIntegration {
	return &upstream.MerchantIntegration{
		ID:               m.ID,
		MerchantID:       m.MerchantID,
		ShopDomain:       m.ShopDomain,
		AccessToken:      m.AccessToken,
		Status:           m.Status,
		DisconnectReason: m.DisconnectReason,
		VerifiedAt:       m.VerifiedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain MerchantIntegration.
func (m *MerchantIntegrationModel) FromDomain(i *upstream.MerchantIntegration) {
	m.ID = i.ID
	m.MerchantID = i.MerchantID
	m.ShopDomain = i.ShopDomain
	m.AccessToken = i.AccessToken
	m.Status = i.Status
	m.DisconnectReason = i.DisconnectReason
	m.VerifiedAt = i.VerifiedAt
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// MerchantIntegrationModelFromDomain creates a new persistence model from a domain MerchantIntegration.
func MerchantIntegrationModelFromDomain(i *upstream.MerchantIntegration) *MerchantIntegrationModel {
	m := &MerchantIntegrationModel{}
	m.FromDomain(i)
	return m
}
