package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopsync/backend/internal/domain/upstream"
	"github.com/shopsync/backend/internal/infrastructure/persistence/models"
)

// GormMerchantIntegrationRepository implements both the integration store and
// the credential resolver port on top of the same table.
type GormMerchantIntegrationRepository struct {
	db *gorm.DB
}

// NewGormMerchantIntegrationRepository creates a new GormMerchantIntegrationRepository
func NewGormMerchantIntegrationRepository(db *gorm.DB) *GormMerchantIntegrationRepository {
	return &GormMerchantIntegrationRepository{db: db}
}

var (
	_ upstream.MerchantIntegrationRepository = (*GormMerchantIntegrationRepository)(nil)
	_ upstream.CredentialResolver            = (*GormMerchantIntegrationRepository)(nil)
)

// Save creates or updates an integration
func (r *GormMerchantIntegrationRepository) Save(ctx context.Context, integration *upstream.MerchantIntegration) error {
	model := models.MerchantIntegrationModelFromDomain(integration)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByMerchantID returns the merchant's integration
func (r *GormMerchantIntegrationRepository) FindByMerchantID(ctx context.Context, merchantID uuid.UUID) (*upstream.MerchantIntegration, error) {
	var model models.MerchantIntegrationModel
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, upstream.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByShopDomain resolves an integration from its platform shop domain
func (r *GormMerchantIntegrationRepository) FindByShopDomain(ctx context.Context, shopDomain string) (*upstream.MerchantIntegration, error) {
	var model models.MerchantIntegrationModel
	if err := r.db.WithContext(ctx).
		Where("shop_domain = ?", shopDomain).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, upstream.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListVerifiedMerchantIDs returns merchants with a verified integration
func (r *GormMerchantIntegrationRepository) ListVerifiedMerchantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.MerchantIntegrationModel{}).
		Where("status = ?", upstream.IntegrationStatusVerified).
		Order("created_at ASC").
		Pluck("merchant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// GetCredentials returns the merchant's credentials, or nil if none are configured
func (r *GormMerchantIntegrationRepository) GetCredentials(ctx context.Context, merchantID uuid.UUID) (*upstream.Credentials, error) {
	integration, err := r.FindByMerchantID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, upstream.ErrIntegrationNotFound) {
			return nil, nil
		}
		return nil, err
	}
	creds := integration.Credentials()
	return &creds, nil
}

// IsVerified returns true if the merchant's integration passed verification
func (r *GormMerchantIntegrationRepository) IsVerified(ctx context.Context, merchantID uuid.UUID) (bool, error) {
	integration, err := r.FindByMerchantID(ctx, merchantID)
	if err != nil {
		if errors.Is(err, upstream.ErrIntegrationNotFound) {
			return false, nil
		}
		return false, err
	}
	return integration.IsVerified(), nil
}

// MarkDisconnected flags the integration after the platform rejected its credentials
func (r *GormMerchantIntegrationRepository) MarkDisconnected(ctx context.Context, merchantID uuid.UUID, reason string) error {
	integration, err := r.FindByMerchantID(ctx, merchantID)
	if err != nil {
		return err
	}
	integration.Disconnect(reason)
	return r.Save(ctx, integration)
}
