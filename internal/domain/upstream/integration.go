package upstream

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Merchant Integration
// ---------------------------------------------------------------------------

// IntegrationStatus is the lifecycle state of a merchant's platform connection.
type IntegrationStatus string

const (
	// IntegrationStatusPending indicates credentials stored but not yet verified
	IntegrationStatusPending IntegrationStatus = "PENDING"
	// IntegrationStatusVerified indicates credentials confirmed against the platform
	IntegrationStatusVerified IntegrationStatus = "VERIFIED"
	// IntegrationStatusDisconnected indicates the platform rejected the credentials
	IntegrationStatusDisconnected IntegrationStatus = "DISCONNECTED"
)

// IsValid returns true if the status is a known value
func (s IntegrationStatus) IsValid() bool {
	switch s {
	case IntegrationStatusPending, IntegrationStatusVerified, IntegrationStatusDisconnected:
		return true
	default:
		return false
	}
}

// String returns the string representation of IntegrationStatus
func (s IntegrationStatus) String() string {
	return string(s)
}

// MerchantIntegration holds one merchant's platform connection. Each merchant
// has at most one integration; a disconnected integration keeps its
// credentials so operators can inspect and re-verify it.
type MerchantIntegration struct {
	ID               uuid.UUID
	MerchantID       uuid.UUID
	ShopDomain       string
	AccessToken      string
	Status           IntegrationStatus
	DisconnectReason string
	VerifiedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewMerchantIntegration creates a pending integration for a merchant.
func NewMerchantIntegration(merchantID uuid.UUID, shopDomain, accessToken string) (*MerchantIntegration, error) {
	if shopDomain == "" || accessToken == "" {
		return nil, ErrNoCredentials
	}
	now := time.Now()
	return &MerchantIntegration{
		ID:          uuid.New(),
		MerchantID:  merchantID,
		ShopDomain:  shopDomain,
		AccessToken: accessToken,
		Status:      IntegrationStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Verify marks the integration as confirmed against the platform.
func (i *MerchantIntegration) Verify() {
	now := time.Now()
	i.Status = IntegrationStatusVerified
	i.DisconnectReason = ""
	i.VerifiedAt = &now
	i.UpdatedAt = now
}

// Disconnect flags the integration after a credential rejection.
func (i *MerchantIntegration) Disconnect(reason string) {
	i.Status = IntegrationStatusDisconnected
	i.DisconnectReason = reason
	i.UpdatedAt = time.Now()
}

// IsVerified returns true if the integration is usable for API calls.
func (i *MerchantIntegration) IsVerified() bool {
	return i.Status == IntegrationStatusVerified
}

// Credentials returns the API credentials carried by the integration.
func (i *MerchantIntegration) Credentials() Credentials {
	return Credentials{
		ShopDomain:  i.ShopDomain,
		AccessToken: i.AccessToken,
	}
}

// MerchantIntegrationRepository defines persistence for merchant integrations.
type MerchantIntegrationRepository interface {
	// Save creates or updates an integration.
	Save(ctx context.Context, integration *MerchantIntegration) error

	// FindByMerchantID returns the merchant's integration, or
	// ErrIntegrationNotFound when none exists.
	FindByMerchantID(ctx context.Context, merchantID uuid.UUID) (*MerchantIntegration, error)

	// FindByShopDomain resolves an integration from its platform shop domain.
	// Returns ErrIntegrationNotFound when no merchant owns the domain.
	FindByShopDomain(ctx context.Context, shopDomain string) (*MerchantIntegration, error)

	// ListVerifiedMerchantIDs returns merchants with a verified integration,
	// ordered by creation time for a stable sweep order.
	ListVerifiedMerchantIDs(ctx context.Context) ([]uuid.UUID, error)
}
