package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/shopsync/backend/internal/domain/upstream"
)

func newMockMerchantIntegrationRepository(t *testing.T) (*GormMerchantIntegrationRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormMerchantIntegrationRepository(gormDB), mock, mockDB
}

func integrationRows(merchantID uuid.UUID, shopDomain string, status upstream.IntegrationStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "merchant_id", "shop_domain", "access_token",
		"status", "disconnect_reason", "created_at", "updated_at",
	}).AddRow(
		uuid.New(), merchantID, shopDomain, "shpat_token",
		status, "", time.Now(), time.Now(),
	)
}

func TestGormMerchantIntegrationRepository_FindByMerchantID(t *testing.T) {
	t.Run("finds existing integration", func(t *testing.T) {
		repo, mock, mockDB := newMockMerchantIntegrationRepository(t)
		defer mockDB.Close()

		merchantID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "merchant_integrations" WHERE merchant_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(merchantID, 1).
			WillReturnRows(integrationRows(merchantID, "demo.myshopify.com", upstream.IntegrationStatusVerified))

		integration, err := repo.FindByMerchantID(context.Background(), merchantID)

		assert.NoError(t, err)
		require.NotNil(t, integration)
		assert.Equal(t, "demo.myshopify.com", integration.ShopDomain)
		assert.True(t, integration.IsVerified())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrIntegrationNotFound for missing integration", func(t *testing.T) {
		repo, mock, mockDB := newMockMerchantIntegrationRepository(t)
		defer mockDB.Close()

		merchantID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "merchant_integrations" WHERE merchant_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(merchantID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		integration, err := repo.FindByMerchantID(context.Background(), merchantID)

		assert.Nil(t, integration)
		assert.ErrorIs(t, err, upstream.ErrIntegrationNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormMerchantIntegrationRepository_FindByShopDomain(t *testing.T) {
	repo, mock, mockDB := newMockMerchantIntegrationRepository(t)
	defer mockDB.Close()

	merchantID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "merchant_integrations" WHERE shop_domain = \$1 ORDER BY .* LIMIT .*`).
		WithArgs("demo.myshopify.com", 1).
		WillReturnRows(integrationRows(merchantID, "demo.myshopify.com", upstream.IntegrationStatusVerified))

	integration, err := repo.FindByShopDomain(context.Background(), "demo.myshopify.com")

	assert.NoError(t, err)
	require.NotNil(t, integration)
	assert.Equal(t, merchantID, integration.MerchantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMerchantIntegrationRepository_GetCredentials(t *testing.T) {
	t.Run("returns credentials for configured merchant", func(t *testing.T) {
		repo, mock, mockDB := newMockMerchantIntegrationRepository(t)
		defer mockDB.Close()

		merchantID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "merchant_integrations" WHERE merchant_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(merchantID, 1).
			WillReturnRows(integrationRows(merchantID, "demo.myshopify.com", upstream.IntegrationStatusVerified))

		creds, err := repo.GetCredentials(context.Background(), merchantID)

		assert.NoError(t, err)
		require.NotNil(t, creds)
		assert.Equal(t, "demo.myshopify.com", creds.ShopDomain)
		assert.Equal(t, "shpat_token", creds.AccessToken)
	})

	t.Run("returns nil without error when no integration exists", func(t *testing.T) {
		repo, mock, mockDB := newMockMerchantIntegrationRepository(t)
		defer mockDB.Close()

		merchantID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "merchant_integrations" WHERE merchant_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(merchantID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		creds, err := repo.GetCredentials(context.Background(), merchantID)

		assert.NoError(t, err)
		assert.Nil(t, creds)
	})
}

func TestGormMerchantIntegrationRepository_IsVerified(t *testing.T) {
	t.Run("false for disconnected integration", func(t *testing.T) {
		repo, mock, mockDB := newMockMerchantIntegrationRepository(t)
		defer mockDB.Close()

		merchantID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "merchant_integrations" WHERE merchant_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(merchantID, 1).
			WillReturnRows(integrationRows(merchantID, "demo.myshopify.com", upstream.IntegrationStatusDisconnected))

		verified, err := repo.IsVerified(context.Background(), merchantID)

		assert.NoError(t, err)
		assert.False(t, verified)
	})

	t.Run("false without error when no integration exists", func(t *testing.T) {
		repo, mock, mockDB := newMockMerchantIntegrationRepository(t)
		defer mockDB.Close()

		merchantID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "merchant_integrations" WHERE merchant_id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(merchantID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		verified, err := repo.IsVerified(context.Background(), merchantID)

		assert.NoError(t, err)
		assert.False(t, verified)
	})
}

func TestGormMerchantIntegrationRepository_MarkDisconnected(t *testing.T) {
	repo, mock, mockDB := newMockMerchantIntegrationRepository(t)
	defer mockDB.Close()

	merchantID := uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "merchant_integrations" WHERE merchant_id = \$1 ORDER BY .* LIMIT .*`).
		WithArgs(merchantID, 1).
		WillReturnRows(integrationRows(merchantID, "demo.myshopify.com", upstream.IntegrationStatusVerified))
	mock.ExpectExec(`UPDATE "merchant_integrations" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkDisconnected(context.Background(), merchantID, "platform rejected credentials")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMerchantIntegrationRepository_ListVerifiedMerchantIDs(t *testing.T) {
	repo, mock, mockDB := newMockMerchantIntegrationRepository(t)
	defer mockDB.Close()

	idA := uuid.New()
	idB := uuid.New()
	mock.ExpectQuery(`SELECT "merchant_id" FROM "merchant_integrations" WHERE status = \$1 ORDER BY created_at ASC`).
		WithArgs(upstream.IntegrationStatusVerified).
		WillReturnRows(sqlmock.NewRows([]string{"merchant_id"}).AddRow(idA).AddRow(idB))

	ids, err := repo.ListVerifiedMerchantIDs(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{idA, idB}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
