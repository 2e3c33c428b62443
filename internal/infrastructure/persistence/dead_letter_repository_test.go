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

	"github.com/shopsync/backend/internal/domain/order"
)

func newMockDeadLetterRepository(t *testing.T) (*GormDeadLetterRepository, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormDeadLetterRepository(gormDB), mock, mockDB
}

func deadLetterRows(key string, merchantID uuid.UUID, attempts int, lastAttemptAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"key", "merchant_id", "upstream_order_id", "event_id",
		"payload", "attempts", "last_error", "first_failed_at", "last_attempt_at",
	}).AddRow(
		key, merchantID, "shopify:order:1", "evt-1",
		[]byte(`{"id":1}`), attempts, "boom", lastAttemptAt.Add(-time.Hour), lastAttemptAt,
	)
}

func TestGormDeadLetterRepository_Save(t *testing.T) {
	t.Run("upserts by idempotency key", func(t *testing.T) {
		repo, mock, mockDB := newMockDeadLetterRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "dead_letters" .* ON CONFLICT \("key"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		entry := &order.DeadLetterEntry{
			Key:             "k1",
			MerchantID:      uuid.New(),
			UpstreamOrderID: "shopify:order:1",
			EventID:         "evt-1",
			Payload:         []byte(`{"id":1}`),
			LastError:       "boom",
			FirstFailedAt:   time.Now(),
			LastAttemptAt:   time.Now(),
		}

		err := repo.Save(context.Background(), entry)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDeadLetterRepository_FindByKey(t *testing.T) {
	t.Run("finds existing entry", func(t *testing.T) {
		repo, mock, mockDB := newMockDeadLetterRepository(t)
		defer mockDB.Close()

		merchantID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "dead_letters" WHERE key = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("k1", 1).
			WillReturnRows(deadLetterRows("k1", merchantID, 2, time.Now()))

		entry, err := repo.FindByKey(context.Background(), "k1")

		assert.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, "k1", entry.Key)
		assert.Equal(t, 2, entry.Attempts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrDeadLetterNotFound for missing entry", func(t *testing.T) {
		repo, mock, mockDB := newMockDeadLetterRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "dead_letters" WHERE key = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("missing", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		entry, err := repo.FindByKey(context.Background(), "missing")

		assert.Nil(t, entry)
		assert.ErrorIs(t, err, order.ErrDeadLetterNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDeadLetterRepository_FindAll(t *testing.T) {
	repo, mock, mockDB := newMockDeadLetterRepository(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT \* FROM "dead_letters" ORDER BY first_failed_at ASC`).
		WillReturnRows(deadLetterRows("k1", uuid.New(), 0, time.Now()))

	entries, err := repo.FindAll(context.Background())

	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDeadLetterRepository_Delete(t *testing.T) {
	repo, mock, mockDB := newMockDeadLetterRepository(t)
	defer mockDB.Close()

	mock.ExpectExec(`DELETE FROM "dead_letters" WHERE key = \$1`).
		WithArgs("k1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "k1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDeadLetterRepository_Count(t *testing.T) {
	repo, mock, mockDB := newMockDeadLetterRepository(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "dead_letters"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.Count(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
