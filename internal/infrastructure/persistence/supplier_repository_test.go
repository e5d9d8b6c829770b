package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dropship/backend/internal/domain/partner"
	"github.com/dropship/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockSupplierRepository creates a GormSupplierRepository with a mocked SQL connection
func newMockSupplierRepository(t *testing.T) (*GormSupplierRepository, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormSupplierRepository(gormDB), mock, mockDB
}

func TestGormSupplierRepository_FindByID(t *testing.T) {
	t.Run("finds existing supplier", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		supplierID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "code", "name", "type", "status"}).
			AddRow(supplierID, "CJ01", "CJ Dropshipping", "cjdropshipping", "active")

		mock.ExpectQuery(`SELECT \* FROM "suppliers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(supplierID, 1).
			WillReturnRows(rows)

		supplier, err := repo.FindByID(context.Background(), supplierID)

		assert.NoError(t, err)
		assert.NotNil(t, supplier)
		assert.Equal(t, supplierID, supplier.ID)
		assert.Equal(t, "CJ01", supplier.Code)
		assert.Equal(t, partner.SupplierTypeCJ, supplier.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for non-existent supplier", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		supplierID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "suppliers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(supplierID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		supplier, err := repo.FindByID(context.Background(), supplierID)

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Nil(t, supplier)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSupplierRepository_FindByCode(t *testing.T) {
	t.Run("uppercases code before lookup", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		supplierID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "code", "name", "type", "status"}).
			AddRow(supplierID, "CJ01", "CJ Dropshipping", "cjdropshipping", "active")

		mock.ExpectQuery(`SELECT \* FROM "suppliers" WHERE code = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("CJ01", 1).
			WillReturnRows(rows)

		supplier, err := repo.FindByCode(context.Background(), "cj01")

		assert.NoError(t, err)
		assert.Equal(t, "CJ01", supplier.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSupplierRepository_FindByIDs(t *testing.T) {
	t.Run("returns empty slice for empty input without querying", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		suppliers, err := repo.FindByIDs(context.Background(), nil)

		assert.NoError(t, err)
		assert.Empty(t, suppliers)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSupplierRepository_UpdateTokenFields(t *testing.T) {
	t.Run("returns ErrNotFound when no row matches", func(t *testing.T) {
		repo, mock, mockDB := newMockSupplierRepository(t)
		defer mockDB.Close()

		supplier, err := partner.NewSupplier("CJ01", "CJ Dropshipping", partner.SupplierTypeCJ)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "suppliers" SET .*`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.UpdateTokenFields(context.Background(), supplier)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
