package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/domain/partner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&partner.Supplier{},
		&fulfillment.Order{},
		&fulfillment.OrderItem{},
		&fulfillment.SupplierOrder{},
	)
	require.NoError(t, err)

	return db
}

// seedSupplier persists a callable supplier and returns it
func seedSupplier(t *testing.T, db *gorm.DB) *partner.Supplier {
	supplier, err := partner.NewSupplier("CJ01", "CJ Dropshipping", partner.SupplierTypeCJ)
	require.NoError(t, err)
	require.NoError(t, supplier.SetCredentials("api@example.com", "secret-key", "https://api.example.com"))
	require.NoError(t, db.Save(supplier).Error)
	return supplier
}

func TestSupplierTokenRepository_GetAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("reads token persisted by a previous process", func(t *testing.T) {
		db := setupTestDB(t)
		supplier := seedSupplier(t, db)
		suppliers := NewGormSupplierRepository(db)

		now := time.Now()
		accessExp := now.Add(2 * time.Hour)
		refreshExp := now.Add(48 * time.Hour)
		supplier.UpdateTokens("access-123", "refresh-456", &accessExp, &refreshExp)
		require.NoError(t, suppliers.UpdateTokenFields(ctx, supplier))

		// Fresh repository instance simulates a restart with an empty cache
		repo := NewSupplierTokenRepository(suppliers, 5*time.Minute).
			WithClock(func() time.Time { return now })

		token, err := repo.GetAccessToken(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, "access-123", token)
	})

	t.Run("token inside the validity margin is rejected", func(t *testing.T) {
		db := setupTestDB(t)
		supplier := seedSupplier(t, db)
		suppliers := NewGormSupplierRepository(db)

		now := time.Now()
		// Expires in 5 minutes, inside the 10-minute margin
		accessExp := now.Add(5 * time.Minute)
		supplier.UpdateTokens("access-123", "", &accessExp, nil)
		require.NoError(t, suppliers.UpdateTokenFields(ctx, supplier))

		repo := NewSupplierTokenRepository(suppliers, 5*time.Minute).
			WithClock(func() time.Time { return now })

		_, err := repo.GetAccessToken(ctx, supplier.ID)
		assert.ErrorIs(t, err, integration.ErrNoValidToken)
	})

	t.Run("missing token yields ErrNoValidToken", func(t *testing.T) {
		db := setupTestDB(t)
		supplier := seedSupplier(t, db)
		suppliers := NewGormSupplierRepository(db)

		repo := NewSupplierTokenRepository(suppliers, 5*time.Minute)

		_, err := repo.GetAccessToken(ctx, supplier.ID)
		assert.ErrorIs(t, err, integration.ErrNoValidToken)
	})
}

func TestSupplierTokenRepository_StoreTokens(t *testing.T) {
	ctx := context.Background()

	t.Run("stored tokens survive a new repository instance", func(t *testing.T) {
		db := setupTestDB(t)
		supplier := seedSupplier(t, db)
		suppliers := NewGormSupplierRepository(db)

		now := time.Now()
		accessExp := now.Add(2 * time.Hour)
		refreshExp := now.Add(48 * time.Hour)

		first := NewSupplierTokenRepository(suppliers, 5*time.Minute).
			WithClock(func() time.Time { return now })
		require.NoError(t, first.StoreTokens(ctx, supplier.ID, &integration.TokenData{
			AccessToken:      "access-new",
			RefreshToken:     "refresh-new",
			AccessExpiresAt:  &accessExp,
			RefreshExpiresAt: &refreshExp,
		}))

		second := NewSupplierTokenRepository(suppliers, 5*time.Minute).
			WithClock(func() time.Time { return now })

		token, err := second.GetAccessToken(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, "access-new", token)

		refresh, err := second.GetRefreshToken(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, "refresh-new", refresh)
	})

	t.Run("storing tokens stamps the auth attempt time", func(t *testing.T) {
		db := setupTestDB(t)
		supplier := seedSupplier(t, db)
		suppliers := NewGormSupplierRepository(db)

		now := time.Now()
		accessExp := now.Add(2 * time.Hour)

		repo := NewSupplierTokenRepository(suppliers, 5*time.Minute).
			WithClock(func() time.Time { return now })
		require.NoError(t, repo.StoreTokens(ctx, supplier.ID, &integration.TokenData{
			AccessToken:     "access-new",
			AccessExpiresAt: &accessExp,
		}))

		allowed, err := repo.CanAuthenticate(ctx, supplier.ID)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("empty access token is rejected before any write", func(t *testing.T) {
		db := setupTestDB(t)
		supplier := seedSupplier(t, db)
		suppliers := NewGormSupplierRepository(db)

		repo := NewSupplierTokenRepository(suppliers, 5*time.Minute)
		err := repo.StoreTokens(ctx, supplier.ID, &integration.TokenData{
			RefreshToken: "refresh-only",
		})
		require.Error(t, err)

		fresh, err := suppliers.FindByID(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Empty(t, fresh.RefreshToken)
	})

	t.Run("nil expiries are stored as-is", func(t *testing.T) {
		db := setupTestDB(t)
		supplier := seedSupplier(t, db)
		suppliers := NewGormSupplierRepository(db)

		repo := NewSupplierTokenRepository(suppliers, 5*time.Minute)
		require.NoError(t, repo.StoreTokens(ctx, supplier.ID, &integration.TokenData{
			AccessToken: "access-no-expiry",
		}))

		fresh, err := suppliers.FindByID(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, "access-no-expiry", fresh.AccessToken)
		assert.Nil(t, fresh.AccessExpiresAt)
		assert.Nil(t, fresh.RefreshExpiresAt)
	})
}

func TestSupplierTokenRepository_AuthBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("failed attempt blocks the window then releases", func(t *testing.T) {
		db := setupTestDB(t)
		supplier := seedSupplier(t, db)
		suppliers := NewGormSupplierRepository(db)

		now := time.Now()
		repo := NewSupplierTokenRepository(suppliers, 5*time.Minute).
			WithClock(func() time.Time { return now })

		allowed, err := repo.CanAuthenticate(ctx, supplier.ID)
		require.NoError(t, err)
		require.True(t, allowed)

		// A login attempt is recorded before its outcome is known
		require.NoError(t, repo.RecordAuthAttempt(ctx, supplier.ID))

		allowed, err = repo.CanAuthenticate(ctx, supplier.ID)
		require.NoError(t, err)
		assert.False(t, allowed)

		wait, err := repo.TimeUntilNextAuth(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, 5*time.Minute, wait)

		now = now.Add(5*time.Minute + time.Second)

		allowed, err = repo.CanAuthenticate(ctx, supplier.ID)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("backoff window is shared across repository instances", func(t *testing.T) {
		db := setupTestDB(t)
		supplier := seedSupplier(t, db)
		suppliers := NewGormSupplierRepository(db)

		now := time.Now()
		first := NewSupplierTokenRepository(suppliers, 5*time.Minute).
			WithClock(func() time.Time { return now })
		require.NoError(t, first.RecordAuthAttempt(ctx, supplier.ID))

		// A second instance reads the persisted attempt time
		second := NewSupplierTokenRepository(suppliers, 5*time.Minute).
			WithClock(func() time.Time { return now.Add(time.Minute) })

		allowed, err := second.CanAuthenticate(ctx, supplier.ID)
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}

func TestSupplierTokenRepository_Invalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("invalidate forces a re-read of the row", func(t *testing.T) {
		db := setupTestDB(t)
		supplier := seedSupplier(t, db)
		suppliers := NewGormSupplierRepository(db)

		now := time.Now()
		accessExp := now.Add(2 * time.Hour)
		repo := NewSupplierTokenRepository(suppliers, 5*time.Minute).
			WithClock(func() time.Time { return now })
		require.NoError(t, repo.StoreTokens(ctx, supplier.ID, &integration.TokenData{
			AccessToken:     "access-old",
			AccessExpiresAt: &accessExp,
		}))

		// Another instance rotates the token behind this repository's back
		fresh, err := suppliers.FindByID(ctx, supplier.ID)
		require.NoError(t, err)
		fresh.UpdateTokens("access-rotated", "", &accessExp, nil)
		require.NoError(t, suppliers.UpdateTokenFields(ctx, fresh))

		token, err := repo.GetAccessToken(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, "access-old", token)

		require.NoError(t, repo.Invalidate(ctx, supplier.ID))

		token, err = repo.GetAccessToken(ctx, supplier.ID)
		require.NoError(t, err)
		assert.Equal(t, "access-rotated", token)
	})
}
