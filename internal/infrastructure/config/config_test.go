package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"DROPSHIP_APP_NAME":                        os.Getenv("DROPSHIP_APP_NAME"),
		"DROPSHIP_APP_ENV":                         os.Getenv("DROPSHIP_APP_ENV"),
		"DROPSHIP_APP_PORT":                        os.Getenv("DROPSHIP_APP_PORT"),
		"DROPSHIP_DATABASE_HOST":                   os.Getenv("DROPSHIP_DATABASE_HOST"),
		"DROPSHIP_DATABASE_PORT":                   os.Getenv("DROPSHIP_DATABASE_PORT"),
		"DROPSHIP_DATABASE_USER":                   os.Getenv("DROPSHIP_DATABASE_USER"),
		"DROPSHIP_DATABASE_PASSWORD":               os.Getenv("DROPSHIP_DATABASE_PASSWORD"),
		"DROPSHIP_DATABASE_DBNAME":                 os.Getenv("DROPSHIP_DATABASE_DBNAME"),
		"DROPSHIP_DATABASE_SSLMODE":                os.Getenv("DROPSHIP_DATABASE_SSLMODE"),
		"DROPSHIP_DATABASE_MAX_OPEN_CONNS":         os.Getenv("DROPSHIP_DATABASE_MAX_OPEN_CONNS"),
		"DROPSHIP_DATABASE_MAX_IDLE_CONNS":         os.Getenv("DROPSHIP_DATABASE_MAX_IDLE_CONNS"),
		"DROPSHIP_SUPPLIER_MIN_AUTH_INTERVAL":      os.Getenv("DROPSHIP_SUPPLIER_MIN_AUTH_INTERVAL"),
		"DROPSHIP_SUPPLIER_REQUEST_SPACING":        os.Getenv("DROPSHIP_SUPPLIER_REQUEST_SPACING"),
		"DROPSHIP_FULFILLMENT_DEFAULT_COST_FACTOR": os.Getenv("DROPSHIP_FULFILLMENT_DEFAULT_COST_FACTOR"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "dropship-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "dropship", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("supplier defaults cover auth and rate gating", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 5*time.Minute, cfg.Supplier.MinAuthInterval)
		assert.Equal(t, 1100*time.Millisecond, cfg.Supplier.RequestSpacing)
		assert.Equal(t, 30*time.Second, cfg.Supplier.RequestTimeout)
		assert.Equal(t, time.Hour, cfg.Supplier.CategoryCacheTTL)
		assert.Equal(t, 0.7, cfg.Fulfillment.DefaultCostFactor)
	})

	t.Run("loads values from environment variables with DROPSHIP prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_APP_NAME", "test-app")
		os.Setenv("DROPSHIP_APP_PORT", "9000")
		os.Setenv("DROPSHIP_DATABASE_HOST", "testdb.local")
		os.Setenv("DROPSHIP_DATABASE_PORT", "5433")
		os.Setenv("DROPSHIP_SUPPLIER_MIN_AUTH_INTERVAL", "10m")
		os.Setenv("DROPSHIP_SUPPLIER_REQUEST_SPACING", "2s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 10*time.Minute, cfg.Supplier.MinAuthInterval)
		assert.Equal(t, 2*time.Second, cfg.Supplier.RequestSpacing)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("DROPSHIP_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates cost factor range", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_FULFILLMENT_DEFAULT_COST_FACTOR", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "default_cost_factor")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"DROPSHIP_APP_ENV":           os.Getenv("DROPSHIP_APP_ENV"),
		"DROPSHIP_DATABASE_PASSWORD": os.Getenv("DROPSHIP_DATABASE_PASSWORD"),
		"DROPSHIP_DATABASE_SSLMODE":  os.Getenv("DROPSHIP_DATABASE_SSLMODE"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_APP_ENV", "production")
		os.Setenv("DROPSHIP_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_APP_ENV", "production")
		os.Setenv("DROPSHIP_DATABASE_PASSWORD", "secure-password")
		os.Setenv("DROPSHIP_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		os.Setenv("DROPSHIP_APP_ENV", "production")
		os.Setenv("DROPSHIP_DATABASE_PASSWORD", "secure-password")
		os.Setenv("DROPSHIP_DATABASE_SSLMODE", "require")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "pass%40word%23123")
	})
}
