package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the tests touch; viper ignores empty env values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STOCKROOM_APP_NAME",
		"STOCKROOM_APP_ENV",
		"STOCKROOM_DATABASE_DRIVER",
		"STOCKROOM_DATABASE_HOST",
		"STOCKROOM_DATABASE_PORT",
		"STOCKROOM_DATABASE_PASSWORD",
		"STOCKROOM_DATABASE_SSLMODE",
		"STOCKROOM_DATABASE_MAX_OPEN_CONNS",
		"STOCKROOM_DATABASE_MAX_IDLE_CONNS",
		"STOCKROOM_DATABASE_LOCK_TIMEOUT",
		"STOCKROOM_NUMBERING_BASE_TERM",
		"STOCKROOM_NUMBERING_ORDER_PREFIX",
		"STOCKROOM_NUMBERING_ORDER_WIDTH",
		"STOCKROOM_PROCUREMENT_RECALCULATE_SUBTOTAL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "stockroom", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5*time.Second, cfg.Database.LockTimeout)
		assert.Equal(t, 56, cfg.Numbering.BaseTerm)
		assert.Equal(t, 2024, cfg.Numbering.BaseYear)
		assert.Equal(t, SchemeConfig{Prefix: "PO", Width: 5}, cfg.Numbering.Order)
		assert.Equal(t, SchemeConfig{Prefix: "SG", Width: 6}, cfg.Numbering.Item)
		assert.Equal(t, SchemeConfig{Prefix: "S", Width: 6}, cfg.Numbering.Journal)
		assert.False(t, cfg.Procurement.RecalculateSubtotal)
		assert.Equal(t, 24*time.Hour, cfg.Procurement.IdempotencyTTL)
	})

	t.Run("loads values from environment variables with STOCKROOM prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STOCKROOM_DATABASE_DRIVER", "sqlite")
		t.Setenv("STOCKROOM_DATABASE_LOCK_TIMEOUT", "750ms")
		t.Setenv("STOCKROOM_NUMBERING_BASE_TERM", "60")
		t.Setenv("STOCKROOM_NUMBERING_ORDER_PREFIX", "PX")
		t.Setenv("STOCKROOM_NUMBERING_ORDER_WIDTH", "7")
		t.Setenv("STOCKROOM_PROCUREMENT_RECALCULATE_SUBTOTAL", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, 750*time.Millisecond, cfg.Database.LockTimeout)
		assert.Equal(t, 60, cfg.Numbering.BaseTerm)
		assert.Equal(t, SchemeConfig{Prefix: "PX", Width: 7}, cfg.Numbering.Order)
		assert.True(t, cfg.Procurement.RecalculateSubtotal)
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STOCKROOM_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects oversized sequence width", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STOCKROOM_NUMBERING_ORDER_WIDTH", "30")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "numbering.order.width")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STOCKROOM_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("STOCKROOM_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STOCKROOM_APP_ENV", "production")
		t.Setenv("STOCKROOM_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("rejects sqlite in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STOCKROOM_APP_ENV", "production")
		t.Setenv("STOCKROOM_DATABASE_DRIVER", "sqlite")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be postgres in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STOCKROOM_APP_ENV", "production")
		t.Setenv("STOCKROOM_DATABASE_PASSWORD", "secure-password")
		t.Setenv("STOCKROOM_DATABASE_SSLMODE", "require")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "pass%40word%23123")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("sqlite uses the file path", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: "sqlite", Path: "/tmp/stock.db"}
		assert.Equal(t, "/tmp/stock.db", cfg.DSN())
	})
}
