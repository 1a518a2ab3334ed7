package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, 2*time.Minute, cfg.DashboardCacheTTL)
	assert.Equal(t, 30, cfg.InventoryExpiryWarningDays)
	assert.Equal(t, 72*time.Hour, cfg.IdempotencyRetention)
	assert.False(t, cfg.BillingAllowExpiredSale)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigProductionSecretLength(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "too-short")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "32 bytes")

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsNonPositiveSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("RATE_LIMIT_PER_MINUTE", "60")
	t.Setenv("INVENTORY_EXPIRY_WARNING_DAYS", "-1")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestInTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
