package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.EqualValues(t, 30, cfg.UnitCost)
	assert.Equal(t, 1800*time.Second, cfg.SessionTTL)
	assert.Equal(t, "SBSIMPLE00", cfg.UnlimitedCoupon)
	assert.Equal(t, []int64{30, 90, 300}, cfg.DepositAmounts)
	assert.False(t, cfg.AuditUnlimited)
	assert.NotEmpty(t, cfg.SessionSecret, "a secret is generated when none is configured")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("UNIT_COST", "50")
	t.Setenv("SESSION_TTL", "60s")
	t.Setenv("UNLIMITED_COUPON", "GOLDEN01")
	t.Setenv("DEPOSIT_AMOUNTS", "10,20")
	t.Setenv("AUDIT_UNLIMITED", "true")
	t.Setenv("SESSION_SECRET", "configured-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.EqualValues(t, 50, cfg.UnitCost)
	assert.Equal(t, time.Minute, cfg.SessionTTL)
	assert.Equal(t, "GOLDEN01", cfg.UnlimitedCoupon)
	assert.Equal(t, []int64{10, 20}, cfg.DepositAmounts)
	assert.True(t, cfg.AuditUnlimited)
	assert.Equal(t, "configured-secret", cfg.SessionSecret)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("UNIT_COST", "0")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("UNIT_COST", "30")
	t.Setenv("SESSION_TTL", "-5s")
	_, err = Load()
	require.Error(t, err)
}
