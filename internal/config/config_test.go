package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "EUR", cfg.BaseCurrency)
	assert.Equal(t, 50, cfg.Iterations)
	assert.Equal(t, 0.0, cfg.Gamma)
	assert.Equal(t, 20, cfg.FrontierPoints)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GO_PORT", "9100")
	t.Setenv("BASE_CURRENCY", "USD")
	t.Setenv("OPT_ITERATIONS", "10")
	t.Setenv("OPT_GAMMA", "0.25")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.Equal(t, 10, cfg.Iterations)
	assert.Equal(t, 0.25, cfg.Gamma)
	assert.True(t, cfg.DevMode)
}

func TestLoad_InvalidNumericFallsBack(t *testing.T) {
	t.Setenv("OPT_ITERATIONS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Iterations)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := &Config{BaseCurrency: "", Iterations: 50, FrontierPoints: 20}
	assert.Error(t, cfg.Validate())

	cfg = &Config{BaseCurrency: "EUR", Iterations: 0, FrontierPoints: 20}
	assert.Error(t, cfg.Validate())

	cfg = &Config{BaseCurrency: "EUR", Iterations: 50, FrontierPoints: 0}
	assert.Error(t, cfg.Validate())
}
