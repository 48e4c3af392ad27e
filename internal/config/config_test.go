package config

import (
	"testing"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"LOG_LEVEL",
	"LOG_PRETTY",
	"FRONTIER_UNIVERSE",
	"FRONTIER_POINTS",
	"FRONTIER_WORKERS",
	"FRONTIER_RISK_FREE_RATE",
	"FRONTIER_MAX_ITERATIONS",
	"FRONTIER_TOLERANCE",
	"FRONTIER_FORMAT",
}

// clearEnv blanks every variable Load reads; getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Empty(t, cfg.UniversePath)
	assert.Equal(t, optimization.DefaultSweepPoints, cfg.Points)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, 0.02, cfg.RiskFreeRate)
	assert.Equal(t, 0, cfg.MaxIterations)
	assert.Equal(t, optimization.DefaultTolerance, cfg.Tolerance)
	assert.Equal(t, "table", cfg.Format)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_PRETTY", "false")
	t.Setenv("FRONTIER_UNIVERSE", "/etc/frontier/universe.yaml")
	t.Setenv("FRONTIER_POINTS", "50")
	t.Setenv("FRONTIER_WORKERS", "4")
	t.Setenv("FRONTIER_RISK_FREE_RATE", "0.035")
	t.Setenv("FRONTIER_MAX_ITERATIONS", "500")
	t.Setenv("FRONTIER_TOLERANCE", "1e-7")
	t.Setenv("FRONTIER_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.LogPretty)
	assert.Equal(t, "/etc/frontier/universe.yaml", cfg.UniversePath)
	assert.Equal(t, 50, cfg.Points)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 0.035, cfg.RiskFreeRate)
	assert.Equal(t, 500, cfg.MaxIterations)
	assert.Equal(t, 1e-7, cfg.Tolerance)
	assert.Equal(t, "json", cfg.Format)

	settings := cfg.SolverSettings()
	assert.Equal(t, 500, settings.MaxIterations)
	assert.Equal(t, 1e-7, settings.Tolerance)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("FRONTIER_POINTS", "many")
	t.Setenv("FRONTIER_RISK_FREE_RATE", "two percent")
	t.Setenv("LOG_PRETTY", "sometimes")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, optimization.DefaultSweepPoints, cfg.Points)
	assert.Equal(t, 0.02, cfg.RiskFreeRate)
	assert.True(t, cfg.LogPretty)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"negative points", "FRONTIER_POINTS", "-1"},
		{"negative workers", "FRONTIER_WORKERS", "-2"},
		{"negative iterations", "FRONTIER_MAX_ITERATIONS", "-10"},
		{"zero tolerance", "FRONTIER_TOLERANCE", "0"},
		{"negative tolerance", "FRONTIER_TOLERANCE", "-1e-8"},
		{"unknown format", "FRONTIER_FORMAT", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
