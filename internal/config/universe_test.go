package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/frontier/internal/modules/optimization"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeUniverse(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "universe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const threeAssetUniverse = `
name: Test universe
risk_free_rate: 0.03
tolerance: 0.1
assets:
  - name: Bonds
    expected_return: 0.04
    volatility: 0.05
    current_weight: 0.5
  - name: Stocks
    expected_return: 0.08
    volatility: 0.15
    current_weight: 0.45
    upper: 0.7
  - name: Gold
    expected_return: 0.03
    volatility: 0.12
    current_weight: 0.05
    lower: 0.0
correlation:
  - [1.0, 0.2, 0.1]
  - [0.2, 1.0, 0.0]
  - [0.1, 0.0, 1.0]
sweep:
  points: 12
  inward_scale: 0.9
`

func TestLoadUniverse(t *testing.T) {
	universe, err := LoadUniverse(writeUniverse(t, threeAssetUniverse))
	require.NoError(t, err)

	assert.Equal(t, "Test universe", universe.Name)
	assert.Equal(t, []string{"Bonds", "Stocks", "Gold"}, universe.AssetNames())
	assert.Equal(t, 0.03, universe.RiskFree(0.02))
	assert.Equal(t, 12, universe.Sweep.Points)
	assert.Equal(t, 0.9, universe.Sweep.InwardScale)
	assert.Nil(t, universe.Sweep.Low)

	spec := universe.ModelSpec()
	assert.Equal(t, []float64{0.04, 0.08, 0.03}, spec.ExpectedReturns)
	assert.Equal(t, []float64{0.05, 0.15, 0.12}, spec.Volatilities)
	assert.False(t, spec.SkipPSDCheck)

	_, err = optimization.NewMarketModel(spec, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []float64{0.5, 0.45, 0.05}, universe.CurrentWeights())
}

func TestLoadUniverse_Missing(t *testing.T) {
	_, err := LoadUniverse(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, ErrNoUniverse)
}

func TestLoadUniverse_Malformed(t *testing.T) {
	_, err := LoadUniverse(writeUniverse(t, "assets: [name: {"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoUniverse)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestUniverse_Validate(t *testing.T) {
	two := func() []AssetConfig {
		return []AssetConfig{
			{Name: "A", ExpectedReturn: 0.05, Volatility: 0.1},
			{Name: "B", ExpectedReturn: 0.08, Volatility: 0.2},
		}
	}

	tests := []struct {
		name    string
		mutate  func(u *Universe)
		wantErr string
	}{
		{"valid", func(u *Universe) {}, ""},
		{"single asset", func(u *Universe) { u.Assets = u.Assets[:1] }, "at least 2 assets"},
		{"negative tolerance", func(u *Universe) { u.Tolerance = floatPtr(-0.1) }, "tolerance"},
		{"inverted bounds", func(u *Universe) {
			u.Assets[0].Lower = floatPtr(0.6)
			u.Assets[0].Upper = floatPtr(0.4)
		}, "lower 0.6000 above upper 0.4000"},
		{"negative current weight", func(u *Universe) {
			u.Assets[0].CurrentWeight = floatPtr(-0.2)
			u.Assets[1].CurrentWeight = floatPtr(1.2)
		}, "negative current weight"},
		{"current weights off budget", func(u *Universe) {
			u.Assets[0].CurrentWeight = floatPtr(0.3)
			u.Assets[1].CurrentWeight = floatPtr(0.3)
		}, "current weights sum to 0.600000"},
		{"negative points", func(u *Universe) { u.Sweep.Points = -3 }, "sweep points"},
		{"inward scale above one", func(u *Universe) { u.Sweep.InwardScale = 1.5 }, "inward_scale"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &Universe{
				Assets:      two(),
				Correlation: [][]float64{{1, 0}, {0, 1}},
			}
			tt.mutate(u)

			err := u.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUniverse_Bounds(t *testing.T) {
	universe, err := LoadUniverse(writeUniverse(t, threeAssetUniverse))
	require.NoError(t, err)

	bounds := universe.Bounds()

	// Bonds: current 0.5 ± 0.1
	assert.InDelta(t, 0.4, bounds.Lower[0], 1e-12)
	assert.InDelta(t, 0.6, bounds.Upper[0], 1e-12)
	// Stocks: tolerance band below, explicit upper
	assert.InDelta(t, 0.35, bounds.Lower[1], 1e-12)
	assert.Equal(t, 0.7, bounds.Upper[1])
	// Gold: band clipped at zero, explicit lower
	assert.Equal(t, 0.0, bounds.Lower[2])
	assert.InDelta(t, 0.15, bounds.Upper[2], 1e-12)

	require.NoError(t, optimization.ValidateBounds(bounds, 3))
}

func TestUniverse_Bounds_NoCurrentWeights(t *testing.T) {
	u := DefaultUniverse()
	u.Tolerance = floatPtr(0.05)

	bounds := u.Bounds()
	assert.Equal(t, optimization.UniformBounds(len(u.Assets), 0, 1), bounds)
	assert.Nil(t, u.CurrentWeights())
}

func TestUniverse_RiskFreeFallback(t *testing.T) {
	u := DefaultUniverse()
	assert.Equal(t, 0.02, u.RiskFree(0.02))
}

func TestDefaultUniverse(t *testing.T) {
	u := DefaultUniverse()
	require.NoError(t, u.Validate())
	assert.Len(t, u.Assets, 7)
	assert.Equal(t, 20, u.Sweep.Points)

	model, err := optimization.NewMarketModel(u.ModelSpec(), zerolog.Nop())
	require.NoError(t, err)

	low, high := model.ReturnRange()
	assert.Equal(t, 0.025, low)
	assert.Equal(t, 0.075, high)
}

func floatPtr(v float64) *float64 {
	return &v
}
