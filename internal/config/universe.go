package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/aristath/frontier/internal/modules/optimization"
	"gopkg.in/yaml.v3"
)

// currentWeightTolerance is the slack allowed on Σ current_weight = 1.
const currentWeightTolerance = 1e-6

// ErrNoUniverse is returned when the universe file does not exist.
var ErrNoUniverse = errors.New("no universe configured")

// Universe is the static asset configuration read from YAML.
type Universe struct {
	Name         string        `yaml:"name"`
	RiskFreeRate *float64      `yaml:"risk_free_rate,omitempty"`
	Tolerance    *float64      `yaml:"tolerance,omitempty"` // band around current weights
	SkipPSDCheck bool          `yaml:"skip_psd_check"`
	Assets       []AssetConfig `yaml:"assets"`
	Correlation  [][]float64   `yaml:"correlation"`
	Sweep        SweepConfig   `yaml:"sweep"`
}

// AssetConfig describes one asset class.
type AssetConfig struct {
	Name           string   `yaml:"name"`
	ExpectedReturn float64  `yaml:"expected_return"`
	Volatility     float64  `yaml:"volatility"`
	CurrentWeight  *float64 `yaml:"current_weight,omitempty"`
	Lower          *float64 `yaml:"lower,omitempty"`
	Upper          *float64 `yaml:"upper,omitempty"`
}

// SweepConfig holds optional sweep defaults for the universe.
type SweepConfig struct {
	Points      int      `yaml:"points"`
	Low         *float64 `yaml:"low,omitempty"`
	High        *float64 `yaml:"high,omitempty"`
	InwardScale float64  `yaml:"inward_scale"`
}

// LoadUniverse reads and validates a universe file.
func LoadUniverse(path string) (*Universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNoUniverse, path)
		}
		return nil, fmt.Errorf("failed to read universe file %s: %w", path, err)
	}

	var universe Universe
	if err := yaml.Unmarshal(data, &universe); err != nil {
		return nil, fmt.Errorf("failed to parse universe file %s: %w", path, err)
	}

	if err := universe.Validate(); err != nil {
		return nil, fmt.Errorf("invalid universe file %s: %w", path, err)
	}

	return &universe, nil
}

// Validate checks the parts of the universe the market model does not:
// bounds, current weights and sweep settings. Model inputs are checked by
// optimization.NewMarketModel.
func (u *Universe) Validate() error {
	if len(u.Assets) < 2 {
		return fmt.Errorf("universe needs at least 2 assets, got %d", len(u.Assets))
	}

	if u.Tolerance != nil && (*u.Tolerance < 0 || math.IsNaN(*u.Tolerance)) {
		return fmt.Errorf("tolerance must not be negative, got %v", *u.Tolerance)
	}

	for _, a := range u.Assets {
		if a.Lower != nil && a.Upper != nil && *a.Lower > *a.Upper {
			return fmt.Errorf("asset %q: lower %.4f above upper %.4f", a.Name, *a.Lower, *a.Upper)
		}
		if a.CurrentWeight != nil && *a.CurrentWeight < 0 {
			return fmt.Errorf("asset %q: negative current weight %.4f", a.Name, *a.CurrentWeight)
		}
	}

	if current := u.CurrentWeights(); current != nil {
		var total float64
		for _, w := range current {
			total += w
		}
		if math.Abs(total-1) > currentWeightTolerance {
			return fmt.Errorf("current weights sum to %.6f, expected 1", total)
		}
	}

	if u.Sweep.Points < 0 {
		return fmt.Errorf("sweep points must not be negative, got %d", u.Sweep.Points)
	}
	if u.Sweep.InwardScale < 0 || u.Sweep.InwardScale > 1 {
		return fmt.Errorf("sweep inward_scale must be in [0, 1], got %.4f", u.Sweep.InwardScale)
	}

	return nil
}

// AssetNames returns the asset names in file order.
func (u *Universe) AssetNames() []string {
	names := make([]string, len(u.Assets))
	for i, a := range u.Assets {
		names[i] = a.Name
	}
	return names
}

// ModelSpec converts the universe into market model inputs.
func (u *Universe) ModelSpec() optimization.ModelSpec {
	spec := optimization.ModelSpec{
		Assets:          u.AssetNames(),
		ExpectedReturns: make([]float64, len(u.Assets)),
		Volatilities:    make([]float64, len(u.Assets)),
		Correlation:     u.Correlation,
		SkipPSDCheck:    u.SkipPSDCheck,
	}
	for i, a := range u.Assets {
		spec.ExpectedReturns[i] = a.ExpectedReturn
		spec.Volatilities[i] = a.Volatility
	}
	return spec
}

// CurrentWeights returns the current allocation, or nil when no asset sets
// current_weight. Assets without a weight count as 0.
func (u *Universe) CurrentWeights() []float64 {
	var found bool
	weights := make([]float64, len(u.Assets))
	for i, a := range u.Assets {
		if a.CurrentWeight != nil {
			weights[i] = *a.CurrentWeight
			found = true
		}
	}
	if !found {
		return nil
	}
	return weights
}

// Bounds returns the per-asset weight bounds. For each side, an explicit
// lower/upper wins; otherwise the current weight ± tolerance clipped to
// [0, 1] is used when both are configured; otherwise [0, 1].
func (u *Universe) Bounds() optimization.Bounds {
	n := len(u.Assets)
	bounds := optimization.UniformBounds(n, 0, 1)
	current := u.CurrentWeights()

	for i, a := range u.Assets {
		if current != nil && u.Tolerance != nil {
			bounds.Lower[i] = math.Max(0, current[i]-*u.Tolerance)
			bounds.Upper[i] = math.Min(1, current[i]+*u.Tolerance)
		}
		if a.Lower != nil {
			bounds.Lower[i] = *a.Lower
		}
		if a.Upper != nil {
			bounds.Upper[i] = *a.Upper
		}
	}

	return bounds
}

// RiskFree returns the universe risk-free rate, or fallback when unset.
func (u *Universe) RiskFree(fallback float64) float64 {
	if u.RiskFreeRate != nil {
		return *u.RiskFreeRate
	}
	return fallback
}
