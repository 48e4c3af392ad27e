package optimization

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ModelSpec holds the static inputs of a market model.
// All vectors and the correlation matrix are indexed by Assets order.
type ModelSpec struct {
	Assets          []string
	ExpectedReturns []float64
	Volatilities    []float64
	Correlation     [][]float64

	// SkipPSDCheck disables the positive semi-definiteness check on the
	// correlation matrix. An indefinite matrix then surfaces only as solver
	// failures downstream.
	SkipPSDCheck bool
}

// MarketModel is the read-only risk model: expected returns, volatilities,
// correlations and the covariance matrix derived from them.
// A MarketModel is never mutated after construction and is safe for
// concurrent use.
type MarketModel struct {
	assets          []string
	expectedReturns []float64
	volatilities    []float64
	correlation     [][]float64
	covariance      *mat.SymDense
	cov             []float64 // row-major n×n copy of covariance
}

// NewMarketModel validates the inputs and computes the covariance matrix.
// Every validation failure wraps ErrInvalidModel.
func NewMarketModel(spec ModelSpec, log zerolog.Logger) (*MarketModel, error) {
	log = log.With().Str("component", "market_model").Logger()

	n := len(spec.Assets)
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 assets, got %d", ErrInvalidModel, n)
	}
	if len(spec.ExpectedReturns) != n {
		return nil, fmt.Errorf("%w: %d expected returns for %d assets", ErrInvalidModel, len(spec.ExpectedReturns), n)
	}
	if len(spec.Volatilities) != n {
		return nil, fmt.Errorf("%w: %d volatilities for %d assets", ErrInvalidModel, len(spec.Volatilities), n)
	}

	seen := make(map[string]bool, n)
	for i, name := range spec.Assets {
		if name == "" {
			return nil, fmt.Errorf("%w: asset %d has no name", ErrInvalidModel, i)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate asset %q", ErrInvalidModel, name)
		}
		seen[name] = true
	}

	for i := 0; i < n; i++ {
		mu, vol := spec.ExpectedReturns[i], spec.Volatilities[i]
		if math.IsNaN(mu) || math.IsInf(mu, 0) {
			return nil, fmt.Errorf("%w: expected return of %s is not finite", ErrInvalidModel, spec.Assets[i])
		}
		if math.IsNaN(vol) || math.IsInf(vol, 0) {
			return nil, fmt.Errorf("%w: volatility of %s is not finite", ErrInvalidModel, spec.Assets[i])
		}
		if vol < 0 {
			return nil, fmt.Errorf("%w: volatility of %s is negative (%.6f)", ErrInvalidModel, spec.Assets[i], vol)
		}
	}

	if err := validateCorrelation(spec.Correlation, n); err != nil {
		return nil, err
	}

	if spec.SkipPSDCheck {
		log.Warn().Msg("Positive semi-definiteness check disabled")
	} else if err := checkPositiveSemidefinite(spec.Correlation); err != nil {
		return nil, err
	}

	m := &MarketModel{
		assets:          append([]string(nil), spec.Assets...),
		expectedReturns: append([]float64(nil), spec.ExpectedReturns...),
		volatilities:    append([]float64(nil), spec.Volatilities...),
		correlation:     copyMatrix(spec.Correlation),
	}
	m.covariance, m.cov = buildCovariance(m.volatilities, m.correlation)

	lo, hi := m.ReturnRange()
	log.Debug().
		Int("num_assets", n).
		Float64("min_return", lo).
		Float64("max_return", hi).
		Msg("Built market model")

	for _, pair := range m.HighCorrelations(HighCorrelationThreshold) {
		log.Debug().
			Str("asset_a", pair.AssetA).
			Str("asset_b", pair.AssetB).
			Float64("correlation", pair.Correlation).
			Msg("High correlation detected")
	}

	return m, nil
}

// N returns the number of assets.
func (m *MarketModel) N() int {
	return len(m.assets)
}

// Assets returns the asset names in model order.
func (m *MarketModel) Assets() []string {
	return append([]string(nil), m.assets...)
}

// ExpectedReturns returns a copy of the expected return vector.
func (m *MarketModel) ExpectedReturns() []float64 {
	return append([]float64(nil), m.expectedReturns...)
}

// Volatilities returns a copy of the volatility vector.
func (m *MarketModel) Volatilities() []float64 {
	return append([]float64(nil), m.volatilities...)
}

// Correlation returns a copy of the correlation matrix.
func (m *MarketModel) Correlation() [][]float64 {
	return copyMatrix(m.correlation)
}

// Covariance returns a copy of the covariance matrix.
func (m *MarketModel) Covariance() *mat.SymDense {
	n := m.N()
	cp := mat.NewSymDense(n, nil)
	cp.CopySym(m.covariance)
	return cp
}

// ReturnRange returns the smallest and largest expected return.
func (m *MarketModel) ReturnRange() (float64, float64) {
	return floats.Min(m.expectedReturns), floats.Max(m.expectedReturns)
}

// HighCorrelations returns asset pairs with |ρ| ≥ threshold, strongest first.
func (m *MarketModel) HighCorrelations(threshold float64) []CorrelationPair {
	return highCorrelations(m.assets, m.correlation, threshold)
}

// CorrelatedHoldings returns the pairs with |ρ| ≥ threshold in which both
// assets carry a positive weight in w, strongest first.
func (m *MarketModel) CorrelatedHoldings(w []float64, threshold float64) []CorrelationPair {
	if len(w) != len(m.assets) {
		panic(errWeightLength)
	}

	held := make([]string, 0, len(w))
	for i, wi := range w {
		if wi > 0 {
			held = append(held, m.assets[i])
		}
	}

	lookup := BuildCorrelationMap(m.HighCorrelations(threshold))
	pairs := make([]CorrelationPair, 0)
	for a := 0; a < len(held); a++ {
		for b := a + 1; b < len(held); b++ {
			if rho, ok := lookup[held[a]+":"+held[b]]; ok {
				pairs = append(pairs, CorrelationPair{AssetA: held[a], AssetB: held[b], Correlation: rho})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].Correlation) > math.Abs(pairs[j].Correlation)
	})
	return pairs
}

func copyMatrix(src [][]float64) [][]float64 {
	dst := make([][]float64, len(src))
	for i := range src {
		dst[i] = append([]float64(nil), src[i]...)
	}
	return dst
}
