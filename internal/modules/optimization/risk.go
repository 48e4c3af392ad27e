package optimization

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Constants for risk model validation
const (
	HighCorrelationThreshold = 0.80  // 80% correlation is considered "high"
	symmetryTolerance        = 1e-8  // max |ρ_ij - ρ_ji|
	diagonalTolerance        = 1e-8  // max |ρ_ii - 1|
	correlationRangeSlack    = 1e-12 // rounding slack on the [-1, 1] check
	psdEigenTolerance        = 1e-10 // smallest eigenvalue allowed below zero
)

// CorrelationPair is a pair of assets whose correlation crossed a threshold.
type CorrelationPair struct {
	AssetA      string  `json:"asset_a" msgpack:"asset_a"`
	AssetB      string  `json:"asset_b" msgpack:"asset_b"`
	Correlation float64 `json:"correlation" msgpack:"correlation"`
}

// buildCovariance computes Cov[i][j] = σ_i σ_j ρ_ij.
// Returns the gonum symmetric matrix and a flat row-major copy used by the
// metric hot path.
func buildCovariance(volatilities []float64, correlation [][]float64) (*mat.SymDense, []float64) {
	n := len(volatilities)
	flat := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			// Symmetrize from the upper triangle so tiny input asymmetries
			// do not leak into the risk model.
			r := correlation[i][j]
			if j < i {
				r = correlation[j][i]
			}
			flat[i*n+j] = volatilities[i] * volatilities[j] * r
		}
	}

	data := make([]float64, len(flat))
	copy(data, flat)
	return mat.NewSymDense(n, data), flat
}

// validateCorrelation checks shape, range, symmetry and unit diagonal.
func validateCorrelation(correlation [][]float64, n int) error {
	if len(correlation) != n {
		return fmt.Errorf("%w: correlation matrix has %d rows, expected %d", ErrInvalidModel, len(correlation), n)
	}
	for i, row := range correlation {
		if len(row) != n {
			return fmt.Errorf("%w: correlation row %d has size %d, expected %d", ErrInvalidModel, i, len(row), n)
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := correlation[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: correlation[%d][%d] is not finite", ErrInvalidModel, i, j)
			}
			if v < -1-correlationRangeSlack || v > 1+correlationRangeSlack {
				return fmt.Errorf("%w: correlation[%d][%d] = %.6f outside [-1, 1]", ErrInvalidModel, i, j, v)
			}
			if j > i && math.Abs(v-correlation[j][i]) > symmetryTolerance {
				return fmt.Errorf("%w: correlation matrix not symmetric at (%d, %d): %.6f vs %.6f",
					ErrInvalidModel, i, j, v, correlation[j][i])
			}
		}
		if math.Abs(correlation[i][i]-1) > diagonalTolerance {
			return fmt.Errorf("%w: correlation[%d][%d] = %.6f, diagonal must be 1", ErrInvalidModel, i, i, correlation[i][i])
		}
	}

	return nil
}

// checkPositiveSemidefinite rejects correlation matrices with a negative
// eigenvalue. Runs on the correlation matrix so the test is scale free.
func checkPositiveSemidefinite(correlation [][]float64) error {
	n := len(correlation)
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, correlation[i][j])
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return fmt.Errorf("%w: eigendecomposition of correlation matrix failed", ErrInvalidModel)
	}

	// Values are returned in ascending order
	values := eig.Values(nil)
	if values[0] < -psdEigenTolerance {
		return fmt.Errorf("%w: correlation matrix is not positive semi-definite (smallest eigenvalue %.3e)",
			ErrInvalidModel, values[0])
	}

	return nil
}

// highCorrelations extracts pairs with |ρ| ≥ threshold, strongest first.
// Ties keep matrix order.
func highCorrelations(assets []string, correlation [][]float64, threshold float64) []CorrelationPair {
	pairs := make([]CorrelationPair, 0)
	for i := 0; i < len(assets); i++ {
		for j := i + 1; j < len(assets); j++ {
			if math.Abs(correlation[i][j]) >= threshold {
				pairs = append(pairs, CorrelationPair{
					AssetA:      assets[i],
					AssetB:      assets[j],
					Correlation: correlation[i][j],
				})
			}
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool {
		return math.Abs(pairs[a].Correlation) > math.Abs(pairs[b].Correlation)
	})
	return pairs
}

// BuildCorrelationMap converts a slice of CorrelationPair to a map for efficient lookups.
// The map uses keys in "A:B" format and stores both orderings for symmetric access.
func BuildCorrelationMap(pairs []CorrelationPair) map[string]float64 {
	correlationMap := make(map[string]float64, len(pairs)*2)

	for _, pair := range pairs {
		correlationMap[pair.AssetA+":"+pair.AssetB] = pair.Correlation
		correlationMap[pair.AssetB+":"+pair.AssetA] = pair.Correlation
	}

	return correlationMap
}
