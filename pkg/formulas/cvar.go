package formulas

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// ParametricCVaR calculates Conditional Value at Risk for normally
// distributed returns: the expected return given that the return falls in
// the worst (1 - confidence) tail.
//
//	CVaR = mean - stdDev * φ(z) / (1 - confidence), z = Φ⁻¹(1 - confidence)
//
// Args:
//   - mean: Expected return
//   - stdDev: Standard deviation of return
//   - confidence: Confidence level (e.g., 0.95 for 95%)
//
// Returns:
//   - CVaR value (negative for losses, positive for gains in tail). The mean
//     is returned when stdDev is zero or confidence is outside (0, 1).
func ParametricCVaR(mean, stdDev, confidence float64) float64 {
	if stdDev <= 0 || confidence <= 0 || confidence >= 1 {
		return mean
	}

	tail := 1 - confidence
	z := distuv.UnitNormal.Quantile(tail)
	return mean - stdDev*distuv.UnitNormal.Prob(z)/tail
}

// ParametricVaR calculates Value at Risk for normally distributed returns:
// the return at the (1 - confidence) quantile.
func ParametricVaR(mean, stdDev, confidence float64) float64 {
	if stdDev <= 0 || confidence <= 0 || confidence >= 1 {
		return mean
	}

	normal := distuv.Normal{
		Mu:    mean,
		Sigma: stdDev,
	}
	return normal.Quantile(1 - confidence)
}
