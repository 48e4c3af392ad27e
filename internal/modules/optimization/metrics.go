package optimization

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const errWeightLength = "optimization: weight vector length does not match asset count"

// PortfolioReturn returns μ'w.
func (m *MarketModel) PortfolioReturn(w []float64) float64 {
	if len(w) != len(m.expectedReturns) {
		panic(errWeightLength)
	}
	return floats.Dot(w, m.expectedReturns)
}

// PortfolioVariance returns w'Σw. The result may be slightly negative for
// near-riskless portfolios because of rounding.
func (m *MarketModel) PortfolioVariance(w []float64) float64 {
	n := len(m.expectedReturns)
	if len(w) != n {
		panic(errWeightLength)
	}
	var variance float64
	for i := 0; i < n; i++ {
		if w[i] == 0 {
			continue
		}
		row := m.cov[i*n : (i+1)*n]
		var s float64
		for j, wj := range w {
			s += row[j] * wj
		}
		variance += w[i] * s
	}
	return variance
}

// PortfolioRisk returns the portfolio volatility sqrt(w'Σw).
// The radicand is clamped at zero so the result is never NaN.
func (m *MarketModel) PortfolioRisk(w []float64) float64 {
	return math.Sqrt(math.Max(0, m.PortfolioVariance(w)))
}
