package formulas

import "math"

// SharpeRatio calculates the Sharpe ratio of a portfolio from its expected
// return and volatility.
//
// Sharpe Ratio Formula:
//
//	Sharpe = (Portfolio Return - Risk-free Rate) / Portfolio Volatility
//
// Args:
//
//	portfolioReturn: Expected portfolio return (decimal, e.g. 0.06 for 6%)
//	volatility: Portfolio standard deviation (same period as the return)
//	riskFreeRate: Risk-free rate (decimal, same period)
//
// Returns:
//
//	Sharpe ratio or nil if volatility is zero, negative or not finite
func SharpeRatio(portfolioReturn, volatility, riskFreeRate float64) *float64 {
	if volatility <= 0 || math.IsNaN(volatility) || math.IsInf(volatility, 0) {
		return nil
	}

	sharpe := (portfolioReturn - riskFreeRate) / volatility
	if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
		return nil
	}

	return &sharpe
}
