package config

// DefaultUniverse returns the built-in seven asset-class model used when no
// universe file is configured.
func DefaultUniverse() *Universe {
	return &Universe{
		Name: "Balanced asset classes",
		Assets: []AssetConfig{
			{Name: "Cash", ExpectedReturn: 0.028, Volatility: 0.0044},
			{Name: "Bonds", ExpectedReturn: 0.048, Volatility: 0.0461},
			{Name: "Canadian Equity", ExpectedReturn: 0.075, Volatility: 0.1315},
			{Name: "US Equity", ExpectedReturn: 0.064, Volatility: 0.1247},
			{Name: "International Equity", ExpectedReturn: 0.069, Volatility: 0.1397},
			{Name: "Emerging Markets", ExpectedReturn: 0.075, Volatility: 0.1589},
			{Name: "Alternatives", ExpectedReturn: 0.025, Volatility: 0.1488},
		},
		Correlation: [][]float64{
			{1.00, 0.21, -0.09, -0.11, -0.12, 0.02, 0.00},
			{0.21, 1.00, 0.17, 0.33, 0.37, 0.26, -0.07},
			{-0.09, 0.17, 1.00, 0.64, 0.69, 0.35, 0.13},
			{-0.11, 0.33, 0.64, 1.00, 0.59, 0.54, 0.15},
			{-0.12, 0.37, 0.69, 0.59, 1.00, 0.43, 0.13},
			{0.02, 0.26, 0.35, 0.54, 0.43, 1.00, 0.15},
			{0.00, -0.07, 0.13, 0.15, 0.13, 0.15, 1.00},
		},
		Sweep: SweepConfig{Points: 20},
	}
}
