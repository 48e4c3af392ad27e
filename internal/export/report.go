// Package export encodes frontier datasets for consumers outside the engine.
// The engine works in decimals; unit conversion happens here.
package export

import (
	"fmt"
	"strings"

	"github.com/aristath/frontier/internal/modules/optimization"
)

// Format is an output encoding.
type Format string

const (
	FormatTable   Format = "table"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatMsgpack Format = "msgpack"
)

// Formats lists the supported encodings.
func Formats() []Format {
	return []Format{FormatTable, FormatJSON, FormatCSV, FormatMsgpack}
}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want one of table, json, csv, msgpack)", name)
}

// Options controls unit conversion.
type Options struct {
	// Percent scales returns, risks, weights and the risk-free rate by 100.
	// Sharpe ratios are unitless and never scaled.
	Percent bool
}

func (o Options) scale() float64 {
	if o.Percent {
		return 100
	}
	return 1
}

func (o Options) units() string {
	if o.Percent {
		return "percent"
	}
	return "decimal"
}

// WeightEntry is one asset's share of a portfolio.
type WeightEntry struct {
	Asset  string  `json:"asset" msgpack:"asset"`
	Weight float64 `json:"weight" msgpack:"weight"`
}

// PointRecord is a frontier point in output units.
type PointRecord struct {
	Index        int           `json:"index" msgpack:"index"`
	TargetReturn float64       `json:"target_return" msgpack:"target_return"`
	Return       float64       `json:"return" msgpack:"return"`
	Risk         float64       `json:"risk" msgpack:"risk"`
	Sharpe       *float64      `json:"sharpe" msgpack:"sharpe"`
	VaR95        float64       `json:"var_95" msgpack:"var_95"`
	CVaR95       float64       `json:"cvar_95" msgpack:"cvar_95"`
	Optimal      bool          `json:"optimal" msgpack:"optimal"`
	Weights      []WeightEntry `json:"weights" msgpack:"weights"`
}

// SnapshotRecord is the comparison portfolio in output units.
type SnapshotRecord struct {
	Return  float64       `json:"return" msgpack:"return"`
	Risk    float64       `json:"risk" msgpack:"risk"`
	Sharpe  *float64      `json:"sharpe" msgpack:"sharpe"`
	VaR95   float64       `json:"var_95" msgpack:"var_95"`
	CVaR95  float64       `json:"cvar_95" msgpack:"cvar_95"`
	Weights []WeightEntry `json:"weights" msgpack:"weights"`
}

// Report is the serializable form of a FrontierDataset.
type Report struct {
	RunID        string          `json:"run_id" msgpack:"run_id"`
	Units        string          `json:"units" msgpack:"units"`
	Assets       []string        `json:"assets" msgpack:"assets"`
	RiskFreeRate float64         `json:"risk_free_rate" msgpack:"risk_free_rate"`
	Requested    int             `json:"requested" msgpack:"requested"`
	Retained     int             `json:"retained" msgpack:"retained"`
	Points       []PointRecord   `json:"points" msgpack:"points"`
	Optimal      *PointRecord    `json:"optimal" msgpack:"optimal"`
	MinRisk      *PointRecord    `json:"min_risk" msgpack:"min_risk"`
	Current      *SnapshotRecord `json:"current,omitempty" msgpack:"current,omitempty"`
}

// BuildReport converts a dataset into output units. Weights are listed in
// asset order.
func BuildReport(dataset *optimization.FrontierDataset, opts Options) Report {
	scale := opts.scale()
	assets := dataset.Assets()

	report := Report{
		RunID:        dataset.RunID(),
		Units:        opts.units(),
		Assets:       assets,
		RiskFreeRate: dataset.RiskFreeRate() * scale,
		Requested:    dataset.Requested(),
		Retained:     dataset.Len(),
		Points:       make([]PointRecord, 0, dataset.Len()),
	}

	optimalIndex := dataset.OptimalIndex()
	for i, p := range dataset.Points() {
		report.Points = append(report.Points, PointRecord{
			Index:        i,
			TargetReturn: p.TargetReturn * scale,
			Return:       p.Return * scale,
			Risk:         p.Risk * scale,
			Sharpe:       p.Sharpe,
			VaR95:        p.VaR95 * scale,
			CVaR95:       p.CVaR95 * scale,
			Optimal:      i == optimalIndex,
			Weights:      weightEntries(assets, p.Weights, scale),
		})
	}
	if optimalIndex >= 0 {
		optimal := report.Points[optimalIndex]
		report.Optimal = &optimal
	}
	if i := dataset.MinRiskIndex(); i >= 0 {
		minRisk := report.Points[i]
		report.MinRisk = &minRisk
	}

	if current, ok := dataset.Current(); ok {
		report.Current = &SnapshotRecord{
			Return:  current.Return * scale,
			Risk:    current.Risk * scale,
			Sharpe:  current.Sharpe,
			VaR95:   current.VaR95 * scale,
			CVaR95:  current.CVaR95 * scale,
			Weights: weightEntries(assets, current.Weights, scale),
		}
	}

	return report
}

func weightEntries(assets []string, weights []float64, scale float64) []WeightEntry {
	entries := make([]WeightEntry, len(assets))
	for i, asset := range assets {
		entries[i] = WeightEntry{Asset: asset, Weight: weights[i] * scale}
	}
	return entries
}
