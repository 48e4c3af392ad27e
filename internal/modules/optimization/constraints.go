// Package optimization provides mean-variance portfolio optimization: the
// market risk model, portfolio metrics, the constrained minimizer and the
// efficient frontier sweep.
package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// budgetTolerance is the slack allowed on Σlower ≤ 1 ≤ Σupper.
const budgetTolerance = 1e-9

// Bounds is a per-asset box constraint: Lower[i] ≤ w[i] ≤ Upper[i].
type Bounds struct {
	Lower []float64
	Upper []float64
}

// UniformBounds returns n identical [lower, upper] intervals.
func UniformBounds(n int, lower, upper float64) Bounds {
	b := Bounds{Lower: make([]float64, n), Upper: make([]float64, n)}
	for i := 0; i < n; i++ {
		b.Lower[i] = lower
		b.Upper[i] = upper
	}
	return b
}

// Len returns the number of assets covered.
func (b Bounds) Len() int {
	return len(b.Lower)
}

// Clone returns a deep copy.
func (b Bounds) Clone() Bounds {
	return Bounds{
		Lower: append([]float64(nil), b.Lower...),
		Upper: append([]float64(nil), b.Upper...),
	}
}

// Contains reports whether every weight lies within its interval, allowing tol.
func (b Bounds) Contains(w []float64, tol float64) bool {
	if len(w) != len(b.Lower) {
		return false
	}
	for i, wi := range w {
		if wi < b.Lower[i]-tol || wi > b.Upper[i]+tol {
			return false
		}
	}
	return true
}

// ValidateBounds checks that bounds describe a box for n assets.
// Failures wrap ErrInvalidBounds. A box whose sums cannot reach a full
// allocation is valid here; every target is then infeasible.
func ValidateBounds(b Bounds, n int) error {
	if len(b.Lower) != n || len(b.Upper) != n {
		return fmt.Errorf("%w: got %d lower and %d upper bounds for %d assets",
			ErrInvalidBounds, len(b.Lower), len(b.Upper), n)
	}

	for i := 0; i < n; i++ {
		lower, upper := b.Lower[i], b.Upper[i]
		if math.IsNaN(lower) || math.IsInf(lower, 0) || math.IsNaN(upper) || math.IsInf(upper, 0) {
			return fmt.Errorf("%w: asset %d has non-finite bounds", ErrInvalidBounds, i)
		}
		if lower > upper {
			return fmt.Errorf("%w: asset %d has lower=%.4f > upper=%.4f", ErrInvalidBounds, i, lower, upper)
		}
	}

	return nil
}

// ConstraintsSummary summarizes Bounds for diagnostics.
type ConstraintsSummary struct {
	TotalAssets    int
	BoundedAssets  int // lower > 0 or upper < 1
	FixedAssets    int // lower == upper
	TotalMinWeight float64
	TotalMaxWeight float64
	BudgetFeasible bool // Σlower ≤ 1 ≤ Σupper
}

// SummarizeBounds generates a summary of the bounds for logging.
func SummarizeBounds(b Bounds) ConstraintsSummary {
	summary := ConstraintsSummary{TotalAssets: b.Len()}
	for i := range b.Lower {
		if b.Lower[i] > 0 || b.Upper[i] < 1 {
			summary.BoundedAssets++
		}
		if b.Lower[i] == b.Upper[i] {
			summary.FixedAssets++
		}
	}
	summary.TotalMinWeight = floats.Sum(b.Lower)
	summary.TotalMaxWeight = floats.Sum(b.Upper)
	summary.BudgetFeasible = summary.TotalMinWeight <= 1+budgetTolerance &&
		summary.TotalMaxWeight >= 1-budgetTolerance
	return summary
}

// FeasibleReturnRange returns the lowest and highest portfolio return
// reachable by a fully invested portfolio within the bounds.
// Returns ErrInfeasible when no fully invested portfolio fits the box.
func FeasibleReturnRange(expectedReturns []float64, b Bounds) (float64, float64, error) {
	wMin, wMax, err := returnExtremes(expectedReturns, b)
	if err != nil {
		return 0, 0, err
	}
	return floats.Dot(wMin, expectedReturns), floats.Dot(wMax, expectedReturns), nil
}

// returnExtremes returns the fully invested allocations with the lowest and
// highest return under the bounds. Both are computed greedily: start from the
// lower bounds and hand the remaining budget to assets in return order.
func returnExtremes(expectedReturns []float64, b Bounds) ([]float64, []float64, error) {
	summary := SummarizeBounds(b)
	if !summary.BudgetFeasible {
		return nil, nil, fmt.Errorf("%w: bounds admit total weight in [%.4f, %.4f], need 1",
			ErrInfeasible, summary.TotalMinWeight, summary.TotalMaxWeight)
	}

	n := len(expectedReturns)
	sorted := append([]float64(nil), expectedReturns...)
	order := make([]int, n)
	floats.ArgsortStable(sorted, order)

	ascending := order
	descending := make([]int, n)
	for i, idx := range order {
		descending[n-1-i] = idx
	}

	return greedyAllocation(b, ascending), greedyAllocation(b, descending), nil
}

func greedyAllocation(b Bounds, order []int) []float64 {
	w := append([]float64(nil), b.Lower...)
	remaining := 1 - floats.Sum(w)
	for _, i := range order {
		if remaining <= 0 {
			break
		}
		add := math.Min(b.Upper[i]-b.Lower[i], remaining)
		w[i] += add
		remaining -= add
	}
	return w
}
