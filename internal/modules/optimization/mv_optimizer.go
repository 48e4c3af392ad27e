package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultTolerance is the residual allowed on every constraint of a
	// returned solution.
	DefaultTolerance = 1e-8

	// ridgeFactor regularizes the scaled Hessian so that degenerate covariance
	// directions never make a KKT system singular.
	ridgeFactor = 1e-10

	// returnSpreadTolerance is the return interval width below which the
	// return constraint collapses into the budget constraint.
	returnSpreadTolerance = 1e-12
)

// SolverSettings configures the constrained minimizer.
type SolverSettings struct {
	// MaxIterations caps active-set iterations. Zero means 50·N + 100.
	MaxIterations int
	// Tolerance on Σw, μ'w and bounds for an accepted solution.
	// Zero means DefaultTolerance.
	Tolerance float64
}

// DefaultSolverSettings returns the settings used when none are supplied.
func DefaultSolverSettings() SolverSettings {
	return SolverSettings{Tolerance: DefaultTolerance}
}

// Solution is a minimum-risk allocation for one target return.
type Solution struct {
	Weights    []float64
	Return     float64
	Risk       float64
	Iterations int
}

// MVOptimizer performs mean-variance portfolio optimization: for a target
// return it finds the fully invested allocation with the lowest volatility
// under per-asset bounds.
//
// The optimizer holds no mutable state and is safe for concurrent use.
type MVOptimizer struct {
	model    *MarketModel
	settings SolverSettings
	hessian  []float64 // covariance scaled to unit max diagonal, plus ridge
	log      zerolog.Logger
}

// NewMVOptimizer creates a new mean-variance optimizer over model.
func NewMVOptimizer(model *MarketModel, settings SolverSettings, log zerolog.Logger) *MVOptimizer {
	n := model.N()
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = 50*n + 100
	}
	if settings.Tolerance <= 0 {
		settings.Tolerance = DefaultTolerance
	}

	scale := 0.0
	for i := 0; i < n; i++ {
		scale = math.Max(scale, model.cov[i*n+i])
	}
	if scale == 0 {
		scale = 1
	}

	hessian := make([]float64, n*n)
	for i := range hessian {
		hessian[i] = model.cov[i] / scale
	}
	for i := 0; i < n; i++ {
		hessian[i*n+i] += ridgeFactor
	}

	return &MVOptimizer{
		model:    model,
		settings: settings,
		hessian:  hessian,
		log:      log.With().Str("component", "mv_optimizer").Logger(),
	}
}

// Model returns the market model the optimizer works on.
func (mvo *MVOptimizer) Model() *MarketModel {
	return mvo.model
}

// Settings returns the effective solver settings.
func (mvo *MVOptimizer) Settings() SolverSettings {
	return mvo.settings
}

// EfficientReturn minimizes w'Σw subject to Σw = 1, μ'w = targetReturn and
// bounds.Lower ≤ w ≤ bounds.Upper.
//
// initial is used as the starting point when it already satisfies every
// constraint; otherwise a feasible point is constructed from the bounds, so
// a poor guess never causes a spurious failure. initial may be nil.
//
// Errors wrapping ErrInfeasible or ErrNotConverged mean there is no solution
// for this target (see IsNoSolution). ErrInvalidBounds and length mismatches
// are caller errors.
func (mvo *MVOptimizer) EfficientReturn(bounds Bounds, initial []float64, targetReturn float64) (*Solution, error) {
	n := mvo.model.N()
	tol := mvo.settings.Tolerance

	if err := ValidateBounds(bounds, n); err != nil {
		return nil, err
	}
	if initial != nil && len(initial) != n {
		return nil, fmt.Errorf("initial guess has %d weights for %d assets", len(initial), n)
	}
	if math.IsNaN(targetReturn) || math.IsInf(targetReturn, 0) {
		return nil, fmt.Errorf("%w: target return is not finite", ErrInfeasible)
	}

	mu := mvo.model.expectedReturns
	wMin, wMax, err := returnExtremes(mu, bounds)
	if err != nil {
		return nil, err
	}
	lo, hi := floats.Dot(wMin, mu), floats.Dot(wMax, mu)

	if targetReturn < lo-tol || targetReturn > hi+tol {
		return nil, fmt.Errorf("%w: target return %.6f outside achievable range [%.6f, %.6f]",
			ErrInfeasible, targetReturn, lo, hi)
	}
	target := math.Min(math.Max(targetReturn, lo), hi)
	degenerate := hi-lo <= returnSpreadTolerance*math.Max(1, math.Abs(hi))

	start := mvo.startingPoint(bounds, initial, target, wMin, wMax, lo, hi, degenerate)

	problem := &qpProblem{
		n:     n,
		h:     mvo.hessian,
		e:     [][]float64{ones(n)},
		f:     []float64{1},
		lower: bounds.Lower,
		upper: bounds.Upper,
	}
	if !degenerate {
		problem.e = append(problem.e, mu)
		problem.f = append(problem.f, target)
	}

	result, err := solveQP(problem, start, mvo.settings.MaxIterations)
	if err != nil {
		mvo.log.Debug().
			Err(err).
			Float64("target_return", targetReturn).
			Msg("Active-set solve failed")
		return nil, err
	}

	w := result.x
	for i := range w {
		w[i] = math.Min(math.Max(w[i], bounds.Lower[i]), bounds.Upper[i])
	}

	if err := mvo.verify(w, bounds, target); err != nil {
		return nil, err
	}

	solution := &Solution{
		Weights:    w,
		Return:     mvo.model.PortfolioReturn(w),
		Risk:       mvo.model.PortfolioRisk(w),
		Iterations: result.iterations,
	}

	mvo.log.Debug().
		Float64("target_return", targetReturn).
		Float64("risk", solution.Risk).
		Int("iterations", solution.Iterations).
		Msg("Solved efficient return")

	return solution, nil
}

// startingPoint returns a feasible point for the active-set method.
func (mvo *MVOptimizer) startingPoint(
	bounds Bounds,
	initial []float64,
	target float64,
	wMin, wMax []float64,
	lo, hi float64,
	degenerate bool,
) []float64 {
	if initial != nil && mvo.isFeasible(initial, bounds, target) {
		start := append([]float64(nil), initial...)
		for i := range start {
			start[i] = math.Min(math.Max(start[i], bounds.Lower[i]), bounds.Upper[i])
		}
		return start
	}

	if degenerate {
		return append([]float64(nil), wMin...)
	}

	// μ'w is linear, so mixing the two extremes hits the target exactly.
	theta := (target - lo) / (hi - lo)
	start := make([]float64, len(wMin))
	for i := range start {
		start[i] = wMin[i] + theta*(wMax[i]-wMin[i])
	}
	return start
}

func (mvo *MVOptimizer) isFeasible(w []float64, bounds Bounds, target float64) bool {
	tol := mvo.settings.Tolerance
	if !bounds.Contains(w, tol) {
		return false
	}
	if math.Abs(floats.Sum(w)-1) > tol {
		return false
	}
	return math.Abs(mvo.model.PortfolioReturn(w)-target) <= tol
}

// verify re-checks the final allocation against every constraint.
func (mvo *MVOptimizer) verify(w []float64, bounds Bounds, target float64) error {
	tol := mvo.settings.Tolerance

	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: solution has non-finite weights", ErrNotConverged)
		}
	}
	if sum := floats.Sum(w); math.Abs(sum-1) > tol {
		return fmt.Errorf("%w: weights sum to %.10f", ErrNotConverged, sum)
	}
	if ret := mvo.model.PortfolioReturn(w); math.Abs(ret-target) > tol {
		return fmt.Errorf("%w: return %.10f misses target %.10f", ErrNotConverged, ret, target)
	}
	if !bounds.Contains(w, tol) {
		return fmt.Errorf("%w: solution violates bounds", ErrNotConverged)
	}
	return nil
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}
