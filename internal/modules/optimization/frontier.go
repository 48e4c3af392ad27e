package optimization

import (
	"context"
	"fmt"
	"math"

	"github.com/aristath/frontier/internal/progress"
	"github.com/aristath/frontier/internal/workers"
	"github.com/aristath/frontier/pkg/formulas"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultSweepPoints is the number of target returns swept when neither
	// Targets nor Points is set.
	DefaultSweepPoints = 20

	// riskConfidence is the confidence level of the reported VaR and CVaR.
	riskConfidence = 0.95
)

// SweepParams configures one frontier sweep.
type SweepParams struct {
	// Targets lists the target returns explicitly. When set, Low, High,
	// Points and InwardScale are ignored.
	Targets []float64

	// Low and High bound the evenly spaced targets. nil means the lowest and
	// highest expected return of the model.
	Low  *float64
	High *float64
	// Points is the number of evenly spaced targets (0 = DefaultSweepPoints).
	Points int
	// InwardScale in (0, 1] shrinks [Low, High] toward its midpoint.
	// 0 means no scaling.
	InwardScale float64

	// Bounds applies to every target. An empty Bounds means [0, 1] per asset.
	Bounds Bounds
	// Initial is the starting guess for every target (nil = uniform).
	Initial []float64
	// Current is an optional allocation summarized alongside the frontier.
	Current []float64

	RiskFreeRate float64
	Progress     progress.Callback
}

// FrontierSweep drives the optimizer across a range of target returns.
type FrontierSweep struct {
	optimizer *MVOptimizer
	pool      *workers.WorkerPool
	log       zerolog.Logger
}

// NewFrontierSweep creates a sweep over optimizer. pool may be nil, in which
// case a pool sized to the CPU count is used.
func NewFrontierSweep(optimizer *MVOptimizer, pool *workers.WorkerPool, log zerolog.Logger) *FrontierSweep {
	if pool == nil {
		pool = workers.NewWorkerPool(0)
	}
	return &FrontierSweep{
		optimizer: optimizer,
		pool:      pool,
		log:       log.With().Str("component", "frontier_sweep").Logger(),
	}
}

// TargetReturns returns n evenly spaced values from low to high inclusive.
// n == 1 yields [low]; n ≤ 0 yields nil.
func TargetReturns(low, high float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{low}
	}
	targets := floats.Span(make([]float64, n), low, high)
	targets[n-1] = high
	return targets
}

// targets resolves the target returns for model.
func (p SweepParams) targets(model *MarketModel) ([]float64, error) {
	if len(p.Targets) > 0 {
		for i, t := range p.Targets {
			if math.IsNaN(t) || math.IsInf(t, 0) {
				return nil, fmt.Errorf("target return %d is not finite", i)
			}
		}
		return append([]float64(nil), p.Targets...), nil
	}

	low, high := model.ReturnRange()
	if p.Low != nil {
		low = *p.Low
	}
	if p.High != nil {
		high = *p.High
	}
	if math.IsNaN(low) || math.IsNaN(high) || math.IsInf(low, 0) || math.IsInf(high, 0) {
		return nil, fmt.Errorf("sweep range [%v, %v] is not finite", low, high)
	}
	if low > high {
		return nil, fmt.Errorf("sweep range is inverted: low=%.6f > high=%.6f", low, high)
	}

	if p.InwardScale != 0 {
		if p.InwardScale < 0 || p.InwardScale > 1 {
			return nil, fmt.Errorf("inward scale must be in (0, 1], got %.4f", p.InwardScale)
		}
		mid := (low + high) / 2
		half := (high - low) / 2 * p.InwardScale
		low, high = mid-half, mid+half
	}

	points := p.Points
	if points < 0 {
		return nil, fmt.Errorf("points must not be negative, got %d", points)
	}
	if points == 0 {
		points = DefaultSweepPoints
	}

	return TargetReturns(low, high, points), nil
}

// Run solves every target return and assembles the frontier.
//
// Targets without a solution are dropped. Any other error aborts the sweep,
// as does cancellation of ctx. A sweep that retains no point returns an
// error wrapping ErrEmptyFrontier.
func (fs *FrontierSweep) Run(ctx context.Context, params SweepParams) (*FrontierDataset, error) {
	model := fs.optimizer.Model()
	n := model.N()

	runID := uuid.New().String()
	log := fs.log.With().Str("run_id", runID).Logger()

	bounds := params.Bounds
	if bounds.Len() == 0 && len(bounds.Upper) == 0 {
		bounds = UniformBounds(n, 0, 1)
	}
	if err := ValidateBounds(bounds, n); err != nil {
		return nil, err
	}

	targets, err := params.targets(model)
	if err != nil {
		return nil, err
	}

	initial := params.Initial
	if initial == nil {
		initial = make([]float64, n)
		for i := range initial {
			initial[i] = 1 / float64(n)
		}
	} else if len(initial) != n {
		return nil, fmt.Errorf("initial guess has %d weights for %d assets", len(initial), n)
	}
	if params.Current != nil && len(params.Current) != n {
		return nil, fmt.Errorf("current portfolio has %d weights for %d assets", len(params.Current), n)
	}

	summary := SummarizeBounds(bounds)
	log.Info().
		Int("targets", len(targets)).
		Int("workers", fs.pool.Size()).
		Int("bounded_assets", summary.BoundedAssets).
		Int("fixed_assets", summary.FixedAssets).
		Float64("risk_free_rate", params.RiskFreeRate).
		Msg("Starting frontier sweep")

	counter := progress.NewCounter(params.Progress, len(targets))

	solutions, err := workers.Map(ctx, fs.pool, targets, func(ctx context.Context, i int, target float64) (*Solution, error) {
		guess := append([]float64(nil), initial...)
		solution, err := fs.optimizer.EfficientReturn(bounds, guess, target)
		if err != nil {
			if !IsNoSolution(err) {
				return nil, fmt.Errorf("target return %.6f: %w", target, err)
			}
			log.Debug().
				Err(err).
				Int("index", i).
				Float64("target_return", target).
				Msg("Dropping target return without solution")
			counter.Step(fmt.Sprintf("Target %.4f has no solution", target))
			return nil, nil
		}
		counter.Step(fmt.Sprintf("Solved target %.4f", target))
		return solution, nil
	})
	if err != nil {
		return nil, err
	}

	points := make([]FrontierPoint, 0, len(targets))
	for i, solution := range solutions {
		if solution == nil {
			continue
		}
		points = append(points, FrontierPoint{
			TargetReturn: targets[i],
			Return:       solution.Return,
			Risk:         solution.Risk,
			Weights:      solution.Weights,
			Sharpe:       formulas.SharpeRatio(targets[i], solution.Risk, params.RiskFreeRate),
			VaR95:        formulas.ParametricVaR(solution.Return, solution.Risk, riskConfidence),
			CVaR95:       formulas.ParametricCVaR(solution.Return, solution.Risk, riskConfidence),
		})
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: none of %d target returns produced a solution", ErrEmptyFrontier, len(targets))
	}

	var current *PortfolioSnapshot
	if params.Current != nil {
		snapshot := Snapshot(model, params.Current, params.RiskFreeRate)
		current = &snapshot
	}

	dataset := newFrontierDataset(runID, model.Assets(), points, len(targets), params.RiskFreeRate, current)

	event := log.Info().
		Int("requested", dataset.Requested()).
		Int("retained", dataset.Len())
	if optimal, ok := dataset.Optimal(); ok {
		event = event.
			Float64("optimal_return", optimal.Return).
			Float64("optimal_risk", optimal.Risk).
			Float64("optimal_sharpe", *optimal.Sharpe)
	}
	if minRisk, ok := dataset.MinRisk(); ok {
		event = event.Float64("min_risk", minRisk.Risk)
	}
	event.Msg("Frontier sweep complete")

	if dataset.Dropped() > 0 {
		log.Warn().
			Int("requested", dataset.Requested()).
			Int("retained", dataset.Len()).
			Msg("Frontier has fewer points than requested")
	}

	return dataset, nil
}

// Snapshot summarizes an arbitrary allocation under model. weights must have
// one entry per asset.
func Snapshot(model *MarketModel, weights []float64, riskFreeRate float64) PortfolioSnapshot {
	ret := model.PortfolioReturn(weights)
	risk := model.PortfolioRisk(weights)
	return PortfolioSnapshot{
		Weights: append([]float64(nil), weights...),
		Return:  ret,
		Risk:    risk,
		Sharpe:  formulas.SharpeRatio(ret, risk, riskFreeRate),
		VaR95:   formulas.ParametricVaR(ret, risk, riskConfidence),
		CVaR95:  formulas.ParametricCVaR(ret, risk, riskConfidence),
	}
}
