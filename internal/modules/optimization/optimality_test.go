package optimization

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// assertNoDescentMove checks first-order optimality of w. The equality rows
// have rank at most two, so every elementary move that keeps the budget and
// the return fixed touches at most three assets. None of those moves may
// lower the variance when it is feasible with respect to the active bounds.
func assertNoDescentMove(t *testing.T, model *MarketModel, bounds Bounds, w []float64) {
	t.Helper()

	n := model.N()
	mu := model.ExpectedReturns()
	cov := model.Covariance()

	var g mat.VecDense
	g.MulVec(cov, mat.NewVecDense(n, append([]float64(nil), w...)))

	scale := 0.0
	for i := 0; i < n; i++ {
		scale = math.Max(scale, cov.At(i, i))
	}
	if scale == 0 {
		scale = 1
	}

	const active = 1e-9
	check := func(idx []int, d []float64) {
		for _, sign := range []float64{1, -1} {
			movable := true
			for k, i := range idx {
				v := sign * d[k]
				if v < 0 && w[i] <= bounds.Lower[i]+active {
					movable = false
				}
				if v > 0 && w[i] >= bounds.Upper[i]-active {
					movable = false
				}
			}
			if !movable {
				continue
			}
			largest := 0.0
			slope := 0.0
			for k, i := range idx {
				largest = math.Max(largest, math.Abs(d[k]))
				slope += sign * d[k] * g.AtVec(i)
			}
			assert.GreaterOrEqual(t, slope/largest/scale, -1e-8,
				"variance decreases moving assets %v along %v", idx, d)
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if mu[i] == mu[j] {
				check([]int{i, j}, []float64{1, -1})
			}
			for k := j + 1; k < n; k++ {
				det := mu[k] - mu[j]
				if math.Abs(det) < 1e-14 {
					continue
				}
				dk := (mu[j] - mu[i]) / det
				check([]int{i, j, k}, []float64{1, -1 - dk, dk})
			}
		}
	}
}

func TestEfficientReturn_NearEqualTopReturns(t *testing.T) {
	for _, gap := range []float64{1e-3, 1e-4, 1e-5, 4.5e-6, 1e-6} {
		t.Run(fmt.Sprintf("gap %g", gap), func(t *testing.T) {
			mvo := newOptimizer(t, ModelSpec{
				Assets:          []string{"Low", "Top", "Runner-up"},
				ExpectedReturns: []float64{0.03, 0.10, 0.10 - gap},
				Volatilities:    []float64{0.05, 0.20, 0.18},
				Correlation:     [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
			})
			bounds := UniformBounds(3, 0, 1)

			_, hi, err := FeasibleReturnRange(mvo.Model().ExpectedReturns(), bounds)
			require.NoError(t, err)
			require.Equal(t, 0.10, hi)

			solution, err := mvo.EfficientReturn(bounds, uniform(3), hi)
			require.NoError(t, err)
			assertValidSolution(t, mvo, bounds, hi, solution)
			assert.InDeltaSlice(t, []float64{0, 1, 0}, solution.Weights, 1e-9)

			// Warm start from the endpoint of a neighbouring target.
			inside, err := mvo.EfficientReturn(bounds, solution.Weights, hi-gap/2)
			require.NoError(t, err)
			assertValidSolution(t, mvo, bounds, hi-gap/2, inside)
			assert.InDeltaSlice(t, []float64{0, 0.5, 0.5}, inside.Weights, 1e-6)
		})
	}
}

type randomModelKind int

const (
	plainModel randomModelKind = iota
	lowRankModel
	bandedModel
	nearEqualModel
	lowRankBandedModel
)

func (k randomModelKind) String() string {
	return [...]string{"plain", "low rank", "banded", "near equal", "low rank banded"}[k]
}

// randomCorrelation returns F Fᵀ rescaled to a unit diagonal. With a single
// factor the matrix has rank one unless idiosyncratic variance is added.
func randomCorrelation(r *rand.Rand, n int, lowRank bool) [][]float64 {
	factors := n
	if lowRank {
		factors = 1
	}
	f := make([][]float64, n)
	for i := range f {
		f[i] = make([]float64, factors)
		for a := range f[i] {
			f[i][a] = r.NormFloat64()
		}
	}

	c := make([][]float64, n)
	for i := range c {
		c[i] = make([]float64, n)
		for j := 0; j <= i; j++ {
			c[i][j] = floats.Dot(f[i], f[j])
		}
		if lowRank {
			c[i][i] += []float64{0, 0.01, 0.2}[r.IntN(3)]
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			v := c[i][j] / math.Sqrt(c[i][i]*c[j][j])
			c[i][j], c[j][i] = v, v
		}
	}
	for i := 0; i < n; i++ {
		c[i][i] = 1
	}
	return c
}

func randomModel(r *rand.Rand, kind randomModelKind) (ModelSpec, Bounds) {
	n := 3 + r.IntN(10)
	spec := ModelSpec{
		Assets:          make([]string, n),
		ExpectedReturns: make([]float64, n),
		Volatilities:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		spec.Assets[i] = fmt.Sprintf("asset-%d", i)
		spec.ExpectedReturns[i] = 0.01 + 0.11*r.Float64()
		if r.Float64() < 0.9 {
			spec.Volatilities[i] = 0.3 * r.Float64()
		}
	}

	if kind == nearEqualModel {
		top := floats.Max(spec.ExpectedReturns)
		bottom := floats.Min(spec.ExpectedReturns)
		spec.ExpectedReturns[r.IntN(n)] = top - []float64{1e-4, 1e-5, 4.5e-6, 1e-6, 1e-7}[r.IntN(5)]
		spec.ExpectedReturns[r.IntN(n)] = bottom + []float64{1e-5, 1e-6, 0}[r.IntN(3)]
	}

	spec.Correlation = randomCorrelation(r, n, kind == lowRankModel || kind == lowRankBandedModel)

	bounds := UniformBounds(n, 0, 1)
	if kind == bandedModel || kind == lowRankBandedModel {
		current := make([]float64, n)
		for i := range current {
			current[i] = r.Float64()
		}
		floats.Scale(1/floats.Sum(current), current)
		band := []float64{0.02, 0.05, 0.1}[r.IntN(3)]
		for i, c := range current {
			bounds.Lower[i] = math.Max(0, c-band)
			bounds.Upper[i] = math.Min(1, c+band)
		}
	}

	return spec, bounds
}

func TestEfficientReturn_RandomModelsAreOptimal(t *testing.T) {
	r := rand.New(rand.NewPCG(20240611, 7))

	for trial := 0; trial < 60; trial++ {
		kind := randomModelKind(trial % 5)
		spec, bounds := randomModel(r, kind)

		t.Run(fmt.Sprintf("%d %s n=%d", trial, kind, len(spec.Assets)), func(t *testing.T) {
			mvo := newOptimizer(t, spec)
			lo, hi, err := FeasibleReturnRange(spec.ExpectedReturns, bounds)
			require.NoError(t, err)

			guess := uniform(len(spec.Assets))
			for _, target := range TargetReturns(lo, hi, 15) {
				solution, err := mvo.EfficientReturn(bounds, guess, target)
				require.NoError(t, err, "target %.10f in [%.10f, %.10f]", target, lo, hi)
				assertValidSolution(t, mvo, bounds, target, solution)
				assertNoDescentMove(t, mvo.Model(), bounds, solution.Weights)
				guess = solution.Weights
			}
		})
	}
}

func TestEfficientReturn_DefaultUniverseIsOptimal(t *testing.T) {
	mvo := newOptimizer(t, defaultSpec())
	model := mvo.Model()
	n := model.N()

	tests := []struct {
		name   string
		bounds Bounds
	}{
		{"long only", UniformBounds(n, 0, 1)},
		{"capped", UniformBounds(n, 0, 0.3)},
		{"tight band around equal weights", UniformBounds(n, 1.0/7-0.02, 1.0/7+0.02)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, err := FeasibleReturnRange(model.ExpectedReturns(), tt.bounds)
			require.NoError(t, err)
			for _, target := range TargetReturns(lo, hi, 25) {
				solution, err := mvo.EfficientReturn(tt.bounds, uniform(n), target)
				require.NoError(t, err, "target %.10f", target)
				assertNoDescentMove(t, model, tt.bounds, solution.Weights)
			}
		})
	}
}
