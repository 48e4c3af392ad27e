package optimization

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Active-set tolerances. The objective is scaled so that the largest diagonal
// entry of the Hessian is 1, which keeps these values scale free.
const (
	activeTolerance     = 1e-12 // distance to a bound treated as "on the bound"
	stepTolerance       = 1e-12 // max |p| treated as a zero step
	decreaseTolerance   = 1e-20 // objective decrease treated as no progress
	multiplierTolerance = 1e-10 // bound multipliers above -tol are optimal
	rankTolerance       = 1e-9  // relative residual below which a row is dependent
)

type boundState int8

const (
	boundFree boundState = iota
	atLower
	atUpper
	fixedBound // lower == upper, never released
)

// qpProblem is a convex QP:
//
//	minimize   ½ xᵀHx
//	subject to E x = f, lower ≤ x ≤ upper
//
// H must be positive definite.
type qpProblem struct {
	n     int
	h     []float64   // row-major n×n
	e     [][]float64 // equality rows, each of length n
	f     []float64
	lower []float64
	upper []float64
}

type qpResult struct {
	x          []float64
	iterations int
}

// solveQP runs a primal active-set method from the feasible point x0.
//
// The working set only ever holds bounds whose removal from the free set
// keeps the equality rows, restricted to free variables, at full rank. Every
// reduced KKT system is therefore nonsingular. Steps stay in the null space
// of the equality rows; x0 already satisfies them.
func solveQP(p *qpProblem, x0 []float64, maxIterations int) (*qpResult, error) {
	n := p.n
	x := append([]float64(nil), x0...)
	state := make([]boundState, n)

	for i := 0; i < n; i++ {
		if p.upper[i] <= p.lower[i] {
			state[i] = fixedBound
			x[i] = p.lower[i]
		}
	}

	baseRank := len(p.independentRows(state))

	for i := 0; i < n; i++ {
		if state[i] != boundFree {
			continue
		}
		var candidate boundState
		switch {
		case x[i] <= p.lower[i]+activeTolerance:
			candidate = atLower
		case x[i] >= p.upper[i]-activeTolerance:
			candidate = atUpper
		default:
			continue
		}
		if !p.pinnable(state, i, candidate, baseRank) {
			continue
		}
		state[i] = candidate
		x[i] = p.bound(i, candidate)
	}

	g := make([]float64, n)
	released := -1

	for iter := 1; iter <= maxIterations; iter++ {
		freeIdx := make([]int, 0, n)
		for i, s := range state {
			if s == boundFree {
				freeIdx = append(freeIdx, i)
			}
		}
		if len(freeIdx) == 0 {
			// Everything is pinned; x0 was feasible so x is the only candidate.
			return &qpResult{x: x, iterations: iter}, nil
		}

		rows := p.independentRows(state)
		p.gradient(x, g)

		step, y, err := p.solveKKT(freeIdx, rows, g)
		if err != nil {
			return nil, err
		}
		if len(freeIdx) == len(rows) {
			// No freedom left on this working set; only rounding noise.
			for k := range step {
				step[k] = 0
			}
		}

		if maxAbs(step) <= stepTolerance || 0.5*p.curvature(freeIdx, step) <= decreaseTolerance {
			// Stationary on the current working set. Release the bound with
			// the most negative multiplier, or stop if none is negative.
			worst := -1
			worstValue := -multiplierTolerance
			for i, s := range state {
				if s != atLower && s != atUpper {
					continue
				}
				reduced := g[i]
				for k, r := range rows {
					reduced += y[k] * p.e[r][i]
				}
				lambda := reduced
				if s == atUpper {
					lambda = -reduced
				}
				if lambda < worstValue {
					worstValue = lambda
					worst = i
				}
			}
			if worst < 0 {
				return &qpResult{x: x, iterations: iter}, nil
			}
			state[worst] = boundFree
			released = worst
			continue
		}

		alpha := 1.0
		block := -1
		var blockState boundState
		for k, i := range freeIdx {
			d := step[k]
			var a float64
			var s boundState
			switch {
			case d < -stepTolerance:
				a, s = (p.lower[i]-x[i])/d, atLower
			case d > stepTolerance:
				a, s = (p.upper[i]-x[i])/d, atUpper
			default:
				continue
			}
			a = math.Max(a, 0)
			if a >= alpha || !p.pinnable(state, i, s, baseRank) {
				continue
			}
			alpha, block, blockState = a, i, s
		}

		if block >= 0 && block == released && alpha == 0 {
			// The bound just released blocks at once: its multiplier sign was
			// rounding noise, so the point is optimal.
			state[block] = blockState
			x[block] = p.bound(block, blockState)
			return &qpResult{x: x, iterations: iter}, nil
		}
		released = -1

		for k, i := range freeIdx {
			x[i] = math.Min(math.Max(x[i]+alpha*step[k], p.lower[i]), p.upper[i])
		}
		if block >= 0 {
			state[block] = blockState
			x[block] = p.bound(block, blockState)
		}
	}

	return nil, fmt.Errorf("%w: active-set iteration limit %d reached", ErrNotConverged, maxIterations)
}

// pinnable reports whether moving variable i into state s keeps the equality
// rows at the rank they had with every non-fixed variable free.
func (p *qpProblem) pinnable(state []boundState, i int, s boundState, baseRank int) bool {
	old := state[i]
	state[i] = s
	ok := len(p.independentRows(state)) >= baseRank
	state[i] = old
	return ok
}

func (p *qpProblem) bound(i int, s boundState) float64 {
	if s == atUpper {
		return p.upper[i]
	}
	return p.lower[i]
}

// curvature returns stepᵀ H_FF step.
func (p *qpProblem) curvature(free []int, step []float64) float64 {
	var s float64
	for a, i := range free {
		row := p.h[i*p.n : (i+1)*p.n]
		for b, j := range free {
			s += step[a] * row[j] * step[b]
		}
	}
	return s
}

// gradient writes Hx into g.
func (p *qpProblem) gradient(x, g []float64) {
	n := p.n
	for i := 0; i < n; i++ {
		g[i] = floats.Dot(p.h[i*n:(i+1)*n], x)
	}
}

// independentRows returns the indices of equality rows that stay linearly
// independent when restricted to the free variables, using Gram-Schmidt.
func (p *qpProblem) independentRows(state []boundState) []int {
	basis := make([][]float64, 0, len(p.e))
	selected := make([]int, 0, len(p.e))

	for r, row := range p.e {
		v := make([]float64, 0, p.n)
		for i, s := range state {
			if s == boundFree {
				v = append(v, row[i])
			}
		}
		initial := floats.Norm(v, 2)
		if initial == 0 {
			continue
		}
		for _, b := range basis {
			d := floats.Dot(v, b)
			for k := range v {
				v[k] -= d * b[k]
			}
		}
		remaining := floats.Norm(v, 2)
		if remaining <= rankTolerance*initial {
			continue
		}
		for k := range v {
			v[k] /= remaining
		}
		basis = append(basis, v)
		selected = append(selected, r)
	}

	return selected
}

// solveKKT solves the equality-constrained subproblem on the free variables:
//
//	[H_FF  E_Fᵀ] [p]   [-g_F]
//	[E_F   0   ] [y] = [ 0  ]
//
// Returns the step p (indexed like free) and the multipliers y (indexed like
// rows).
func (p *qpProblem) solveKKT(free, rows []int, g []float64) ([]float64, []float64, error) {
	nf := len(free)
	m := nf + len(rows)

	kkt := mat.NewDense(m, m, nil)
	rhs := mat.NewVecDense(m, nil)

	for a, i := range free {
		for b, j := range free {
			kkt.Set(a, b, p.h[i*p.n+j])
		}
		rhs.SetVec(a, -g[i])
	}
	for c, r := range rows {
		for a, i := range free {
			kkt.Set(nf+c, a, p.e[r][i])
			kkt.Set(a, nf+c, p.e[r][i])
		}
	}

	var sol mat.VecDense
	if err := sol.SolveVec(kkt, rhs); err != nil {
		// An ill-conditioned solve still yields a usable step; an exactly
		// singular one leaves the solution unset.
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, nil, fmt.Errorf("%w: KKT solve failed: %v", ErrNotConverged, err)
		}
	}

	step := make([]float64, nf)
	for a := range step {
		step[a] = sol.AtVec(a)
	}
	y := make([]float64, len(rows))
	for c := range y {
		y[c] = sol.AtVec(nf + c)
	}

	for _, v := range step {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, fmt.Errorf("%w: singular KKT system", ErrNotConverged)
		}
	}
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, fmt.Errorf("%w: singular KKT system", ErrNotConverged)
		}
	}

	return step, y, nil
}

func maxAbs(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return math.Max(floats.Max(v), -floats.Min(v))
}
