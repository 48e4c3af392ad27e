package optimization

import "errors"

var (
	// ErrInvalidModel is returned when market model inputs are malformed.
	ErrInvalidModel = errors.New("invalid market model")

	// ErrInvalidBounds is returned when Bounds cannot describe a box
	// (length mismatch, non-finite values, lower > upper).
	ErrInvalidBounds = errors.New("invalid weight bounds")

	// ErrInfeasible is returned when no weight vector satisfies the budget,
	// target-return and bound constraints together.
	ErrInfeasible = errors.New("target return infeasible under bounds")

	// ErrNotConverged is returned when the solver exhausts its iteration budget
	// or ends on a point that fails the constraint check.
	ErrNotConverged = errors.New("optimization did not converge")

	// ErrEmptyFrontier is returned by a sweep that retained no feasible point.
	ErrEmptyFrontier = errors.New("efficient frontier is empty")
)

// IsNoSolution reports whether err means "no portfolio for this target".
// Such errors are absorbed by the frontier sweep.
func IsNoSolution(err error) bool {
	return errors.Is(err, ErrInfeasible) || errors.Is(err, ErrNotConverged)
}
