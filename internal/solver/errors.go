package solver

import "errors"

var (
	// ErrIncompleteSolution is returned by Build when no outcomes have
	// been accumulated.
	ErrIncompleteSolution = errors.New("incomplete solution: no outcomes added")

	// ErrInconsistentCoverage is returned by Build when an outcome
	// references an intent id unknown to the batch, or when an intent
	// id appears in more than one outcome. This is fatal and never
	// auto-corrected: a solution with wrong coverage would commit to a
	// misrepresentation of the batch.
	ErrInconsistentCoverage = errors.New("inconsistent solution coverage")

	// ErrConstraintViolation indicates an outcome that fails the
	// originating intent's stated minimum-output constraint. Raised at
	// the residual-routing boundary, never swallowed.
	ErrConstraintViolation = errors.New("outcome violates intent constraint")
)
