package fdm

import (
	"errors"
	"fmt"
)

// Configuration errors. These are returned before any stepping begins.
var (
	// ErrInvalidMesh indicates a mesh that is too small or not strictly increasing.
	ErrInvalidMesh = errors.New("fdm: invalid mesh")

	// ErrInvalidGrid indicates a grid axis with fewer than three nodes.
	ErrInvalidGrid = errors.New("fdm: invalid grid")

	// ErrBoundaryMismatch indicates a boundary level that is not a grid edge.
	ErrBoundaryMismatch = errors.New("fdm: boundary level does not match grid edge")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("fdm: parameter out of valid bounds")

	// ErrDimensionMismatch indicates inputs that disagree on size or grid.
	ErrDimensionMismatch = errors.New("fdm: dimension mismatch")

	// ErrExperimental indicates a scheme that must be opted into explicitly.
	ErrExperimental = errors.New("fdm: scheme is experimental")
)

// Numerical failures. These abort a solve and are wrapped in a SolveError.
var (
	ErrSingular       = errors.New("fdm: singular linear system")
	ErrNotTridiagonal = errors.New("fdm: boundary row cannot be reduced to tridiagonal form")
	ErrNoConvergence  = errors.New("fdm: iteration did not converge")
	ErrInvalidState   = errors.New("fdm: invalid solution (NaN or Inf detected)")
)

// SolveError wraps a numerical failure with the step at which it happened.
type SolveError struct {
	Step int
	Time float64
	Err  error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("step %d (t=%.6f): %v", e.Step, e.Time, e.Err)
}

func (e *SolveError) Unwrap() error {
	return e.Err
}
