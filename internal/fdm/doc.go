// Package fdm holds the primitives shared by every finite-difference solver
// in pdesim.
//
// The solvers themselves live in sibling packages:
//
//   - [github.com/san-kum/pdesim/internal/theta]: theta-method 1-D stepping
//   - [github.com/san-kum/pdesim/internal/coupled]: regime-switching systems
//   - [github.com/san-kum/pdesim/internal/adi]: 2-D alternating-direction schemes
//
// This package provides the sentinel errors they return, the [SolveError]
// wrapper that records where a solve failed, the [Observer] hook called after
// every time step, and the [ParallelFor] and [Batch] helpers.
//
// # Example
//
//	solver, _ := theta.New(0.5)
//	res, err := solver.Solve(bundle)
//	var se *fdm.SolveError
//	if errors.As(err, &se) && errors.Is(err, fdm.ErrSingular) {
//		log.Printf("singular system at step %d", se.Step)
//	}
//
// # Thread Safety
//
// Grids, bundles and boundary conditions are immutable after construction and
// may be shared across goroutines. A single solve is not safe for concurrent
// use of its observers; give each concurrent solve its own observers.
package fdm
