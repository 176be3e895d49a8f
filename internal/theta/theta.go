// Package theta implements the theta-method finite-difference solver for
// 1-D problems and a Richardson extrapolation wrapper around it.
//
// θ = 0 is explicit (cheap, conditionally stable), θ = 1 is fully implicit
// (unconditionally stable, first order in time) and θ = ½ is Crank-Nicolson
// (second order, but it can ring near discontinuous payoffs).
package theta

import (
	"fmt"
	"math"

	"github.com/golang/glog"
	"github.com/san-kum/pdesim/internal/boundary"
	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/linalg"
	"github.com/san-kum/pdesim/internal/pde"
	"github.com/san-kum/pdesim/internal/results"
)

const (
	Explicit      = 0.0
	Implicit      = 1.0
	CrankNicolson = 0.5
)

// Solver1D is anything that solves a 1-D bundle.
type Solver1D interface {
	Solve(b *pde.Bundle) (results.Result1D, error)
}

type Option func(*Solver)

// WithFullResults keeps every time slice; Solve then returns *results.Full1D.
func WithFullResults() Option {
	return func(s *Solver) { s.full = true }
}

// WithObserver registers an observer called after every step.
func WithObserver(o fdm.Observer) Option {
	return func(s *Solver) { s.observers = append(s.observers, o) }
}

// WithPSOR solves the early-exercise problem by projected SOR instead of
// projecting the unconstrained solution. It has no effect on bundles
// without a free boundary.
func WithPSOR(p linalg.PSOR) Option {
	return func(s *Solver) { s.psor = &p }
}

// Solver is a theta-method stepper. It holds no per-solve state and may be
// reused, but concurrent solves must not share observers.
type Solver struct {
	theta     float64
	full      bool
	observers []fdm.Observer
	psor      *linalg.PSOR
}

func New(theta float64, opts ...Option) (*Solver, error) {
	if !(theta >= 0 && theta <= 1) {
		return nil, fmt.Errorf("theta %v not in [0, 1]: %w", theta, fdm.ErrParameterBounds)
	}
	s := &Solver{theta: theta}
	for _, opt := range opts {
		opt(s)
	}
	if s.psor != nil && (!(s.psor.Omega > 0 && s.psor.Omega < 2) || s.psor.MaxIter < 1) {
		return nil, fmt.Errorf("psor omega %v, max iterations %d: %w", s.psor.Omega, s.psor.MaxIter, fdm.ErrParameterBounds)
	}
	return s, nil
}

func (s *Solver) Theta() float64 { return s.theta }

type stencil struct {
	l, d, u []float64
}

func newStencil(n int) stencil {
	return stencil{l: make([]float64, n), d: make([]float64, n), u: make([]float64, n)}
}

func (st stencil) fill(b *pde.Bundle, t float64) {
	ax := b.Grid().Space()
	op := b.Operator()
	for i := 1; i < ax.Len()-1; i++ {
		st.l[i], st.d[i], st.u[i] = op.Stencil(ax, t, i)
	}
}

func (s *Solver) Solve(b *pde.Bundle) (results.Result1D, error) {
	g := b.Grid()
	ax := g.Space()
	n := ax.Len()
	steps := g.NumTimeNodes() - 1

	glog.V(1).Infof("theta solve: theta=%.2f, %d time steps, %d space nodes", s.theta, steps, n)

	h := make([]float64, n)
	for i := range h {
		h[i] = b.Initial(ax.Node(i))
	}
	if !fdm.IsValid(h) {
		return nil, &fdm.SolveError{Step: 0, Time: g.TimeNode(0), Err: fdm.ErrInvalidState}
	}

	var slices [][]float64
	if s.full {
		slices = append(slices, fdm.Clone(h))
	}

	m := linalg.NewTridiagonal(n)
	rhs := make([]float64, n)
	prev, next := newStencil(n), newStencil(n)
	prev.fill(b, g.TimeNode(0))

	free := b.FreeBoundary()
	var floor []float64
	if free != nil {
		floor = make([]float64, n)
	}

	for step := 0; step < steps; step++ {
		t0, t1 := g.TimeNode(step), g.TimeNode(step+1)
		dt := t1 - t0
		explicit := (1 - s.theta) * dt
		implicit := s.theta * dt

		next.fill(b, t1)
		for i := 1; i < n-1; i++ {
			rhs[i] = (1-explicit*prev.d[i])*h[i] - explicit*(prev.l[i]*h[i-1]+prev.u[i]*h[i+1])
			m.Lower[i-1] = implicit * next.l[i]
			m.Diag[i] = 1 + implicit*next.d[i]
			m.Upper[i] = implicit * next.u[i]
		}

		if err := s.applyBoundaries(b, m, rhs, h, t1); err != nil {
			return nil, &fdm.SolveError{Step: step + 1, Time: t1, Err: err}
		}

		if err := s.advance(m, rhs, h, floor, free, ax.Node, t1); err != nil {
			return nil, &fdm.SolveError{Step: step + 1, Time: t1, Err: err}
		}

		if !fdm.IsValid(h) {
			return nil, &fdm.SolveError{Step: step + 1, Time: t1, Err: fdm.ErrInvalidState}
		}
		if glog.V(2) {
			glog.Infof("step %d: t=%.6f, u[mid]=%.6g", step+1, t1, h[n/2])
		}
		for _, o := range s.observers {
			o.Observe(step+1, t1, h)
		}
		if s.full {
			slices = append(slices, fdm.Clone(h))
		}
		prev, next = next, prev
	}

	if s.full {
		return results.NewFull1D(g, slices), nil
	}
	return results.NewTerminal1D(g, h), nil
}

func (s *Solver) applyBoundaries(b *pde.Bundle, m *linalg.Tridiagonal, rhs, h []float64, t float64) error {
	ax := b.Grid().Space()
	sides := []struct {
		cond boundary.Condition
		side boundary.Side
	}{
		{b.Lower(), boundary.Lower},
		{b.Upper(), boundary.Upper},
	}
	for _, sc := range sides {
		row := sc.cond.LeftMatrixCondition(ax, sc.side, t)
		value := sc.cond.Constant(t) + boundary.Previous(sc.cond.RightMatrixCondition(ax, sc.side, t), ax, sc.side, h)
		if err := boundary.Apply(m, rhs, sc.side, row, value); err != nil {
			return err
		}
	}
	return nil
}

// advance overwrites h with the solution at t.
func (s *Solver) advance(m *linalg.Tridiagonal, rhs, h, floor []float64, free func(t, x float64) float64, node func(int) float64, t float64) error {
	if free == nil {
		return m.Solve(rhs, h)
	}

	for i := range floor {
		floor[i] = free(t, node(i))
	}
	// the unconstrained solution is the starting point for both projections
	if err := m.Solve(rhs, h); err != nil {
		return err
	}
	if s.psor != nil {
		iters, err := s.psor.Solve(m, rhs, floor, h)
		if glog.V(2) {
			glog.Infof("psor at t=%.6f: %d sweeps", t, iters)
		}
		return err
	}

	for i := range h {
		h[i] = math.Max(h[i], floor[i])
	}
	return nil
}
