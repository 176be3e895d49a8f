// Package coupled solves systems of 1-D equations linked by regime
// switching. Each regime has its own coefficients and boundaries on a shared
// grid; the regimes exchange value (backward pricing) or probability mass
// (forward density) at constant transition rates.
//
// Every step assembles one block-tridiagonal system whose blocks are
// regime × regime and solves it by block Thomas elimination.
package coupled

import (
	"fmt"
	"math"

	"github.com/golang/glog"
	"github.com/san-kum/pdesim/internal/boundary"
	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/grid"
	"github.com/san-kum/pdesim/internal/linalg"
	"github.com/san-kum/pdesim/internal/pde"
	"github.com/san-kum/pdesim/internal/results"
	"gonum.org/v1/gonum/mat"
)

type Direction int

const (
	// Backward is the pricing equation: a regime's value is pulled toward
	// the values of the regimes it can jump to.
	Backward Direction = iota
	// Forward is the Fokker-Planck equation for regime densities. Standard
	// coefficients are read in conservation form.
	Forward
)

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

type Option func(*Solver)

// WithFullResults keeps every time slice of every regime.
func WithFullResults() Option {
	return func(s *Solver) { s.full = true }
}

// WithObserver registers an observer for one regime's slices.
func WithObserver(regime int, o fdm.Observer) Option {
	return func(s *Solver) {
		if s.observers == nil {
			s.observers = make(map[int][]fdm.Observer)
		}
		s.observers[regime] = append(s.observers[regime], o)
	}
}

type Solver struct {
	theta     float64
	dir       Direction
	full      bool
	observers map[int][]fdm.Observer
}

func New(theta float64, dir Direction, opts ...Option) (*Solver, error) {
	if !(theta >= 0 && theta <= 1) {
		return nil, fmt.Errorf("theta %v not in [0, 1]: %w", theta, fdm.ErrParameterBounds)
	}
	if dir != Backward && dir != Forward {
		return nil, fmt.Errorf("direction %d: %w", dir, fdm.ErrParameterBounds)
	}
	s := &Solver{theta: theta, dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Solve solves a two-regime system. Each equation's Lambda is its rate of
// switching into the other regime.
func (s *Solver) Solve(eqs ...pde.CoupledBundle) ([]results.Result1D, error) {
	if len(eqs) != 2 {
		return nil, fmt.Errorf("coupled solve needs 2 equations, got %d: %w", len(eqs), fdm.ErrDimensionMismatch)
	}
	bundles := []*pde.Bundle{eqs[0].Bundle, eqs[1].Bundle}
	rates := [][]float64{{0, eqs[0].Lambda}, {eqs[1].Lambda, 0}}
	return s.SolveSystem(bundles, rates)
}

// SolveSystem solves N regimes with rates[i][j] the switching rate from
// regime i to regime j. The diagonal of rates is ignored.
func (s *Solver) SolveSystem(bundles []*pde.Bundle, rates [][]float64) ([]results.Result1D, error) {
	if err := validate(bundles, rates); err != nil {
		return nil, err
	}

	k := len(bundles)
	g := bundles[0].Grid()
	ax := g.Space()
	n := ax.Len()
	steps := g.NumTimeNodes() - 1
	gen := generator(rates, s.dir)

	glog.V(1).Infof("coupled %s solve: %d regimes, theta=%.2f, %d time steps, %d space nodes", s.dir, k, s.theta, steps, n)

	ops := make([]pde.Operator, k)
	for i, b := range bundles {
		ops[i] = b.Operator()
		if c, ok := ops[i].(pde.Coefficients); ok && s.dir == Forward {
			ops[i] = c.Conservative()
		}
	}

	h := make([]float64, n*k)
	for node := 0; node < n; node++ {
		for i, b := range bundles {
			h[node*k+i] = b.Initial(ax.Node(node))
		}
	}
	if !fdm.IsValid(h) {
		return nil, &fdm.SolveError{Step: 0, Time: g.TimeNode(0), Err: fdm.ErrInvalidState}
	}

	slices := make([][][]float64, k)
	if s.full {
		for i := range slices {
			slices[i] = append(slices[i], regime(h, k, i))
		}
	}

	m := linalg.NewBlockTridiagonal(n, k)
	rhs := make([]float64, n*k)
	prev, next := newStencils(k, n), newStencils(k, n)
	prev.fill(ops, ax, g.TimeNode(0))

	for step := 0; step < steps; step++ {
		t0, t1 := g.TimeNode(step), g.TimeNode(step+1)
		dt := t1 - t0
		explicit := (1 - s.theta) * dt
		implicit := s.theta * dt

		next.fill(ops, ax, t1)
		for node := 1; node < n-1; node++ {
			for i := 0; i < k; i++ {
				acc := prev.l[i][node]*h[(node-1)*k+i] + prev.d[i][node]*h[node*k+i] + prev.u[i][node]*h[(node+1)*k+i]
				for j := 0; j < k; j++ {
					acc += gen[i][j] * h[node*k+j]
				}
				rhs[node*k+i] = h[node*k+i] - explicit*acc

				for j := 0; j < k; j++ {
					v := implicit * gen[i][j]
					if i == j {
						v += 1 + implicit*next.d[i][node]
					}
					m.Diag[node].Set(i, j, v)
				}
				m.Lower[node-1].Set(i, i, implicit*next.l[i][node])
				m.Upper[node].Set(i, i, implicit*next.u[i][node])
			}
		}

		for i, b := range bundles {
			if err := applyBoundaries(m, rhs, b, h, i, t1, implicit == 0); err != nil {
				return nil, &fdm.SolveError{Step: step + 1, Time: t1, Err: err}
			}
		}

		if err := m.Solve(rhs, h); err != nil {
			return nil, &fdm.SolveError{Step: step + 1, Time: t1, Err: err}
		}

		for i, b := range bundles {
			if free := b.FreeBoundary(); free != nil {
				for node := 0; node < n; node++ {
					h[node*k+i] = math.Max(h[node*k+i], free(t1, ax.Node(node)))
				}
			}
		}

		if !fdm.IsValid(h) {
			return nil, &fdm.SolveError{Step: step + 1, Time: t1, Err: fdm.ErrInvalidState}
		}
		if glog.V(2) {
			glog.Infof("step %d: t=%.6f", step+1, t1)
		}
		for i, obs := range s.observers {
			if i < 0 || i >= k {
				continue
			}
			values := regime(h, k, i)
			for _, o := range obs {
				o.Observe(step+1, t1, values)
			}
		}
		if s.full {
			for i := range slices {
				slices[i] = append(slices[i], regime(h, k, i))
			}
		}
		prev, next = next, prev
	}

	out := make([]results.Result1D, k)
	for i := range out {
		if s.full {
			out[i] = results.NewFull1D(g, slices[i])
		} else {
			out[i] = results.NewTerminal1D(g, regime(h, k, i))
		}
	}
	return out, nil
}

func validate(bundles []*pde.Bundle, rates [][]float64) error {
	k := len(bundles)
	if k == 0 || len(rates) != k {
		return fmt.Errorf("%d regimes with %d rate rows: %w", k, len(rates), fdm.ErrDimensionMismatch)
	}
	g := bundles[0].Grid()
	for i, b := range bundles {
		if b == nil {
			return fmt.Errorf("regime %d has no bundle: %w", i, fdm.ErrParameterBounds)
		}
		if !sameGrid(g, b) {
			return fmt.Errorf("regime %d is on a different grid: %w", i, fdm.ErrDimensionMismatch)
		}
		if len(rates[i]) != k {
			return fmt.Errorf("rate row %d has %d entries, want %d: %w", i, len(rates[i]), k, fdm.ErrDimensionMismatch)
		}
		for j, r := range rates[i] {
			if i != j && !(r >= 0 && !math.IsInf(r, 1)) {
				return fmt.Errorf("rate %d→%d is %v: %w", i, j, r, fdm.ErrParameterBounds)
			}
		}
	}
	return nil
}

func sameGrid(g *grid.Grid1D, b *pde.Bundle) bool {
	o := b.Grid()
	if o == g {
		return true
	}
	if o.NumTimeNodes() != g.NumTimeNodes() || !g.SameSpace(o) {
		return false
	}
	for i := 0; i < o.NumTimeNodes(); i++ {
		if o.TimeNode(i) != g.TimeNode(i) {
			return false
		}
	}
	return true
}

// generator returns the coupling matrix G added to the spatial operator:
// row i reads Σ_j G[i][j]·u_j at each node.
func generator(rates [][]float64, dir Direction) [][]float64 {
	k := len(rates)
	gen := make([][]float64, k)
	for i := range gen {
		gen[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			if i == j {
				continue
			}
			gen[i][i] += rates[i][j]
			if dir == Forward {
				gen[i][j] = -rates[j][i]
			} else {
				gen[i][j] = -rates[i][j]
			}
		}
	}
	return gen
}

func regime(h []float64, k, i int) []float64 {
	out := make([]float64, len(h)/k)
	for node := range out {
		out[node] = h[node*k+i]
	}
	return out
}

type stencils struct {
	l, d, u [][]float64
}

func newStencils(k, n int) stencils {
	s := stencils{l: make([][]float64, k), d: make([][]float64, k), u: make([][]float64, k)}
	for i := 0; i < k; i++ {
		s.l[i] = make([]float64, n)
		s.d[i] = make([]float64, n)
		s.u[i] = make([]float64, n)
	}
	return s
}

func (s stencils) fill(ops []pde.Operator, ax *grid.Axis, t float64) {
	for i, op := range ops {
		for node := 1; node < ax.Len()-1; node++ {
			s.l[i][node], s.d[i][node], s.u[i][node] = op.Stencil(ax, t, node)
		}
	}
}

// applyBoundaries writes regime i's edge rows into the block system. A
// three-entry row is reduced with regime i's row of the adjacent interior
// block row, which turns the edge's off-diagonal block into a full one.
func applyBoundaries(m *linalg.BlockTridiagonal, rhs []float64, b *pde.Bundle, prev []float64, i int, t float64, explicit bool) error {
	ax := b.Grid().Space()
	n, k := m.Blocks(), m.K
	values := regime(prev, k, i)

	for _, side := range []boundary.Side{boundary.Lower, boundary.Upper} {
		cond := b.Lower()
		if side == boundary.Upper {
			cond = b.Upper()
		}
		row := cond.LeftMatrixCondition(ax, side, t)
		value := cond.Constant(t) + boundary.Previous(cond.RightMatrixCondition(ax, side, t), ax, side, values)
		if len(row) == 0 || len(row) > 3 || len(row) == 1 && row[0] == 0 {
			return fmt.Errorf("%s boundary row %v: %w", side, row, fdm.ErrNotTridiagonal)
		}
		r0, r1, r2 := row[0], 0.0, 0.0
		if len(row) > 1 {
			r1 = row[1]
		}
		if len(row) > 2 {
			r2 = row[2]
		}
		if r2 != 0 && n < 4 {
			return fmt.Errorf("%s boundary on %d nodes: %w", side, n, fdm.ErrNotTridiagonal)
		}

		// toEdge and toThird are the inner block row's links to the edge
		// node and to the node two steps in.
		var edge, inner, third int
		var diag, off, toEdge, toThird *mat.Dense
		if side == boundary.Lower {
			edge, inner, third = 0, 1, 2
			diag, off = m.Diag[0], m.Upper[0]
			if n > 2 {
				toEdge, toThird = m.Lower[0], m.Upper[1]
			}
		} else {
			edge, inner, third = n-1, n-2, n-3
			diag, off = m.Diag[n-1], m.Lower[n-2]
			if n > 2 {
				toEdge, toThird = m.Upper[n-2], m.Lower[n-3]
			}
		}

		for j := 0; j < k; j++ {
			diag.Set(i, j, 0)
			off.Set(i, j, 0)
		}
		switch {
		case r2 == 0:
			diag.Set(i, i, r0)
			off.Set(i, i, r1)
		case toThird.At(i, i) != 0:
			f := r2 / toThird.At(i, i)
			diag.Set(i, i, r0-f*toEdge.At(i, i))
			for j := 0; j < k; j++ {
				v := -f * m.Diag[inner].At(i, j)
				if j == i {
					v += r1
				}
				off.Set(i, j, v)
			}
			value -= f * rhs[inner*k+i]
		case explicit:
			diag.Set(i, i, r0)
			off.Set(i, i, r1)
			value -= r2 * rhs[third*k+i] / m.Diag[third].At(i, i)
		default:
			return fmt.Errorf("%s boundary of regime %d: %w", side, i, fdm.ErrNotTridiagonal)
		}
		rhs[edge*k+i] = value
	}
	return nil
}
