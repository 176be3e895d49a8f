package adi

import (
	"sync"

	"github.com/san-kum/pdesim/internal/boundary"
	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/grid"
	"github.com/san-kum/pdesim/internal/linalg"
	"github.com/san-kum/pdesim/internal/pde"
)

// minLines is the smallest number of sweep lines handed to one goroutine.
const minLines = 8

// field holds the six coefficients at every node for one time level,
// flattened as i*ny + j.
type field struct {
	t                float64
	a, b, c, d, e, f []float64
}

func newField(n int) *field {
	return &field{
		a: make([]float64, n), b: make([]float64, n), c: make([]float64, n),
		d: make([]float64, n), e: make([]float64, n), f: make([]float64, n),
	}
}

// engine carries what every scheme needs to apply the split operators and
// run the implicit sweeps on one bundle.
type engine struct {
	b      *pde.Bundle2D
	x, y   *grid.Axis
	nx, ny int

	xLower, xUpper boundary.Condition2D
	yLower, yUpper boundary.Condition2D
}

func newEngine(b *pde.Bundle2D) *engine {
	g := b.Grid()
	e := &engine{b: b, x: g.X(), y: g.Y(), nx: g.NumXNodes(), ny: g.NumYNodes()}
	e.xLower, e.xUpper = b.XBoundaries()
	e.yLower, e.yUpper = b.YBoundaries()
	return e
}

func (e *engine) newSurface() [][]float64 {
	s := make([][]float64, e.nx)
	for i := range s {
		s[i] = make([]float64, e.ny)
	}
	return s
}

func (e *engine) fill(fld *field, t float64) {
	coeff := e.b.Coefficients()
	fld.t = t
	fdm.ParallelFor(e.nx, minLines, func(start, end int) {
		for i := start; i < end; i++ {
			x := e.x.Node(i)
			for j := 0; j < e.ny; j++ {
				k := i*e.ny + j
				fld.a[k], fld.b[k], fld.c[k], fld.d[k], fld.e[k], fld.f[k] = coeff.At(t, x, e.y.Node(j))
			}
		}
	})
}

// xStencil is row i of I·0 + Lx on the x-line through column j.
func (e *engine) xStencil(fld *field, i, j int) (l, d, u float64) {
	k := i*e.ny + j
	a, b := fld.a[k], fld.b[k]
	x1, x2 := e.x.First(i), e.x.Second(i)
	return x2[0]*a + x1[0]*b, x2[1]*a + x1[1]*b + 0.5*fld.c[k], x2[2]*a + x1[2]*b
}

func (e *engine) yStencil(fld *field, i, j int) (l, d, u float64) {
	k := i*e.ny + j
	dd, f := fld.d[k], fld.f[k]
	y1, y2 := e.y.First(j), e.y.Second(j)
	return y2[0]*dd + y1[0]*f, y2[1]*dd + y1[1]*f + 0.5*fld.c[k], y2[2]*dd + y1[2]*f
}

func (e *engine) lx(fld *field, v [][]float64, i, j int) float64 {
	l, d, u := e.xStencil(fld, i, j)
	return l*v[i-1][j] + d*v[i][j] + u*v[i+1][j]
}

func (e *engine) ly(fld *field, v [][]float64, i, j int) float64 {
	l, d, u := e.yStencil(fld, i, j)
	return l*v[i][j-1] + d*v[i][j] + u*v[i][j+1]
}

func (e *engine) lxy(fld *field, v [][]float64, i, j int) float64 {
	c := fld.e[i*e.ny+j]
	if c == 0 {
		return 0
	}
	dx := e.x.Node(i+1) - e.x.Node(i-1)
	dy := e.y.Node(j+1) - e.y.Node(j-1)
	return c * (v[i+1][j+1] - v[i+1][j-1] - v[i-1][j+1] + v[i-1][j-1]) / (dx * dy)
}

// interior runs fn over all interior nodes, x-lines in parallel.
func (e *engine) interior(fn func(i, j int)) {
	fdm.ParallelFor(e.nx-2, minLines, func(start, end int) {
		for i := start + 1; i < end+1; i++ {
			for j := 1; j < e.ny-1; j++ {
				fn(i, j)
			}
		}
	})
}

type firstError struct {
	mu  sync.Mutex
	err error
}

func (f *firstError) set(err error) {
	f.mu.Lock()
	if f.err == nil {
		f.err = err
	}
	f.mu.Unlock()
}

// sweepX solves (I + w·Lx(fld)) out = rhs on every interior x-line with the
// x boundaries at fld.t, then fills the y edges from the y boundaries.
// prev is the slice at the start of the step.
func (e *engine) sweepX(fld *field, w float64, rhs, prev, out [][]float64) error {
	var fe firstError
	t := fld.t
	fdm.ParallelFor(e.ny-2, minLines, func(start, end int) {
		m := linalg.NewTridiagonal(e.nx)
		line := make([]float64, e.nx)
		sol := make([]float64, e.nx)
		before := make([]float64, e.nx)
		for j := start + 1; j < end+1; j++ {
			for i := 1; i < e.nx-1; i++ {
				l, d, u := e.xStencil(fld, i, j)
				m.Lower[i-1] = w * l
				m.Diag[i] = 1 + w*d
				m.Upper[i] = w * u
				line[i] = rhs[i][j]
			}
			for i := range before {
				before[i] = prev[i][j]
			}
			s := e.y.Node(j)
			if err := e.edges(m, line, e.x, e.xLower, e.xUpper, t, s, before); err != nil {
				fe.set(err)
				return
			}
			if err := m.Solve(line, sol); err != nil {
				fe.set(err)
				return
			}
			for i := range sol {
				out[i][j] = sol[i]
			}
		}
	})
	if fe.err != nil {
		return fe.err
	}

	for i := 0; i < e.nx; i++ {
		s := e.x.Node(i)
		row := out[i]
		row[0] = e.edgeValue(e.y, e.yLower, boundary.Lower, t, s, row)
		row[e.ny-1] = e.edgeValue(e.y, e.yUpper, boundary.Upper, t, s, row)
	}
	return nil
}

// sweepY is sweepX with the axes exchanged.
func (e *engine) sweepY(fld *field, w float64, rhs, prev, out [][]float64) error {
	var fe firstError
	t := fld.t
	fdm.ParallelFor(e.nx-2, minLines, func(start, end int) {
		m := linalg.NewTridiagonal(e.ny)
		line := make([]float64, e.ny)
		for i := start + 1; i < end+1; i++ {
			for j := 1; j < e.ny-1; j++ {
				l, d, u := e.yStencil(fld, i, j)
				m.Lower[j-1] = w * l
				m.Diag[j] = 1 + w*d
				m.Upper[j] = w * u
				line[j] = rhs[i][j]
			}
			s := e.x.Node(i)
			if err := e.edges(m, line, e.y, e.yLower, e.yUpper, t, s, prev[i]); err != nil {
				fe.set(err)
				return
			}
			if err := m.Solve(line, out[i]); err != nil {
				fe.set(err)
				return
			}
		}
	})
	if fe.err != nil {
		return fe.err
	}

	column := make([]float64, e.nx)
	for j := 0; j < e.ny; j++ {
		for i := range column {
			column[i] = out[i][j]
		}
		s := e.y.Node(j)
		out[0][j] = e.edgeValue(e.x, e.xLower, boundary.Lower, t, s, column)
		out[e.nx-1][j] = e.edgeValue(e.x, e.xUpper, boundary.Upper, t, s, column)
	}
	return nil
}

// edges writes both boundary rows of one sweep line.
func (e *engine) edges(m *linalg.Tridiagonal, line []float64, ax *grid.Axis, lower, upper boundary.Condition2D, t, s float64, before []float64) error {
	for _, side := range []boundary.Side{boundary.Lower, boundary.Upper} {
		cond := lower
		if side == boundary.Upper {
			cond = upper
		}
		row := cond.LeftMatrixCondition(ax, side, t)
		value := cond.ConstantAt(t, s) + boundary.Previous(cond.RightMatrixCondition(ax, side, t), ax, side, before)
		if err := boundary.Apply(m, line, side, row, value); err != nil {
			return err
		}
	}
	return nil
}

// edgeValue solves a boundary row for its edge node given the line's
// interior values.
func (e *engine) edgeValue(ax *grid.Axis, cond boundary.Condition2D, side boundary.Side, t, s float64, line []float64) float64 {
	row := cond.LeftMatrixCondition(ax, side, t)
	return boundary.Value(row, cond.ConstantAt(t, s), func(k int) float64 {
		return line[boundary.Node(ax, side, k)]
	})
}

func valid(u [][]float64) bool {
	for _, row := range u {
		if !fdm.IsValid(row) {
			return false
		}
	}
	return true
}
