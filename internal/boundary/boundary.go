// Package boundary implements the boundary conditions of 1-D and 2-D
// finite-difference problems.
//
// Each condition produces the row of the linear system at its boundary node
// (LeftMatrixCondition), an optional contribution from the previous time
// slice (RightMatrixCondition) and the right-hand-side value (Constant, or
// ConstantAt on a 2-D edge). Row entry k multiplies the node k steps inward
// from the boundary, so the same row works on either side of an axis.
package boundary

import (
	"fmt"
	"math"

	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/grid"
)

type Side int

const (
	Lower Side = iota
	Upper
)

func (s Side) String() string {
	if s == Lower {
		return "lower"
	}
	return "upper"
}

// Condition is a boundary condition of a 1-D problem.
type Condition interface {
	Level() float64
	LeftMatrixCondition(ax *grid.Axis, side Side, t float64) []float64
	RightMatrixCondition(ax *grid.Axis, side Side, t float64) []float64
	Constant(t float64) float64
}

// Condition2D is a boundary condition on one edge of a 2-D problem; s is the
// coordinate along the edge.
type Condition2D interface {
	Level() float64
	LeftMatrixCondition(ax *grid.Axis, side Side, t float64) []float64
	RightMatrixCondition(ax *grid.Axis, side Side, t float64) []float64
	ConstantAt(t, s float64) float64
}

// Surface is a boundary value as a function of time and the coordinate
// along the edge.
type Surface func(t, s float64) float64

func constant(v float64) Surface {
	return func(float64, float64) float64 { return v }
}

func timeOnly(f func(t float64) float64) Surface {
	return func(t, _ float64) float64 { return f(t) }
}

type base struct {
	level float64
	value Surface
}

func (b base) Level() float64 { return b.level }

func (b base) Constant(t float64) float64 { return b.value(t, b.level) }

func (b base) ConstantAt(t, s float64) float64 { return b.value(t, s) }

func (b base) RightMatrixCondition(*grid.Axis, Side, float64) []float64 { return nil }

// Dirichlet fixes the solution value.
type Dirichlet struct{ base }

func NewDirichlet(level float64, value func(t float64) float64) *Dirichlet {
	return &Dirichlet{base{level: level, value: timeOnly(value)}}
}

func NewDirichletValue(level, value float64) *Dirichlet {
	return &Dirichlet{base{level: level, value: constant(value)}}
}

func NewDirichlet2D(level float64, value Surface) *Dirichlet {
	return &Dirichlet{base{level: level, value: value}}
}

func (d *Dirichlet) LeftMatrixCondition(*grid.Axis, Side, float64) []float64 {
	return []float64{1}
}

// Neumann fixes the first derivative ∂u/∂x using a one-sided three-point
// stencil.
type Neumann struct{ base }

func NewNeumann(level float64, deriv func(t float64) float64) *Neumann {
	return &Neumann{base{level: level, value: timeOnly(deriv)}}
}

func NewNeumannValue(level, deriv float64) *Neumann {
	return &Neumann{base{level: level, value: constant(deriv)}}
}

func NewNeumann2D(level float64, deriv Surface) *Neumann {
	return &Neumann{base{level: level, value: deriv}}
}

func (n *Neumann) LeftMatrixCondition(ax *grid.Axis, side Side, _ float64) []float64 {
	if side == Lower {
		w := ax.First(0)
		return w[:]
	}
	w := ax.First(ax.Len() - 1)
	return []float64{w[2], w[1], w[0]}
}

// FixedSecondDerivative fixes the curvature ∂²u/∂x² at the boundary. Zero
// curvature is the usual far-field condition for vanilla calls, whose price
// is linear in spot there.
type FixedSecondDerivative struct{ base }

func NewFixedSecondDerivative(level float64, curvature func(t float64) float64) *FixedSecondDerivative {
	return &FixedSecondDerivative{base{level: level, value: timeOnly(curvature)}}
}

func NewFixedSecondDerivativeValue(level, curvature float64) *FixedSecondDerivative {
	return &FixedSecondDerivative{base{level: level, value: constant(curvature)}}
}

func NewFixedSecondDerivative2D(level float64, curvature Surface) *FixedSecondDerivative {
	return &FixedSecondDerivative{base{level: level, value: curvature}}
}

func (f *FixedSecondDerivative) LeftMatrixCondition(ax *grid.Axis, side Side, _ float64) []float64 {
	if side == Lower {
		w := ax.Second(0)
		return w[:]
	}
	w := ax.Second(ax.Len() - 1)
	return []float64{w[2], w[1], w[0]}
}

// CheckLevel verifies that a condition sits on the given edge of ax.
func CheckLevel(level float64, ax *grid.Axis, side Side) error {
	edge := ax.Lower()
	if side == Upper {
		edge = ax.Upper()
	}
	scale := math.Max(1, math.Max(math.Abs(ax.Lower()), math.Abs(ax.Upper())))
	if math.Abs(level-edge) > 1e-9*scale {
		return fmt.Errorf("%s boundary at %v, grid edge at %v: %w", side, level, edge, fdm.ErrBoundaryMismatch)
	}
	return nil
}

// Node returns the index on ax of the k-th node inward from side.
func Node(ax *grid.Axis, side Side, k int) int {
	if side == Lower {
		return k
	}
	return ax.Len() - 1 - k
}

// Previous returns the contribution of the previous time slice to the
// boundary right-hand side.
func Previous(row []float64, ax *grid.Axis, side Side, prev []float64) float64 {
	s := 0.0
	for k, c := range row {
		s += c * prev[Node(ax, side, k)]
	}
	return s
}

// Value solves a boundary row for the boundary node given the rest of the
// slice: u_b = (value − Σ_{k≥1} row[k]·u_k) / row[0].
func Value(row []float64, value float64, at func(k int) float64) float64 {
	s := value
	for k := 1; k < len(row); k++ {
		s -= row[k] * at(k)
	}
	return s / row[0]
}
