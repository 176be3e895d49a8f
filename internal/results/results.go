// Package results wraps solved grids and exposes values and spatial
// derivatives (Greeks) at the nodes.
//
// Derivatives are taken with respect to the grid's own space variable. When a
// problem was solved on a transformed variable, such as x = ln(spot), the
// caller divides through by the Jacobian; FromLogSpot does this for the
// log-spot case.
package results

import (
	"sync"

	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/grid"
	"gonum.org/v1/gonum/interp"
)

// Result1D is the solution of a 1-D problem at the final time node.
type Result1D interface {
	Grid() *grid.Grid1D
	NumberSpaceNodes() int
	SpaceValue(i int) float64
	FunctionValue(i int) float64
	FirstSpatialDerivative(i int) float64
	SecondSpatialDerivative(i int) float64
	Values() []float64
	Interpolate(x float64) float64
}

// Terminal1D holds only the final time slice.
type Terminal1D struct {
	grid   *grid.Grid1D
	values []float64

	once   sync.Once
	spline interp.Predictor
}

func NewTerminal1D(g *grid.Grid1D, values []float64) *Terminal1D {
	return &Terminal1D{grid: g, values: values}
}

func (r *Terminal1D) Grid() *grid.Grid1D { return r.grid }

func (r *Terminal1D) NumberSpaceNodes() int { return len(r.values) }

func (r *Terminal1D) SpaceValue(i int) float64 { return r.grid.SpaceNode(i) }

func (r *Terminal1D) FunctionValue(i int) float64 { return r.values[i] }

// FirstSpatialDerivative is central in the interior and one-sided at the
// edges.
func (r *Terminal1D) FirstSpatialDerivative(i int) float64 {
	return r.grid.Space().D1(r.values, i)
}

func (r *Terminal1D) SecondSpatialDerivative(i int) float64 {
	return r.grid.Space().D2(r.values, i)
}

// Values returns a copy of the final slice.
func (r *Terminal1D) Values() []float64 { return fdm.Clone(r.values) }

// Interpolate evaluates a natural cubic spline through the final slice.
// Outside the grid the spline is extrapolated.
func (r *Terminal1D) Interpolate(x float64) float64 {
	r.once.Do(func() {
		r.spline = fitSpline(r.grid.SpaceNodes(), r.values)
	})
	return r.spline.Predict(x)
}

func fitSpline(xs, ys []float64) interp.Predictor {
	var nc interp.NaturalCubic
	if err := nc.Fit(xs, ys); err == nil {
		return &nc
	}
	var pl interp.PiecewiseLinear
	// nodes are strictly increasing, so the linear fit cannot fail
	_ = pl.Fit(xs, ys)
	return &pl
}

// Full1D holds every time slice of a solve. Its Result1D methods refer to
// the final slice.
type Full1D struct {
	*Terminal1D
	slices [][]float64
}

func NewFull1D(g *grid.Grid1D, slices [][]float64) *Full1D {
	return &Full1D{
		Terminal1D: NewTerminal1D(g, slices[len(slices)-1]),
		slices:     slices,
	}
}

func (r *Full1D) NumberTimeNodes() int { return len(r.slices) }

func (r *Full1D) TimeValue(t int) float64 { return r.grid.TimeNode(t) }

func (r *Full1D) FunctionValueAt(t, i int) float64 { return r.slices[t][i] }

func (r *Full1D) FirstSpatialDerivativeAt(t, i int) float64 {
	return r.grid.Space().D1(r.slices[t], i)
}

func (r *Full1D) SecondSpatialDerivativeAt(t, i int) float64 {
	return r.grid.Space().D2(r.slices[t], i)
}

// Slice returns a copy of time slice t.
func (r *Full1D) Slice(t int) []float64 { return fdm.Clone(r.slices[t]) }

// Terminal returns the final slice as a stand-alone result.
func (r *Full1D) Terminal() *Terminal1D { return NewTerminal1D(r.grid, r.slices[len(r.slices)-1]) }
