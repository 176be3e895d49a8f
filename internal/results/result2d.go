package results

import (
	"sort"

	"github.com/san-kum/pdesim/internal/grid"
)

// Result2D is the final slice of a 2-D solve, indexed [i][j] for x node i
// and y node j.
type Result2D struct {
	grid   *grid.Grid2D
	values [][]float64
}

func NewResult2D(g *grid.Grid2D, values [][]float64) *Result2D {
	return &Result2D{grid: g, values: values}
}

func (r *Result2D) Grid() *grid.Grid2D { return r.grid }

func (r *Result2D) Value(i, j int) float64 { return r.values[i][j] }

// Values returns a copy of the solution.
func (r *Result2D) Values() [][]float64 {
	out := make([][]float64, len(r.values))
	for i := range r.values {
		out[i] = append([]float64(nil), r.values[i]...)
	}
	return out
}

func (r *Result2D) column(j int) []float64 {
	col := make([]float64, len(r.values))
	for i := range r.values {
		col[i] = r.values[i][j]
	}
	return col
}

func (r *Result2D) DX(i, j int) float64 { return r.grid.X().D1(r.column(j), i) }

func (r *Result2D) DXX(i, j int) float64 { return r.grid.X().D2(r.column(j), i) }

func (r *Result2D) DY(i, j int) float64 { return r.grid.Y().D1(r.values[i], j) }

func (r *Result2D) DYY(i, j int) float64 { return r.grid.Y().D2(r.values[i], j) }

// DXY is the mixed derivative, built from first-derivative stencils in each
// direction.
func (r *Result2D) DXY(i, j int) float64 {
	x := r.grid.X()
	w := x.First(i)
	start := x.Window(i)
	s := 0.0
	for k := 0; k < 3; k++ {
		s += w[k] * r.grid.Y().D1(r.values[start+k], j)
	}
	return s
}

// Interpolate is bilinear inside the grid and clamps to the edges outside.
func (r *Result2D) Interpolate(x, y float64) float64 {
	i, wx := bracket(r.grid.X(), x)
	j, wy := bracket(r.grid.Y(), y)
	v00, v10 := r.values[i][j], r.values[i+1][j]
	v01, v11 := r.values[i][j+1], r.values[i+1][j+1]
	return (1-wx)*(1-wy)*v00 + wx*(1-wy)*v10 + (1-wx)*wy*v01 + wx*wy*v11
}

func bracket(ax *grid.Axis, x float64) (int, float64) {
	n := ax.Len()
	if x <= ax.Lower() {
		return 0, 0
	}
	if x >= ax.Upper() {
		return n - 2, 1
	}
	k := sort.Search(n, func(k int) bool { return ax.Node(k) > x }) - 1
	return k, (x - ax.Node(k)) / ax.Step(k)
}
