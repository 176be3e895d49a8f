package pde

import (
	"fmt"

	"github.com/san-kum/pdesim/internal/boundary"
	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/grid"
)

// Bundle is a complete 1-D problem. It is immutable; the With methods
// return modified copies.
type Bundle struct {
	op      Operator
	initial func(x float64) float64
	lower   boundary.Condition
	upper   boundary.Condition
	grid    *grid.Grid1D
	free    func(t, x float64) float64
}

func NewBundle(op Operator, initial func(x float64) float64, lower, upper boundary.Condition, g *grid.Grid1D) (*Bundle, error) {
	b := &Bundle{op: op, initial: initial, lower: lower, upper: upper, grid: g}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bundle) validate() error {
	if b.op == nil || b.initial == nil || b.lower == nil || b.upper == nil || b.grid == nil {
		return fmt.Errorf("bundle is missing coefficients, initial condition, boundaries or grid: %w", fdm.ErrParameterBounds)
	}
	ax := b.grid.Space()
	if err := boundary.CheckLevel(b.lower.Level(), ax, boundary.Lower); err != nil {
		return err
	}
	return boundary.CheckLevel(b.upper.Level(), ax, boundary.Upper)
}

func (b *Bundle) Operator() Operator { return b.op }

func (b *Bundle) Initial(x float64) float64 { return b.initial(x) }

func (b *Bundle) Lower() boundary.Condition { return b.lower }

func (b *Bundle) Upper() boundary.Condition { return b.upper }

func (b *Bundle) Grid() *grid.Grid1D { return b.grid }

// FreeBoundary returns the early-exercise floor, or nil for a European
// problem.
func (b *Bundle) FreeBoundary() func(t, x float64) float64 { return b.free }

// WithFreeBoundary returns a copy whose solution is floored at free(t, x)
// after every step.
func (b *Bundle) WithFreeBoundary(free func(t, x float64) float64) *Bundle {
	c := *b
	c.free = free
	return &c
}

// WithGrid returns a copy on another grid.
func (b *Bundle) WithGrid(g *grid.Grid1D) (*Bundle, error) {
	c := *b
	c.grid = g
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// CoupledBundle attaches the rate of transition out of this equation's
// regime into the other one of a two-regime system.
type CoupledBundle struct {
	*Bundle
	Lambda float64
}

// Bundle2D is a complete 2-D problem.
type Bundle2D struct {
	coeff   Coefficients2D
	initial func(x, y float64) float64
	xLower  boundary.Condition2D
	xUpper  boundary.Condition2D
	yLower  boundary.Condition2D
	yUpper  boundary.Condition2D
	grid    *grid.Grid2D
}

func NewBundle2D(coeff Coefficients2D, initial func(x, y float64) float64,
	xLower, xUpper, yLower, yUpper boundary.Condition2D, g *grid.Grid2D) (*Bundle2D, error) {
	if initial == nil || xLower == nil || xUpper == nil || yLower == nil || yUpper == nil || g == nil {
		return nil, fmt.Errorf("2-D bundle is missing initial condition, boundaries or grid: %w", fdm.ErrParameterBounds)
	}
	checks := []struct {
		level float64
		ax    *grid.Axis
		side  boundary.Side
	}{
		{xLower.Level(), g.X(), boundary.Lower},
		{xUpper.Level(), g.X(), boundary.Upper},
		{yLower.Level(), g.Y(), boundary.Lower},
		{yUpper.Level(), g.Y(), boundary.Upper},
	}
	for _, c := range checks {
		if err := boundary.CheckLevel(c.level, c.ax, c.side); err != nil {
			return nil, err
		}
	}
	return &Bundle2D{
		coeff:   coeff,
		initial: initial,
		xLower:  xLower,
		xUpper:  xUpper,
		yLower:  yLower,
		yUpper:  yUpper,
		grid:    g,
	}, nil
}

func (b *Bundle2D) Coefficients() Coefficients2D { return b.coeff }

func (b *Bundle2D) Initial(x, y float64) float64 { return b.initial(x, y) }

func (b *Bundle2D) Grid() *grid.Grid2D { return b.grid }

func (b *Bundle2D) XBoundaries() (lower, upper boundary.Condition2D) { return b.xLower, b.xUpper }

func (b *Bundle2D) YBoundaries() (lower, upper boundary.Condition2D) { return b.yLower, b.yUpper }
