// Package pde defines the problems solved by pdesim: coefficient sets for
// the 1-D and 2-D convection-diffusion-reaction equation, the bundles that
// pair them with initial and boundary conditions, and providers for the
// usual pricing models.
//
// The 1-D equation is
//
//	∂u/∂t + a·∂²u/∂x² + b·∂u/∂x + c·u = 0
//
// with t the time to expiry, so the payoff is the initial condition and
// pricing marches forward in t. Conservative (Fokker-Planck) problems use
//
//	∂u/∂t + a·∂²(α·u)/∂x² + b·∂(β·u)/∂x + c·u = 0
package pde

import "github.com/san-kum/pdesim/internal/grid"

// Func is a coefficient as a function of time and space.
type Func func(t, x float64) float64

// Const returns a constant coefficient.
func Const(v float64) Func {
	return func(float64, float64) float64 { return v }
}

func eval(f Func, t, x float64) float64 {
	if f == nil {
		return 0
	}
	return f(t, x)
}

// Operator discretises the spatial operator at an interior node: the
// weights of u[i-1], u[i] and u[i+1].
type Operator interface {
	Stencil(ax *grid.Axis, t float64, i int) (l, d, u float64)
}

// Coefficients is the standard form a·u_xx + b·u_x + c·u. A nil function is
// zero.
type Coefficients struct {
	A, B, C Func
}

func (c Coefficients) Stencil(ax *grid.Axis, t float64, i int) (float64, float64, float64) {
	x := ax.Node(i)
	a, b := eval(c.A, t, x), eval(c.B, t, x)
	x1, x2 := ax.First(i), ax.Second(i)
	return x2[0]*a + x1[0]*b,
		x2[1]*a + x1[1]*b + eval(c.C, t, x),
		x2[2]*a + x1[2]*b
}

// Conservative reads the same coefficients in conservation form,
// ∂²(a·u) + ∂(b·u) + c·u, as the forward equation of a diffusion requires.
func (c Coefficients) Conservative() FullCoefficients {
	return FullCoefficients{A: Const(1), B: Const(1), C: c.C, Alpha: c.A, Beta: c.B}
}

// FullCoefficients is the conservative form a·∂²(α·u) + b·∂(β·u) + c·u.
type FullCoefficients struct {
	A, B, C     Func
	Alpha, Beta Func
}

func (c FullCoefficients) Stencil(ax *grid.Axis, t float64, i int) (float64, float64, float64) {
	x := ax.Node(i)
	a, b := eval(c.A, t, x), eval(c.B, t, x)
	xl, xr := ax.Node(i-1), ax.Node(i+1)
	x1, x2 := ax.First(i), ax.Second(i)
	return x2[0]*a*eval(c.Alpha, t, xl) + x1[0]*b*eval(c.Beta, t, xl),
		x2[1]*a*eval(c.Alpha, t, x) + x1[1]*b*eval(c.Beta, t, x) + eval(c.C, t, x),
		x2[2]*a*eval(c.Alpha, t, xr) + x1[2]*b*eval(c.Beta, t, xr)
}

// Func3 is a 2-D coefficient.
type Func3 func(t, x, y float64) float64

// Coefficients2D is
//
//	a·u_xx + b·u_x + c·u + d·u_yy + e·u_xy + f·u_y
//
// A nil function is zero.
type Coefficients2D struct {
	A, B, C, D, E, F Func3
}

func eval3(f Func3, t, x, y float64) float64 {
	if f == nil {
		return 0
	}
	return f(t, x, y)
}

func (c Coefficients2D) At(t, x, y float64) (a, b, cc, d, e, f float64) {
	return eval3(c.A, t, x, y), eval3(c.B, t, x, y), eval3(c.C, t, x, y),
		eval3(c.D, t, x, y), eval3(c.E, t, x, y), eval3(c.F, t, x, y)
}
