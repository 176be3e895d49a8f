package pde

import (
	"math"
	"testing"

	"github.com/san-kum/pdesim/internal/boundary"
	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/grid"
	"github.com/san-kum/pdesim/internal/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/integrate"
)

func axis(t *testing.T) *grid.Axis {
	t.Helper()
	m, err := mesh.NewHyperbolic(0.5, 2.5, 1.2, 20, 0.2)
	require.NoError(t, err)
	ax, err := grid.NewAxis(m)
	require.NoError(t, err)
	return ax
}

func applyStencil(op Operator, ax *grid.Axis, t float64, i int, u func(float64) float64) float64 {
	l, d, r := op.Stencil(ax, t, i)
	return l*u(ax.Node(i-1)) + d*u(ax.Node(i)) + r*u(ax.Node(i+1))
}

func TestStandardStencil(t *testing.T) {
	ax := axis(t)
	c := Coefficients{
		A: func(t, x float64) float64 { return -0.5 * x },
		B: func(t, x float64) float64 { return 2 + t },
		C: Const(0.3),
	}
	u := func(x float64) float64 { return x*x + 1 }

	for i := 1; i < ax.Len()-1; i++ {
		x := ax.Node(i)
		want := -0.5*x*2 + 2.5*2*x + 0.3*u(x)
		assert.InDelta(t, want, applyStencil(c, ax, 0.5, i, u), 1e-9)
	}
}

func TestFullStencil(t *testing.T) {
	ax := axis(t)
	// a·∂²(α·u) + b·∂(β·u) with α = x, β = x² and u = x gives 2a + 3b·x².
	c := FullCoefficients{
		A:     Const(1.5),
		B:     Const(-1),
		Alpha: func(_, x float64) float64 { return x },
		Beta:  func(_, x float64) float64 { return x * x },
	}
	u := func(x float64) float64 { return x }

	for i := 1; i < ax.Len()-1; i++ {
		x := ax.Node(i)
		// β·u = x³ is cubic, so allow the stencil's truncation error
		assert.InDelta(t, 3.0-3*x*x, applyStencil(c, ax, 0, i, u), 0.1)
	}
}

func TestConservativeMatchesFokkerPlanck(t *testing.T) {
	ax := axis(t)
	vol, r := 0.3, 0.02
	fp := FokkerPlanck(r, 0, func(float64, float64) float64 { return vol })
	std := Coefficients{
		A: func(_, s float64) float64 { return -0.5 * vol * vol * s * s },
		B: func(_, s float64) float64 { return r * s },
	}.Conservative()

	for i := 1; i < ax.Len()-1; i++ {
		l1, d1, u1 := fp.Stencil(ax, 0, i)
		l2, d2, u2 := std.Stencil(ax, 0, i)
		assert.InDelta(t, l1, l2, 1e-12)
		assert.InDelta(t, d1, d2, 1e-12)
		assert.InDelta(t, u1, u2, 1e-12)
	}
}

func TestProviders(t *testing.T) {
	bs := BlackScholes(0.05, 0.01, 0.2)
	assert.InDelta(t, -0.5*0.04*4, bs.A(0, 2), 1e-15)
	assert.InDelta(t, -2*0.04, bs.B(0, 2), 1e-15)
	assert.Equal(t, 0.05, bs.C(0, 2))

	lbs := LogBlackScholes(0.05, 0.01, 0.2)
	assert.InDelta(t, 0.02-0.04, lbs.B(1, 1), 1e-15)

	cev := CEV(0.03, 0.5, 0.2)
	assert.InDelta(t, -0.5*0.04*4, cev.A(0, 4), 1e-15)
	assert.Nil(t, cev.B)

	h := Heston(HestonParameters{Rate: 0.05, Kappa: 2, Theta: 0.04, VolOfVol: 0.3, Rho: -0.7})
	a, b, c, d, e, f := h.At(0, 100, 0.04)
	assert.InDelta(t, -200, a, 1e-9)
	assert.InDelta(t, -5, b, 1e-12)
	assert.Equal(t, 0.05, c)
	assert.InDelta(t, -0.5*0.09*0.04, d, 1e-15)
	assert.InDelta(t, 0.7*0.3*0.04*100, e, 1e-12)
	assert.InDelta(t, 0, f, 1e-15)
}

func TestLogNormalDensityIntegratesToOne(t *testing.T) {
	p := LogNormalDensity(1, 0.05, 0.2, 1)
	xs := make([]float64, 4001)
	ys := make([]float64, len(xs))
	for i := range xs {
		xs[i] = 5 * float64(i) / 4000
		ys[i] = p(xs[i])
	}
	assert.InDelta(t, 1.0, integrate.Trapezoidal(xs, ys), 1e-6)
}

func TestPayoffs(t *testing.T) {
	assert.Equal(t, 0.5, CallPayoff(1)(1.5))
	assert.Equal(t, 0.0, CallPayoff(1)(0.5))
	assert.Equal(t, 0.5, PutPayoff(1)(0.5))
	assert.Equal(t, 1.0, DigitalPayoff(1, true)(1.1))
	assert.Equal(t, 1.0, DigitalPayoff(1, false)(0.9))
	assert.InDelta(t, math.E-1, LogPayoff(CallPayoff(1))(1), 1e-15)
	assert.InDelta(t, 0.5, NormalCDF(0), 1e-15)
}

func TestBundleValidation(t *testing.T) {
	g, err := grid.NewUniform1D(5, 10, 1, 0, 2)
	require.NoError(t, err)
	lower := boundary.NewDirichletValue(0, 0)
	upper := boundary.NewFixedSecondDerivativeValue(2, 0)

	b, err := NewBundle(BlackScholes(0.05, 0, 0.2), CallPayoff(1), lower, upper, g)
	require.NoError(t, err)
	assert.Nil(t, b.FreeBoundary())

	am := b.WithFreeBoundary(func(_, x float64) float64 { return x })
	assert.NotNil(t, am.FreeBoundary())
	assert.Nil(t, b.FreeBoundary(), "original bundle unchanged")

	_, err = NewBundle(BlackScholes(0.05, 0, 0.2), CallPayoff(1), lower, boundary.NewDirichletValue(3, 0), g)
	assert.ErrorIs(t, err, fdm.ErrBoundaryMismatch)

	_, err = NewBundle(nil, CallPayoff(1), lower, upper, g)
	assert.ErrorIs(t, err, fdm.ErrParameterBounds)
}
