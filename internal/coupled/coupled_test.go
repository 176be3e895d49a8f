package coupled

import (
	"math"
	"testing"

	"github.com/san-kum/pdesim/internal/boundary"
	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/grid"
	"github.com/san-kum/pdesim/internal/mesh"
	"github.com/san-kum/pdesim/internal/pde"
	"github.com/san-kum/pdesim/internal/results"
	"github.com/san-kum/pdesim/internal/theta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/integrate"
)

const rate = 0.05

func callBundle(t testing.TB, g *grid.Grid1D, vol float64) *pde.Bundle {
	t.Helper()
	b, err := pde.NewBundle(pde.BlackScholes(rate, 0, vol), pde.CallPayoff(1),
		boundary.NewDirichletValue(0, 0), boundary.NewFixedSecondDerivativeValue(4, 0), g)
	require.NoError(t, err)
	return b
}

func callGrid(t testing.TB) *grid.Grid1D {
	t.Helper()
	g, err := grid.NewUniform1D(20, 80, 1, 0, 4)
	require.NoError(t, err)
	return g
}

func TestZeroRatesReduceToIndependentSolves(t *testing.T) {
	g := callGrid(t)
	b1, b2 := callBundle(t, g, 0.15), callBundle(t, g, 0.35)

	for _, th := range []float64{theta.Implicit, theta.CrankNicolson} {
		s, err := New(th, Backward)
		require.NoError(t, err)
		res, err := s.Solve(pde.CoupledBundle{Bundle: b1}, pde.CoupledBundle{Bundle: b2})
		require.NoError(t, err)
		require.Len(t, res, 2)

		single, err := theta.New(th)
		require.NoError(t, err)
		for i, b := range []*pde.Bundle{b1, b2} {
			want, err := single.Solve(b)
			require.NoError(t, err)
			for node := 0; node < want.NumberSpaceNodes(); node++ {
				assert.InDelta(t, want.FunctionValue(node), res[i].FunctionValue(node), 1e-9, "theta %v regime %d node %d", th, i, node)
			}
		}
	}
}

func TestSwitchingPriceBetweenRegimes(t *testing.T) {
	g := callGrid(t)
	low, high := callBundle(t, g, 0.15), callBundle(t, g, 0.35)

	s, err := New(theta.CrankNicolson, Backward)
	require.NoError(t, err)
	res, err := s.Solve(pde.CoupledBundle{Bundle: low, Lambda: 2}, pde.CoupledBundle{Bundle: high, Lambda: 2})
	require.NoError(t, err)

	single, err := theta.New(theta.CrankNicolson)
	require.NoError(t, err)
	pureLow, err := single.Solve(low)
	require.NoError(t, err)
	pureHigh, err := single.Solve(high)
	require.NoError(t, err)

	atm := 20
	require.InDelta(t, 1.0, g.SpaceNode(atm), 1e-12)
	assert.Greater(t, res[0].FunctionValue(atm), pureLow.FunctionValue(atm))
	assert.Less(t, res[0].FunctionValue(atm), res[1].FunctionValue(atm))
	assert.Less(t, res[1].FunctionValue(atm), pureHigh.FunctionValue(atm))
}

func TestIdenticalRegimes(t *testing.T) {
	g := callGrid(t)
	b := callBundle(t, g, 0.2)
	rates := [][]float64{
		{0, 1, 2},
		{0.5, 0, 1},
		{3, 0.1, 0},
	}
	s, err := New(theta.Implicit, Backward)
	require.NoError(t, err)
	res, err := s.SolveSystem([]*pde.Bundle{b, b, b}, rates)
	require.NoError(t, err)

	single, err := theta.New(theta.Implicit)
	require.NoError(t, err)
	want, err := single.Solve(b)
	require.NoError(t, err)
	for i := range res {
		for node := 0; node < want.NumberSpaceNodes(); node++ {
			assert.InDelta(t, want.FunctionValue(node), res[i].FunctionValue(node), 1e-9)
		}
	}
}

func mass(r results.Result1D) float64 {
	return integrate.Trapezoidal(r.Grid().SpaceNodes(), r.Values())
}

func densityBundles(t *testing.T, vols [2]float64) []*pde.Bundle {
	t.Helper()
	const s0, t0 = 1.0, 0.01
	space, err := mesh.NewHyperbolic(0, 5, s0, 300, 0.05)
	require.NoError(t, err)
	tmesh, err := mesh.NewUniform(t0, 1, 200)
	require.NoError(t, err)
	g, err := grid.New1D(tmesh, space)
	require.NoError(t, err)

	initial := []func(float64) float64{
		pde.LogNormalDensity(s0, rate, vols[0], t0),
		func(float64) float64 { return 0 },
	}
	out := make([]*pde.Bundle, 2)
	for i, v := range vols {
		v := v
		coef := pde.Coefficients{
			A: func(_, s float64) float64 { return -0.5 * v * v * s * s },
			B: func(_, s float64) float64 { return rate * s },
		}
		out[i], err = pde.NewBundle(coef, initial[i],
			boundary.NewDirichletValue(0, 0), boundary.NewDirichletValue(5, 0), g)
		require.NoError(t, err)
	}
	return out
}

func TestForwardRegimeDensities(t *testing.T) {
	vols := [2]float64{0.15, 0.35}
	b := densityBundles(t, vols)

	var masses []float64
	obs := fdm.ObserverFunc(func(_ int, _ float64, values []float64) {
		masses = append(masses, integrate.Trapezoidal(b[0].Grid().SpaceNodes(), values))
	})
	s, err := New(theta.CrankNicolson, Forward, WithObserver(1, obs))
	require.NoError(t, err)
	res, err := s.Solve(pde.CoupledBundle{Bundle: b[0], Lambda: 1}, pde.CoupledBundle{Bundle: b[1], Lambda: 0.5})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, mass(res[0])+mass(res[1]), 2e-3)
	// Regime 1 starts empty and fills toward its stationary share of 2/3.
	require.Len(t, masses, 200)
	assert.Greater(t, masses[199], masses[0])
	assert.InDelta(t, 2.0/3.0*(1-math.Exp(-1.5*0.99)), mass(res[1]), 2e-2)

	lv, err := LocalVol(res, vols[:])
	require.NoError(t, err)
	checked := 0
	for node, v := range lv {
		p0, p1 := res[0].FunctionValue(node), res[1].FunctionValue(node)
		if p0 <= 0 || p1 <= 0 || p0+p1 < 1e-6 {
			continue
		}
		checked++
		assert.GreaterOrEqual(t, v, vols[0]-1e-12)
		assert.LessOrEqual(t, v, vols[1]+1e-12)
	}
	assert.Greater(t, checked, 50)
}

func TestSingleRegimeLocalVol(t *testing.T) {
	vols := [2]float64{0.2, 0.4}
	b := densityBundles(t, vols)

	s, err := New(theta.CrankNicolson, Forward)
	require.NoError(t, err)
	res, err := s.Solve(pde.CoupledBundle{Bundle: b[0]}, pde.CoupledBundle{Bundle: b[1]})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, mass(res[0]), 1e-3)
	assert.Equal(t, 0.0, mass(res[1]))

	lv, err := LocalVol(res, vols[:])
	require.NoError(t, err)
	for node, v := range lv {
		if res[0].FunctionValue(node) > 0 {
			assert.InDelta(t, 0.2, v, 1e-12)
		}
	}
}

func TestFullResultsAndObservers(t *testing.T) {
	g := callGrid(t)
	b := callBundle(t, g, 0.2)
	calls := 0
	s, err := New(theta.Implicit, Backward, WithFullResults(),
		WithObserver(0, fdm.ObserverFunc(func(int, float64, []float64) { calls++ })),
		WithObserver(7, fdm.ObserverFunc(func(int, float64, []float64) { t.Fatal("unknown regime observed") })))
	require.NoError(t, err)
	res, err := s.Solve(pde.CoupledBundle{Bundle: b, Lambda: 1}, pde.CoupledBundle{Bundle: b, Lambda: 1})
	require.NoError(t, err)

	full, ok := res[1].(*results.Full1D)
	require.True(t, ok)
	assert.Equal(t, 21, full.NumberTimeNodes())
	assert.Equal(t, 20, calls)
}

func TestValidation(t *testing.T) {
	g := callGrid(t)
	b := callBundle(t, g, 0.2)
	other, err := grid.NewUniform1D(20, 40, 1, 0, 4)
	require.NoError(t, err)
	bo := callBundle(t, other, 0.2)

	_, err = New(1.2, Backward)
	assert.ErrorIs(t, err, fdm.ErrParameterBounds)
	_, err = New(0.5, Direction(5))
	assert.ErrorIs(t, err, fdm.ErrParameterBounds)

	s, err := New(0.5, Backward)
	require.NoError(t, err)

	_, err = s.Solve(pde.CoupledBundle{Bundle: b})
	assert.ErrorIs(t, err, fdm.ErrDimensionMismatch)
	_, err = s.Solve(pde.CoupledBundle{Bundle: b}, pde.CoupledBundle{Bundle: bo})
	assert.ErrorIs(t, err, fdm.ErrDimensionMismatch)
	_, err = s.Solve(pde.CoupledBundle{Bundle: b, Lambda: -1}, pde.CoupledBundle{Bundle: b})
	assert.ErrorIs(t, err, fdm.ErrParameterBounds)
	_, err = s.SolveSystem([]*pde.Bundle{b, b}, [][]float64{{0, 1}})
	assert.ErrorIs(t, err, fdm.ErrDimensionMismatch)

	_, err = LocalVol(nil, nil)
	assert.ErrorIs(t, err, fdm.ErrDimensionMismatch)
}

func TestExplicitCoupled(t *testing.T) {
	g, err := grid.NewUniform1D(400, 40, 1, 0, 4)
	require.NoError(t, err)
	b := callBundle(t, g, 0.2)

	s, err := New(theta.Explicit, Backward)
	require.NoError(t, err)
	res, err := s.Solve(pde.CoupledBundle{Bundle: b, Lambda: 1}, pde.CoupledBundle{Bundle: b, Lambda: 1})
	require.NoError(t, err)

	single, err := theta.New(theta.Explicit)
	require.NoError(t, err)
	want, err := single.Solve(b)
	require.NoError(t, err)
	for node := 0; node < want.NumberSpaceNodes(); node++ {
		assert.InDelta(t, want.FunctionValue(node), res[0].FunctionValue(node), 1e-9)
	}
}

func BenchmarkCoupled(b *testing.B) {
	g := callGrid(b)
	low, high := callBundle(b, g, 0.15), callBundle(b, g, 0.35)
	s, _ := New(theta.CrankNicolson, Backward)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Solve(pde.CoupledBundle{Bundle: low, Lambda: 2}, pde.CoupledBundle{Bundle: high, Lambda: 2}); err != nil {
			b.Fatal(err)
		}
	}
}
