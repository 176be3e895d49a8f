package theta

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pdesim/internal/boundary"
	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/grid"
	"github.com/san-kum/pdesim/internal/linalg"
	"github.com/san-kum/pdesim/internal/mesh"
	"github.com/san-kum/pdesim/internal/oracle"
	"github.com/san-kum/pdesim/internal/pde"
	"github.com/san-kum/pdesim/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	strike = 1.0
	expiry = 5.0
	rate   = 0.05
	vol    = 0.2
)

func callBundle(tb testing.TB, timeSteps, spaceSteps int) *pde.Bundle {
	tb.Helper()
	g, err := grid.NewUniform1D(timeSteps, spaceSteps, expiry, 0, 6*strike)
	require.NoError(tb, err)
	b, err := pde.NewBundle(pde.BlackScholes(rate, 0, vol), pde.CallPayoff(strike),
		boundary.NewDirichletValue(0, 0), boundary.NewFixedSecondDerivativeValue(6*strike, 0), g)
	require.NoError(tb, err)
	return b
}

type callErrors struct {
	vol, price, delta, gamma float64
}

// measure compares a call solution with Black-Scholes on moneyness [0.4, 3].
func measure(t *testing.T, res results.Result1D, withVol bool) callErrors {
	t.Helper()
	var e callErrors
	for i := 1; i < res.NumberSpaceNodes()-1; i++ {
		s := res.SpaceValue(i)
		if m := s / strike; m < 0.4 || m > 3 {
			continue
		}
		p := res.FunctionValue(i)
		e.price = math.Max(e.price, math.Abs(p-oracle.BlackScholes(s, strike, expiry, rate, 0, vol, true)))
		e.delta = math.Max(e.delta, math.Abs(res.FirstSpatialDerivative(i)-oracle.Delta(s, strike, expiry, rate, 0, vol, true)))
		e.gamma = math.Max(e.gamma, math.Abs(res.SecondSpatialDerivative(i)-oracle.Gamma(s, strike, expiry, rate, 0, vol)))
		if withVol {
			iv, err := oracle.BlackScholesImpliedVol(p, s, strike, expiry, rate, 0, true)
			require.NoError(t, err, "spot %v", s)
			e.vol = math.Max(e.vol, math.Abs(iv-vol))
		}
	}
	return e
}

func TestImplicitCall(t *testing.T) {
	s, err := New(Implicit)
	require.NoError(t, err)
	res, err := s.Solve(callBundle(t, 10, 100))
	require.NoError(t, err)

	e := measure(t, res, false)
	assert.Less(t, e.price, 1e-2)
	assert.Less(t, e.delta, 5e-2)
	assert.Less(t, e.gamma, 0.25)
}

func TestCrankNicolsonCall(t *testing.T) {
	s, err := New(CrankNicolson)
	require.NoError(t, err)
	res, err := s.Solve(callBundle(t, 10, 100))
	require.NoError(t, err)

	e := measure(t, res, true)
	assert.Less(t, e.vol, 5e-3)
	assert.Less(t, e.price, 1e-3)
	assert.Less(t, e.delta, 5e-3)
}

func TestRichardson(t *testing.T) {
	base, err := New(Implicit)
	require.NoError(t, err)
	rich, err := NewRichardson(base, 1)
	require.NoError(t, err)

	b := callBundle(t, 10, 100)
	res, err := rich.Solve(b)
	require.NoError(t, err)
	assert.Same(t, b.Grid(), res.Grid())

	extrapolated := measure(t, res, true)
	assert.Less(t, extrapolated.vol, 5e-3)

	coarse, err := base.Solve(b)
	require.NoError(t, err)
	fineGrid, err := b.Grid().RefineTime()
	require.NoError(t, err)
	fb, err := b.WithGrid(fineGrid)
	require.NoError(t, err)
	fine, err := base.Solve(fb)
	require.NoError(t, err)

	assert.Less(t, extrapolated.price, measure(t, coarse, false).price)
	assert.Less(t, extrapolated.price, measure(t, fine, false).price)

	for i := 0; i < res.NumberSpaceNodes(); i++ {
		assert.InDelta(t, 2*fine.FunctionValue(i)-coarse.FunctionValue(i), res.FunctionValue(i), 1e-12)
	}
}

func TestRichardsonOrder(t *testing.T) {
	_, err := NewRichardson(nil, 1)
	assert.ErrorIs(t, err, fdm.ErrParameterBounds)
	s, err := New(CrankNicolson)
	require.NoError(t, err)
	_, err = NewRichardson(s, 0)
	assert.ErrorIs(t, err, fdm.ErrParameterBounds)
}

func TestImplicitPut(t *testing.T) {
	g, err := grid.NewUniform1D(10, 100, expiry, 0, 6*strike)
	require.NoError(t, err)
	lower := boundary.NewDirichlet(0, func(tau float64) float64 { return strike * math.Exp(-rate*tau) })
	b, err := pde.NewBundle(pde.BlackScholes(rate, 0, vol), pde.PutPayoff(strike),
		lower, boundary.NewDirichletValue(6*strike, 0), g)
	require.NoError(t, err)

	s, err := New(Implicit)
	require.NoError(t, err)
	res, err := s.Solve(b)
	require.NoError(t, err)

	assert.InDelta(t, strike*math.Exp(-rate*expiry), res.FunctionValue(0), 1e-12)
	for i := 1; i < res.NumberSpaceNodes()-1; i++ {
		sp := res.SpaceValue(i)
		if m := sp / strike; m < 0.4 || m > 3 {
			continue
		}
		assert.InDelta(t, oracle.BlackScholes(sp, strike, expiry, rate, 0, vol, false), res.FunctionValue(i), 1e-2)
	}
}

func TestLogSpot(t *testing.T) {
	const k, tm = 100.0, 1.0
	lo, hi := math.Log(0.05*k), math.Log(6*k)
	g, err := grid.NewUniform1D(100, 200, tm, lo, hi)
	require.NoError(t, err)
	b, err := pde.NewBundle(pde.LogBlackScholes(rate, 0, vol), pde.LogPayoff(pde.CallPayoff(k)),
		boundary.NewDirichletValue(lo, 0), boundary.NewNeumannValue(hi, 6*k), g)
	require.NoError(t, err)

	s, err := New(CrankNicolson)
	require.NoError(t, err)
	res, err := s.Solve(b)
	require.NoError(t, err)

	best := 0
	for i := 1; i < res.NumberSpaceNodes(); i++ {
		if math.Abs(res.SpaceValue(i)-math.Log(k)) < math.Abs(res.SpaceValue(best)-math.Log(k)) {
			best = i
		}
	}
	spot, value, delta, gamma := results.FromLogSpot(res, best)
	assert.InDelta(t, oracle.BlackScholes(spot, k, tm, rate, 0, vol, true), value, 2e-2)
	assert.InDelta(t, oracle.Delta(spot, k, tm, rate, 0, vol, true), delta, 1e-3)
	assert.InDelta(t, oracle.Gamma(spot, k, tm, rate, 0, vol), gamma, 2e-4)
}

func TestLogSpotMatchesSpotGrid(t *testing.T) {
	lo, hi := math.Log(0.05*strike), math.Log(6*strike)
	g, err := grid.NewUniform1D(10, 100, expiry, lo, hi)
	require.NoError(t, err)
	logBundle, err := pde.NewBundle(pde.LogBlackScholes(rate, 0, vol), pde.LogPayoff(pde.CallPayoff(strike)),
		boundary.NewDirichletValue(lo, 0), boundary.NewNeumannValue(hi, 6*strike), g)
	require.NoError(t, err)

	for _, tc := range []struct {
		name  string
		theta float64
		tol   float64
	}{
		{"implicit", Implicit, 1.5e-2},
		{"crank-nicolson", CrankNicolson, 2e-2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(tc.theta)
			require.NoError(t, err)
			direct, err := s.Solve(callBundle(t, 10, 100))
			require.NoError(t, err)
			logRes, err := s.Solve(logBundle)
			require.NoError(t, err)

			worst, checked := 0.0, 0
			for i := 1; i < logRes.NumberSpaceNodes()-1; i++ {
				spot, value, _, _ := results.FromLogSpot(logRes, i)
				if spot < 0.4*strike || spot > 3*strike {
					continue
				}
				logVol, err1 := oracle.BlackScholesImpliedVol(value, spot, strike, expiry, rate, 0, true)
				spotVol, err2 := oracle.BlackScholesImpliedVol(direct.Interpolate(spot), spot, strike, expiry, rate, 0, true)
				// deep out of the money the coarse implicit price can sit
				// below the no-arbitrage bound
				if err1 != nil || err2 != nil {
					continue
				}
				worst = math.Max(worst, math.Abs(logVol-spotVol))
				checked++
			}
			assert.GreaterOrEqual(t, checked, 25)
			assert.Less(t, worst, tc.tol)
		})
	}
}

func TestCEVSkew(t *testing.T) {
	const f, tm, alpha, beta = 1.0, 1.0, 0.2, 0.4
	space, err := mesh.NewHyperbolic(0, 6, f, 100, 0.1)
	require.NoError(t, err)
	tmesh, err := mesh.NewUniform(0, tm, 25)
	require.NoError(t, err)
	g, err := grid.New1D(tmesh, space)
	require.NoError(t, err)

	s, err := New(CrankNicolson)
	require.NoError(t, err)
	for _, k := range []float64{0.6, 0.8, 1.0, 1.25, 1.6} {
		b, err := pde.NewBundle(pde.CEV(rate, beta, alpha), pde.CallPayoff(k),
			boundary.NewDirichletValue(0, 0), boundary.NewFixedSecondDerivativeValue(6, 0), g)
		require.NoError(t, err)
		res, err := s.Solve(b)
		require.NoError(t, err)

		iv, err := oracle.BlackImpliedVol(res.Interpolate(f), f, k, tm, rate, true)
		require.NoError(t, err)
		assert.InDelta(t, oracle.HaganCEV(f, k, tm, alpha, beta), iv, 3e-3, "strike %v", k)
	}
}

func americanPut(tb testing.TB, american bool) *pde.Bundle {
	tb.Helper()
	const k, tm = 100.0, 1.0
	space, err := mesh.NewHyperbolic(0, 4*k, k, 200, 0.1)
	require.NoError(tb, err)
	tmesh, err := mesh.NewUniform(0, tm, 100)
	require.NoError(tb, err)
	g, err := grid.New1D(tmesh, space)
	require.NoError(tb, err)

	payoff := pde.PutPayoff(k)
	lower := boundary.NewDirichlet(0, func(tau float64) float64 { return k * math.Exp(-rate*tau) })
	if american {
		lower = boundary.NewDirichletValue(0, k)
	}
	b, err := pde.NewBundle(pde.BlackScholes(rate, 0, vol), payoff, lower, boundary.NewDirichletValue(4*k, 0), g)
	require.NoError(tb, err)
	if american {
		b = b.WithFreeBoundary(func(_, s float64) float64 { return payoff(s) })
	}
	return b
}

func TestAmericanPut(t *testing.T) {
	s, err := New(CrankNicolson, WithFullResults())
	require.NoError(t, err)
	res, err := s.Solve(americanPut(t, true))
	require.NoError(t, err)
	am, ok := res.(*results.Full1D)
	require.True(t, ok)
	require.Equal(t, 101, am.NumberTimeNodes())

	eu, err := s.Solve(americanPut(t, false))
	require.NoError(t, err)

	assert.InDelta(t, 6.090, am.Interpolate(100), 1e-2)
	assert.InDelta(t, oracle.BlackScholes(100, 100, 1, rate, 0, vol, false), eu.Interpolate(100), 1e-2)

	for ti := 0; ti < am.NumberTimeNodes(); ti++ {
		for i := 0; i < am.NumberSpaceNodes(); i++ {
			payoff := math.Max(100-am.SpaceValue(i), 0)
			require.GreaterOrEqual(t, am.FunctionValueAt(ti, i), payoff, "time %d node %d", ti, i)
		}
	}
	for i := 0; i < am.NumberSpaceNodes(); i++ {
		assert.GreaterOrEqual(t, am.FunctionValue(i), eu.FunctionValue(i)-1e-12, "node %d", i)
	}
}

func TestAmericanDominatesEuropeanAtEveryStep(t *testing.T) {
	s, err := New(Implicit, WithFullResults())
	require.NoError(t, err)
	res, err := s.Solve(americanPut(t, true))
	require.NoError(t, err)
	am := res.(*results.Full1D)
	res, err = s.Solve(americanPut(t, false))
	require.NoError(t, err)
	eu := res.(*results.Full1D)

	for ti := 0; ti < am.NumberTimeNodes(); ti++ {
		for i := 0; i < am.NumberSpaceNodes(); i++ {
			require.GreaterOrEqual(t, am.FunctionValueAt(ti, i), eu.FunctionValueAt(ti, i)-1e-9, "time %d node %d", ti, i)
		}
	}
}

func TestAmericanPutPSOR(t *testing.T) {
	proj, err := New(CrankNicolson)
	require.NoError(t, err)
	lcp, err := New(CrankNicolson, WithPSOR(linalg.DefaultPSOR()))
	require.NoError(t, err)

	b := americanPut(t, true)
	a, err := proj.Solve(b)
	require.NoError(t, err)
	p, err := lcp.Solve(b)
	require.NoError(t, err)

	assert.InDelta(t, 6.090, p.Interpolate(100), 1e-2)
	assert.InDelta(t, a.Interpolate(100), p.Interpolate(100), 1e-2)
	for i := 0; i < p.NumberSpaceNodes(); i++ {
		assert.GreaterOrEqual(t, p.FunctionValue(i), math.Max(100-p.SpaceValue(i), 0))
	}
}

func TestPSORStartsFromUnconstrainedSolve(t *testing.T) {
	// one sweep only converges when the iteration starts at the solution
	s, err := New(Implicit, WithPSOR(linalg.PSOR{Omega: 1, Tolerance: 1e-8, MaxIter: 1}))
	require.NoError(t, err)

	m := linalg.NewTridiagonal(6)
	for i := range m.Diag {
		m.Diag[i] = 3
	}
	for i := range m.Lower {
		m.Lower[i] = -1
		m.Upper[i] = -1
	}
	rhs := []float64{1, 2, 3, 3, 2, 1}
	want := make([]float64, 6)
	require.NoError(t, m.Solve(rhs, want))

	h := []float64{5, 5, 5, 5, 5, 5}
	floor := make([]float64, 6)
	inactive := func(_, _ float64) float64 { return -10 }
	require.NoError(t, s.advance(m, rhs, h, floor, inactive, func(i int) float64 { return float64(i) }, 1))
	assert.InDeltaSlice(t, want, h, 1e-12)

	_, err = linalg.PSOR{Omega: 1, Tolerance: 1e-8, MaxIter: 1}.Solve(m, rhs, floor, []float64{5, 5, 5, 5, 5, 5})
	assert.ErrorIs(t, err, fdm.ErrNoConvergence)
}

func TestPSORIgnoredWithoutFreeBoundary(t *testing.T) {
	plain, err := New(CrankNicolson)
	require.NoError(t, err)
	withPSOR, err := New(CrankNicolson, WithPSOR(linalg.DefaultPSOR()))
	require.NoError(t, err)

	b := callBundle(t, 10, 50)
	a, err := plain.Solve(b)
	require.NoError(t, err)
	c, err := withPSOR.Solve(b)
	require.NoError(t, err)
	assert.Equal(t, a.Values(), c.Values())
}

func heatBundle(tb testing.TB, timeSteps int, tMax float64, initial func(float64) float64) *pde.Bundle {
	tb.Helper()
	g, err := grid.NewUniform1D(timeSteps, 20, tMax, 0, math.Pi)
	require.NoError(tb, err)
	b, err := pde.NewBundle(pde.Coefficients{A: pde.Const(-1)}, initial,
		boundary.NewDirichletValue(0, 0), boundary.NewDirichletValue(math.Pi, 0), g)
	require.NoError(tb, err)
	return b
}

func TestExplicitHeat(t *testing.T) {
	var steps []int
	var times []float64
	obs := fdm.ObserverFunc(func(step int, tm float64, values []float64) {
		steps = append(steps, step)
		times = append(times, tm)
	})
	s, err := New(Explicit, WithObserver(obs))
	require.NoError(t, err)

	res, err := s.Solve(heatBundle(t, 60, 0.5, math.Sin))
	require.NoError(t, err)
	for i := 0; i < res.NumberSpaceNodes(); i++ {
		x := res.SpaceValue(i)
		assert.InDelta(t, math.Exp(-0.5)*math.Sin(x), res.FunctionValue(i), 5e-3)
	}

	require.Len(t, steps, 60)
	assert.Equal(t, 1, steps[0])
	assert.Equal(t, 60, steps[59])
	assert.InDelta(t, 0.5, times[59], 1e-12)
}

func TestUnstableExplicitFails(t *testing.T) {
	s, err := New(Explicit)
	require.NoError(t, err)
	dx := math.Pi / 20
	_, err = s.Solve(heatBundle(t, 300, 300*100*dx*dx, func(x float64) float64 { return x * (math.Pi - x) }))
	require.ErrorIs(t, err, fdm.ErrInvalidState)

	var se *fdm.SolveError
	require.True(t, errors.As(err, &se))
	assert.Greater(t, se.Step, 0)
}

func TestInvalidInitialCondition(t *testing.T) {
	s, err := New(Implicit)
	require.NoError(t, err)
	_, err = s.Solve(heatBundle(t, 10, 1, func(float64) float64 { return math.NaN() }))
	require.ErrorIs(t, err, fdm.ErrInvalidState)

	var se *fdm.SolveError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 0, se.Step)
}

func TestNewValidation(t *testing.T) {
	for _, th := range []float64{-0.1, 1.5, math.NaN()} {
		_, err := New(th)
		assert.ErrorIs(t, err, fdm.ErrParameterBounds, "theta %v", th)
	}
	_, err := New(CrankNicolson, WithPSOR(linalg.PSOR{Omega: 2.5, Tolerance: 1e-8, MaxIter: 10}))
	assert.ErrorIs(t, err, fdm.ErrParameterBounds)

	s, err := New(0.3)
	require.NoError(t, err)
	assert.Equal(t, 0.3, s.Theta())
}

func BenchmarkCrankNicolson(b *testing.B) {
	bundle := callBundle(b, 100, 200)
	s, err := New(CrankNicolson)
	require.NoError(b, err)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Solve(bundle); err != nil {
			b.Fatal(err)
		}
	}
}
