package experiment

import (
	"fmt"
	"math"
	"sort"

	"github.com/golang/glog"
	"github.com/san-kum/pdesim/internal/adi"
	"github.com/san-kum/pdesim/internal/analysis"
	"github.com/san-kum/pdesim/internal/boundary"
	"github.com/san-kum/pdesim/internal/config"
	"github.com/san-kum/pdesim/internal/coupled"
	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/grid"
	"github.com/san-kum/pdesim/internal/linalg"
	"github.com/san-kum/pdesim/internal/mesh"
	"github.com/san-kum/pdesim/internal/metrics"
	"github.com/san-kum/pdesim/internal/oracle"
	"github.com/san-kum/pdesim/internal/pde"
	"github.com/san-kum/pdesim/internal/results"
	"github.com/san-kum/pdesim/internal/theta"
	"gonum.org/v1/gonum/floats"
)

// spaceMesh lays the configured steps on [lower, upper]. Hyperbolic meshes
// concentrate at focus; the others get focus as a node.
func spaceMesh(g config.GridConfig, lower, upper, focus float64) (mesh.Meshing, error) {
	var (
		m   mesh.Meshing
		err error
	)
	switch g.Mesh {
	case "hyperbolic":
		return mesh.NewHyperbolic(lower, upper, focus, g.SpaceSteps, g.Strength)
	case "exponential":
		m, err = mesh.NewExponential(lower, upper, g.SpaceSteps, g.Strength)
	default:
		m, err = mesh.NewUniform(lower, upper, g.SpaceSteps)
	}
	if err != nil {
		return nil, err
	}
	if focus > lower && focus < upper {
		return mesh.WithFixedPoints(m, focus)
	}
	return m, nil
}

func grid1D(cfg *config.Config, t0, lower, upper, focus float64) (*grid.Grid1D, error) {
	tm, err := mesh.NewUniform(t0, cfg.Option.Expiry, cfg.Grid.TimeSteps)
	if err != nil {
		return nil, err
	}
	sm, err := spaceMesh(cfg.Grid, lower, upper, focus)
	if err != nil {
		return nil, err
	}
	return grid.New1D(tm, sm)
}

func inside(x, lower, upper float64) error {
	if x < lower || x > upper {
		return fmt.Errorf("evaluation point %v outside grid [%v, %v]: %w", x, lower, upper, fdm.ErrParameterBounds)
	}
	return nil
}

func thetaFor(cfg *config.Config) float64 {
	switch cfg.Scheme {
	case "explicit":
		return theta.Explicit
	case "implicit":
		return theta.Implicit
	case "crank_nicolson":
		return theta.CrankNicolson
	default:
		return cfg.Theta
	}
}

func solver1D(cfg *config.Config, ms []metrics.Metric) (theta.Solver1D, error) {
	th := thetaFor(cfg)
	var opts []theta.Option
	for _, m := range ms {
		opts = append(opts, theta.WithObserver(m))
	}
	switch cfg.Scheme {
	case "psor":
		opts = append(opts, theta.WithPSOR(linalg.DefaultPSOR()))
	case "richardson":
	default:
		if cfg.FullResults {
			opts = append(opts, theta.WithFullResults())
		}
	}
	s, err := theta.New(th, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Scheme != "richardson" {
		return s, nil
	}
	order := 1
	if th == theta.CrankNicolson {
		order = 2
	}
	return theta.NewRichardson(s, order)
}

func coupledSolver(cfg *config.Config, dir coupled.Direction, full bool, ms []metrics.Metric) (*coupled.Solver, error) {
	var opts []coupled.Option
	for _, m := range ms {
		opts = append(opts, coupled.WithObserver(0, m))
	}
	if full {
		opts = append(opts, coupled.WithFullResults())
	}
	return coupled.New(thetaFor(cfg), dir, opts...)
}

func payoff(cfg *config.Config) func(float64) float64 {
	if cfg.Option.Call {
		return pde.CallPayoff(cfg.Option.Strike)
	}
	return pde.PutPayoff(cfg.Option.Strike)
}

// spotBoundaries are the far-field conditions of a vanilla on [0, upper]:
// zero curvature above for calls, the discounted strike at zero for puts.
func spotBoundaries(cfg *config.Config, upper float64) (boundary.Condition, boundary.Condition) {
	k, r := cfg.Option.Strike, cfg.Market.Rate
	if cfg.Option.Call {
		return boundary.NewDirichletValue(0, 0), boundary.NewFixedSecondDerivativeValue(upper, 0)
	}
	return boundary.NewDirichlet(0, func(tau float64) float64 { return k * math.Exp(-r*tau) }),
		boundary.NewDirichletValue(upper, 0)
}

func nearestNode(nodes []float64, x float64) int {
	i := sort.SearchFloat64s(nodes, x)
	if i == len(nodes) {
		return i - 1
	}
	if i > 0 && x-nodes[i-1] < nodes[i]-x {
		i--
	}
	return i
}

func curve(name string, r results.Result1D, toX func(float64) float64) Curve {
	xs := r.Grid().SpaceNodes()
	if toX != nil {
		for i, x := range xs {
			xs[i] = toX(x)
		}
	}
	return Curve{Name: name, X: xs, Y: r.Values()}
}

func fullSurface(r results.Result1D, ylabel string, toY func(float64) float64) *Surface {
	full, ok := r.(*results.Full1D)
	if !ok {
		return nil
	}
	s := &Surface{XLabel: "tau", YLabel: ylabel, Y: full.Grid().SpaceNodes()}
	if toY != nil {
		for i, y := range s.Y {
			s.Y[i] = toY(y)
		}
	}
	for t := 0; t < full.NumberTimeNodes(); t++ {
		s.X = append(s.X, full.TimeValue(t))
		s.Values = append(s.Values, full.Slice(t))
	}
	return s
}

// outcome1D reads a price profile at the configured spot. x is the spot in
// grid units and toSpot maps grid units back to spot.
func outcome1D(r results.Result1D, ms []metrics.Metric, name string, x float64, toSpot func(float64) float64) *Outcome {
	out := &Outcome{
		Reference: math.NaN(),
		Curves:    []Curve{curve(name, r, toSpot)},
		Surface:   fullSurface(r, "spot", toSpot),
		Metrics:   metrics.Collect(ms...),
		Value:     r.Interpolate(x),
	}
	i := nearestNode(r.Grid().SpaceNodes(), x)
	if toSpot != nil {
		_, _, out.Delta, out.Gamma = results.FromLogSpot(r, i)
	} else {
		out.Delta, out.Gamma = r.FirstSpatialDerivative(i), r.SecondSpatialDerivative(i)
	}
	if idx, err := analysis.OscillationIndex(r); err == nil {
		out.Metrics["oscillation"] = idx
	}
	return out
}

// impliedVol inverts a price; an inversion failure reports zero.
func impliedVol(invert func() (float64, error)) float64 {
	v, err := invert()
	if err != nil {
		glog.V(1).Infof("implied vol: %v", err)
		return 0
	}
	return v
}

func bsImpliedVol(cfg *config.Config, price float64) float64 {
	return impliedVol(func() (float64, error) {
		return oracle.BlackScholesImpliedVol(price, cfg.Market.Spot, cfg.Option.Strike, cfg.Option.Expiry,
			cfg.Market.Rate, cfg.Market.Dividend, cfg.Option.Call)
	})
}

func bsReference(cfg *config.Config, vol float64) float64 {
	return oracle.BlackScholes(cfg.Market.Spot, cfg.Option.Strike, cfg.Option.Expiry,
		cfg.Market.Rate, cfg.Market.Dividend, vol, cfg.Option.Call)
}

// solveSpot runs a vanilla whose space variable is the spot itself.
func solveSpot(cfg *config.Config, op pde.Operator, ms []metrics.Metric) (*Outcome, error) {
	upper := cfg.Grid.SpaceMax * cfg.Option.Strike
	if err := inside(cfg.Market.Spot, 0, upper); err != nil {
		return nil, err
	}
	g, err := grid1D(cfg, 0, 0, upper, cfg.Option.Strike)
	if err != nil {
		return nil, err
	}
	lower, up := spotBoundaries(cfg, upper)
	b, err := pde.NewBundle(op, payoff(cfg), lower, up, g)
	if err != nil {
		return nil, err
	}
	s, err := solver1D(cfg, ms)
	if err != nil {
		return nil, err
	}
	res, err := s.Solve(b)
	if err != nil {
		return nil, err
	}
	return outcome1D(res, ms, "price", cfg.Market.Spot, nil), nil
}

func runBlackScholes(cfg *config.Config, ms []metrics.Metric) (*Outcome, error) {
	m := cfg.Market
	out, err := solveSpot(cfg, pde.BlackScholes(m.Rate, m.Dividend, m.Vol), ms)
	if err != nil {
		return nil, err
	}
	out.Reference = bsReference(cfg, m.Vol)
	out.ImpliedVol = bsImpliedVol(cfg, out.Value)
	return out, nil
}

// runLogBlackScholes solves on x = ln(spot) over [ln(K/20), ln(space_max·K)].
func runLogBlackScholes(cfg *config.Config, ms []metrics.Metric) (*Outcome, error) {
	m, k := cfg.Market, cfg.Option.Strike
	lower, upper := math.Log(k/20), math.Log(cfg.Grid.SpaceMax*k)
	x := math.Log(m.Spot)
	if err := inside(x, lower, upper); err != nil {
		return nil, err
	}
	g, err := grid1D(cfg, 0, lower, upper, math.Log(k))
	if err != nil {
		return nil, err
	}

	var lo, up boundary.Condition
	if cfg.Option.Call {
		smax := math.Exp(upper)
		lo = boundary.NewDirichletValue(lower, 0)
		up = boundary.NewNeumann(upper, func(tau float64) float64 { return smax * math.Exp(-m.Dividend*tau) })
	} else {
		smin := math.Exp(lower)
		lo = boundary.NewDirichlet(lower, func(tau float64) float64 {
			return k*math.Exp(-m.Rate*tau) - smin*math.Exp(-m.Dividend*tau)
		})
		up = boundary.NewNeumannValue(upper, 0)
	}
	b, err := pde.NewBundle(pde.LogBlackScholes(m.Rate, m.Dividend, m.Vol), pde.LogPayoff(payoff(cfg)), lo, up, g)
	if err != nil {
		return nil, err
	}
	s, err := solver1D(cfg, ms)
	if err != nil {
		return nil, err
	}
	res, err := s.Solve(b)
	if err != nil {
		return nil, err
	}
	out := outcome1D(res, ms, "price", x, math.Exp)
	out.Reference = bsReference(cfg, m.Vol)
	out.ImpliedVol = bsImpliedVol(cfg, out.Value)
	return out, nil
}

// runCEV reads the spot as the forward and compares with Black at the
// Hagan-Woodward implied vol.
func runCEV(cfg *config.Config, ms []metrics.Metric) (*Outcome, error) {
	m, o := cfg.Market, cfg.Option
	out, err := solveSpot(cfg, pde.CEV(m.Rate, m.CEVBeta, m.Vol), ms)
	if err != nil {
		return nil, err
	}
	vol := oracle.HaganCEV(m.Spot, o.Strike, o.Expiry, m.Vol, m.CEVBeta)
	out.Reference = oracle.Black(m.Spot, o.Strike, o.Expiry, m.Rate, vol, o.Call)
	out.ImpliedVol = impliedVol(func() (float64, error) {
		return oracle.BlackImpliedVol(out.Value, m.Spot, o.Strike, o.Expiry, m.Rate, o.Call)
	})
	out.Metrics["hagan_vol"] = vol
	return out, nil
}

// powerLocalVol is σ(t, s) = vol·(s/spot)^skew.
func powerLocalVol(vol, spot, skew float64) pde.LocalVol {
	return func(_, s float64) float64 {
		if s <= 0 || skew == 0 {
			return vol
		}
		return vol * math.Pow(s/spot, skew)
	}
}

func runLocalVol(cfg *config.Config, ms []metrics.Metric) (*Outcome, error) {
	m := cfg.Market
	lv := powerLocalVol(m.Vol, m.Spot, m.Skew)
	out, err := solveSpot(cfg, pde.BackwardLocalVol(m.Rate, m.Dividend, cfg.Option.Expiry, lv), ms)
	if err != nil {
		return nil, err
	}
	if m.Skew == 0 {
		out.Reference = bsReference(cfg, m.Vol)
	}
	out.ImpliedVol = bsImpliedVol(cfg, out.Value)
	return out, nil
}

// runAmericanPut has no closed form; the European price and the critical
// spot below which exercise is optimal are reported as metrics.
func runAmericanPut(cfg *config.Config, ms []metrics.Metric) (*Outcome, error) {
	m, k := cfg.Market, cfg.Option.Strike
	upper := cfg.Grid.SpaceMax * k
	if err := inside(m.Spot, 0, upper); err != nil {
		return nil, err
	}
	g, err := grid1D(cfg, 0, 0, upper, k)
	if err != nil {
		return nil, err
	}
	put := pde.PutPayoff(k)
	b, err := pde.NewBundle(pde.BlackScholes(m.Rate, m.Dividend, m.Vol), put,
		boundary.NewDirichletValue(0, k), boundary.NewDirichletValue(upper, 0), g)
	if err != nil {
		return nil, err
	}
	b = b.WithFreeBoundary(func(_, s float64) float64 { return put(s) })

	s, err := solver1D(cfg, ms)
	if err != nil {
		return nil, err
	}
	res, err := s.Solve(b)
	if err != nil {
		return nil, err
	}
	out := outcome1D(res, ms, "price", m.Spot, nil)

	european := oracle.BlackScholes(m.Spot, k, cfg.Option.Expiry, m.Rate, m.Dividend, m.Vol, false)
	out.Metrics["european"] = european
	out.Metrics["early_exercise_premium"] = out.Value - european
	critical := 0.0
	for i := 0; i < res.NumberSpaceNodes(); i++ {
		sp := res.SpaceValue(i)
		if sp >= k || res.FunctionValue(i) > put(sp)+1e-9*k {
			break
		}
		critical = sp
	}
	out.Metrics["exercise_boundary"] = critical
	return out, nil
}

func runRegimeSwitching(cfg *config.Config, ms []metrics.Metric) (*Outcome, error) {
	m, rg := cfg.Market, cfg.Regimes
	upper := cfg.Grid.SpaceMax * cfg.Option.Strike
	if err := inside(m.Spot, 0, upper); err != nil {
		return nil, err
	}
	g, err := grid1D(cfg, 0, 0, upper, cfg.Option.Strike)
	if err != nil {
		return nil, err
	}
	lower, up := spotBoundaries(cfg, upper)
	eqs := make([]pde.CoupledBundle, len(rg.Vols))
	for i, v := range rg.Vols {
		b, err := pde.NewBundle(pde.BlackScholes(m.Rate, m.Dividend, v), payoff(cfg), lower, up, g)
		if err != nil {
			return nil, err
		}
		eqs[i] = pde.CoupledBundle{Bundle: b, Lambda: rg.Rates[i]}
	}

	s, err := coupledSolver(cfg, coupled.Backward, cfg.FullResults, ms)
	if err != nil {
		return nil, err
	}
	res, err := s.Solve(eqs...)
	if err != nil {
		return nil, err
	}
	out := outcome1D(res[0], ms, "regime_0", m.Spot, nil)
	out.Curves = append(out.Curves, curve("regime_1", res[1], nil))
	out.Metrics["value_regime_1"] = res[1].Interpolate(m.Spot)
	if rg.Rates[0] == 0 {
		// Regime 0 is absorbing.
		out.Reference = bsReference(cfg, rg.Vols[0])
	}
	out.ImpliedVol = bsImpliedVol(cfg, out.Value)
	return out, nil
}

func flatVol(v float64) pde.LocalVol {
	return func(float64, float64) float64 { return v }
}

// runFokkerPlanck propagates the spot density through the regimes, starting
// with all mass in regime 0 as a short-dated lognormal. Value is the total
// mass at expiry, whose reference is one.
func runFokkerPlanck(cfg *config.Config, ms []metrics.Metric) (*Outcome, error) {
	m, rg := cfg.Market, cfg.Regimes
	t0 := math.Min(0.01, cfg.Option.Expiry/10)
	upper := cfg.Grid.SpaceMax * m.Spot
	g, err := grid1D(cfg, t0, 0, upper, m.Spot)
	if err != nil {
		return nil, err
	}

	bundles := make([]*pde.Bundle, len(rg.Vols))
	for i, v := range rg.Vols {
		initial := func(float64) float64 { return 0 }
		if i == 0 {
			initial = pde.LogNormalDensity(m.Spot, m.Rate-m.Dividend, v, t0)
		}
		bundles[i], err = pde.NewBundle(pde.FokkerPlanck(m.Rate, m.Dividend, flatVol(v)), initial,
			boundary.NewDirichletValue(0, 0), boundary.NewDirichletValue(upper, 0), g)
		if err != nil {
			return nil, err
		}
	}
	rates := [][]float64{{0, rg.Rates[0]}, {rg.Rates[1], 0}}

	s, err := coupledSolver(cfg, coupled.Forward, true, ms)
	if err != nil {
		return nil, err
	}
	res, err := s.SolveSystem(bundles, rates)
	if err != nil {
		return nil, err
	}

	nodes := g.SpaceNodes()
	full := make([]*results.Full1D, len(res))
	for i, r := range res {
		full[i] = r.(*results.Full1D)
	}
	total := func(t int) []float64 {
		sum := full[0].Slice(t)
		for _, f := range full[1:] {
			floats.Add(sum, f.Slice(t))
		}
		return sum
	}

	drift := metrics.NewMassDrift(nodes)
	drift.Start(total(0))
	last := full[0].NumberTimeNodes() - 1
	for t := 1; t <= last; t++ {
		drift.Observe(t, full[0].TimeValue(t), total(t))
	}
	mass := metrics.NewMass(nodes)
	terminal := total(last)
	mass.Observe(last, full[0].TimeValue(last), terminal)
	regime1 := metrics.NewMass(nodes)
	regime1.Observe(last, full[0].TimeValue(last), full[1].Slice(last))

	lv, err := coupled.LocalVol(res, rg.Vols)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		Value:     mass.Value(),
		Reference: 1,
		Curves: []Curve{
			{Name: "density", X: nodes, Y: terminal},
			curve("density_0", res[0], nil),
			curve("density_1", res[1], nil),
			{Name: "local_vol", X: nodes, Y: lv},
		},
		Metrics: metrics.Collect(append(ms, drift)...),
	}
	out.Metrics["mass_regime_1"] = regime1.Value()
	if cfg.FullResults {
		out.Surface = &Surface{XLabel: "t", YLabel: "spot", Y: nodes}
		for t := 0; t <= last; t++ {
			out.Surface.X = append(out.Surface.X, full[0].TimeValue(t))
			out.Surface.Values = append(out.Surface.Values, total(t))
		}
	}
	return out, nil
}

// runHeston prices on (spot, variance) with v0 = vol² and compares with
// Black-Scholes at vol, which it matches as the vol of vol goes to zero with
// theta = v0.
func runHeston(cfg *config.Config, ms []metrics.Metric) (*Outcome, error) {
	m, o, h := cfg.Market, cfg.Option, cfg.Heston
	if m.Dividend != 0 {
		return nil, fmt.Errorf("heston carries no dividend yield, got %v: %w", m.Dividend, fdm.ErrParameterBounds)
	}
	xUpper, yUpper := cfg.Grid.SpaceMax*o.Strike, cfg.Grid.VarMax
	v0 := m.Vol * m.Vol
	if err := inside(m.Spot, 0, xUpper); err != nil {
		return nil, err
	}
	if err := inside(v0, 0, yUpper); err != nil {
		return nil, err
	}
	tm, err := mesh.NewUniform(0, o.Expiry, cfg.Grid.TimeSteps)
	if err != nil {
		return nil, err
	}
	xm, err := spaceMesh(cfg.Grid, 0, xUpper, o.Strike)
	if err != nil {
		return nil, err
	}
	ym, err := mesh.NewUniform(0, yUpper, cfg.Grid.VarSteps)
	if err != nil {
		return nil, err
	}
	g, err := grid.New2D(tm, xm, ym)
	if err != nil {
		return nil, err
	}

	k, r := o.Strike, m.Rate
	zero := func(float64, float64) float64 { return 0 }
	discounted := func(t, _ float64) float64 { return k * math.Exp(-r*t) }
	xLower, xUp := boundary.NewDirichlet2D(0, zero), boundary.NewDirichlet2D(xUpper, func(t, _ float64) float64 {
		return xUpper - k*math.Exp(-r*t)
	})
	if !o.Call {
		xLower, xUp = boundary.NewDirichlet2D(0, discounted), boundary.NewDirichlet2D(xUpper, zero)
	}
	pay := payoff(cfg)
	p := pde.HestonParameters{Rate: r, Kappa: h.Kappa, Theta: h.Theta, VolOfVol: h.VolOfVol, Rho: h.Rho}
	b, err := pde.NewBundle2D(pde.Heston(p), func(s, _ float64) float64 { return pay(s) },
		xLower, xUp, boundary.NewNeumann2D(0, zero), boundary.NewNeumann2D(yUpper, zero), g)
	if err != nil {
		return nil, err
	}

	var opts []adi.LookupOption
	if cfg.Experimental {
		opts = append(opts, adi.AllowExperimental())
	}
	scheme, err := adi.Lookup(cfg.Scheme, cfg.Theta, opts...)
	if err != nil {
		return nil, err
	}
	res, err := scheme.Solve(b)
	if err != nil {
		return nil, err
	}

	values := res.Values()
	xs, ys := g.X().Nodes(), g.Y().Nodes()
	i, j := nearestNode(xs, m.Spot), nearestNode(ys, v0)
	slice := make([]float64, len(xs))
	var flat []float64
	for a := range values {
		slice[a] = values[a][j]
		flat = append(flat, values[a]...)
	}
	// The ADI schemes take no observers; the metrics see the final surface.
	for _, mt := range ms {
		mt.Observe(cfg.Grid.TimeSteps, o.Expiry, flat)
	}

	bs := oracle.BlackScholes(m.Spot, k, o.Expiry, r, 0, m.Vol, o.Call)
	out := &Outcome{
		Value:     res.Interpolate(m.Spot, v0),
		Reference: bs,
		Delta:     res.DX(i, j),
		Gamma:     res.DXX(i, j),
		Curves:    []Curve{{Name: "price_at_v0", X: xs, Y: slice}},
		Surface:   &Surface{XLabel: "spot", YLabel: "variance", X: xs, Y: ys, Values: values},
		Metrics:   metrics.Collect(ms...),
	}
	out.ImpliedVol = impliedVol(func() (float64, error) {
		return oracle.BlackScholesImpliedVol(out.Value, m.Spot, k, o.Expiry, r, 0, o.Call)
	})
	return out, nil
}
