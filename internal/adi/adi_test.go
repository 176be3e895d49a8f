package adi_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pdesim/internal/adi"
	"github.com/san-kum/pdesim/internal/boundary"
	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/grid"
	"github.com/san-kum/pdesim/internal/mesh"
	"github.com/san-kum/pdesim/internal/oracle"
	"github.com/san-kum/pdesim/internal/pde"
)

func uniformGrid(steps int, tMax float64, xMin, xMax float64, nx int, yMin, yMax float64, ny int) *grid.Grid2D {
	tm, err := mesh.NewUniform(0, tMax, steps)
	Expect(err).NotTo(HaveOccurred())
	xm, err := mesh.NewUniform(xMin, xMax, nx)
	Expect(err).NotTo(HaveOccurred())
	ym, err := mesh.NewUniform(yMin, yMax, ny)
	Expect(err).NotTo(HaveOccurred())
	g, err := grid.New2D(tm, xm, ym)
	Expect(err).NotTo(HaveOccurred())
	return g
}

// heat decays as exp(-2.5t)·sin(x + y) under a = d = -1, e = -1/2.
func heat(t, x, y float64) float64 { return math.Exp(-2.5*t) * math.Sin(x+y) }

func heatBundle() *pde.Bundle2D {
	const hi = math.Pi / 2
	g := uniformGrid(50, 0.5, 0, hi, 20, 0, hi, 20)
	coeff := pde.Coefficients2D{
		A: func(float64, float64, float64) float64 { return -1 },
		D: func(float64, float64, float64) float64 { return -1 },
		E: func(float64, float64, float64) float64 { return -0.5 },
	}
	b, err := pde.NewBundle2D(coeff, func(x, y float64) float64 { return heat(0, x, y) },
		boundary.NewDirichlet2D(0, func(t, y float64) float64 { return heat(t, 0, y) }),
		boundary.NewDirichlet2D(hi, func(t, y float64) float64 { return heat(t, hi, y) }),
		boundary.NewDirichlet2D(0, func(t, x float64) float64 { return heat(t, x, 0) }),
		boundary.NewDirichlet2D(hi, func(t, x float64) float64 { return heat(t, x, hi) }),
		g)
	Expect(err).NotTo(HaveOccurred())
	return b
}

const (
	strike = 1.0
	rate   = 0.05
)

// hestonBundle has a vol of vol small enough that the price at v = θ is the
// Black-Scholes price with σ = √θ.
func hestonBundle() *pde.Bundle2D {
	g := uniformGrid(50, 1, 0, 4, 80, 0, 0.16, 16)
	p := pde.HestonParameters{Rate: rate, Kappa: 2, Theta: 0.04, VolOfVol: 0.01, Rho: -0.5}
	zero := func(float64, float64) float64 { return 0 }
	b, err := pde.NewBundle2D(pde.Heston(p), func(s, _ float64) float64 { return math.Max(s-strike, 0) },
		boundary.NewDirichlet2D(0, zero),
		boundary.NewDirichlet2D(4, func(t, _ float64) float64 { return 4 - strike*math.Exp(-rate*t) }),
		boundary.NewNeumann2D(0, zero),
		boundary.NewNeumann2D(0.16, zero),
		g)
	Expect(err).NotTo(HaveOccurred())
	return b
}

func scheme(name string) adi.Scheme {
	s, err := adi.Lookup(name, 0.5, adi.AllowExperimental())
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("ADI schemes", func() {
	schemes := []TableEntry{
		Entry("Douglas", "douglas"),
		Entry("Craig-Sneyd", "craig_sneyd"),
		Entry("Peaceman-Rachford", "peaceman_rachford"),
		Entry("operator splitting", "operator_splitting"),
	}

	DescribeTable("reproduce the exact heat solution with a cross term",
		func(name string) {
			res, err := scheme(name).Solve(heatBundle())
			Expect(err).NotTo(HaveOccurred())

			g := res.Grid()
			worst := 0.0
			for i := 0; i < g.NumXNodes(); i++ {
				for j := 0; j < g.NumYNodes(); j++ {
					worst = math.Max(worst, math.Abs(res.Value(i, j)-heat(0.5, g.X().Node(i), g.Y().Node(j))))
				}
			}
			Expect(worst).To(BeNumerically("<", 5e-3))
		},
		schemes,
	)

	DescribeTable("price a near-degenerate Heston call at Black-Scholes",
		func(name string) {
			res, err := scheme(name).Solve(hestonBundle())
			Expect(err).NotTo(HaveOccurred())

			g := res.Grid()
			j := 4
			Expect(g.Y().Node(j)).To(BeNumerically("~", 0.04, 1e-12))
			for i := 0; i < g.NumXNodes(); i++ {
				s := g.X().Node(i)
				if s < 0.5 || s > 2 {
					continue
				}
				want := oracle.BlackScholes(s, strike, 1, rate, 0, 0.2, true)
				Expect(res.Value(i, j)).To(BeNumerically("~", want, 2e-3), "spot %v", s)
			}
			Expect(res.Interpolate(1, 0.04)).To(BeNumerically("~", oracle.BlackScholes(1, strike, 1, rate, 0, 0.2, true), 2e-3))
			Expect(res.DX(20, j)).To(BeNumerically("~", oracle.Delta(1, strike, 1, rate, 0, 0.2, true), 1e-2))
		},
		schemes,
	)

	It("gives identical results on repeated parallel solves", func() {
		s := scheme("douglas")
		a, err := s.Solve(hestonBundle())
		Expect(err).NotTo(HaveOccurred())
		b, err := s.Solve(hestonBundle())
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Values()).To(Equal(b.Values()))
	})

	It("reports a blow-up as a solve error", func() {
		g := uniformGrid(5, 1, 0, 1, 10, 0, 1, 10)
		zero := func(float64, float64) float64 { return 0 }
		coeff := pde.Coefficients2D{C: func(float64, float64, float64) float64 { return math.Inf(-1) }}
		b, err := pde.NewBundle2D(coeff, func(float64, float64) float64 { return 1 },
			boundary.NewDirichlet2D(0, zero), boundary.NewDirichlet2D(1, zero),
			boundary.NewDirichlet2D(0, zero), boundary.NewDirichlet2D(1, zero), g)
		Expect(err).NotTo(HaveOccurred())

		s, err := adi.NewOperatorSplitting(0.5)
		Expect(err).NotTo(HaveOccurred())
		_, err = s.Solve(b)
		Expect(err).To(HaveOccurred())
		var se *fdm.SolveError
		Expect(err).To(BeAssignableToTypeOf(se))
		Expect(err.(*fdm.SolveError).Step).To(Equal(1))
	})
})

var _ = Describe("Lookup", func() {
	It("lists every scheme", func() {
		Expect(adi.Names()).To(Equal([]string{"craig_sneyd", "douglas", "operator_splitting", "peaceman_rachford"}))
	})

	It("returns stable schemes without opting in", func() {
		for _, name := range []string{"douglas", "operator_splitting"} {
			s, err := adi.Lookup(name, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Name()).To(Equal(name))
			Expect(s.Experimental()).To(BeFalse())
		}
	})

	It("refuses experimental schemes unless allowed", func() {
		for _, name := range []string{"craig_sneyd", "peaceman_rachford"} {
			_, err := adi.Lookup(name, 0.5)
			Expect(err).To(MatchError(fdm.ErrExperimental))

			s, err := adi.Lookup(name, 0.5, adi.AllowExperimental())
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Experimental()).To(BeTrue())
		}
	})

	It("rejects unknown names and bad theta", func() {
		_, err := adi.Lookup("hopscotch", 0.5)
		Expect(err).To(MatchError(fdm.ErrParameterBounds))
		_, err = adi.Lookup("douglas", 2)
		Expect(err).To(MatchError(fdm.ErrParameterBounds))
		_, err = adi.NewCraigSneyd(-1)
		Expect(err).To(MatchError(fdm.ErrParameterBounds))
	})
})
