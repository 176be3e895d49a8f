package pde

import "math"

// LocalVol is a local volatility surface as a function of calendar time and
// the underlying level.
type LocalVol func(t, s float64) float64

// BlackScholes is the backward equation in spot with constant rate r, yield
// q and volatility vol.
func BlackScholes(r, q, vol float64) Coefficients {
	return Coefficients{
		A: func(_, s float64) float64 {
			sv := s * vol
			return -0.5 * sv * sv
		},
		B: func(_, s float64) float64 { return -s * (r - q) },
		C: Const(r),
	}
}

// LogBlackScholes is the backward equation in x = ln(spot).
func LogBlackScholes(r, q, vol float64) Coefficients {
	a := -0.5 * vol * vol
	return Coefficients{A: Const(a), B: Const(-a - (r - q)), C: Const(r)}
}

// CEV is the backward equation for dF = vol·F^beta·dW with the space
// variable the forward and discounting at r.
func CEV(r, beta, vol float64) Coefficients {
	return Coefficients{
		A: func(_, f float64) float64 {
			v := vol * math.Pow(f, beta)
			return -0.5 * v * v
		},
		C: Const(r),
	}
}

// BackwardLocalVol is the backward equation in spot. Since the time variable
// is time to expiry, the surface is read at calendar time maturity - t.
func BackwardLocalVol(r, q, maturity float64, lv LocalVol) Coefficients {
	return Coefficients{
		A: func(tau, s float64) float64 {
			v := s * lv(maturity-tau, s)
			return -0.5 * v * v
		},
		B: func(_, s float64) float64 { return -s * (r - q) },
		C: Const(r),
	}
}

// ForwardLocalVol is Dupire's forward equation for call prices in strike k
// and calendar time.
func ForwardLocalVol(r, q float64, lv LocalVol) Coefficients {
	return Coefficients{
		A: func(t, k float64) float64 {
			v := k * lv(t, k)
			return -0.5 * v * v
		},
		B: func(_, k float64) float64 { return k * (r - q) },
		C: Const(q),
	}
}

// ForwardBlackScholes is ForwardLocalVol with a flat surface.
func ForwardBlackScholes(r, q, vol float64) Coefficients {
	return ForwardLocalVol(r, q, func(float64, float64) float64 { return vol })
}

// FokkerPlanck is the forward equation for the transition density of spot
// under a local volatility surface, in conservative form.
func FokkerPlanck(r, q float64, lv LocalVol) FullCoefficients {
	return FullCoefficients{
		A: Const(1),
		B: Const(1),
		Alpha: func(t, s float64) float64 {
			v := s * lv(t, s)
			return -0.5 * v * v
		},
		Beta: func(_, s float64) float64 { return (r - q) * s },
	}
}

// HestonParameters are the risk-neutral Heston dynamics
//
//	dS = r·S·dt + √v·S·dW₁
//	dv = κ(θ − v)·dt + ξ·√v·dW₂,  d⟨W₁,W₂⟩ = ρ·dt
type HestonParameters struct {
	Rate     float64
	Kappa    float64
	Theta    float64
	VolOfVol float64
	Rho      float64
}

// Heston is the backward equation in (spot, variance).
func Heston(p HestonParameters) Coefficients2D {
	return Coefficients2D{
		A: func(_, s, v float64) float64 { return -0.5 * v * s * s },
		B: func(_, s, _ float64) float64 { return -p.Rate * s },
		C: func(float64, float64, float64) float64 { return p.Rate },
		D: func(_, _, v float64) float64 { return -0.5 * p.VolOfVol * p.VolOfVol * v },
		E: func(_, s, v float64) float64 { return -p.Rho * p.VolOfVol * v * s },
		F: func(_, _, v float64) float64 { return -p.Kappa * (p.Theta - v) },
	}
}
