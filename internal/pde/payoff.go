package pde

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// NormalCDF is the standard normal distribution function.
func NormalCDF(x float64) float64 { return distuv.UnitNormal.CDF(x) }

// NormalPDF is the standard normal density.
func NormalPDF(x float64) float64 { return distuv.UnitNormal.Prob(x) }

func CallPayoff(strike float64) func(float64) float64 {
	return func(s float64) float64 { return math.Max(s-strike, 0) }
}

func PutPayoff(strike float64) func(float64) float64 {
	return func(s float64) float64 { return math.Max(strike-s, 0) }
}

// DigitalPayoff pays 1 above the strike for a call and below it for a put.
func DigitalPayoff(strike float64, isCall bool) func(float64) float64 {
	return func(s float64) float64 {
		if (isCall && s > strike) || (!isCall && s < strike) {
			return 1
		}
		return 0
	}
}

// LogPayoff evaluates a spot payoff at exp(x).
func LogPayoff(payoff func(float64) float64) func(float64) float64 {
	return func(x float64) float64 { return payoff(math.Exp(x)) }
}

// LogNormalDensity is the density at time t of a geometric Brownian motion
// started at s0 with drift mu and volatility vol.
func LogNormalDensity(s0, mu, vol, t float64) func(float64) float64 {
	sd := vol * math.Sqrt(t)
	m := math.Log(s0) + (mu-0.5*vol*vol)*t
	return func(s float64) float64 {
		if s <= 0 {
			return 0
		}
		return NormalPDF((math.Log(s)-m)/sd) / (s * sd)
	}
}
