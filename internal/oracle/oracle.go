// Package oracle holds closed-form prices and volatilities used to check
// the finite-difference solvers.
package oracle

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/pdesim/internal/pde"
)

var ErrNoImpliedVol = errors.New("oracle: no implied volatility for price")

const (
	minVol = 1e-6
	maxVol = 5.0
)

func d1d2(s, k, t, r, q, vol float64) (float64, float64) {
	sd := vol * math.Sqrt(t)
	d1 := (math.Log(s/k) + (r-q+0.5*vol*vol)*t) / sd
	return d1, d1 - sd
}

// BlackScholes is the European price on spot s with continuous yield q.
func BlackScholes(s, k, t, r, q, vol float64, call bool) float64 {
	df := math.Exp(-r * t)
	dq := math.Exp(-q * t)
	if s <= 0 {
		if call {
			return 0
		}
		return k * df
	}
	if t <= 0 || vol <= 0 {
		fwd := s * dq / df
		if call {
			return df * math.Max(fwd-k, 0)
		}
		return df * math.Max(k-fwd, 0)
	}
	d1, d2 := d1d2(s, k, t, r, q, vol)
	if call {
		return s*dq*pde.NormalCDF(d1) - k*df*pde.NormalCDF(d2)
	}
	return k*df*pde.NormalCDF(-d2) - s*dq*pde.NormalCDF(-d1)
}

func Delta(s, k, t, r, q, vol float64, call bool) float64 {
	d1, _ := d1d2(s, k, t, r, q, vol)
	dq := math.Exp(-q * t)
	if call {
		return dq * pde.NormalCDF(d1)
	}
	return dq * (pde.NormalCDF(d1) - 1)
}

func Gamma(s, k, t, r, q, vol float64) float64 {
	d1, _ := d1d2(s, k, t, r, q, vol)
	return math.Exp(-q*t) * pde.NormalPDF(d1) / (s * vol * math.Sqrt(t))
}

func Vega(s, k, t, r, q, vol float64) float64 {
	d1, _ := d1d2(s, k, t, r, q, vol)
	return s * math.Exp(-q*t) * pde.NormalPDF(d1) * math.Sqrt(t)
}

// Black prices an option on forward f, discounted at r.
func Black(f, k, t, r, vol float64, call bool) float64 {
	df := math.Exp(-r * t)
	if t <= 0 || vol <= 0 {
		if call {
			return df * math.Max(f-k, 0)
		}
		return df * math.Max(k-f, 0)
	}
	sd := vol * math.Sqrt(t)
	d1 := (math.Log(f/k) + 0.5*sd*sd) / sd
	d2 := d1 - sd
	if call {
		return df * (f*pde.NormalCDF(d1) - k*pde.NormalCDF(d2))
	}
	return df * (k*pde.NormalCDF(-d2) - f*pde.NormalCDF(-d1))
}

// ImpliedVol inverts price by bisection over [1e-6, 5]. Prices outside
// that range of volatilities return ErrNoImpliedVol.
func ImpliedVol(price float64, price0 func(vol float64) float64) (float64, error) {
	lo, hi := minVol, maxVol
	if math.IsNaN(price) || price <= price0(lo) || price >= price0(hi) {
		return 0, fmt.Errorf("price %.8g: %w", price, ErrNoImpliedVol)
	}
	for i := 0; i < 200 && hi-lo > 1e-12; i++ {
		mid := 0.5 * (lo + hi)
		if price0(mid) > price {
			hi = mid
		} else {
			lo = mid
		}
	}
	return 0.5 * (lo + hi), nil
}

func BlackScholesImpliedVol(price, s, k, t, r, q float64, call bool) (float64, error) {
	return ImpliedVol(price, func(vol float64) float64 {
		return BlackScholes(s, k, t, r, q, vol, call)
	})
}

func BlackImpliedVol(price, f, k, t, r float64, call bool) (float64, error) {
	return ImpliedVol(price, func(vol float64) float64 {
		return Black(f, k, t, r, vol, call)
	})
}

// HaganCEV is the Hagan-Woodward approximation of the Black volatility
// implied by a CEV model df = α f^β dW.
func HaganCEV(f, k, t, alpha, beta float64) float64 {
	omb := 1 - beta
	fk := f * k
	lfk := math.Log(f / k)
	denom := math.Pow(fk, omb/2) * (1 + omb*omb/24*lfk*lfk + math.Pow(omb, 4)/1920*math.Pow(lfk, 4))
	corr := 1 + omb*omb/24*alpha*alpha/math.Pow(fk, omb)*t
	return alpha / denom * corr
}
