// Package linalg provides the direct and iterative solvers used by the
// finite-difference schemes: Thomas elimination for tridiagonal systems,
// projected SOR for the American free-boundary problem, and a block Thomas
// solver for coupled systems.
package linalg

import (
	"fmt"
	"math"

	"github.com/san-kum/pdesim/internal/fdm"
)

// Tridiagonal is an n×n matrix stored by diagonals. Lower[i] is entry
// (i+1, i) and Upper[i] is entry (i, i+1).
//
// A Tridiagonal owns scratch space for Solve and must not be solved from
// two goroutines at once.
type Tridiagonal struct {
	Lower []float64
	Diag  []float64
	Upper []float64

	cp, dp []float64
}

func NewTridiagonal(n int) *Tridiagonal {
	return &Tridiagonal{
		Lower: make([]float64, n-1),
		Diag:  make([]float64, n),
		Upper: make([]float64, n-1),
		cp:    make([]float64, n),
		dp:    make([]float64, n),
	}
}

func (m *Tridiagonal) Size() int { return len(m.Diag) }

// Reset zeroes every entry.
func (m *Tridiagonal) Reset() {
	clear(m.Lower)
	clear(m.Diag)
	clear(m.Upper)
}

// MulVec computes out = m·x.
func (m *Tridiagonal) MulVec(x, out []float64) {
	n := len(m.Diag)
	for i := 0; i < n; i++ {
		s := m.Diag[i] * x[i]
		if i > 0 {
			s += m.Lower[i-1] * x[i-1]
		}
		if i < n-1 {
			s += m.Upper[i] * x[i+1]
		}
		out[i] = s
	}
}

// Solve solves m·x = rhs by Thomas elimination. x and rhs may alias.
func (m *Tridiagonal) Solve(rhs, x []float64) error {
	n := len(m.Diag)
	if len(rhs) != n || len(x) != n {
		return fmt.Errorf("tridiagonal %d with rhs %d, x %d: %w", n, len(rhs), len(x), fdm.ErrDimensionMismatch)
	}

	cp, dp := m.cp, m.dp
	pivot := m.Diag[0]
	if pivot == 0 || math.IsNaN(pivot) {
		return fmt.Errorf("zero pivot at row 0: %w", fdm.ErrSingular)
	}
	if n > 1 {
		cp[0] = m.Upper[0] / pivot
	}
	dp[0] = rhs[0] / pivot

	for i := 1; i < n; i++ {
		pivot = m.Diag[i] - m.Lower[i-1]*cp[i-1]
		if pivot == 0 || math.IsNaN(pivot) {
			return fmt.Errorf("zero pivot at row %d: %w", i, fdm.ErrSingular)
		}
		if i < n-1 {
			cp[i] = m.Upper[i] / pivot
		}
		dp[i] = (rhs[i] - m.Lower[i-1]*dp[i-1]) / pivot
	}

	x[n-1] = dp[n-1]
	for i := n - 2; i >= 0; i-- {
		x[i] = dp[i] - cp[i]*x[i+1]
	}
	return nil
}
