package linalg

import (
	"fmt"
	"math"

	"github.com/san-kum/pdesim/internal/fdm"
)

// PSOR configures projected successive over-relaxation for the linear
// complementarity problem m·x >= rhs, x >= floor, (m·x - rhs)·(x - floor) = 0.
type PSOR struct {
	Omega     float64
	Tolerance float64
	MaxIter   int
}

func DefaultPSOR() PSOR {
	return PSOR{Omega: 1.0, Tolerance: 1e-8, MaxIter: 100000}
}

// Solve iterates from the starting point in x and overwrites it with the
// solution. It returns the number of sweeps used.
func (p PSOR) Solve(m *Tridiagonal, rhs, floor, x []float64) (int, error) {
	n := m.Size()
	if len(rhs) != n || len(floor) != n || len(x) != n {
		return 0, fmt.Errorf("psor on %d rows: %w", n, fdm.ErrDimensionMismatch)
	}
	for i, d := range m.Diag {
		if d == 0 {
			return 0, fmt.Errorf("zero diagonal at row %d: %w", i, fdm.ErrSingular)
		}
	}

	for i := range x {
		x[i] = math.Max(x[i], floor[i])
	}

	for iter := 1; iter <= p.MaxIter; iter++ {
		errSq, scaleSq := 0.0, 0.0
		for i := 0; i < n; i++ {
			sum := rhs[i]
			if i > 0 {
				sum -= m.Lower[i-1] * x[i-1]
			}
			if i < n-1 {
				sum -= m.Upper[i] * x[i+1]
			}
			next := math.Max(floor[i], (1-p.Omega)*x[i]+p.Omega*sum/m.Diag[i])
			d := next - x[i]
			errSq += d * d
			scaleSq += next * next
			x[i] = next
		}
		if errSq <= p.Tolerance*p.Tolerance*math.Max(scaleSq, 1) {
			return iter, nil
		}
	}
	return p.MaxIter, fmt.Errorf("psor after %d sweeps: %w", p.MaxIter, fdm.ErrNoConvergence)
}
