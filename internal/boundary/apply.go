package boundary

import (
	"fmt"

	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/linalg"
)

// Apply writes a boundary row into a tridiagonal system whose interior rows
// are already assembled. A three-entry row is reduced by eliminating the
// third node with the adjacent interior row; when that row does not reach
// the third node (explicit stepping), the third node's own diagonal row is
// substituted instead.
func Apply(m *linalg.Tridiagonal, rhs []float64, side Side, row []float64, value float64) error {
	n := m.Size()
	if len(row) == 0 || len(row) > 3 || row[0] == 0 && len(row) == 1 {
		return fmt.Errorf("%s boundary row %v: %w", side, row, fdm.ErrNotTridiagonal)
	}
	if side == Lower {
		return applyLower(m, rhs, row, value, n)
	}
	return applyUpper(m, rhs, row, value, n)
}

func applyLower(m *linalg.Tridiagonal, rhs, row []float64, value float64, n int) error {
	r0, r1 := row[0], 0.0
	if len(row) > 1 {
		r1 = row[1]
	}
	if len(row) == 3 && row[2] != 0 {
		if n < 4 {
			return fmt.Errorf("lower boundary on %d nodes: %w", n, fdm.ErrNotTridiagonal)
		}
		switch {
		case m.Upper[1] != 0:
			f := row[2] / m.Upper[1]
			r0 -= f * m.Lower[0]
			r1 -= f * m.Diag[1]
			value -= f * rhs[1]
		case m.Lower[1] == 0 && m.Upper[2] == 0 && m.Diag[2] != 0:
			value -= row[2] * rhs[2] / m.Diag[2]
		default:
			return fmt.Errorf("lower boundary: %w", fdm.ErrNotTridiagonal)
		}
	}
	m.Diag[0] = r0
	m.Upper[0] = r1
	rhs[0] = value
	return nil
}

func applyUpper(m *linalg.Tridiagonal, rhs, row []float64, value float64, n int) error {
	r0, r1 := row[0], 0.0
	if len(row) > 1 {
		r1 = row[1]
	}
	if len(row) == 3 && row[2] != 0 {
		if n < 4 {
			return fmt.Errorf("upper boundary on %d nodes: %w", n, fdm.ErrNotTridiagonal)
		}
		switch {
		case m.Lower[n-3] != 0:
			f := row[2] / m.Lower[n-3]
			r0 -= f * m.Upper[n-2]
			r1 -= f * m.Diag[n-2]
			value -= f * rhs[n-2]
		case m.Upper[n-3] == 0 && m.Lower[n-4] == 0 && m.Diag[n-3] != 0:
			value -= row[2] * rhs[n-3] / m.Diag[n-3]
		default:
			return fmt.Errorf("upper boundary: %w", fdm.ErrNotTridiagonal)
		}
	}
	m.Diag[n-1] = r0
	m.Lower[n-2] = r1
	rhs[n-1] = value
	return nil
}
