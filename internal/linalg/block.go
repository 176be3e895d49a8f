package linalg

import (
	"fmt"

	"github.com/san-kum/pdesim/internal/fdm"
	"gonum.org/v1/gonum/mat"
)

// BlockTridiagonal is a tridiagonal matrix of k×k blocks. Lower[i] couples
// block row i+1 to block column i and Upper[i] couples block row i to block
// column i+1. Vectors are laid out block-major: element j of block i sits at
// index i*k+j.
type BlockTridiagonal struct {
	K     int
	Lower []*mat.Dense
	Diag  []*mat.Dense
	Upper []*mat.Dense
}

func NewBlockTridiagonal(n, k int) *BlockTridiagonal {
	b := &BlockTridiagonal{
		K:     k,
		Lower: make([]*mat.Dense, n-1),
		Diag:  make([]*mat.Dense, n),
		Upper: make([]*mat.Dense, n-1),
	}
	for i := 0; i < n; i++ {
		b.Diag[i] = mat.NewDense(k, k, nil)
		if i < n-1 {
			b.Lower[i] = mat.NewDense(k, k, nil)
			b.Upper[i] = mat.NewDense(k, k, nil)
		}
	}
	return b
}

func (b *BlockTridiagonal) Blocks() int { return len(b.Diag) }

// Solve solves the system by block Thomas elimination with an LU
// factorisation of every pivot block.
func (b *BlockTridiagonal) Solve(rhs, x []float64) error {
	n, k := len(b.Diag), b.K
	if len(rhs) != n*k || len(x) != n*k {
		return fmt.Errorf("block system %d×%d with rhs %d, x %d: %w", n, k, len(rhs), len(x), fdm.ErrDimensionMismatch)
	}

	cp := make([]*mat.Dense, n)
	dp := make([]*mat.VecDense, n)

	var lu mat.LU
	pivot := mat.NewDense(k, k, nil)
	tmp := mat.NewDense(k, k, nil)
	vtmp := mat.NewVecDense(k, nil)

	for i := 0; i < n; i++ {
		pivot.Copy(b.Diag[i])
		r := mat.NewVecDense(k, fdm.Clone(rhs[i*k:(i+1)*k]))
		if i > 0 {
			tmp.Mul(b.Lower[i-1], cp[i-1])
			pivot.Sub(pivot, tmp)
			vtmp.MulVec(b.Lower[i-1], dp[i-1])
			r.SubVec(r, vtmp)
		}

		lu.Factorize(pivot)
		if i < n-1 {
			cp[i] = mat.NewDense(k, k, nil)
			if err := lu.SolveTo(cp[i], false, b.Upper[i]); err != nil {
				return fmt.Errorf("pivot block %d: %v: %w", i, err, fdm.ErrSingular)
			}
		}
		dp[i] = mat.NewVecDense(k, nil)
		if err := lu.SolveVecTo(dp[i], false, r); err != nil {
			return fmt.Errorf("pivot block %d: %v: %w", i, err, fdm.ErrSingular)
		}
	}

	next := dp[n-1]
	for j := 0; j < k; j++ {
		x[(n-1)*k+j] = next.AtVec(j)
	}
	for i := n - 2; i >= 0; i-- {
		cur := mat.NewVecDense(k, nil)
		cur.MulVec(cp[i], next)
		cur.SubVec(dp[i], cur)
		for j := 0; j < k; j++ {
			x[i*k+j] = cur.AtVec(j)
		}
		next = cur
	}
	return nil
}
