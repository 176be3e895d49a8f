package analysis

import (
	"fmt"
	"math"

	"github.com/san-kum/pdesim/internal/fdm"
)

// ConvergenceOrder estimates the order between successive refinements from
// known errors: p_i = ln(e_i / e_{i+1}) / ln(ratio), where ratio is the
// refinement factor of the step (2 for halving).
func ConvergenceOrder(errs []float64, ratio float64) ([]float64, error) {
	if len(errs) < 2 || !(ratio > 1) {
		return nil, fmt.Errorf("%d errors with ratio %v: %w", len(errs), ratio, fdm.ErrParameterBounds)
	}
	orders := make([]float64, len(errs)-1)
	for i := range orders {
		a, b := math.Abs(errs[i]), math.Abs(errs[i+1])
		if a == 0 || b == 0 {
			orders[i] = math.Inf(1)
			continue
		}
		orders[i] = math.Log(a/b) / math.Log(ratio)
	}
	return orders, nil
}

// ObservedOrder estimates the order without an exact answer from three
// values computed with steps h, h/ratio and h/ratio².
func ObservedOrder(coarse, medium, fine, ratio float64) (float64, error) {
	d1, d2 := math.Abs(medium-coarse), math.Abs(fine-medium)
	if !(ratio > 1) || d1 == 0 || d2 == 0 {
		return 0, fmt.Errorf("observed order from %v, %v, %v: %w", coarse, medium, fine, fdm.ErrParameterBounds)
	}
	return math.Log(d1/d2) / math.Log(ratio), nil
}
