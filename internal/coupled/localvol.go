package coupled

import (
	"fmt"
	"math"

	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/results"
)

// LocalVol is the local volatility implied by regime densities solved on one
// grid: at each node σ_loc² = Σ σ_i²·p_i / Σ p_i. Nodes carrying no mass
// report zero.
func LocalVol(densities []results.Result1D, vols []float64) ([]float64, error) {
	if len(densities) == 0 || len(densities) != len(vols) {
		return nil, fmt.Errorf("%d densities with %d vols: %w", len(densities), len(vols), fdm.ErrDimensionMismatch)
	}
	n := densities[0].NumberSpaceNodes()
	for _, d := range densities[1:] {
		if d.NumberSpaceNodes() != n {
			return nil, fmt.Errorf("densities on %d and %d nodes: %w", n, d.NumberSpaceNodes(), fdm.ErrDimensionMismatch)
		}
	}

	out := make([]float64, n)
	for node := range out {
		var mass, variance float64
		for i, d := range densities {
			p := d.FunctionValue(node)
			mass += p
			variance += vols[i] * vols[i] * p
		}
		if mass > 0 && variance > 0 {
			out[node] = math.Sqrt(variance / mass)
		}
	}
	return out, nil
}
