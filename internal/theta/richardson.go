package theta

import (
	"fmt"
	"math"

	"github.com/golang/glog"
	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/pde"
	"github.com/san-kum/pdesim/internal/results"
)

// Richardson runs a base solver on the problem's grid and again with every
// time step halved, then combines the two final slices to cancel the
// leading time-discretisation error of the given order:
//
//	(2^p·fine − coarse) / (2^p − 1)
//
// Order 1 (implicit stepping) gives 2·fine − coarse.
type Richardson struct {
	base  Solver1D
	order int
}

func NewRichardson(base Solver1D, order int) (*Richardson, error) {
	if base == nil || order < 1 {
		return nil, fmt.Errorf("richardson order %d: %w", order, fdm.ErrParameterBounds)
	}
	return &Richardson{base: base, order: order}, nil
}

func (r *Richardson) Solve(b *pde.Bundle) (results.Result1D, error) {
	coarse, err := r.base.Solve(b)
	if err != nil {
		return nil, fmt.Errorf("coarse solve: %w", err)
	}

	fineGrid, err := b.Grid().RefineTime()
	if err != nil {
		return nil, err
	}
	fb, err := b.WithGrid(fineGrid)
	if err != nil {
		return nil, err
	}
	fine, err := r.base.Solve(fb)
	if err != nil {
		return nil, fmt.Errorf("fine solve: %w", err)
	}

	if !coarse.Grid().SameSpace(fine.Grid()) || coarse.NumberSpaceNodes() != fine.NumberSpaceNodes() {
		return nil, fmt.Errorf("richardson runs on different space nodes: %w", fdm.ErrDimensionMismatch)
	}

	w := math.Pow(2, float64(r.order))
	out := make([]float64, coarse.NumberSpaceNodes())
	for i := range out {
		out[i] = (w*fine.FunctionValue(i) - coarse.FunctionValue(i)) / (w - 1)
	}
	glog.V(1).Infof("richardson order %d on %d nodes", r.order, len(out))
	return results.NewTerminal1D(b.Grid(), out), nil
}
