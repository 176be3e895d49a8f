// Package optim fits model parameters to a target by exhaustive search over
// a grid of candidate values.
package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/golang/glog"
	"github.com/san-kum/pdesim/internal/fdm"
)

// Objective scores one parameter set; lower is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	limit      int
}

// NewGridSearch searches the product of ranges, ranges[i] holding the
// candidates for params[i]. At most limit points are scored at once (no
// limit when limit <= 0).
func NewGridSearch(params []string, ranges [][]float64, limit int) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("grid search: %d params for %d ranges: %w", len(params), len(ranges), fdm.ErrParameterBounds)
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("grid search: no candidates for %s: %w", params[i], fdm.ErrParameterBounds)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges, limit: limit}, nil
}

// Linspace is n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

// Points enumerates the grid, the last parameter varying fastest.
func (g *GridSearch) Points() []map[string]float64 {
	var points []map[string]float64
	g.enumerate(0, make(map[string]float64), &points)
	return points
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, points *[]map[string]float64) {
	if depth == len(g.paramNames) {
		p := make(map[string]float64, len(current))
		for k, v := range current {
			p[k] = v
		}
		*points = append(*points, p)
		return
	}
	for _, v := range g.ranges[depth] {
		current[g.paramNames[depth]] = v
		g.enumerate(depth+1, current, points)
	}
}

// Search scores every point and returns the best one with its score.
// Points whose objective fails or is NaN are skipped; Search fails only when
// every point does or ctx is cancelled.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (map[string]float64, float64, error) {
	points := g.Points()
	jobs := make([]func() (float64, error), len(points))
	for i, p := range points {
		p := p
		jobs[i] = func() (float64, error) {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			v, err := objective(ctx, p)
			if err != nil {
				glog.V(2).Infof("grid search: %v: %v", p, err)
				return math.NaN(), nil
			}
			return v, nil
		}
	}
	scores, err := fdm.Batch(jobs, g.limit)
	if err != nil {
		return nil, 0, err
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	for i, s := range scores {
		if s < best {
			best, bestParams = s, points[i]
		}
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("grid search: no point of %d could be scored: %w", len(points), fdm.ErrParameterBounds)
	}
	glog.V(1).Infof("grid search: best %v score %.3g over %d points", bestParams, best, len(points))
	return bestParams, best, nil
}
