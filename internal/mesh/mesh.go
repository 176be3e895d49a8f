// Package mesh generates the 1-D node coordinates used for the time axis and
// each space axis of a finite-difference grid.
//
// A [Meshing] maps an index i in [0, Steps()] to a coordinate. Every
// constructor validates that the map is strictly increasing and pins the end
// points exactly, so Nodes(m)[0] == lower and Nodes(m)[Steps()] == upper.
package mesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/pdesim/internal/fdm"
)

// Meshing maps a node index to a coordinate.
type Meshing interface {
	At(i int) float64
	Steps() int
}

// Nodes evaluates m at every index.
func Nodes(m Meshing) []float64 {
	n := m.Steps()
	out := make([]float64, n+1)
	for i := range out {
		out[i] = m.At(i)
	}
	return out
}

type Uniform struct {
	lower, upper float64
	n            int
}

func NewUniform(lower, upper float64, steps int) (*Uniform, error) {
	if err := checkRange(lower, upper, steps); err != nil {
		return nil, err
	}
	return &Uniform{lower: lower, upper: upper, n: steps}, nil
}

func (u *Uniform) Steps() int { return u.n }

func (u *Uniform) At(i int) float64 {
	if i == u.n {
		return u.upper
	}
	return u.lower + (u.upper-u.lower)*float64(i)/float64(u.n)
}

// Exponential clusters nodes near lower for lambda > 0 and near upper for
// lambda < 0. lambda == 0 is uniform.
type Exponential struct {
	lower, upper float64
	lambda       float64
	scale        float64
	n            int
}

func NewExponential(lower, upper float64, steps int, lambda float64) (*Exponential, error) {
	if err := checkRange(lower, upper, steps); err != nil {
		return nil, err
	}
	if math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return nil, fmt.Errorf("exponential mesh lambda %v: %w", lambda, fdm.ErrInvalidMesh)
	}
	e := &Exponential{lower: lower, upper: upper, lambda: lambda, n: steps}
	if lambda != 0 {
		e.scale = (upper - lower) / (1 - math.Exp(lambda))
	}
	if err := checkIncreasing(e); err != nil {
		return nil, fmt.Errorf("exponential mesh lambda %v: %w", lambda, err)
	}
	return e, nil
}

func (e *Exponential) Steps() int { return e.n }

func (e *Exponential) At(i int) float64 {
	switch i {
	case 0:
		return e.lower
	case e.n:
		return e.upper
	}
	if e.lambda == 0 {
		return e.lower + (e.upper-e.lower)*float64(i)/float64(e.n)
	}
	return e.lower + e.scale*(1-math.Exp(e.lambda*float64(i)/float64(e.n)))
}

// Hyperbolic concentrates nodes around focus using a sinh warp. beta is the
// bunching width as a fraction of the range; small beta means tight
// clustering and large beta tends to uniform spacing.
type Hyperbolic struct {
	lower, upper float64
	focus        float64
	width        float64
	c1, c2       float64
	n            int
}

func NewHyperbolic(lower, upper, focus float64, steps int, beta float64) (*Hyperbolic, error) {
	if err := checkRange(lower, upper, steps); err != nil {
		return nil, err
	}
	if !(beta > 0) || math.IsInf(beta, 0) || math.IsNaN(focus) || math.IsInf(focus, 0) {
		return nil, fmt.Errorf("hyperbolic mesh beta %v focus %v: %w", beta, focus, fdm.ErrInvalidMesh)
	}
	w := beta * (upper - lower)
	h := &Hyperbolic{
		lower: lower,
		upper: upper,
		focus: focus,
		width: w,
		c1:    math.Asinh((lower - focus) / w),
		c2:    math.Asinh((upper - focus) / w),
		n:     steps,
	}
	if err := checkIncreasing(h); err != nil {
		return nil, fmt.Errorf("hyperbolic mesh beta %v: %w", beta, err)
	}
	return h, nil
}

func (h *Hyperbolic) Steps() int { return h.n }

func (h *Hyperbolic) At(i int) float64 {
	switch i {
	case 0:
		return h.lower
	case h.n:
		return h.upper
	}
	return h.focus + h.width*math.Sinh(h.c1+(h.c2-h.c1)*float64(i)/float64(h.n))
}

// Explicit is a mesh given by its node list.
type Explicit struct {
	nodes []float64
}

// FromNodes validates and copies nodes.
func FromNodes(nodes []float64) (*Explicit, error) {
	if len(nodes) < 3 {
		return nil, fmt.Errorf("%d nodes: %w", len(nodes), fdm.ErrInvalidMesh)
	}
	e := &Explicit{nodes: fdm.Clone(nodes)}
	if err := checkIncreasing(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Explicit) Steps() int { return len(e.nodes) - 1 }

func (e *Explicit) At(i int) float64 { return e.nodes[i] }

// Refine halves every step of m by inserting midpoints.
func Refine(m Meshing) *Explicit {
	src := Nodes(m)
	out := make([]float64, 0, 2*len(src)-1)
	for i := 0; i < len(src)-1; i++ {
		out = append(out, src[i], 0.5*(src[i]+src[i+1]))
	}
	out = append(out, src[len(src)-1])
	return &Explicit{nodes: out}
}

// WithFixedPoints merges points lying strictly inside the range of m into its
// nodes. A point closer than a tenth of the local step to an existing node
// replaces that node.
func WithFixedPoints(m Meshing, points ...float64) (*Explicit, error) {
	nodes := Nodes(m)
	lower, upper := nodes[0], nodes[len(nodes)-1]

	for _, p := range points {
		if !(p > lower && p < upper) {
			return nil, fmt.Errorf("fixed point %v outside (%v, %v): %w", p, lower, upper, fdm.ErrInvalidMesh)
		}
		k := sort.SearchFloat64s(nodes, p)
		if nodes[k] == p {
			continue
		}
		left, right := nodes[k-1], nodes[k]
		tol := 0.1 * (right - left)
		switch {
		case p-left < tol && k-1 > 0:
			nodes[k-1] = p
		case right-p < tol && k < len(nodes)-1:
			nodes[k] = p
		default:
			nodes = append(nodes, 0)
			copy(nodes[k+1:], nodes[k:])
			nodes[k] = p
		}
	}
	return FromNodes(nodes)
}

func checkRange(lower, upper float64, steps int) error {
	if steps < 2 {
		return fmt.Errorf("%d steps (need at least 2): %w", steps, fdm.ErrInvalidMesh)
	}
	if math.IsNaN(lower) || math.IsInf(lower, 0) || math.IsNaN(upper) || math.IsInf(upper, 0) {
		return fmt.Errorf("range [%v, %v]: %w", lower, upper, fdm.ErrInvalidMesh)
	}
	if upper <= lower {
		return fmt.Errorf("upper %v <= lower %v: %w", upper, lower, fdm.ErrInvalidMesh)
	}
	return nil
}

func checkIncreasing(m Meshing) error {
	prev := m.At(0)
	for i := 1; i <= m.Steps(); i++ {
		x := m.At(i)
		if !(x > prev) {
			return fmt.Errorf("node %d (%v) not above node %d (%v): %w", i, x, i-1, prev, fdm.ErrInvalidMesh)
		}
		prev = x
	}
	return nil
}
