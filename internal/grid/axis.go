package grid

import (
	"fmt"

	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/mesh"
)

// Axis is one space direction of a grid together with its precomputed
// three-point finite-difference weights on non-uniform spacing.
//
// For node i the weights apply to the window of three nodes starting at
// Window(i): central differences for interior nodes, one-sided differences
// at the two edges.
type Axis struct {
	nodes  []float64
	steps  []float64
	first  [][3]float64
	second [][3]float64
}

// NewAxis builds an axis from the nodes of m.
func NewAxis(m mesh.Meshing) (*Axis, error) {
	return axisFromNodes(mesh.Nodes(m))
}

func axisFromNodes(nodes []float64) (*Axis, error) {
	n := len(nodes)
	if n < 3 {
		return nil, fmt.Errorf("space axis with %d nodes: %w", n, fdm.ErrInvalidGrid)
	}

	ax := &Axis{
		nodes:  nodes,
		steps:  make([]float64, n-1),
		first:  make([][3]float64, n),
		second: make([][3]float64, n),
	}
	for i := 0; i < n-1; i++ {
		ax.steps[i] = nodes[i+1] - nodes[i]
		if !(ax.steps[i] > 0) {
			return nil, fmt.Errorf("space axis not increasing at node %d: %w", i+1, fdm.ErrInvalidGrid)
		}
	}

	for i := 1; i < n-1; i++ {
		d1, d2 := ax.steps[i-1], ax.steps[i]
		ax.first[i] = [3]float64{
			-d2 / (d1 * (d1 + d2)),
			(d2 - d1) / (d1 * d2),
			d1 / (d2 * (d1 + d2)),
		}
		ax.second[i] = [3]float64{
			2 / (d1 * (d1 + d2)),
			-2 / (d1 * d2),
			2 / (d2 * (d1 + d2)),
		}
	}

	// one-sided weights on the first and last three nodes
	d1, d2 := ax.steps[0], ax.steps[1]
	ax.first[0] = [3]float64{
		-(2*d1 + d2) / (d1 * (d1 + d2)),
		(d1 + d2) / (d1 * d2),
		-d1 / (d2 * (d1 + d2)),
	}
	ax.second[0] = ax.second[1]

	d1, d2 = ax.steps[n-3], ax.steps[n-2]
	ax.first[n-1] = [3]float64{
		d2 / (d1 * (d1 + d2)),
		-(d1 + d2) / (d1 * d2),
		(d1 + 2*d2) / (d2 * (d1 + d2)),
	}
	ax.second[n-1] = ax.second[n-2]

	return ax, nil
}

func (a *Axis) Len() int { return len(a.nodes) }

func (a *Axis) Node(i int) float64 { return a.nodes[i] }

// Step returns nodes[i+1] - nodes[i].
func (a *Axis) Step(i int) float64 { return a.steps[i] }

// Nodes returns a copy of the node coordinates.
func (a *Axis) Nodes() []float64 { return fdm.Clone(a.nodes) }

func (a *Axis) Lower() float64 { return a.nodes[0] }

func (a *Axis) Upper() float64 { return a.nodes[len(a.nodes)-1] }

// Window returns the first index of the three-node stencil used at node i.
func (a *Axis) Window(i int) int {
	switch i {
	case 0:
		return 0
	case len(a.nodes) - 1:
		return i - 2
	}
	return i - 1
}

// First returns the first-derivative weights at node i.
func (a *Axis) First(i int) [3]float64 { return a.first[i] }

// Second returns the second-derivative weights at node i.
func (a *Axis) Second(i int) [3]float64 { return a.second[i] }

// D1 evaluates the first derivative of values at node i.
func (a *Axis) D1(values []float64, i int) float64 {
	return apply(a.first[i], values, a.Window(i))
}

// D2 evaluates the second derivative of values at node i.
func (a *Axis) D2(values []float64, i int) float64 {
	return apply(a.second[i], values, a.Window(i))
}

func apply(w [3]float64, values []float64, start int) float64 {
	return w[0]*values[start] + w[1]*values[start+1] + w[2]*values[start+2]
}
