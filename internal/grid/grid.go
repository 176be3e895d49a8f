// Package grid pairs a time mesh with one or two space axes.
//
// Grids are built once and never mutated: node spacings and stencil weights
// are computed at construction so that any number of solves can share them.
package grid

import (
	"fmt"

	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/mesh"
)

type timeAxis struct {
	mesh  mesh.Meshing
	nodes []float64
	steps []float64
}

func newTimeAxis(m mesh.Meshing) (timeAxis, error) {
	nodes := mesh.Nodes(m)
	if len(nodes) < 2 {
		return timeAxis{}, fmt.Errorf("time axis with %d nodes: %w", len(nodes), fdm.ErrInvalidGrid)
	}
	steps := make([]float64, len(nodes)-1)
	for i := range steps {
		steps[i] = nodes[i+1] - nodes[i]
		if !(steps[i] > 0) {
			return timeAxis{}, fmt.Errorf("time axis not increasing at node %d: %w", i+1, fdm.ErrInvalidGrid)
		}
	}
	return timeAxis{mesh: m, nodes: nodes, steps: steps}, nil
}

func (t timeAxis) NumTimeNodes() int { return len(t.nodes) }

func (t timeAxis) TimeNode(i int) float64 { return t.nodes[i] }

func (t timeAxis) TimeStep(i int) float64 { return t.steps[i] }

func (t timeAxis) TimeNodes() []float64 { return fdm.Clone(t.nodes) }

// Grid1D is a time mesh paired with one space axis.
type Grid1D struct {
	timeAxis
	space *Axis
}

func New1D(timeMesh, spaceMesh mesh.Meshing) (*Grid1D, error) {
	ta, err := newTimeAxis(timeMesh)
	if err != nil {
		return nil, err
	}
	space, err := NewAxis(spaceMesh)
	if err != nil {
		return nil, err
	}
	return &Grid1D{timeAxis: ta, space: space}, nil
}

// NewUniform1D builds a grid with uniform spacing on both axes.
func NewUniform1D(timeSteps, spaceSteps int, tMax, xMin, xMax float64) (*Grid1D, error) {
	tm, err := mesh.NewUniform(0, tMax, timeSteps)
	if err != nil {
		return nil, fmt.Errorf("time mesh: %w", err)
	}
	xm, err := mesh.NewUniform(xMin, xMax, spaceSteps)
	if err != nil {
		return nil, fmt.Errorf("space mesh: %w", err)
	}
	return New1D(tm, xm)
}

func (g *Grid1D) Space() *Axis { return g.space }

func (g *Grid1D) NumSpaceNodes() int { return g.space.Len() }

func (g *Grid1D) SpaceNode(i int) float64 { return g.space.Node(i) }

func (g *Grid1D) SpaceStep(i int) float64 { return g.space.Step(i) }

func (g *Grid1D) SpaceNodes() []float64 { return g.space.Nodes() }

// RefineTime returns a grid with every time step halved and the same space
// axis.
func (g *Grid1D) RefineTime() (*Grid1D, error) {
	ta, err := newTimeAxis(mesh.Refine(g.mesh))
	if err != nil {
		return nil, err
	}
	return &Grid1D{timeAxis: ta, space: g.space}, nil
}

// SameSpace reports whether both grids share identical space nodes.
func (g *Grid1D) SameSpace(o *Grid1D) bool {
	if g.space == o.space {
		return true
	}
	if g.space.Len() != o.space.Len() {
		return false
	}
	for i := range g.space.nodes {
		if g.space.nodes[i] != o.space.nodes[i] {
			return false
		}
	}
	return true
}

// Grid2D is a time mesh paired with two space axes.
type Grid2D struct {
	timeAxis
	x, y *Axis
}

func New2D(timeMesh, xMesh, yMesh mesh.Meshing) (*Grid2D, error) {
	ta, err := newTimeAxis(timeMesh)
	if err != nil {
		return nil, err
	}
	x, err := NewAxis(xMesh)
	if err != nil {
		return nil, fmt.Errorf("x axis: %w", err)
	}
	y, err := NewAxis(yMesh)
	if err != nil {
		return nil, fmt.Errorf("y axis: %w", err)
	}
	return &Grid2D{timeAxis: ta, x: x, y: y}, nil
}

func (g *Grid2D) X() *Axis { return g.x }

func (g *Grid2D) Y() *Axis { return g.y }

func (g *Grid2D) NumXNodes() int { return g.x.Len() }

func (g *Grid2D) NumYNodes() int { return g.y.Len() }
