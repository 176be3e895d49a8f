// Package experiment turns a problem configuration into a solved, measured
// outcome: it builds the bundle for a named model, picks the scheme, attaches
// metrics and compares the result with a closed form where one exists.
package experiment

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/glog"
	"github.com/san-kum/pdesim/internal/analysis"
	"github.com/san-kum/pdesim/internal/config"
	"github.com/san-kum/pdesim/internal/fdm"
)

// Curve is a function of one space variable, such as a terminal price
// profile or a density.
type Curve struct {
	Name string    `json:"name"`
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
}

// Surface holds Values[i][j] at (X[i], Y[j]): time by space for full 1-D
// results, spot by variance for Heston.
type Surface struct {
	XLabel string      `json:"x_label"`
	YLabel string      `json:"y_label"`
	X      []float64   `json:"x"`
	Y      []float64   `json:"y"`
	Values [][]float64 `json:"values"`
}

// Outcome is a solved problem. Value is the headline number (the price at
// the configured spot, or the total mass for densities) and Reference its
// closed form, NaN when there is none.
type Outcome struct {
	Model      string
	Scheme     string
	Value      float64
	Reference  float64
	Delta      float64
	Gamma      float64
	ImpliedVol float64
	Curves     []Curve
	Surface    *Surface
	Metrics    map[string]float64
	Elapsed    time.Duration
}

// Error is |Value − Reference|, NaN without a reference.
func (o *Outcome) Error() float64 {
	return math.Abs(o.Value - o.Reference)
}

func (o *Outcome) HasReference() bool { return !math.IsNaN(o.Reference) }

type Experiment struct {
	cfg      *config.Config
	registry *Registry
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg, registry: NewRegistry()}
}

func (e *Experiment) Run() (*Outcome, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := e.registry.GetModel(e.cfg.Model)
	if err != nil {
		return nil, err
	}
	if !m.supports(e.cfg.Scheme) {
		return nil, fmt.Errorf("scheme %q for model %q: %w", e.cfg.Scheme, m.Name, fdm.ErrParameterBounds)
	}

	ms := e.registry.DefaultMetrics(e.cfg)
	start := time.Now()
	out, err := m.run(e.cfg, ms)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", m.Name, e.cfg.Scheme, err)
	}
	out.Model, out.Scheme = m.Name, e.cfg.Scheme
	out.Elapsed = time.Since(start)
	glog.V(1).Infof("%s/%s: value=%.6g reference=%.6g in %v", m.Name, e.cfg.Scheme, out.Value, out.Reference, out.Elapsed)
	return out, nil
}

// Run solves cfg.
func Run(cfg *config.Config) (*Outcome, error) {
	return New(cfg).Run()
}

// Compare solves cfg once per scheme, at most limit at a time.
func Compare(cfg *config.Config, schemes []string, limit int) ([]*Outcome, error) {
	jobs := make([]func() (*Outcome, error), len(schemes))
	for i, s := range schemes {
		c := cfg.Clone()
		c.Scheme = s
		jobs[i] = func() (*Outcome, error) { return Run(c) }
	}
	return fdm.Batch(jobs, limit)
}

// Convergence is a refinement study: the outcome at each level, its error
// and the empirical order between successive levels.
type Convergence struct {
	TimeSteps  []int
	SpaceSteps []int
	Outcomes   []*Outcome
	Errors     []float64
	Orders     []float64
}

// Converge solves cfg on levels grids, doubling the time and space steps
// each time. Errors are measured against the closed form when the model
// has one and against the finest level otherwise.
func Converge(cfg *config.Config, levels, limit int) (*Convergence, error) {
	if levels < 2 {
		return nil, fmt.Errorf("convergence study needs 2 levels, got %d: %w", levels, fdm.ErrParameterBounds)
	}
	conv := &Convergence{}
	jobs := make([]func() (*Outcome, error), levels)
	for l := 0; l < levels; l++ {
		c := cfg.Clone()
		c.FullResults = false
		c.Grid.TimeSteps <<= l
		c.Grid.SpaceSteps <<= l
		conv.TimeSteps = append(conv.TimeSteps, c.Grid.TimeSteps)
		conv.SpaceSteps = append(conv.SpaceSteps, c.Grid.SpaceSteps)
		jobs[l] = func() (*Outcome, error) { return Run(c) }
	}
	outs, err := fdm.Batch(jobs, limit)
	if err != nil {
		return nil, err
	}
	conv.Outcomes = outs

	finest := outs[len(outs)-1]
	useRef := finest.HasReference()
	n := len(outs)
	if !useRef {
		n--
	}
	for _, o := range outs[:n] {
		if useRef {
			conv.Errors = append(conv.Errors, o.Error())
		} else {
			conv.Errors = append(conv.Errors, math.Abs(o.Value-finest.Value))
		}
	}
	if len(conv.Errors) >= 2 {
		if conv.Orders, err = analysis.ConvergenceOrder(conv.Errors, 2); err != nil {
			return nil, err
		}
	}
	return conv, nil
}
