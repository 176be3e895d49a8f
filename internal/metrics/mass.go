package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// Mass is the trapezoid integral of the latest slice over the space nodes.
type Mass struct {
	nodes   []float64
	current float64
	samples int
}

func NewMass(nodes []float64) *Mass {
	return &Mass{nodes: nodes}
}

func (m *Mass) Name() string { return "mass" }

func (m *Mass) Observe(_ int, _ float64, values []float64) {
	if len(values) != len(m.nodes) {
		return
	}
	m.current = integrate.Trapezoidal(m.nodes, values)
	m.samples++
}

func (m *Mass) Value() float64 { return m.current }

func (m *Mass) Reset() {
	m.current = 0
	m.samples = 0
}

// MassDrift is the largest relative change of the integral from the first
// observed slice.
type MassDrift struct {
	nodes    []float64
	initial  float64
	maxDrift float64
	samples  int
}

func NewMassDrift(nodes []float64) *MassDrift {
	return &MassDrift{nodes: nodes}
}

func (m *MassDrift) Name() string { return "mass_drift" }

// Start records the reference mass, typically of the initial condition.
func (m *MassDrift) Start(values []float64) {
	m.initial = integrate.Trapezoidal(m.nodes, values)
	m.samples = 1
}

func (m *MassDrift) Observe(_ int, _ float64, values []float64) {
	if len(values) != len(m.nodes) {
		return
	}
	mass := integrate.Trapezoidal(m.nodes, values)
	if m.samples == 0 {
		m.initial = mass
	}
	m.samples++
	if m.initial != 0 {
		m.maxDrift = math.Max(m.maxDrift, math.Abs(mass-m.initial)/math.Abs(m.initial))
	}
}

func (m *MassDrift) Value() float64 { return m.maxDrift }

func (m *MassDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}

// MinValue is the lowest value seen. Densities and option prices should
// not go negative; a negative minimum flags oscillation.
type MinValue struct {
	min     float64
	samples int
}

func NewMinValue() *MinValue { return &MinValue{} }

func (m *MinValue) Name() string { return "min_value" }

func (m *MinValue) Observe(_ int, _ float64, values []float64) {
	if len(values) == 0 {
		return
	}
	v := floats.Min(values)
	if m.samples == 0 || v < m.min {
		m.min = v
	}
	m.samples++
}

func (m *MinValue) Value() float64 { return m.min }

func (m *MinValue) Reset() {
	m.min = 0
	m.samples = 0
}
