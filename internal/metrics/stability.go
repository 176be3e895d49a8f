package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MaxAbs tracks the largest magnitude seen in any slice.
type MaxAbs struct {
	max     float64
	samples int
}

func NewMaxAbs() *MaxAbs { return &MaxAbs{} }

func (m *MaxAbs) Name() string { return "max_abs" }

func (m *MaxAbs) Observe(_ int, _ float64, values []float64) {
	if len(values) == 0 {
		return
	}
	m.samples++
	m.max = math.Max(m.max, math.Max(math.Abs(floats.Max(values)), math.Abs(floats.Min(values))))
}

func (m *MaxAbs) Value() float64 { return m.max }

func (m *MaxAbs) Reset() {
	m.max = 0
	m.samples = 0
}

// Stability is the fraction of steps whose values all stay within
// threshold in magnitude.
type Stability struct {
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(_ int, _ float64, values []float64) {
	s.samples++
	for _, v := range values {
		if math.IsNaN(v) || math.Abs(v) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
