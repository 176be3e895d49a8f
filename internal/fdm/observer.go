package fdm

import "math"

// Observer is notified after every completed time step. values is the
// solver's own buffer; observers must copy it if they keep it.
type Observer interface {
	Observe(step int, t float64, values []float64)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(step int, t float64, values []float64)

func (f ObserverFunc) Observe(step int, t float64, values []float64) {
	f(step, t, values)
}

// IsValid reports whether every value is finite.
func IsValid(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Clone returns a copy of values.
func Clone(values []float64) []float64 {
	c := make([]float64, len(values))
	copy(c, values)
	return c
}
