// Package metrics provides step observers that summarise a solve: stability
// of the marching values, conservation of mass for densities and the
// lowest value reached.
package metrics

import "github.com/san-kum/pdesim/internal/fdm"

// Metric is an observer that reduces a run to a single number.
type Metric interface {
	fdm.Observer
	Name() string
	Value() float64
	Reset()
}

// Collect returns the current value of every metric keyed by name.
func Collect(ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
