package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/pdesim/internal/fdm"
	"github.com/san-kum/pdesim/internal/results"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns |X_k| for k in [0, n/2].
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	x := fft.FFTReal(data)
	ps := make([]float64, len(x)/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(x[i])
	}
	return ps
}

// HighFrequencyShare is the fraction of the spectral energy of the
// de-meaned data that lies above the given fraction of the Nyquist
// frequency.
func HighFrequencyShare(data []float64, cutoff float64) float64 {
	if len(data) < 4 {
		return 0
	}
	centred := make([]float64, len(data))
	copy(centred, data)
	floats.AddConst(-stat.Mean(data, nil), centred)

	ps := PowerSpectrum(centred)
	var total, high float64
	start := int(cutoff * float64(len(ps)-1))
	for k := 1; k < len(ps); k++ {
		e := ps[k] * ps[k]
		total += e
		if k >= start {
			high += e
		}
	}
	if total == 0 {
		return 0
	}
	return high / total
}

// OscillationIndex is the high-frequency share, above half the Nyquist
// frequency, of the second derivative at the interior nodes of a result.
func OscillationIndex(r results.Result1D) (float64, error) {
	n := r.NumberSpaceNodes()
	if n < 6 {
		return 0, fmt.Errorf("oscillation index on %d nodes: %w", n, fdm.ErrDimensionMismatch)
	}
	gamma := make([]float64, n-2)
	for i := range gamma {
		gamma[i] = r.SecondSpatialDerivative(i + 1)
	}
	if !fdm.IsValid(gamma) {
		return 0, fmt.Errorf("oscillation index: %w", fdm.ErrInvalidState)
	}
	return HighFrequencyShare(gamma, 0.5), nil
}
