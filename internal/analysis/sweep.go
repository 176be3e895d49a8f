package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/pdesim/internal/fdm"
)

// SweepPoint is the output of one run in a parameter sweep.
type SweepPoint struct {
	Param  float64
	Values []float64
}

// Sweep runs fn for steps evenly spaced parameter values in [lo, hi], at
// most limit at a time, and returns the points in parameter order.
func Sweep(lo, hi float64, steps, limit int, fn func(p float64) ([]float64, error)) ([]SweepPoint, error) {
	if steps < 2 || !(hi > lo) {
		return nil, fmt.Errorf("sweep [%v, %v] in %d steps: %w", lo, hi, steps, fdm.ErrParameterBounds)
	}
	jobs := make([]func() (SweepPoint, error), steps)
	for i := range jobs {
		p := lo + (hi-lo)*float64(i)/float64(steps-1)
		jobs[i] = func() (SweepPoint, error) {
			v, err := fn(p)
			if err != nil {
				return SweepPoint{}, fmt.Errorf("param %v: %w", p, err)
			}
			return SweepPoint{Param: p, Values: v}, nil
		}
	}
	return fdm.Batch(jobs, limit)
}

// SweepToASCII plots every value of every point, one column per point.
func SweepToASCII(data []SweepPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	var minVal, maxVal float64
	found := false
	for _, p := range data {
		for _, v := range p.Values {
			if !found {
				minVal, maxVal = v, v
				found = true
				continue
			}
			minVal = min(minVal, v)
			maxVal = max(maxVal, v)
		}
	}
	if !found {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	for i, p := range data {
		col := min(i*width/len(data), width-1)
		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			if row >= 0 && row < height {
				canvas[row][col] = '•'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteByte('\n')
	}
	return sb.String()
}
