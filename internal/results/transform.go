package results

import "math"

// FromLogSpot converts node i of a result solved on x = ln(spot) back to
// spot: delta = u_x/S and gamma = (u_xx − u_x)/S².
func FromLogSpot(r Result1D, i int) (spot, value, delta, gamma float64) {
	spot = math.Exp(r.SpaceValue(i))
	d1 := r.FirstSpatialDerivative(i)
	d2 := r.SecondSpatialDerivative(i)
	return spot, r.FunctionValue(i), d1 / spot, (d2 - d1) / (spot * spot)
}
