package herm

import "math"

// J2Acceleration returns the perturbing acceleration (km/s²) of the body's
// oblateness at R, expressed in the body equatorial frame.
func (c CelestialObject) J2Acceleration(R []float64) []float64 {
	pert := make([]float64, 3)
	if c.J2 == 0 {
		return pert
	}
	x, y, z := R[0], R[1], R[2]
	z2 := z * z
	z3 := z2 * z
	r2 := x*x + y*y + z2
	r252 := math.Pow(r2, 5/2.)
	r272 := math.Pow(r2, 7/2.)
	accJ2 := (3 / 2.) * c.J2 * math.Pow(c.Radius, 2) * c.μ
	pert[0] = accJ2 * (5*x*z2/r272 - x/r252)
	pert[1] = accJ2 * (5*y*z2/r272 - y/r252)
	pert[2] = accJ2 * (5*z3/r272 - 3*z/r252)
	return pert
}
