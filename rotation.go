package herm

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// J2000Obliquity is the obliquity of the ecliptic at J2000 in radians.
	J2000Obliquity = 23.4392911 * deg2rad
)

// R1 rotation about the 1st axis.
func R1(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat.Dense {
	s, c := math.Sincos(x)
	return mat.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m mat.Matrix, v []float64) (o []float64) {
	var rVec mat.VecDense
	rVec.MulVec(m, mat.NewVecDense(len(v), v))
	return []float64{rVec.AtVec(0), rVec.AtVec(1), rVec.AtVec(2)}
}

// PQW2Inertial returns the rotation from the perifocal frame to the frame the
// orbital elements are defined in. Angles in radians.
func PQW2Inertial(i, ω, Ω float64) *mat.Dense {
	var r1r3, dcm mat.Dense
	r1r3.Mul(R1(-i), R3(-ω))
	dcm.Mul(R3(-Ω), &r1r3)
	return &dcm
}

// Ecliptic2Equatorial converts an ecliptic J2000 vector to equatorial J2000.
func Ecliptic2Equatorial(v []float64) []float64 {
	return MxV33(R1(-J2000Obliquity), v)
}

// Equatorial2Ecliptic converts an equatorial J2000 vector to ecliptic J2000.
func Equatorial2Ecliptic(v []float64) []float64 {
	return MxV33(R1(J2000Obliquity), v)
}
