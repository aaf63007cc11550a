package herm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

const (
	deg2rad = math.Pi / 180
	r2d     = 180 / math.Pi
	zeroε   = 1e-12
)

// norm returns the norm of a given vector which is supposed to be 3x1.
func norm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// unit returns the unit vector of a given vector.
func unit(a []float64) (b []float64) {
	n := floats.Norm(a, 2)
	if scalar.EqualWithinAbs(n, 0, zeroε) {
		return make([]float64, len(a))
	}
	b = make([]float64, len(a))
	floats.ScaleTo(b, 1/n, a)
	return
}

// unit2 normalizes a 2-vector and reports whether it could be.
func unit2(x, y float64) ([2]float64, bool) {
	n := math.Hypot(x, y)
	if scalar.EqualWithinAbs(n, 0, zeroε) || math.IsNaN(n) || math.IsInf(n, 0) {
		return [2]float64{}, false
	}
	return [2]float64{x / n, y / n}, true
}

// dot performs the inner product via mat/BLAS.
func dot(a, b []float64) float64 {
	return mat.Dot(mat.NewVecDense(len(a), a), mat.NewVecDense(len(b), b))
}

// cross performs the cross product.
func cross(a, b []float64) []float64 {
	return []float64{a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0]}
}

// clamp1 bounds v to [-1, 1] so rounding never feeds NaN into math.Acos.
func clamp1(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// Deg2rad converts degrees to radians, and enforced only positive numbers.
func Deg2rad(a float64) float64 {
	if a < 0 {
		a += 360
	}
	return math.Mod(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts radians to degrees, and enforced only positive numbers.
func Rad2deg(a float64) float64 {
	if a < 0 {
		a += 2 * math.Pi
	}
	return math.Mod(a/deg2rad, 360)
}
