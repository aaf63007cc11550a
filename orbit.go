package herm

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats/scalar"
)

const (
	eccentricityε = 5e-5                         // 0.00005
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
	keplerε       = 1e-13
	keplerMaxIter = 50
)

// Orbit defines an elliptic orbit via its orbital elements, in the frame of
// its origin. Angles are stored in radians.
type Orbit struct {
	a, e, i, Ω, ω, ν float64
	Origin           CelestialObject // Orbit origin
}

// Energyξ returns the specific mechanical energy ξ.
func (o Orbit) Energyξ() float64 {
	return -o.Origin.μ / (2 * o.a)
}

// SemiParameter returns the semi parameter p.
func (o Orbit) SemiParameter() float64 {
	return o.a * (1 - o.e*o.e)
}

// Apoapsis returns the apoapsis radius.
func (o Orbit) Apoapsis() float64 {
	return o.a * (1 + o.e)
}

// Periapsis returns the periapsis radius.
func (o Orbit) Periapsis() float64 {
	return o.a * (1 - o.e)
}

// MeanMotion returns n in rad/s.
func (o Orbit) MeanMotion() float64 {
	return math.Sqrt(o.Origin.μ / math.Pow(o.a, 3))
}

// Period returns the period of this orbit.
func (o Orbit) Period() time.Duration {
	return o.Origin.Period(o.a)
}

// RNorm returns the norm of the radius vector, but without computing the radius vector.
func (o Orbit) RNorm() float64 {
	return o.SemiParameter() / (1 + o.e*math.Cos(o.ν))
}

// RV returns the radius and velocity vectors in km and km/s.
func (o Orbit) RV() ([]float64, []float64) {
	p := o.SemiParameter()
	sinν, cosν := math.Sincos(o.ν)
	dcm := PQW2Inertial(o.i, o.ω, o.Ω)
	R := MxV33(dcm, []float64{p * cosν / (1 + o.e*cosν), p * sinν / (1 + o.e*cosν), 0})
	h := math.Sqrt(o.Origin.μ / p)
	V := MxV33(dcm, []float64{-h * sinν, h * (o.e + cosν), 0})
	return R, V
}

// R returns the radius vector.
func (o Orbit) R() []float64 {
	R, _ := o.RV()
	return R
}

// Elements returns the six classical elements, angles in radians.
func (o Orbit) Elements() (a, e, i, Ω, ω, ν float64) {
	return o.a, o.e, o.i, o.Ω, o.ω, o.ν
}

// After returns this orbit advanced by dt (which may be negative) along the conic.
func (o Orbit) After(dt time.Duration) Orbit {
	M := meanAnomaly(o.ν, o.e) + o.MeanMotion()*dt.Seconds()
	E := solveKepler(math.Mod(M, 2*math.Pi), o.e)
	sinE2, cosE2 := math.Sincos(E / 2)
	o.ν = math.Mod(2*math.Atan2(math.Sqrt(1+o.e)*sinE2, math.Sqrt(1-o.e)*cosE2)+2*math.Pi, 2*math.Pi)
	return o
}

// String implements the stringer interface (hence the value receiver)
func (o Orbit) String() string {
	return fmt.Sprintf("a=%.1f e=%.4f i=%.3f Ω=%.3f ω=%.3f ν=%.3f", o.a, o.e, Rad2deg(o.i), Rad2deg(o.Ω), Rad2deg(o.ω), Rad2deg(o.ν))
}

// NewOrbitFromOE creates an orbit from the orbital elements.
// WARNING: Angles must be in degrees not radian.
func NewOrbitFromOE(a, e, i, Ω, ω, ν float64, c CelestialObject) (Orbit, error) {
	if a <= 0 || e < 0 || e >= 1 {
		return Orbit{}, errors.Errorf("only elliptic orbits are supported (a=%f e=%f)", a, e)
	}
	return Orbit{a, e, Deg2rad(i), Deg2rad(Ω), Deg2rad(ω), Deg2rad(ν), c}, nil
}

// NewOrbitFromRV returns orbital elements from the R and V vectors (Vallado's RV2COE).
func NewOrbitFromRV(R, V []float64, c CelestialObject) Orbit {
	hVec := cross(R, V)
	n := cross([]float64{0, 0, 1}, hVec)
	v := norm(V)
	r := norm(R)
	ξ := (v*v)/2 - c.μ/r
	a := -c.μ / (2 * ξ)
	eVec := make([]float64, 3)
	for i := 0; i < 3; i++ {
		eVec[i] = ((v*v-c.μ/r)*R[i] - dot(R, V)*V[i]) / c.μ
	}
	e := norm(eVec)
	i := math.Acos(clamp1(hVec[2] / norm(hVec)))
	var Ω, ω float64
	if nNorm := norm(n); nNorm > zeroε {
		Ω = math.Acos(clamp1(n[0] / nNorm))
		if n[1] < 0 {
			Ω = 2*math.Pi - Ω
		}
		if e > eccentricityε {
			ω = math.Acos(clamp1(dot(n, eVec) / (nNorm * e)))
			if eVec[2] < 0 {
				ω = 2*math.Pi - ω
			}
		}
	} else if e > eccentricityε {
		// Equatorial: measure ω from the X axis.
		ω = math.Atan2(eVec[1], eVec[0])
	}
	var ν float64
	if e > eccentricityε {
		ν = math.Acos(clamp1(dot(eVec, R) / (e * r)))
		if dot(R, V) < 0 {
			ν = 2*math.Pi - ν
		}
	} else {
		// Circular: ν is the argument of latitude from the node (or X).
		ν = math.Atan2(dot(cross(hVec, n), R)/norm(hVec), dot(n, R))
		if norm(n) <= zeroε {
			ν = math.Atan2(R[1], R[0])
		}
	}
	wrap := func(x float64) float64 { return math.Mod(x+2*math.Pi, 2*math.Pi) }
	return Orbit{a, e, wrap(i), wrap(Ω), wrap(ω), wrap(ν), c}
}

// meanAnomaly returns M from the true anomaly of an elliptic orbit.
func meanAnomaly(ν, e float64) float64 {
	sinν, cosν := math.Sincos(ν)
	E := math.Atan2(math.Sqrt(1-e*e)*sinν, e+cosν)
	return E - e*math.Sin(E)
}

// solveKepler solves M = E − e sin E with Newton-Raphson.
func solveKepler(M, e float64) float64 {
	E := M
	if e > 0.8 {
		E = math.Pi
	}
	for iter := 0; iter < keplerMaxIter; iter++ {
		δ := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= δ
		if scalar.EqualWithinAbs(δ, 0, keplerε) {
			break
		}
	}
	return E
}

// Radii2ae returns the semi major axis and the eccentricty from the radii.
func Radii2ae(rA, rP float64) (a, e float64) {
	if rA < rP {
		panic("periapsis cannot be greater than apoapsis")
	}
	a = (rP + rA) / 2
	e = (rA - rP) / (rA + rP)
	return
}
