package herm

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

var earth = CelestialObject{"EARTH", 6378.1363, 149598023, 3.98600433e5, 1.0826269e-3}

func TestOrbitRV2COE(t *testing.T) {
	// Vallado, example 2-5.
	R := []float64{6524.834, 6862.875, 6448.296}
	V := []float64{4.901327, 5.533756, -1.976341}
	o := NewOrbitFromRV(R, V, earth)
	a, e, i, Ω, ω, ν := o.Elements()
	if !scalar.EqualWithinAbs(a, 36127.343, 0.1) {
		t.Fatalf("a=%f", a)
	}
	if !scalar.EqualWithinAbs(e, 0.832853, 1e-5) {
		t.Fatalf("e=%f", e)
	}
	for _, angle := range []struct {
		name     string
		got, exp float64
	}{{"i", i, 87.869126}, {"Ω", Ω, 227.898260}, {"ω", ω, 53.384931}, {"ν", ν, 92.335157}} {
		if !scalar.EqualWithinAbs(Rad2deg(angle.got), angle.exp, 1e-3) {
			t.Fatalf("%s=%f expected %f", angle.name, Rad2deg(angle.got), angle.exp)
		}
	}
	if !scalar.EqualWithinAbs(o.Energyξ(), -5.516604, 1e-5) {
		t.Fatalf("incorrect energy ξ=%f", o.Energyξ())
	}
	if !scalar.EqualWithinAbs(norm(o.R()), o.RNorm(), 1e-6) {
		t.Fatalf("incorrect r norm |R|=%f\tr=%f", norm(o.R()), o.RNorm())
	}
}

func TestOrbitCOE2RV(t *testing.T) {
	o, err := NewOrbitFromOE(36126.64283, 0.83280, 87.874925, 227.891253, 53.378089, 92.335027, earth)
	if err != nil {
		t.Fatal(err)
	}
	gotR, gotV := o.RV()
	R := []float64{6526.4356548877795, 6863.734753280531, 6451.192510164048}
	V := []float64{4.901500379052684, 5.532247816023338, -1.975381990475774}
	if !floats.EqualApprox(R, gotR, 1e-6) {
		t.Fatalf("R vector incorrectly computed:\n%+v\n%+v", R, gotR)
	}
	if !floats.EqualApprox(V, gotV, 1e-9) {
		t.Fatalf("V vector incorrectly computed:\n%+v\n%+v", V, gotV)
	}
	// Round trip through the elements.
	o1 := NewOrbitFromRV(gotR, gotV, earth)
	R1, V1 := o1.RV()
	if !floats.EqualApprox(R1, gotR, 1e-6) || !floats.EqualApprox(V1, gotV, 1e-9) {
		t.Fatalf("round trip failed: %s vs %s", o1, o)
	}
	if _, err := NewOrbitFromOE(1e4, 1.2, 0, 0, 0, 0, earth); err == nil {
		t.Fatal("hyperbolic orbits should be rejected")
	}
}

func TestOrbitAfter(t *testing.T) {
	o, err := NewOrbitFromOE(10189.7, 0.741, 82.5, 10, 60, 0, Mercury)
	if err != nil {
		t.Fatal(err)
	}
	// A full period brings the spacecraft back to periapsis.
	if back := o.After(o.Period()); !vectorsEqualWithin(back.R(), o.R(), 1e-3) {
		t.Fatalf("after one period: %v != %v", back.R(), o.R())
	}
	half := o.After(o.Period() / 2)
	if !scalar.EqualWithinAbs(half.RNorm(), o.Apoapsis(), 1e-3) {
		t.Fatalf("after half a period r=%f, apoapsis=%f", half.RNorm(), o.Apoapsis())
	}
	// Forward then backward.
	dt := 3*time.Hour + 17*time.Minute
	if back := o.After(dt).After(-dt); !vectorsEqualWithin(back.R(), o.R(), 1e-3) {
		t.Fatal("After is not reversible")
	}
	// The propagated state must be consistent with the conic.
	mid := o.After(dt)
	R, V := mid.RV()
	rv := NewOrbitFromRV(R, V, Mercury)
	if !scalar.EqualWithinRel(rv.a, o.a, 1e-7) || !scalar.EqualWithinAbs(rv.e, o.e, 1e-7) {
		t.Fatalf("elements changed: %s vs %s", rv, o)
	}
}

func TestSolveKepler(t *testing.T) {
	for _, e := range []float64{0, 0.1, 0.5, 0.741, 0.95} {
		for M := 0.0; M < 2*math.Pi; M += 0.1 {
			E := solveKepler(M, e)
			if !scalar.EqualWithinAbs(E-e*math.Sin(E), M, 1e-12) {
				t.Fatalf("e=%f M=%f: E=%f", e, M, E)
			}
		}
	}
}

func TestRadii2ae(t *testing.T) {
	a, e := Radii2ae(17739.7, 2639.7)
	if !scalar.EqualWithinAbs(a, 10189.7, 1e-9) || !scalar.EqualWithinAbs(e, 0.740944, 1e-6) {
		t.Fatalf("a=%f e=%f", a, e)
	}
	assertPanic(t, func() {
		Radii2ae(2639.7, 17739.7)
	})
}

func vectorsEqualWithin(a, b []float64, tol float64) bool {
	return floats.EqualApprox(a, b, tol)
}
