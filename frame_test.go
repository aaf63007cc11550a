package herm

import (
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

// constantAngle is an AngleSource returning a fixed angle.
type constantAngle float64

func (c constantAngle) Angle(time.Time) (float64, error) { return float64(c), nil }

// rampAngle grows by 1 mrad per hour after testEpoch.
type rampAngle struct{}

func (rampAngle) Angle(t time.Time) (float64, error) {
	return 0.1 + 1e-3*t.Sub(testEpoch).Hours(), nil
}

func TestParseFrame(t *testing.T) {
	for name, exp := range map[string]Frame{
		"MSO": MSO, "msm": MSM, "MSO'": MSOPrime, "MSM'": MSMPrime, "MSM_AB": MSMPrime, " mso_ab ": MSOPrime,
	} {
		f, err := ParseFrame(name)
		if err != nil || f != exp {
			t.Fatalf("%q parsed to %s (%v)", name, f, err)
		}
	}
	if _, err := ParseFrame("GSE"); !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
	if MSMPrime.String() != "MSM'" || !MSMPrime.Dipole() || !MSMPrime.Aberrated() || MSO.Dipole() || MSO.Aberrated() {
		t.Fatal("frame traits")
	}
}

func TestShift(t *testing.T) {
	p := Position{X: 1000, Y: 2000, Z: 3000, Frame: MSO, Epoch: testEpoch}
	msm, err := ShiftToMSM(p, 479)
	if err != nil {
		t.Fatal(err)
	}
	if msm.Frame != MSM || msm.Z != 2521 || msm.X != 1000 || msm.Y != 2000 {
		t.Fatalf("shifted to %s", msm)
	}
	if _, err := ShiftToMSM(msm, 479); !errors.Is(err, ErrInvalidFrame) {
		t.Fatal("shifting twice should fail")
	}
	back, err := ShiftToMSO(msm, 479)
	if err != nil || back != p {
		t.Fatalf("back to %s (%v)", back, err)
	}
	if _, err := ShiftToMSO(p, 479); !errors.Is(err, ErrInvalidFrame) {
		t.Fatal("MSO cannot be shifted to MSO")
	}
}

func TestAberrate(t *testing.T) {
	p := Position{X: 3000, Y: -1000, Z: 500, Frame: MSM, Epoch: testEpoch}
	for θ := -math.Pi; θ <= math.Pi; θ += math.Pi / 7 {
		ab, err := Aberrate(p, θ)
		if err != nil {
			t.Fatal(err)
		}
		if ab.Frame != MSMPrime {
			t.Fatalf("aberrated to %s", ab.Frame)
		}
		// The x-y norm and z are preserved.
		if !scalar.EqualWithinAbs(math.Hypot(ab.X, ab.Y), math.Hypot(p.X, p.Y), 1e-9) || ab.Z != p.Z {
			t.Fatalf("θ=%f: %s from %s", θ, ab, p)
		}
		s, c := math.Sincos(θ)
		if !scalar.EqualWithinAbs(ab.X, p.X*c-p.Y*s, 1e-9) || !scalar.EqualWithinAbs(ab.Y, p.X*s+p.Y*c, 1e-9) {
			t.Fatalf("θ=%f: unexpected rotation %s", θ, ab)
		}
		back, err := Unaberrate(ab, θ)
		if err != nil {
			t.Fatal(err)
		}
		if back.Frame != MSM || !vectorsEqual(back.Vector(), p.Vector()) {
			t.Fatalf("θ=%f: round trip to %s", θ, back)
		}
	}
	if _, err := Aberrate(Position{Frame: MSOPrime}, 0.1); !errors.Is(err, ErrInvalidFrame) {
		t.Fatal("aberrating twice should fail")
	}
	if _, err := Unaberrate(Position{Frame: MSO}, 0.1); !errors.Is(err, ErrInvalidFrame) {
		t.Fatal("unaberrating MSO should fail")
	}
}

func TestConverterRoundTrip(t *testing.T) {
	conv := Converter{Constants: HermpyConstants, Aberration: rampAngle{}}
	frames := []Frame{MSO, MSM, MSOPrime, MSMPrime}
	for h := 0; h < 48; h += 5 {
		epoch := testEpoch.Add(time.Duration(h) * time.Hour)
		p := Position{X: 4000, Y: -2500, Z: 1200, Frame: MSO, Epoch: epoch}
		for _, from := range frames {
			src, err := conv.ToFrame(p, from)
			if err != nil {
				t.Fatal(err)
			}
			for _, to := range frames {
				dst, err := conv.ToFrame(src, to)
				if err != nil {
					t.Fatal(err)
				}
				if dst.Frame != to || !dst.Epoch.Equal(epoch) {
					t.Fatalf("%s → %s gave %s", from, to, dst)
				}
				back, err := conv.ToFrame(dst, from)
				if err != nil {
					t.Fatal(err)
				}
				if !floats.EqualApprox(back.Vector(), src.Vector(), 1e-9) {
					t.Fatalf("%s → %s → %s: %s != %s", from, to, from, back, src)
				}
			}
		}
	}
}

func TestConverterZeroOffset(t *testing.T) {
	consts := HermpyConstants
	consts.DipoleOffset = 0
	conv := Converter{Constants: consts, Aberration: constantAngle(0.12)}
	p := Position{X: 4000, Y: -2500, Z: 1200, Frame: MSO, Epoch: testEpoch}
	msm, _ := conv.ToFrame(p, MSM)
	if !vectorsEqual(msm.Vector(), p.Vector()) {
		t.Fatal("MSO and MSM differ without dipole offset")
	}
	msoP, _ := conv.ToFrame(p, MSOPrime)
	msmP, _ := conv.ToFrame(p, MSMPrime)
	if !vectorsEqual(msoP.Vector(), msmP.Vector()) {
		t.Fatal("MSO' and MSM' differ without dipole offset")
	}
}

func TestConverterNoAberration(t *testing.T) {
	conv := Converter{Constants: HermpyConstants}
	p := Position{X: 1, Frame: MSO, Epoch: testEpoch}
	if _, err := conv.ToFrame(p, MSM); err != nil {
		t.Fatal(err)
	}
	if _, err := conv.ToFrame(p, MSOPrime); !errors.Is(err, ErrInvalidFrame) {
		t.Fatal("primed frame without aberration model should fail")
	}
	if _, err := conv.ToFrame(p, Frame(9)); !errors.Is(err, ErrInvalidFrame) {
		t.Fatal("invalid target frame should fail")
	}
}

func TestPosition(t *testing.T) {
	p := NewPosition([]float64{3, 4, 12}, MSO, testEpoch)
	if p.Range() != 13 {
		t.Fatalf("range %f", p.Range())
	}
	if x, r := p.Cylindrical(); x != 3 || r != math.Hypot(4, 12) {
		t.Fatalf("cylindrical (%f, %f)", x, r)
	}
	if s := p.Scale(0.5); s.X != 1.5 || s.Frame != MSO || p.X != 3 {
		t.Fatal("Scale must return a scaled copy")
	}
}
