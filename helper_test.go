package herm

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats/scalar"
)

const eps = 1e-9

// vectorsEqual returns whether two vectors are equal within a relative tolerance.
func vectorsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := len(a) - 1; i >= 0; i-- {
		if !scalar.EqualWithinAbsOrRel(a[i], b[i], eps, eps) {
			return false
		}
	}
	return true
}

// anglesEqual returns whether two angles in radians are equal.
func anglesEqual(a, b float64) (bool, error) {
	diff := math.Abs(a - b)
	if diff < 1e-6 || math.Abs(diff-2*math.Pi) < 1e-6 {
		return true, nil
	}
	return false, fmt.Errorf("difference of %3.10fπ", diff/math.Pi)
}

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("The code did not panic")
		}
	}()
	f()
}

var testEpoch = time.Date(2011, 4, 11, 0, 0, 0, 0, time.UTC)

// mockKernels serves analytic positions: the spacecraft from sc (MSO, km) and
// the planet at helio(t) km from the Sun along +X.
type mockKernels struct {
	sc     func(t time.Time) []float64
	helio  func(t time.Time) float64
	gaps   []Window
	batch  bool // whether handles implement BatchProvider
	fail   error
	loads  atomic.Int32
	closes atomic.Int32
	calls  atomic.Int32 // Position calls
}

func newMockKernels(sc func(t time.Time) []float64) *mockKernels {
	return &mockKernels{
		sc:    sc,
		helio: func(time.Time) float64 { return HermpyConstants.SemiMajorAxis },
	}
}

// linearMotion moves from p0 (km) at testEpoch with v (km/s).
func linearMotion(p0, v []float64) func(time.Time) []float64 {
	return func(t time.Time) []float64 {
		dt := t.Sub(testEpoch).Seconds()
		return []float64{p0[0] + v[0]*dt, p0[1] + v[1]*dt, p0[2] + v[2]*dt}
	}
}

func (m *mockKernels) Load() (Provider, error) {
	if m.fail != nil {
		return nil, m.fail
	}
	m.loads.Add(1)
	p := &mockProvider{m: m}
	if m.batch {
		return &mockBatchProvider{p}, nil
	}
	return p, nil
}

type mockProvider struct {
	m      *mockKernels
	closed bool
}

func (p *mockProvider) Name() string { return "mock" }

func (p *mockProvider) Position(target, observer, frame string, epoch time.Time) ([]float64, error) {
	p.m.calls.Add(1)
	if p.closed {
		return nil, errHandleClosed
	}
	for _, g := range p.m.gaps {
		if g.Contains(epoch) {
			return nil, errors.Wrapf(ErrNoCoverage, "gap at %s", epoch)
		}
	}
	switch {
	case target == "MESSENGER" && observer == "MERCURY" && frame == DefaultMSOFrame:
		return p.m.sc(epoch), nil
	case target == "MERCURY" && observer == "SUN" && strings.HasSuffix(frame, "J2000"):
		return []float64{p.m.helio(epoch), 0, 0}, nil
	}
	return nil, errors.Wrapf(ErrUnknownBody, "%s/%s/%s", target, observer, frame)
}

func (p *mockProvider) Close() error {
	p.m.closes.Add(1)
	p.closed = true
	return nil
}

type mockBatchProvider struct {
	*mockProvider
}

func (p *mockBatchProvider) Positions(target, observer, frame string, epochs []time.Time) ([][]float64, error) {
	out := make([][]float64, len(epochs))
	for i, epoch := range epochs {
		v, err := p.Position(target, observer, frame, epoch)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// messengerKernel is a MESSENGER-like 12 h orbit with periapsis at testEpoch.
func messengerKernel(t *testing.T) KeplerKernel {
	o, err := NewOrbitFromOE(10189.7, 0.741, 82.5, 10, 60, 0, Mercury)
	if err != nil {
		t.Fatal(err)
	}
	return KeplerKernel{
		Target:   "MESSENGER",
		Observer: "MERCURY",
		Frame:    DefaultMSOFrame,
		Epoch:    testEpoch,
		Orbit:    o,
	}
}
