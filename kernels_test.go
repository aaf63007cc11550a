package herm

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestKeplerKernel(t *testing.T) {
	k := messengerKernel(t)
	k.Coverage = []Window{{Start: testEpoch, End: testEpoch.Add(24 * time.Hour)}}
	p, err := k.Load()
	if err != nil {
		t.Fatal(err)
	}
	R, err := p.Position("messenger", "mercury", "bc_mso", testEpoch)
	if err != nil {
		t.Fatal(err)
	}
	if !scalar.EqualWithinAbs(norm(R), k.Orbit.Periapsis(), 1e-6) {
		t.Fatalf("periapsis at %f km", norm(R))
	}
	rev, err := p.Position("MERCURY", "MESSENGER", DefaultMSOFrame, testEpoch)
	if err != nil {
		t.Fatal(err)
	}
	floats.Scale(-1, rev)
	if !vectorsEqual(R, rev) {
		t.Fatal("reversed pair is not opposite")
	}
	if _, err := p.Position("MESSENGER", "MERCURY", DefaultMSOFrame, testEpoch.Add(-time.Second)); !errors.Is(err, ErrNoCoverage) {
		t.Fatalf("expected no coverage, got %v", err)
	}
	if _, err := p.Position("MESSENGER", "MERCURY", "IAU_MERCURY", testEpoch); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("expected unknown frame, got %v", err)
	}
	if _, err := p.Position("MESSENGER", "SUN", DefaultMSOFrame, testEpoch); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("expected unknown body, got %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Position("MESSENGER", "MERCURY", DefaultMSOFrame, testEpoch); err != errHandleClosed {
		t.Fatalf("closed handle answered: %v", err)
	}
	if err := p.Close(); err == nil {
		t.Fatal("double close should fail")
	}
	if _, err := (KeplerKernel{}).Load(); err == nil {
		t.Fatal("a kernel without orbit should not load")
	}
}

func TestPropagatedKernel(t *testing.T) {
	kk := messengerKernel(t)
	pk := PropagatedKernel{
		Target:   kk.Target,
		Observer: kk.Observer,
		Frame:    kk.Frame,
		Initial:  kk.Orbit,
		Start:    testEpoch,
		End:      testEpoch.Add(2 * time.Hour),
		Step:     10 * time.Second,
	}
	ks := Kernels(pk)
	prop, err := ks.Load()
	if err != nil {
		t.Fatal(err)
	}
	defer prop.Close()
	kep, err := kk.Load()
	if err != nil {
		t.Fatal(err)
	}
	defer kep.Close()
	for s := 0; s <= 7200; s += 37 {
		epoch := testEpoch.Add(time.Duration(s) * time.Second)
		Rp, err := prop.Position("MESSENGER", "MERCURY", DefaultMSOFrame, epoch)
		if err != nil {
			t.Fatal(err)
		}
		Rk, _ := kep.Position("MESSENGER", "MERCURY", DefaultMSOFrame, epoch)
		if d := floats.Distance(Rp, Rk, 2); d > 1 {
			t.Fatalf("%d s: integrated trajectory off by %f km", s, d)
		}
	}
	if _, err := prop.Position("MESSENGER", "MERCURY", DefaultMSOFrame, pk.End.Add(time.Second)); !errors.Is(err, ErrNoCoverage) {
		t.Fatalf("expected no coverage, got %v", err)
	}
	pk.Step = 0
	if _, err := pk.Load(); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected invalid window, got %v", err)
	}
	pk.Step, pk.Observer = 10*time.Second, "SUN"
	if _, err := pk.Load(); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("expected an origin mismatch, got %v", err)
	}
}

func TestPropagatedKernelJ2(t *testing.T) {
	kk := messengerKernel(t)
	pk := PropagatedKernel{
		Target:   kk.Target,
		Observer: kk.Observer,
		Frame:    kk.Frame,
		Initial:  kk.Orbit,
		Start:    testEpoch,
		End:      testEpoch.Add(kk.Orbit.Period()),
		Step:     10 * time.Second,
		J2:       true,
	}
	p, err := pk.Load()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	// J2 perturbs the orbit only slightly over one revolution.
	R, err := p.Position("MESSENGER", "MERCURY", DefaultMSOFrame, pk.End)
	if err != nil {
		t.Fatal(err)
	}
	if d := floats.Distance(R, kk.Orbit.R(), 2); d > 50 {
		t.Fatalf("J2 moved the periapsis by %f km", d)
	}
}

func TestCompositeRouting(t *testing.T) {
	ks := Kernels(messengerKernel(t), MercuryHelioKernel())
	p, err := ks.Load()
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "kepler:MESSENGER+kepler:MERCURY" {
		t.Fatalf("composite name %s", p.Name())
	}
	if _, err := p.Position("MESSENGER", "MERCURY", DefaultMSOFrame, testEpoch); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Position("MERCURY", "SUN", DefaultHelioFrame, testEpoch); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Position("VENUS", "SUN", DefaultHelioFrame, testEpoch); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("expected unknown body, got %v", err)
	}
	epochs := []time.Time{testEpoch, testEpoch.Add(time.Hour)}
	vs, err := p.(BatchProvider).Positions("MERCURY", "SUN", DefaultHelioFrame, epochs)
	if err != nil || len(vs) != 2 {
		t.Fatalf("batch: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	// A failing set releases the ones already loaded.
	mk := newMockKernels(nil)
	mk.fail = errors.New("missing kernel")
	good := newMockKernels(nil)
	if _, err := Kernels(good, mk).Load(); err == nil {
		t.Fatal("expected a load error")
	}
	if good.loads.Load() != 1 || good.closes.Load() != 1 {
		t.Fatal("loaded kernels were not released")
	}
}

func TestSerialized(t *testing.T) {
	mk := newMockKernels(linearMotion([]float64{1000, 0, 0}, []float64{1, 0, 0}))
	raw, _ := mk.Load()
	p := Serialized(raw)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := p.Position("MESSENGER", "MERCURY", DefaultMSOFrame, testEpoch.Add(time.Duration(g*i)*time.Second)); err != nil {
					t.Error(err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	if mk.calls.Load() != 400 {
		t.Fatalf("%d calls", mk.calls.Load())
	}
	if err := p.Close(); err != nil || mk.closes.Load() != 1 {
		t.Fatal("close not forwarded")
	}
}

func TestVSOP87Kernel(t *testing.T) {
	dir := os.Getenv("HERM_VSOP87_DIR")
	if dir == "" {
		t.Skip("HERM_VSOP87_DIR not set")
	}
	p, err := VSOP87Kernel{Dir: dir}.Load()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	ecl, err := p.Position("MERCURY", "SUN", "ECLIPJ2000", testEpoch)
	if err != nil {
		t.Fatal(err)
	}
	eq, err := p.Position("MERCURY", "SUN", "J2000", testEpoch)
	if err != nil {
		t.Fatal(err)
	}
	if r := norm(ecl); r < 46.0e6 || r > 69.9e6 || !scalar.EqualWithinRel(r, norm(eq), 1e-12) {
		t.Fatalf("heliocentric distance of %f km", r)
	}
	// Within a few percent of the mean elements.
	kep, _ := MercuryHelioKernel().Load()
	defer kep.Close()
	R, _ := kep.Position("MERCURY", "SUN", DefaultHelioFrame, testEpoch)
	if !scalar.EqualWithinRel(norm(R), norm(ecl), 0.02) {
		t.Fatalf("VSOP87 %f km, mean elements %f km", norm(ecl), norm(R))
	}
}

func TestDEKernel(t *testing.T) {
	file := os.Getenv("HERM_DE_FILE")
	if file == "" {
		t.Skip("HERM_DE_FILE not set")
	}
	p, err := DEKernel{File: file}.Load()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	R, err := p.Position("MERCURY", "SUN", DefaultHelioFrame, testEpoch)
	if err != nil {
		t.Fatal(err)
	}
	if r := norm(R); r < 46.0e6 || r > 69.9e6 {
		t.Fatalf("heliocentric distance of %f km", r)
	}
	if _, err := p.Position("MESSENGER", "MERCURY", DefaultMSOFrame, testEpoch); !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("expected unknown body, got %v", err)
	}
	if _, err := p.Position("MERCURY", "SUN", DefaultHelioFrame, time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC)); !errors.Is(err, ErrNoCoverage) {
		t.Fatalf("expected no coverage, got %v", err)
	}
}
