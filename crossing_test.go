package herm

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestCrossingType(t *testing.T) {
	for c, b := range map[CrossingType]BoundaryType{
		BowShockIn: BowShock, BowShockOut: BowShock, BowShockCrossing: BowShock,
		MagnetopauseIn: Magnetopause, MagnetopauseOut: Magnetopause, MagnetopauseCrossing: Magnetopause,
	} {
		got, err := c.Boundary()
		if err != nil || got != b {
			t.Fatalf("%s compared to %s (%v)", c, got, err)
		}
		parsed, err := ParseCrossingType(" " + c.String() + " ")
		if err != nil || parsed != c {
			t.Fatalf("%s parsed to %s (%v)", c, parsed, err)
		}
	}
	if _, err := DataGap.Boundary(); !errors.Is(err, ErrInvalidBoundaryModel) {
		t.Fatalf("a data gap has no boundary: %v", err)
	}
	if c, _ := ParseCrossingType("data_gap"); c != DataGap {
		t.Fatal("DATA_GAP not parsed")
	}
	if _, err := ParseCrossingType("CUSP"); err == nil {
		t.Fatal("unknown labels should fail")
	}
}

func TestCrossingMidpoint(t *testing.T) {
	c := Crossing{Start: testEpoch, End: testEpoch.Add(3*time.Minute + time.Second), Type: BowShockIn}
	if mid := c.Midpoint(); !mid.Equal(testEpoch.Add(90*time.Second + 500*time.Millisecond)) {
		t.Fatalf("midpoint %s", mid)
	}
	if b, _ := c.Boundary(); b != BowShock {
		t.Fatal("bow shock crossing")
	}
}

func testCrossings() []Crossing {
	var out []Crossing
	for orbit := 0; orbit < 3; orbit++ {
		base := testEpoch.Add(time.Duration(orbit) * 12 * time.Hour)
		for k, ct := range []CrossingType{BowShockIn, MagnetopauseIn, MagnetopauseOut, BowShockOut} {
			start := base.Add(time.Duration(k) * time.Hour)
			out = append(out, Crossing{Start: start, End: start.Add(5 * time.Minute), Type: ct, OrbitNumber: orbit + 10})
		}
	}
	return out
}

func TestCrossingsBetween(t *testing.T) {
	cs := testCrossings()
	// Overlapping the bounds counts.
	got := CrossingsBetween(cs, testEpoch.Add(time.Hour+4*time.Minute), testEpoch.Add(2*time.Hour))
	if len(got) != 2 || got[0].Type != MagnetopauseIn || got[1].Type != MagnetopauseOut {
		t.Fatalf("got %+v", got)
	}
	if got := CrossingsBetween(cs, testEpoch.Add(5*time.Hour), testEpoch.Add(11*time.Hour)); len(got) != 0 {
		t.Fatalf("got %+v", got)
	}
}

func TestOrbitNumber(t *testing.T) {
	cs := testCrossings()
	epochs := []time.Time{
		testEpoch.Add(-time.Hour),
		testEpoch,
		testEpoch.Add(11 * time.Hour),
		testEpoch.Add(12 * time.Hour),
		testEpoch.Add(100 * time.Hour),
	}
	got, err := OrbitNumber(cs, epochs)
	if err != nil {
		t.Fatal(err)
	}
	for i, exp := range []int{10, 10, 10, 11, 12} {
		if got[i] != exp {
			t.Fatalf("epoch %d in orbit %d, expected %d", i, got[i], exp)
		}
	}
	if _, err := OrbitNumber(nil, epochs); err == nil {
		t.Fatal("an empty list should fail")
	}
}

const testCrossingList = `Start Time,End Time,Type,Orbit Number,Comment
2011-04-11 00:10:00,2011-04-11 00:12:30,BS_IN,1,
2011-04-11T01:00:00Z, 2011-04-11T01:01:00Z,MP_IN,1,noisy
2011-04-11 05:00:00,2011-04-11 07:00:00,DATA_GAP,,
`

func TestReadCrossings(t *testing.T) {
	cs, err := ReadCrossings(strings.NewReader(testCrossingList))
	if err != nil {
		t.Fatal(err)
	}
	if len(cs) != 3 {
		t.Fatalf("%d crossings", len(cs))
	}
	if cs[0].Type != BowShockIn || !cs[0].Start.Equal(testEpoch.Add(10*time.Minute)) || cs[0].OrbitNumber != 1 {
		t.Fatalf("first crossing %+v", cs[0])
	}
	if cs[1].Type != MagnetopauseIn || !cs[1].End.Equal(testEpoch.Add(61*time.Minute)) {
		t.Fatalf("second crossing %+v", cs[1])
	}
	if cs[2].Type != DataGap || cs[2].OrbitNumber != 0 {
		t.Fatalf("third crossing %+v", cs[2])
	}
	for _, bad := range []string{
		"Start,End,Type\n",
		"Start Time,End Time,Type\n2011-04-11,2011-04-12,CUSP\n",
		"Start Time,End Time,Type\nyesterday,2011-04-12,BS\n",
	} {
		if _, err := ReadCrossings(strings.NewReader(bad)); err == nil {
			t.Fatalf("%q should fail", bad)
		}
	}
}
