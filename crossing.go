package herm

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// CrossingType is the label of a crossing interval.
type CrossingType uint8

// Crossing labels of the crossing lists.
const (
	BowShockIn CrossingType = iota + 1
	BowShockOut
	MagnetopauseIn
	MagnetopauseOut
	BowShockCrossing
	MagnetopauseCrossing
	DataGap
)

var crossingNames = map[CrossingType]string{
	BowShockIn:           "BS_IN",
	BowShockOut:          "BS_OUT",
	MagnetopauseIn:       "MP_IN",
	MagnetopauseOut:      "MP_OUT",
	BowShockCrossing:     "BS",
	MagnetopauseCrossing: "MP",
	DataGap:              "DATA_GAP",
}

func (c CrossingType) String() string {
	if name, ok := crossingNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseCrossingType returns the crossing type from its label.
func ParseCrossingType(label string) (CrossingType, error) {
	label = strings.ToUpper(strings.TrimSpace(label))
	for c, name := range crossingNames {
		if name == label {
			return c, nil
		}
	}
	return 0, errors.Errorf("unknown crossing type %q", label)
}

// Boundary returns the boundary model the crossing is compared against.
func (c CrossingType) Boundary() (BoundaryType, error) {
	switch c {
	case BowShockIn, BowShockOut, BowShockCrossing:
		return BowShock, nil
	case MagnetopauseIn, MagnetopauseOut, MagnetopauseCrossing:
		return Magnetopause, nil
	default:
		return 0, errors.Wrapf(ErrInvalidBoundaryModel, "no boundary for %s", c)
	}
}

// Crossing is one interval of a crossing list.
type Crossing struct {
	Start, End  time.Time
	Type        CrossingType
	OrbitNumber int
}

// Midpoint returns Start + (End − Start) / 2.
func (c Crossing) Midpoint() time.Time {
	return c.Start.Add(c.End.Sub(c.Start) / 2)
}

// Boundary returns the boundary model the crossing is compared against.
func (c Crossing) Boundary() (BoundaryType, error) {
	return c.Type.Boundary()
}

// CrossingsBetween returns the crossings overlapping [start, end].
func CrossingsBetween(crossings []Crossing, start, end time.Time) []Crossing {
	var out []Crossing
	for _, c := range crossings {
		if !c.End.Before(start) && !c.Start.After(end) {
			out = append(out, c)
		}
	}
	return out
}

// OrbitNumber returns, for every epoch, the orbit number of the last crossing
// starting at or before it. Epochs before the first crossing get the orbit of
// the first crossing. crossings must be sorted by Start.
func OrbitNumber(crossings []Crossing, epochs []time.Time) ([]int, error) {
	if len(crossings) == 0 {
		return nil, errors.New("empty crossing list")
	}
	out := make([]int, len(epochs))
	for i, epoch := range epochs {
		j := sort.Search(len(crossings), func(k int) bool { return crossings[k].Start.After(epoch) }) - 1
		if j < 0 {
			j = 0
		}
		out[i] = crossings[j].OrbitNumber
	}
	return out, nil
}

// ReadCrossings reads a CSV crossing list. The header names the columns
// "Start Time", "End Time", "Type" and optionally "Orbit Number"; other
// columns are ignored.
func ReadCrossings(r io.Reader) ([]Crossing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading crossing list header")
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"start time", "end time", "type"} {
		if _, ok := col[name]; !ok {
			return nil, errors.Errorf("crossing list has no %q column", name)
		}
	}
	orbit, hasOrbit := col["orbit number"]
	var out []Crossing
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		get := func(i int) string {
			if i < len(rec) {
				return rec[i]
			}
			return ""
		}
		var c Crossing
		if c.Start, err = ParseEpoch(get(col["start time"])); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if c.End, err = ParseEpoch(get(col["end time"])); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if c.Type, err = ParseCrossingType(get(col["type"])); err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if hasOrbit && get(orbit) != "" {
			if c.OrbitNumber, err = strconv.Atoi(get(orbit)); err != nil {
				return nil, errors.Wrapf(err, "line %d", line)
			}
		}
		out = append(out, c)
	}
}
