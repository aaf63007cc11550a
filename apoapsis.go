package herm

import (
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Apoapsis is a local maximum of the distance to the planet centre.
type Apoapsis struct {
	Epoch    time.Time
	Altitude float64 // km from the planet centre
}

// LocalMaxima returns the indices of the strict local maxima of samples, i.e.
// samples[i-1] < samples[i] > samples[i+1]. The end points are never maxima.
func LocalMaxima(samples []float64) []int {
	var idx []int
	for i := 1; i < len(samples)-1; i++ {
		if samples[i] > samples[i-1] && samples[i] > samples[i+1] {
			idx = append(idx, i)
		}
	}
	return idx
}

// ApoapsisFinder searches apoapses of Body in sampled distance time series.
type ApoapsisFinder struct {
	Ephemeris *Ephemeris
	Body      string
	Logger    kitlog.Logger // optional
}

func (f ApoapsisFinder) logger() kitlog.Logger {
	if f.Logger == nil {
		return kitlog.NewNopLogger()
	}
	return kitlog.With(f.Logger, "subsys", "apoapsis")
}

// sample returns the epochs start + k·cadence ≤ end and the distances there.
func (f ApoapsisFinder) sample(start, end time.Time, cadence time.Duration) ([]time.Time, []float64, error) {
	if cadence <= 0 {
		return nil, nil, errors.Wrapf(ErrInvalidWindow, "cadence %s", cadence)
	}
	if !end.After(start) {
		return nil, nil, errors.Wrapf(ErrInvalidWindow, "window %s to %s", start, end)
	}
	var epochs []time.Time
	for t := start; !t.After(end); t = t.Add(cadence) {
		epochs = append(epochs, t)
	}
	positions, err := f.Ephemeris.GetPositions(f.Body, epochs, MSO)
	if err != nil {
		return nil, nil, err
	}
	ranges := make([]float64, len(positions))
	for i, p := range positions {
		ranges[i] = p.Range()
	}
	return epochs, ranges, nil
}

// FindAllInRange returns the apoapses between start and end in chronological
// order. If targetCount > 0 and more apoapses were found, the one farthest
// from the window midpoint (always the first or the last) is removed until
// targetCount remain.
func (f ApoapsisFinder) FindAllInRange(start, end time.Time, cadence time.Duration, targetCount int) ([]Apoapsis, error) {
	epochs, ranges, err := f.sample(start, end, cadence)
	if err != nil {
		return nil, err
	}
	var found []Apoapsis
	for _, i := range LocalMaxima(ranges) {
		found = append(found, Apoapsis{Epoch: epochs[i], Altitude: ranges[i]})
	}
	if targetCount <= 0 || len(found) <= targetCount {
		return found, nil
	}
	mid := start.Add(end.Sub(start) / 2)
	trimmed, err := trimToCount(found, mid, targetCount)
	if err != nil {
		return nil, err
	}
	level.Debug(f.logger()).Log("found", len(found), "kept", len(trimmed), "midpoint", mid)
	return trimmed, nil
}

// trimToCount removes from either end of the chronological list apo the
// apoapsis farthest from mid until count remain.
func trimToCount(apo []Apoapsis, mid time.Time, count int) ([]Apoapsis, error) {
	for len(apo) > count {
		first := absDuration(apo[0].Epoch.Sub(mid))
		last := absDuration(apo[len(apo)-1].Epoch.Sub(mid))
		switch {
		case first > last:
			apo = apo[1:]
		case last > first:
			apo = apo[:len(apo)-1]
		default:
			return nil, errors.Wrapf(ErrAmbiguousTrim, "first and last apoapsis are both %s from %s", first, mid)
		}
	}
	return apo, nil
}

// FindNearest returns the apoapsis closest in time to ref, searching within
// radius on either side.
func (f ApoapsisFinder) FindNearest(ref time.Time, cadence, radius time.Duration) (Apoapsis, error) {
	epochs, ranges, err := f.sample(ref.Add(-radius), ref.Add(radius), cadence)
	if err != nil {
		return Apoapsis{}, err
	}
	maxima := LocalMaxima(ranges)
	if len(maxima) == 0 {
		return Apoapsis{}, errors.Wrapf(ErrNoApoapsisFound, "within %s of %s", radius, ref)
	}
	best := maxima[0]
	for _, i := range maxima[1:] {
		if absDuration(epochs[i].Sub(ref)) < absDuration(epochs[best].Sub(ref)) {
			best = i
		}
	}
	return Apoapsis{Epoch: epochs[best], Altitude: ranges[best]}, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
