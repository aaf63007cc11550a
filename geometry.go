package herm

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// Longitude returns the longitude of p in degrees, in (-180, 180].
func Longitude(p Position) float64 {
	return math.Atan2(p.Y, p.X) * r2d
}

// LocalTime returns the local time of p in hours, noon being toward the Sun.
func LocalTime(p Position) float64 {
	return math.Mod((Longitude(p)+180)*24/360, 24)
}

// Latitude returns the latitude of p in degrees, relative to the frame origin.
func Latitude(p Position) float64 {
	return math.Atan2(p.Z, math.Hypot(p.X, p.Y)) * r2d
}

// MagneticLatitude returns the latitude of p in degrees relative to the
// magnetic dipole centre. offset is the dipole offset in the units of p.
func MagneticLatitude(p Position, offset float64) float64 {
	if !p.Frame.Dipole() {
		p.Z -= offset
	}
	return Latitude(p)
}

// Tracker returns ephemeris positions in any of the four frames.
type Tracker struct {
	eph        *Ephemeris
	aberration *AberrationModel
}

// NewTracker returns a Tracker. The aberration model may be nil if primed
// frames are never requested.
func NewTracker(eph *Ephemeris, aberration *AberrationModel) *Tracker {
	return &Tracker{eph: eph, aberration: aberration}
}

// Ephemeris returns the underlying ephemeris.
func (t *Tracker) Ephemeris() *Ephemeris {
	return t.eph
}

// Constants returns the constants of the underlying ephemeris.
func (t *Tracker) Constants() Constants {
	return t.eph.consts
}

// TrackerSession converts session positions to any frame.
type TrackerSession struct {
	*Session
	conv Converter
}

// Session runs fn with a single kernel load.
func (t *Tracker) Session(fn func(*TrackerSession) error) error {
	return t.eph.Session(func(s *Session) error {
		ts := &TrackerSession{Session: s, conv: Converter{Constants: t.eph.consts}}
		if t.aberration != nil {
			ts.conv.Aberration = t.aberration.Using(s)
		}
		return fn(ts)
	})
}

func baseOf(f Frame) Frame {
	if f.Dipole() {
		return MSM
	}
	return MSO
}

// Position returns the position of body at epoch in frame.
func (ts *TrackerSession) Position(body string, epoch time.Time, frame Frame) (Position, error) {
	if !frame.Valid() {
		return Position{}, errors.Wrapf(ErrInvalidFrame, "%s", frame)
	}
	p, err := ts.GetPosition(body, epoch, baseOf(frame))
	if err != nil {
		return Position{}, err
	}
	return ts.conv.ToFrame(p, frame)
}

// Positions returns the positions of body at all epochs in frame (atomic).
func (ts *TrackerSession) Positions(body string, epochs []time.Time, frame Frame) ([]Position, error) {
	if !frame.Valid() {
		return nil, errors.Wrapf(ErrInvalidFrame, "%s", frame)
	}
	ps, err := ts.GetPositions(body, epochs, baseOf(frame))
	if err != nil {
		return nil, err
	}
	for i := range ps {
		if ps[i], err = ts.conv.ToFrame(ps[i], frame); err != nil {
			return nil, err
		}
	}
	return ps, nil
}

// Position returns the position of body at epoch in frame.
func (t *Tracker) Position(body string, epoch time.Time, frame Frame) (p Position, err error) {
	err = t.Session(func(ts *TrackerSession) error {
		p, err = ts.Position(body, epoch, frame)
		return err
	})
	return
}

// Positions returns the positions of body at all epochs in frame (atomic).
func (t *Tracker) Positions(body string, epochs []time.Time, frame Frame) (ps []Position, err error) {
	err = t.Session(func(ts *TrackerSession) error {
		ps, err = ts.Positions(body, epochs, frame)
		return err
	})
	return
}

// Trajectory returns steps positions evenly spaced from start (included) to
// end (excluded).
func (t *Tracker) Trajectory(body string, start, end time.Time, steps int, frame Frame) ([]Position, error) {
	if steps <= 0 || !end.After(start) {
		return nil, errors.Wrapf(ErrInvalidWindow, "%d steps from %s to %s", steps, start, end)
	}
	Δ := end.Sub(start)
	epochs := make([]time.Time, steps)
	for k := range epochs {
		epochs[k] = start.Add(time.Duration(float64(Δ) * float64(k) / float64(steps)))
	}
	return t.Positions(body, epochs, frame)
}

// Range returns the distance of body to the planet centre (km) at all epochs.
func (t *Tracker) Range(body string, epochs []time.Time) ([]float64, error) {
	ps, err := t.Positions(body, epochs, MSO)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Range()
	}
	return out, nil
}
