package herm

import (
	"strings"
	"sync"
	"time"

	"github.com/mshafiee/jpleph"
	"github.com/pkg/errors"
	"github.com/soniakeys/meeus/v3/julian"
)

// DEKernel serves heliocentric planet positions from a JPL DE binary file.
type DEKernel struct {
	File   string
	DeltaT time.Duration
}

var deBodies = map[string]jpleph.Planet{
	"MERCURY": jpleph.Mercury,
	"VENUS":   jpleph.Venus,
	"EARTH":   jpleph.Earth,
	"MARS":    jpleph.Mars,
}

// Load opens the DE file. Each handle holds its own file.
func (k DEKernel) Load() (Provider, error) {
	eph, err := jpleph.NewEphemeris(k.File, true)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", k.File)
	}
	ΔT := k.DeltaT
	if ΔT == 0 {
		ΔT = DefaultDeltaT
	}
	return &deHandle{
		eph:   eph,
		name:  "de:" + eph.GetEphemName(),
		auKM:  eph.GetEphemerisDouble(jpleph.AUinKM),
		start: eph.GetEphemerisDouble(jpleph.EphemerisStartJD),
		end:   eph.GetEphemerisDouble(jpleph.EphemerisEndJD),
		ΔT:    ΔT,
	}, nil
}

// deReader is the part of *jpleph.Ephemeris a handle uses.
type deReader interface {
	CalculatePV(et float64, target jpleph.Planet, center jpleph.CenterBody, calcVelocity bool) (jpleph.Position, jpleph.Velocity, error)
	Close() error
}

type deHandle struct {
	sync.Mutex // the reader is stateful
	eph        deReader
	name       string
	auKM       float64
	start, end float64 // JD
	ΔT         time.Duration
}

func (h *deHandle) Name() string {
	return h.name
}

func (h *deHandle) Position(target, observer, frame string, epoch time.Time) ([]float64, error) {
	target, observer = strings.ToUpper(target), strings.ToUpper(observer)
	sign := 1.
	if target == Sun.Name {
		target, observer = observer, target
		sign = -1
	}
	body, ok := deBodies[target]
	if !ok || observer != Sun.Name {
		return nil, errors.Wrapf(ErrUnknownBody, "%s relative to %s", target, observer)
	}
	if err := checkFrame(frame, "J2000", "ECLIPJ2000"); err != nil {
		return nil, err
	}
	jd := julian.TimeToJD(epoch.Add(h.ΔT))
	if jd < h.start || jd > h.end {
		return nil, errors.Wrapf(ErrNoCoverage, "%s covers JD %.1f to %.1f, not %.3f", h.name, h.start, h.end, jd)
	}
	h.Lock()
	defer h.Unlock()
	if h.eph == nil {
		return nil, errHandleClosed
	}
	pos, _, err := h.eph.CalculatePV(jd, body, jpleph.CenterSun, true)
	if err != nil {
		return nil, errors.Wrapf(err, "%s at JD %.3f", target, jd)
	}
	r := sign * h.auKM
	v := []float64{r * pos.X, r * pos.Y, r * pos.Z}
	if strings.EqualFold(frame, "ECLIPJ2000") {
		v = Equatorial2Ecliptic(v)
	}
	return v, nil
}

func (h *deHandle) Close() error {
	h.Lock()
	defer h.Unlock()
	if h.eph == nil {
		return errHandleClosed
	}
	err := h.eph.Close()
	h.eph = nil
	return errors.Wrapf(err, "closing %s", h.name)
}
