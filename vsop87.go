package herm

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/soniakeys/meeus/v3/julian"
	pp "github.com/soniakeys/meeus/v3/planetposition"
	sunit "github.com/soniakeys/unit"
)

// DefaultDeltaT is TT − UTC used to convert UTC epochs to Julian ephemeris days.
const DefaultDeltaT = 69184 * time.Millisecond

// VSOP87Kernel serves the heliocentric position of the planet from the VSOP87B
// data files in Dir (e.g. VSOP87B.mer).
type VSOP87Kernel struct {
	Dir    string
	Planet string // defaults to MERCURY
	DeltaT time.Duration
}

var vsop87Bodies = map[string]int{
	"MERCURY": pp.Mercury,
	"VENUS":   pp.Venus,
	"EARTH":   pp.Earth,
	"MARS":    pp.Mars,
}

// Load reads the planet data file.
func (k VSOP87Kernel) Load() (Provider, error) {
	planet := strings.ToUpper(k.Planet)
	if planet == "" {
		planet = Mercury.Name
	}
	ibody, ok := vsop87Bodies[planet]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBody, "no VSOP87 series for %s", planet)
	}
	vt, err := pp.LoadPlanetPath(ibody, k.Dir)
	if err != nil {
		return nil, errors.Wrapf(err, "loading VSOP87 from %s", k.Dir)
	}
	ΔT := k.DeltaT
	if ΔT == 0 {
		ΔT = DefaultDeltaT
	}
	return &vsop87Handle{planet: planet, vt: vt, ΔT: ΔT}, nil
}

type vsop87Handle struct {
	planet string
	vt     *pp.V87Planet
	ΔT     time.Duration
	closed atomic.Bool
}

func (h *vsop87Handle) Name() string {
	return "vsop87:" + h.planet
}

func (h *vsop87Handle) Position(target, observer, frame string, epoch time.Time) ([]float64, error) {
	if h.closed.Load() {
		return nil, errHandleClosed
	}
	sign, err := bodyPair(target, observer, h.planet, Sun.Name)
	if err != nil {
		return nil, err
	}
	if err = checkFrame(frame, "ECLIPJ2000", "J2000"); err != nil {
		return nil, err
	}
	var L, B sunit.Angle
	var R float64
	L, B, R = h.vt.Position2000(julian.TimeToJD(epoch.Add(h.ΔT)))
	sB, cB := B.Sin(), B.Cos()
	sL, cL := L.Sin(), L.Cos()
	r := sign * R * AU
	v := []float64{r * cB * cL, r * cB * sL, r * sB}
	if strings.EqualFold(frame, "J2000") {
		v = Ecliptic2Equatorial(v)
	}
	return v, nil
}

func (h *vsop87Handle) Close() error {
	if h.closed.Swap(true) {
		return errHandleClosed
	}
	return nil
}
