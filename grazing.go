package herm

import (
	"context"
	"math"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// DefaultNormalTolerance is the NormalDeviation (degrees) above which a
// grazing angle is flagged Approximate.
const DefaultNormalTolerance = 5.0

// Grazing is the angle between the spacecraft velocity and the local normal
// of a boundary model, in the axisymmetric (X, R) half plane of MSM'.
type Grazing struct {
	Epoch    time.Time
	Boundary BoundaryType
	Angle    float64    // degrees, in [0, 90]
	Normal   [2]float64 // unit, oriented so that Normal·Velocity >= 0
	Velocity [2]float64 // unit
	Nearest  [2]float64 // closest boundary sample, planet radii
	Position [2]float64 // spacecraft, planet radii
	// NormalDeviation is the angle (degrees) between the nearest point direction
	// and the curve normal estimated from the neighbouring samples.
	NormalDeviation float64
	Approximate     bool
}

// GrazingOptions configures a GrazingCalculator. Zero values select defaults.
type GrazingOptions struct {
	Samples         int
	NormalTolerance float64 // degrees
	Body            string  // defaults to the spacecraft of the constants
	Logger          kitlog.Logger
	Metrics         *Metrics
}

// GrazingCalculator computes grazing angles of boundary crossings.
type GrazingCalculator struct {
	tracker   *Tracker
	consts    Constants
	models    map[BoundaryType]*BoundaryModel
	body      string
	tolerance float64
	logger    kitlog.Logger
	metrics   *Metrics
}

// NewGrazingCalculator builds both boundary models.
func NewGrazingCalculator(tracker *Tracker, consts Constants, opts GrazingOptions) (*GrazingCalculator, error) {
	g := &GrazingCalculator{
		tracker:   tracker,
		consts:    consts,
		models:    make(map[BoundaryType]*BoundaryModel, 2),
		body:      opts.Body,
		tolerance: opts.NormalTolerance,
		logger:    kitlog.NewNopLogger(),
		metrics:   opts.Metrics,
	}
	if g.body == "" {
		g.body = consts.Spacecraft
	}
	if g.tolerance <= 0 {
		g.tolerance = DefaultNormalTolerance
	}
	if opts.Logger != nil {
		g.logger = kitlog.With(opts.Logger, "subsys", "grazing")
	}
	for _, b := range []BoundaryType{BowShock, Magnetopause} {
		m, err := NewBoundaryModel(b, consts, opts.Samples)
		if err != nil {
			return nil, err
		}
		g.models[b] = m
	}
	return g, nil
}

// Model returns the boundary model of type b.
func (g *GrazingCalculator) Model(b BoundaryType) (*BoundaryModel, error) {
	m, ok := g.models[b]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidBoundaryModel, "%s", b)
	}
	return m, nil
}

// Grazing computes the grazing angle from the spacecraft positions at t and
// t + 1 s, both in planet radii.
func (g *GrazingCalculator) Grazing(m *BoundaryModel, p0, p1 Position) (Grazing, error) {
	x0, r0 := p0.Cylindrical()
	x1, r1 := p1.Cylindrical()
	res := Grazing{Epoch: p0.Epoch, Boundary: m.Type, Position: [2]float64{x0, r0}}
	v, ok := unit2(x1-x0, r1-r0)
	if !ok {
		return res, errors.Wrapf(ErrDegenerateGeometry, "no motion in the (X, R) plane at %s", p0.Epoch)
	}
	i, near := m.Nearest(x0, r0)
	n, ok := unit2(near[0]-x0, near[1]-r0)
	if !ok {
		return res, errors.Wrapf(ErrDegenerateGeometry, "spacecraft on the %s at %s", m.Type, p0.Epoch)
	}
	res.Velocity, res.Nearest = v, near
	res.Angle = math.Acos(clamp1(n[0]*v[0]+n[1]*v[1])) * r2d
	if res.Angle > 90 {
		res.Angle = 180 - res.Angle
		n[0], n[1] = -n[0], -n[1]
	}
	res.Normal = n
	if cn, ok := m.Normal(i); ok {
		res.NormalDeviation = math.Acos(clamp1(math.Abs(cn[0]*n[0]+cn[1]*n[1]))) * r2d
	}
	res.Approximate = res.NormalDeviation > g.tolerance
	if res.Approximate {
		level.Debug(g.logger).Log("epoch", p0.Epoch, "boundary", m.Type, "deviation", res.NormalDeviation)
	}
	g.metrics.grazing(res)
	return res, nil
}

func (g *GrazingCalculator) inRadii(p Position) Position {
	return p.Scale(1 / g.consts.PlanetRadius)
}

func (g *GrazingCalculator) at(ts *TrackerSession, m *BoundaryModel, mid time.Time) (Grazing, error) {
	p0, err := ts.Position(g.body, mid, MSMPrime)
	if err != nil {
		return Grazing{}, err
	}
	p1, err := ts.Position(g.body, mid.Add(time.Second), MSMPrime)
	if err != nil {
		return Grazing{}, err
	}
	return g.Grazing(m, g.inRadii(p0), g.inRadii(p1))
}

// GrazingAngle returns the grazing angle on boundary b at mid.
func (g *GrazingCalculator) GrazingAngle(mid time.Time, b BoundaryType) (res Grazing, err error) {
	m, err := g.Model(b)
	if err != nil {
		return Grazing{}, err
	}
	err = g.tracker.Session(func(ts *TrackerSession) error {
		res, err = g.at(ts, m, mid)
		return err
	})
	return
}

// CrossingGrazingAngle returns the grazing angle at the midpoint of c on the
// boundary of its type.
func (g *GrazingCalculator) CrossingGrazingAngle(c Crossing) (Grazing, error) {
	b, err := c.Boundary()
	if err != nil {
		return Grazing{}, err
	}
	return g.GrazingAngle(c.Midpoint(), b)
}

// BowShockGrazingAngle is CrossingGrazingAngle against the bow shock whatever the crossing type.
func (g *GrazingCalculator) BowShockGrazingAngle(c Crossing) (Grazing, error) {
	return g.GrazingAngle(c.Midpoint(), BowShock)
}

// MagnetopauseGrazingAngle is CrossingGrazingAngle against the magnetopause whatever the crossing type.
func (g *GrazingCalculator) MagnetopauseGrazingAngle(c Crossing) (Grazing, error) {
	return g.GrazingAngle(c.Midpoint(), Magnetopause)
}

// batch computes the grazing angles of crossings with a single batched query
// of all positions.
func (g *GrazingCalculator) batch(ts *TrackerSession, crossings []Crossing) ([]Grazing, error) {
	n := len(crossings)
	models := make([]*BoundaryModel, n)
	epochs := make([]time.Time, 2*n)
	for i, c := range crossings {
		b, err := c.Boundary()
		if err != nil {
			return nil, errors.Wrapf(err, "crossing %d", i)
		}
		models[i] = g.models[b]
		mid := c.Midpoint()
		epochs[i], epochs[n+i] = mid, mid.Add(time.Second)
	}
	ps, err := ts.Positions(g.body, epochs, MSMPrime)
	if err != nil {
		return nil, err
	}
	out := make([]Grazing, n)
	for i := range crossings {
		if out[i], err = g.Grazing(models[i], g.inRadii(ps[i]), g.inRadii(ps[n+i])); err != nil {
			return nil, errors.Wrapf(err, "crossing %d", i)
		}
	}
	return out, nil
}

// GrazingAngles computes the grazing angles of all crossings in one kernel
// session. The first failure fails the batch.
func (g *GrazingCalculator) GrazingAngles(crossings []Crossing) (out []Grazing, err error) {
	defer g.metrics.observeBatch("grazing_angles", time.Now())
	err = g.tracker.Session(func(ts *TrackerSession) error {
		out, err = g.batch(ts, crossings)
		return err
	})
	if err == nil {
		level.Info(g.logger).Log("crossings", len(crossings), "status", "done")
	}
	return
}

// GrazingResult is one item of a tolerant grazing batch.
type GrazingResult struct {
	Grazing Grazing
	Err     error
}

// GrazingAnglesPerItem computes every crossing independently in one kernel
// session; failures are reported per item.
func (g *GrazingCalculator) GrazingAnglesPerItem(crossings []Crossing) ([]GrazingResult, error) {
	out := make([]GrazingResult, len(crossings))
	err := g.tracker.Session(func(ts *TrackerSession) error {
		failed := 0
		for i, c := range crossings {
			b, err := c.Boundary()
			if err == nil {
				out[i].Grazing, err = g.at(ts, g.models[b], c.Midpoint())
			}
			if out[i].Err = err; err != nil {
				failed++
			}
		}
		level.Info(g.logger).Log("crossings", len(crossings), "failed", failed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GrazingAnglesParallel splits the crossings between workers, each with its own
// kernel handle, and returns the results in input order (atomic).
func (g *GrazingCalculator) GrazingAnglesParallel(ctx context.Context, crossings []Crossing, workers int) ([]Grazing, error) {
	defer g.metrics.observeBatch("grazing_angles_parallel", time.Now())
	out := make([]Grazing, len(crossings))
	parts := chunks(len(crossings), workers)
	err := ParallelMap(ctx, len(parts), workers, func(ctx context.Context, k int) error {
		lo, hi := parts[k][0], parts[k][1]
		return g.tracker.Session(func(ts *TrackerSession) error {
			res, err := g.batch(ts, crossings[lo:hi])
			if err != nil {
				return errors.Wrapf(err, "crossings %d to %d", lo, hi)
			}
			copy(out[lo:hi], res)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
