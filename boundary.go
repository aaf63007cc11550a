package herm

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// DefaultBoundarySamples is the number of φ samples of a boundary curve.
const DefaultBoundarySamples = 10000

// BoundaryType is an empirical plasma boundary.
type BoundaryType uint8

const (
	// BowShock is the conic bow shock model.
	BowShock BoundaryType = iota + 1
	// Magnetopause is the Shue-type magnetopause model.
	Magnetopause
)

func (b BoundaryType) String() string {
	switch b {
	case BowShock:
		return "bow_shock"
	case Magnetopause:
		return "magnetopause"
	default:
		return "unknown"
	}
}

// ParseBoundaryType returns the boundary from its name.
func ParseBoundaryType(name string) (BoundaryType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bow shock", "bow_shock", "bowshock", "bs":
		return BowShock, nil
	case "magnetopause", "mp":
		return Magnetopause, nil
	default:
		return 0, errors.Wrapf(ErrInvalidBoundaryModel, "unknown boundary %q", name)
	}
}

// curvePoint is a boundary sample in the (X, R) half plane, with its index
// along the curve.
type curvePoint struct {
	x, r float64
	i    int
}

func (p curvePoint) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return p.x
	}
	return p.r
}

// Compare returns the signed distance of p from the plane passing through c
// and perpendicular to the dimension d.
func (p curvePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coord(d) - c.(curvePoint).coord(d)
}

// Dims returns the number of dimensions described by the receiver.
func (p curvePoint) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between c and the receiver.
func (p curvePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(curvePoint)
	dx, dr := p.x-q.x, p.r-q.r
	return dx*dx + dr*dr
}

// curve is a collection of curvePoints satisfying kdtree.Interface.
type curve []curvePoint

func (c curve) Index(i int) kdtree.Comparable         { return c[i] }
func (c curve) Len() int                              { return len(c) }
func (c curve) Pivot(d kdtree.Dim) int                { return plane{curve: c, Dim: d}.Pivot() }
func (c curve) Slice(start, end int) kdtree.Interface { return c[start:end] }

// plane is a wrapping type that allows a curve to be partitioned along a dimension.
type plane struct {
	kdtree.Dim
	curve
}

func (p plane) Less(i, j int) bool {
	return p.curve[i].coord(p.Dim) < p.curve[j].coord(p.Dim)
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.curve = p.curve[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.curve[i], p.curve[j] = p.curve[j], p.curve[i]
}

// BoundaryModel is a densely sampled boundary curve in the axisymmetric (X, R)
// half plane, in planet radii. It is immutable once built.
type BoundaryModel struct {
	Type    BoundaryType
	samples curve // in φ order
	tree    *kdtree.Tree
}

// NewBoundaryModel samples the boundary of type b with the shape parameters of c.
func NewBoundaryModel(b BoundaryType, c Constants, samples int) (*BoundaryModel, error) {
	if samples <= 0 {
		samples = DefaultBoundarySamples
	}
	if samples < 3 {
		return nil, errors.Wrapf(ErrInvalidBoundaryModel, "%d samples", samples)
	}
	φ := floats.Span(make([]float64, samples), 0, 2*math.Pi)
	var shape func(φ float64) (x, r float64)
	switch b {
	case BowShock:
		bs := c.BowShock
		shape = func(φ float64) (float64, float64) {
			sinφ, cosφ := math.Sincos(φ)
			ρ := bs.Eccentricity * bs.SemiLatus / (1 + bs.Eccentricity*cosφ)
			return bs.X0 + ρ*cosφ, ρ * sinφ
		}
	case Magnetopause:
		mp := c.Magnetopause
		shape = func(φ float64) (float64, float64) {
			sinφ, cosφ := math.Sincos(φ)
			ρ := mp.Standoff * math.Pow(2/(1+cosφ), mp.Flaring)
			return ρ * cosφ, ρ * sinφ
		}
	default:
		return nil, errors.Wrapf(ErrInvalidBoundaryModel, "%s", b)
	}
	m := &BoundaryModel{Type: b}
	for _, φi := range φ {
		x, r := shape(φi)
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		m.samples = append(m.samples, curvePoint{x: x, r: r, i: len(m.samples)})
	}
	if len(m.samples) < 3 {
		return nil, errors.Wrapf(ErrInvalidBoundaryModel, "%s has no finite samples", b)
	}
	// The tree reorders its backing slice.
	m.tree = kdtree.New(append(curve(nil), m.samples...), false)
	return m, nil
}

// Len returns the number of finite samples.
func (m *BoundaryModel) Len() int {
	return len(m.samples)
}

// Sample returns the i-th sample along the curve.
func (m *BoundaryModel) Sample(i int) [2]float64 {
	return [2]float64{m.samples[i].x, m.samples[i].r}
}

// Nearest returns the sample closest to (x, r) and its index along the curve.
func (m *BoundaryModel) Nearest(x, r float64) (int, [2]float64) {
	got, _ := m.tree.Nearest(curvePoint{x: x, r: r})
	p := got.(curvePoint)
	return p.i, [2]float64{p.x, p.r}
}

// NearestLinear is Nearest by exhaustive scan.
func (m *BoundaryModel) NearestLinear(x, r float64) (int, [2]float64) {
	q := curvePoint{x: x, r: r}
	best, bestD := 0, math.Inf(1)
	for i, p := range m.samples {
		if d := p.Distance(q); d < bestD {
			best, bestD = i, d
		}
	}
	return best, m.Sample(best)
}

// Normal returns the unit normal of the curve at sample i, estimated from the
// neighbouring samples. Its orientation is arbitrary.
func (m *BoundaryModel) Normal(i int) ([2]float64, bool) {
	lo, hi := i-1, i+1
	if lo < 0 {
		lo = 0
	}
	if hi >= len(m.samples) {
		hi = len(m.samples) - 1
	}
	tx := m.samples[hi].x - m.samples[lo].x
	tr := m.samples[hi].r - m.samples[lo].r
	return unit2(-tr, tx)
}
