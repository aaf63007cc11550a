package herm

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const day = 24 * time.Hour

// AberrationMode selects how the aberration angle is evaluated in time.
type AberrationMode uint8

const (
	// AberrationDaily interpolates linearly between angles evaluated at 00:00 UTC of each day.
	// On the last day of heliocentric coverage the angle of that day's node is used.
	AberrationDaily AberrationMode = iota
	// AberrationExact evaluates the angle at the epoch itself.
	AberrationExact
	// AberrationAverage uses the constant average angle of the constant set.
	AberrationAverage
)

func (m AberrationMode) String() string {
	switch m {
	case AberrationDaily:
		return "daily"
	case AberrationExact:
		return "exact"
	case AberrationAverage:
		return "average"
	default:
		return "unknown"
	}
}

// ParseAberrationMode returns the mode from its name.
func ParseAberrationMode(name string) (AberrationMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "daily":
		return AberrationDaily, nil
	case "exact":
		return AberrationExact, nil
	case "average":
		return AberrationAverage, nil
	default:
		return 0, errors.Errorf("unknown aberration mode %q", name)
	}
}

// dailyCache holds the angles at 00:00 UTC keyed by day number since the Unix epoch.
type dailyCache struct {
	sync.Mutex
	angles map[int64]float64
}

// AberrationModel computes the solar wind aberration angle θ = atan(v / v_sw)
// where v is the vis-viva orbital speed of the planet at its current
// heliocentric distance. The solar wind speed is constant and the orbital
// velocity is assumed perpendicular to the Sun direction.
type AberrationModel struct {
	src     DistanceSource
	consts  Constants
	mode    AberrationMode
	cache   *dailyCache
	metrics *Metrics
}

// NewAberrationModel returns a model reading heliocentric distances from src.
func NewAberrationModel(src DistanceSource, consts Constants, mode AberrationMode) *AberrationModel {
	return &AberrationModel{
		src:    src,
		consts: consts,
		mode:   mode,
		cache:  &dailyCache{angles: make(map[int64]float64)},
	}
}

// Mode returns the evaluation mode.
func (m *AberrationModel) Mode() AberrationMode {
	return m.mode
}

// Using returns a model sharing the daily cache of m but reading distances from src.
func (m *AberrationModel) Using(src DistanceSource) *AberrationModel {
	n := *m
	n.src = src
	return &n
}

// Instrumented returns a model sharing the daily cache of m which records cache lookups.
func (m *AberrationModel) Instrumented(metrics *Metrics) *AberrationModel {
	n := *m
	n.metrics = metrics
	return &n
}

// OrbitalSpeed returns the vis-viva speed in m/s at a heliocentric distance r in km.
func (m *AberrationModel) OrbitalSpeed(r float64) float64 {
	a := m.consts.SemiMajorAxis * 1e3
	return math.Sqrt(m.consts.G * m.consts.SolarMass * (2/(r*1e3) - 1/a))
}

// AngleAt returns the aberration angle in radians at a heliocentric distance r in km.
func (m *AberrationModel) AngleAt(r float64) float64 {
	return math.Atan(m.OrbitalSpeed(r) / (m.consts.SolarWindSpeed * 1e3))
}

// Angle returns the aberration angle in radians at epoch.
func (m *AberrationModel) Angle(epoch time.Time) (float64, error) {
	switch m.mode {
	case AberrationAverage:
		return m.consts.AverageAberration, nil
	case AberrationExact:
		return m.exact(epoch)
	}
	midnight := epoch.UTC().Truncate(day)
	θ0, err := m.node(midnight)
	if err != nil {
		return 0, err
	}
	f := float64(epoch.Sub(midnight)) / float64(day)
	if f == 0 {
		return θ0, nil
	}
	θ1, err := m.node(midnight.Add(day))
	if errors.Is(err, ErrEphemerisUnavailable) {
		// Last covered day: hold the node of the day.
		return θ0, nil
	}
	if err != nil {
		return 0, err
	}
	return θ0 + f*(θ1-θ0), nil
}

func (m *AberrationModel) exact(epoch time.Time) (float64, error) {
	r, err := m.src.HeliocentricDistance(epoch)
	if err != nil {
		return 0, err
	}
	return m.AngleAt(r), nil
}

func (m *AberrationModel) node(midnight time.Time) (float64, error) {
	key := midnight.Unix() / int64(day/time.Second)
	m.cache.Lock()
	θ, ok := m.cache.angles[key]
	m.cache.Unlock()
	m.metrics.aberrationLookup(ok)
	if ok {
		return θ, nil
	}
	θ, err := m.exact(midnight)
	if err != nil {
		return 0, err
	}
	m.cache.Lock()
	m.cache.angles[key] = θ
	m.cache.Unlock()
	return θ, nil
}
