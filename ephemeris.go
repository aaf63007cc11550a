package herm

import (
	"strings"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

const (
	// DefaultMSOFrame is the kernel frame name of MSO.
	DefaultMSOFrame = "BC_MSO"
	// DefaultHelioFrame is the frame used for heliocentric distances.
	DefaultHelioFrame = "ECLIPJ2000"
)

// Provider returns the position (km) of a target relative to an observer in a
// named frame. Providers wrap ErrNoCoverage for epochs they do not cover and
// ErrUnknownBody for target/observer pairs they do not know.
type Provider interface {
	Name() string
	Position(target, observer, frame string, epoch time.Time) ([]float64, error)
	Close() error
}

// BatchProvider is a Provider which can answer many epochs in one call.
type BatchProvider interface {
	Provider
	Positions(target, observer, frame string, epochs []time.Time) ([][]float64, error)
}

// KernelSet loads a Provider. Every call returns an independent handle which
// the caller must Close.
type KernelSet interface {
	Load() (Provider, error)
}

// WithKernels loads ks, runs fn with the handle and always releases it, also
// when fn returns an error or panics.
func WithKernels(ks KernelSet, fn func(Provider) error) (err error) {
	p, err := ks.Load()
	if err != nil {
		return errors.Wrap(err, "loading kernels")
	}
	defer func() {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "releasing %s", p.Name())
		}
	}()
	return fn(p)
}

// DistanceSource returns the heliocentric distance of the planet in km.
type DistanceSource interface {
	HeliocentricDistance(epoch time.Time) (float64, error)
}

// PositionResult is one item of a tolerant batch query.
type PositionResult struct {
	Position Position
	Err      error
}

// Option configures an Ephemeris.
type Option func(*Ephemeris)

// WithLogger sets the logger (defaults to a no-op logger).
func WithLogger(l kitlog.Logger) Option {
	return func(e *Ephemeris) {
		e.logger = kitlog.With(l, "subsys", "ephem")
	}
}

// WithMetrics records queries and kernel loads on m.
func WithMetrics(m *Metrics) Option {
	return func(e *Ephemeris) {
		e.metrics = m
	}
}

// WithMSOFrame sets the kernel frame name queried for MSO positions.
func WithMSOFrame(name string) Option {
	return func(e *Ephemeris) {
		e.msoFrame = name
	}
}

// WithHelioFrame sets the frame used for heliocentric distance queries.
func WithHelioFrame(name string) Option {
	return func(e *Ephemeris) {
		e.helioFrame = name
	}
}

// Ephemeris is the access layer between the geometry core and a kernel set.
// Positions are always planet centred (MSO) or dipole centred (MSM).
type Ephemeris struct {
	kernels    KernelSet
	consts     Constants
	msoFrame   string
	helioFrame string
	logger     kitlog.Logger
	metrics    *Metrics
}

// NewEphemeris returns an Ephemeris reading from ks.
func NewEphemeris(ks KernelSet, consts Constants, opts ...Option) *Ephemeris {
	e := &Ephemeris{
		kernels:    ks,
		consts:     consts,
		msoFrame:   DefaultMSOFrame,
		helioFrame: DefaultHelioFrame,
		logger:     kitlog.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Constants returns the constants this ephemeris was built with.
func (e *Ephemeris) Constants() Constants {
	return e.consts
}

// Session loads the kernels once and runs fn with them; the kernels are
// released when fn returns.
func (e *Ephemeris) Session(fn func(*Session) error) error {
	return WithKernels(e.kernels, func(p Provider) error {
		e.metrics.kernelLoaded(p.Name())
		level.Debug(e.logger).Log("kernels", p.Name(), "status", "loaded")
		defer level.Debug(e.logger).Log("kernels", p.Name(), "status", "released")
		return fn(&Session{eph: e, provider: p})
	})
}

// GetPosition returns the position of body at epoch in the base frame (MSO or MSM).
func (e *Ephemeris) GetPosition(body string, epoch time.Time, base Frame) (pos Position, err error) {
	err = e.Session(func(s *Session) error {
		pos, err = s.GetPosition(body, epoch, base)
		return err
	})
	return
}

// GetPositions returns the positions of body at all epochs, in order. The
// first failure fails the whole batch.
func (e *Ephemeris) GetPositions(body string, epochs []time.Time, base Frame) (pos []Position, err error) {
	err = e.Session(func(s *Session) error {
		pos, err = s.GetPositions(body, epochs, base)
		return err
	})
	return
}

// GetPositionsPerItem returns one result per epoch, each with its own error.
// The returned error is only set when the kernels could not be used at all.
func (e *Ephemeris) GetPositionsPerItem(body string, epochs []time.Time, base Frame) (res []PositionResult, err error) {
	err = e.Session(func(s *Session) error {
		res, err = s.GetPositionsPerItem(body, epochs, base)
		return err
	})
	return
}

// HeliocentricDistance returns the distance between the Sun and the planet in km.
func (e *Ephemeris) HeliocentricDistance(epoch time.Time) (r float64, err error) {
	err = e.Session(func(s *Session) error {
		r, err = s.HeliocentricDistance(epoch)
		return err
	})
	return
}

// HeliocentricDistances returns the heliocentric distances at all epochs (atomic).
func (e *Ephemeris) HeliocentricDistances(epochs []time.Time) (r []float64, err error) {
	err = e.Session(func(s *Session) error {
		r, err = s.HeliocentricDistances(epochs)
		return err
	})
	return
}

// Session is a set of queries sharing one loaded kernel handle. A Session is
// not safe for concurrent use unless its provider is.
type Session struct {
	eph      *Ephemeris
	provider Provider
}

// Provider returns the underlying handle.
func (s *Session) Provider() Provider {
	return s.provider
}

func checkBase(base Frame) error {
	if base != MSO && base != MSM {
		return errors.Wrapf(ErrInvalidFrame, "%s is not a base frame, use a Tracker", base)
	}
	return nil
}

// toBase converts a raw MSO vector from the provider.
func (s *Session) toBase(v []float64, epoch time.Time, base Frame) Position {
	p := NewPosition(v, MSO, epoch)
	if base == MSM {
		p, _ = ShiftToMSM(p, s.eph.consts.DipoleOffset)
	}
	return p
}

func (s *Session) query(target, observer, frame string, epoch time.Time) ([]float64, error) {
	v, err := s.provider.Position(target, observer, frame, epoch)
	s.eph.metrics.ephemerisQuery(s.provider.Name(), err)
	if err != nil {
		if errors.Is(err, ErrNoCoverage) {
			level.Warn(s.eph.logger).Log("body", target, "epoch", epoch, "err", err)
		}
		return nil, unavailable(target, epoch, err)
	}
	if len(v) != 3 {
		return nil, unavailable(target, epoch, errors.Errorf("%s returned a %d component position", s.provider.Name(), len(v)))
	}
	return v, nil
}

// GetPosition returns the position of body at epoch in the base frame.
func (s *Session) GetPosition(body string, epoch time.Time, base Frame) (Position, error) {
	if err := checkBase(base); err != nil {
		return Position{}, err
	}
	v, err := s.query(strings.ToUpper(body), s.eph.consts.Planet, s.eph.msoFrame, epoch)
	if err != nil {
		return Position{}, err
	}
	return s.toBase(v, epoch, base), nil
}

// GetPositions is the atomic batch query. Batch capable providers answer it in
// one call.
func (s *Session) GetPositions(body string, epochs []time.Time, base Frame) ([]Position, error) {
	if err := checkBase(base); err != nil {
		return nil, err
	}
	body = strings.ToUpper(body)
	out := make([]Position, len(epochs))
	if bp, ok := s.provider.(BatchProvider); ok && len(epochs) > 0 {
		vs, err := bp.Positions(body, s.eph.consts.Planet, s.eph.msoFrame, epochs)
		s.eph.metrics.ephemerisQuery(s.provider.Name(), err)
		if err == nil {
			if len(vs) != len(epochs) {
				return nil, unavailable(body, epochs[0], errors.Errorf("%s returned %d positions for %d epochs", s.provider.Name(), len(vs), len(epochs)))
			}
			for i, v := range vs {
				if len(v) != 3 {
					return nil, unavailable(body, epochs[i], errors.Errorf("%s returned a %d component position", s.provider.Name(), len(v)))
				}
				out[i] = s.toBase(v, epochs[i], base)
			}
			return out, nil
		}
		// Locate the first failing epoch for the error.
		for _, epoch := range epochs {
			if _, serr := s.query(body, s.eph.consts.Planet, s.eph.msoFrame, epoch); serr != nil {
				return nil, serr
			}
		}
		return nil, unavailable(body, epochs[0], err)
	}
	for i, epoch := range epochs {
		v, err := s.query(body, s.eph.consts.Planet, s.eph.msoFrame, epoch)
		if err != nil {
			return nil, err
		}
		out[i] = s.toBase(v, epoch, base)
	}
	return out, nil
}

// GetPositionsPerItem is the tolerant batch query.
func (s *Session) GetPositionsPerItem(body string, epochs []time.Time, base Frame) ([]PositionResult, error) {
	if err := checkBase(base); err != nil {
		return nil, err
	}
	out := make([]PositionResult, len(epochs))
	failed := 0
	for i, epoch := range epochs {
		out[i].Position, out[i].Err = s.GetPosition(body, epoch, base)
		if out[i].Err != nil {
			failed++
		}
	}
	if failed > 0 {
		level.Info(s.eph.logger).Log("body", body, "queried", len(epochs), "failed", failed)
	}
	return out, nil
}

// HeliocentricDistance returns the distance between the Sun and the planet in km.
func (s *Session) HeliocentricDistance(epoch time.Time) (float64, error) {
	v, err := s.query(s.eph.consts.Planet, Sun.Name, s.eph.helioFrame, epoch)
	if err != nil {
		return 0, err
	}
	return norm(v), nil
}

// HeliocentricDistances returns the heliocentric distances at all epochs (atomic).
func (s *Session) HeliocentricDistances(epochs []time.Time) ([]float64, error) {
	out := make([]float64, len(epochs))
	for i, epoch := range epochs {
		r, err := s.HeliocentricDistance(epoch)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}
