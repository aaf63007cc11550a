package herm

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var errHandleClosed = errors.New("kernel handle closed")

// Window is a closed interval of ephemeris coverage.
type Window struct {
	Start, End time.Time
}

// Contains returns whether t is within the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func covered(windows []Window, t time.Time) bool {
	if len(windows) == 0 {
		return true
	}
	for _, w := range windows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// bodyPair resolves a target/observer query against the pair served by a
// kernel; the reversed pair is served with the opposite sign.
func bodyPair(target, observer, kTarget, kObserver string) (sign float64, err error) {
	target, observer = strings.ToUpper(target), strings.ToUpper(observer)
	switch {
	case target == kTarget && observer == kObserver:
		return 1, nil
	case target == kObserver && observer == kTarget:
		return -1, nil
	default:
		return 0, errors.Wrapf(ErrUnknownBody, "%s relative to %s", target, observer)
	}
}

func checkFrame(frame string, served ...string) error {
	for _, s := range served {
		if strings.EqualFold(frame, s) {
			return nil
		}
	}
	return errors.Wrapf(ErrUnknownBody, "frame %s not served", frame)
}

// KeplerKernel is an analytic two-body ephemeris: the target follows a fixed
// conic about the observer. Coverage windows, when set, limit the epochs
// which can be queried so that data gaps can be reproduced.
type KeplerKernel struct {
	KernelName string
	Target     string // e.g. MESSENGER
	Observer   string // e.g. MERCURY, must be the orbit origin
	Frame      string // frame the elements are expressed in
	Epoch      time.Time
	Orbit      Orbit
	Coverage   []Window
}

// Load returns an independent handle on the kernel.
func (k KeplerKernel) Load() (Provider, error) {
	if k.Orbit.a <= 0 {
		return nil, errors.Errorf("kepler kernel %s has no orbit", k.KernelName)
	}
	k.Target, k.Observer = strings.ToUpper(k.Target), strings.ToUpper(k.Observer)
	if k.KernelName == "" {
		k.KernelName = "kepler:" + k.Target
	}
	return &keplerHandle{k: k}, nil
}

type keplerHandle struct {
	k      KeplerKernel
	closed atomic.Bool
}

func (h *keplerHandle) Name() string {
	return h.k.KernelName
}

func (h *keplerHandle) Position(target, observer, frame string, epoch time.Time) ([]float64, error) {
	if h.closed.Load() {
		return nil, errHandleClosed
	}
	sign, err := bodyPair(target, observer, h.k.Target, h.k.Observer)
	if err != nil {
		return nil, err
	}
	if err = checkFrame(frame, h.k.Frame); err != nil {
		return nil, err
	}
	if !covered(h.k.Coverage, epoch) {
		return nil, errors.Wrapf(ErrNoCoverage, "%s at %s", h.k.KernelName, epoch.Format(time.RFC3339))
	}
	R := h.k.Orbit.After(epoch.Sub(h.k.Epoch)).R()
	for i := range R {
		R[i] *= sign
	}
	return R, nil
}

func (h *keplerHandle) Positions(target, observer, frame string, epochs []time.Time) ([][]float64, error) {
	out := make([][]float64, len(epochs))
	for i, epoch := range epochs {
		v, err := h.Position(target, observer, frame, epoch)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (h *keplerHandle) Close() error {
	if h.closed.Swap(true) {
		return errHandleClosed
	}
	return nil
}

// MercuryHelioKernel returns a KeplerKernel of Mercury about the Sun in the
// ecliptic J2000 frame using the J2000 mean elements of the planet.
func MercuryHelioKernel() KeplerKernel {
	o, _ := NewOrbitFromOE(Mercury.SemiMajorAxis(), 0.20563593, 7.00497902, 48.33076593, 29.12703035, 0, Sun)
	// Mean anomaly at J2000 is 174.79252722°.
	o = o.After(time.Duration(174.79252722 * deg2rad / o.MeanMotion() * float64(time.Second)))
	return KeplerKernel{
		KernelName: "kepler:MERCURY",
		Target:     Mercury.Name,
		Observer:   Sun.Name,
		Frame:      DefaultHelioFrame,
		Epoch:      time.Date(2000, 1, 1, 11, 58, 55, 816e6, time.UTC),
		Orbit:      o,
	}
}
