package herm

import (
	"math"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ChristopherRabotin/ode"
	"github.com/pkg/errors"
)

// PropagatedKernel is a numerically integrated two-body trajectory (with the
// J2 perturbation of the origin if enabled). The trajectory is integrated
// with RK4 on Load and interpolated with cubic Hermite polynomials between
// the integration nodes.
type PropagatedKernel struct {
	KernelName string
	Target     string
	Observer   string // must be the origin of Initial
	Frame      string
	Initial    Orbit // osculating orbit at Start
	Start, End time.Time
	Step       time.Duration
	J2         bool
}

// Load integrates the trajectory and returns an independent handle on it.
func (k PropagatedKernel) Load() (Provider, error) {
	if !k.End.After(k.Start) {
		return nil, errors.Wrapf(ErrInvalidWindow, "propagation from %s to %s", k.Start, k.End)
	}
	if k.Step <= 0 {
		return nil, errors.Wrapf(ErrInvalidWindow, "propagation step %s", k.Step)
	}
	k.Target, k.Observer = strings.ToUpper(k.Target), strings.ToUpper(k.Observer)
	if origin, err := CelestialObjectFromString(k.Observer); err != nil || !origin.Equals(k.Initial.Origin) {
		return nil, errors.Wrapf(ErrUnknownBody, "%s: the initial orbit is about %s", k.Observer, k.Initial.Origin.Name)
	}
	if k.KernelName == "" {
		k.KernelName = "propagated:" + k.Target
	}
	steps := uint64(math.Ceil(k.End.Sub(k.Start).Seconds() / k.Step.Seconds()))
	R, V := k.Initial.RV()
	traj := &trajectory{
		origin: k.Initial.Origin,
		j2:     k.J2,
		steps:  steps,
		state:  append(R, V...),
	}
	traj.nodes = append(traj.nodes, traj.state)
	ode.NewRK4(0, k.Step.Seconds(), traj).Solve() // Blocking.
	if uint64(len(traj.nodes)) != steps+1 {
		return nil, errors.Errorf("%s: integrated %d of %d steps", k.KernelName, len(traj.nodes)-1, steps)
	}
	return &propagatedHandle{k: k, nodes: traj.nodes}, nil
}

// trajectory implements the integrator interface and records every state.
type trajectory struct {
	origin CelestialObject
	j2     bool
	steps  uint64
	state  []float64
	nodes  [][]float64
}

func (t *trajectory) GetState() []float64 {
	return t.state
}

func (t *trajectory) SetState(_ float64, s []float64) {
	t.state = s
	t.nodes = append(t.nodes, append([]float64(nil), s...))
}

func (t *trajectory) Stop(_ float64) bool {
	return uint64(len(t.nodes)) > t.steps
}

func (t *trajectory) Func(_ float64, f []float64) (fDot []float64) {
	fDot = make([]float64, 6)
	R := []float64{f[0], f[1], f[2]}
	bodyAcc := -t.origin.μ / math.Pow(norm(R), 3)
	var pert []float64
	if t.j2 {
		pert = t.origin.J2Acceleration(R)
	} else {
		pert = make([]float64, 3)
	}
	for i := 0; i < 3; i++ {
		fDot[i] = f[i+3]
		fDot[i+3] = bodyAcc*f[i] + pert[i]
	}
	return
}

type propagatedHandle struct {
	k      PropagatedKernel
	nodes  [][]float64
	closed atomic.Bool
}

func (h *propagatedHandle) Name() string {
	return h.k.KernelName
}

func (h *propagatedHandle) Position(target, observer, frame string, epoch time.Time) ([]float64, error) {
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
	if epoch.Before(h.k.Start) || epoch.After(h.k.End) {
		return nil, errors.Wrapf(ErrNoCoverage, "%s at %s", h.k.KernelName, epoch.Format(time.RFC3339))
	}
	R := h.interpolate(epoch.Sub(h.k.Start).Seconds())
	for i := range R {
		R[i] *= sign
	}
	return R, nil
}

func (h *propagatedHandle) Positions(target, observer, frame string, epochs []time.Time) ([][]float64, error) {
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

// interpolate is the cubic Hermite interpolation of the position at t seconds
// after the first node.
func (h *propagatedHandle) interpolate(t float64) []float64 {
	step := h.k.Step.Seconds()
	i := sort.Search(len(h.nodes), func(j int) bool { return float64(j)*step > t }) - 1
	if i >= len(h.nodes)-1 {
		i = len(h.nodes) - 2
	}
	if i < 0 {
		i = 0
	}
	s := (t - float64(i)*step) / step
	s2, s3 := s*s, s*s*s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2
	n0, n1 := h.nodes[i], h.nodes[i+1]
	R := make([]float64, 3)
	for k := 0; k < 3; k++ {
		R[k] = h00*n0[k] + h10*step*n0[k+3] + h01*n1[k] + h11*step*n1[k+3]
	}
	return R
}

func (h *propagatedHandle) Close() error {
	if h.closed.Swap(true) {
		return errHandleClosed
	}
	return nil
}
