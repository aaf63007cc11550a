package herm

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Frame identifies the coordinate frame of a Position.
type Frame uint8

const (
	// MSO is planet centred, X toward the Sun.
	MSO Frame = iota + 1
	// MSM is MSO with the origin shifted along Z to the dipole centre.
	MSM
	// MSOPrime is MSO rotated about Z by the aberration angle.
	MSOPrime
	// MSMPrime is MSM rotated about Z by the aberration angle.
	MSMPrime
)

func (f Frame) String() string {
	switch f {
	case MSO:
		return "MSO"
	case MSM:
		return "MSM"
	case MSOPrime:
		return "MSO'"
	case MSMPrime:
		return "MSM'"
	default:
		return fmt.Sprintf("Frame(%d)", uint8(f))
	}
}

// Valid returns whether f is one of the four known frames.
func (f Frame) Valid() bool {
	return f >= MSO && f <= MSMPrime
}

// Dipole returns whether the frame origin is the dipole centre.
func (f Frame) Dipole() bool {
	return f == MSM || f == MSMPrime
}

// Aberrated returns whether the frame is rotated by the aberration angle.
func (f Frame) Aberrated() bool {
	return f == MSOPrime || f == MSMPrime
}

// frameOf composes a frame from its two independent traits.
func frameOf(dipole, aberrated bool) Frame {
	switch {
	case dipole && aberrated:
		return MSMPrime
	case dipole:
		return MSM
	case aberrated:
		return MSOPrime
	default:
		return MSO
	}
}

// ParseFrame returns the frame from its name.
func ParseFrame(name string) (Frame, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "MSO":
		return MSO, nil
	case "MSM":
		return MSM, nil
	case "MSO'", "MSO_AB", "MSOPRIME":
		return MSOPrime, nil
	case "MSM'", "MSM_AB", "MSMPRIME":
		return MSMPrime, nil
	default:
		return 0, errors.Wrapf(ErrInvalidFrame, "unknown frame %q", name)
	}
}

// Position is a Cartesian position in km, tagged with its frame and epoch.
type Position struct {
	X, Y, Z float64
	Frame   Frame
	Epoch   time.Time
}

// NewPosition returns a Position from a 3-vector.
func NewPosition(v []float64, f Frame, epoch time.Time) Position {
	return Position{X: v[0], Y: v[1], Z: v[2], Frame: f, Epoch: epoch}
}

// Vector returns the position as a 3-vector.
func (p Position) Vector() []float64 {
	return []float64{p.X, p.Y, p.Z}
}

// Range returns the distance to the frame origin. In MSM this is measured from
// the dipole, not from the planet centre.
func (p Position) Range() float64 {
	return norm(p.Vector())
}

// Cylindrical returns the axisymmetric (X, R) reduction, R = sqrt(Y² + Z²).
func (p Position) Cylindrical() (x, r float64) {
	return p.X, math.Hypot(p.Y, p.Z)
}

// Scale returns the position with all components multiplied by f (e.g. 1/radius).
func (p Position) Scale(f float64) Position {
	p.X *= f
	p.Y *= f
	p.Z *= f
	return p
}

func (p Position) String() string {
	return fmt.Sprintf("[%.3f, %.3f, %.3f] %s @ %s", p.X, p.Y, p.Z, p.Frame, p.Epoch.Format(time.RFC3339))
}

// ShiftToMSM moves the origin of p to the dipole centre. offset is in the units of p.
func ShiftToMSM(p Position, offset float64) (Position, error) {
	if p.Frame.Dipole() || !p.Frame.Valid() {
		return p, errors.Wrapf(ErrInvalidFrame, "cannot shift %s to a dipole frame", p.Frame)
	}
	p.Z -= offset
	p.Frame = frameOf(true, p.Frame.Aberrated())
	return p, nil
}

// ShiftToMSO moves the origin of p back to the planet centre.
func ShiftToMSO(p Position, offset float64) (Position, error) {
	if !p.Frame.Dipole() {
		return p, errors.Wrapf(ErrInvalidFrame, "cannot shift %s to a planet centred frame", p.Frame)
	}
	p.Z += offset
	p.Frame = frameOf(false, p.Frame.Aberrated())
	return p, nil
}

// Aberrate rotates p about Z by θ (radians), from an unprimed frame to its primed counterpart.
func Aberrate(p Position, θ float64) (Position, error) {
	if p.Frame.Aberrated() || !p.Frame.Valid() {
		return p, errors.Wrapf(ErrInvalidFrame, "%s is already aberrated", p.Frame)
	}
	p = rotateZ(p, θ)
	p.Frame = frameOf(p.Frame.Dipole(), true)
	return p, nil
}

// Unaberrate is the inverse of Aberrate.
func Unaberrate(p Position, θ float64) (Position, error) {
	if !p.Frame.Aberrated() {
		return p, errors.Wrapf(ErrInvalidFrame, "%s is not aberrated", p.Frame)
	}
	p = rotateZ(p, -θ)
	p.Frame = frameOf(p.Frame.Dipole(), false)
	return p, nil
}

// rotateZ is x' = x cosθ − y sinθ, y' = x sinθ + y cosθ, z' = z.
func rotateZ(p Position, θ float64) Position {
	v := MxV33(R3(-θ), p.Vector())
	p.X, p.Y, p.Z = v[0], v[1], v[2]
	return p
}

// AngleSource provides the aberration angle at an epoch.
type AngleSource interface {
	Angle(epoch time.Time) (float64, error)
}

// Converter converts positions between the four frames. The aberration angle
// is always evaluated at the epoch of the position being converted.
type Converter struct {
	Constants  Constants
	Aberration AngleSource // may be nil if no primed frame is involved
}

// ToFrame converts p to the target frame.
func (c Converter) ToFrame(p Position, target Frame) (Position, error) {
	if !target.Valid() {
		return p, errors.Wrapf(ErrInvalidFrame, "target %s", target)
	}
	if !p.Frame.Valid() {
		return p, errors.Wrapf(ErrInvalidFrame, "source %s", p.Frame)
	}
	if p.Frame == target {
		return p, nil
	}
	var err error
	if p.Frame.Aberrated() != target.Aberrated() {
		if c.Aberration == nil {
			return p, errors.Wrapf(ErrInvalidFrame, "no aberration model to convert %s to %s", p.Frame, target)
		}
		θ, aerr := c.Aberration.Angle(p.Epoch)
		if aerr != nil {
			return p, aerr
		}
		if target.Aberrated() {
			p, err = Aberrate(p, θ)
		} else {
			p, err = Unaberrate(p, θ)
		}
		if err != nil {
			return p, err
		}
	}
	if p.Frame.Dipole() != target.Dipole() {
		if target.Dipole() {
			p, err = ShiftToMSM(p, c.Constants.DipoleOffset)
		} else {
			p, err = ShiftToMSO(p, c.Constants.DipoleOffset)
		}
	}
	return p, err
}
