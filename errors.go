package herm

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrEphemerisUnavailable is returned when a position cannot be resolved for an epoch.
	ErrEphemerisUnavailable = errors.New("ephemeris unavailable")
	// ErrNoCoverage is returned by providers for epochs outside of the loaded kernels.
	ErrNoCoverage = errors.New("no ephemeris coverage")
	// ErrUnknownBody is returned by providers which do not know the target or the observer.
	ErrUnknownBody = errors.New("unknown body")
	// ErrInvalidFrame is a configuration error: the frame is unknown or not valid here.
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrInvalidBoundaryModel is a configuration error: unknown boundary model.
	ErrInvalidBoundaryModel = errors.New("invalid boundary model")
	// ErrNoApoapsisFound means the search window holds no local maximum (widen it).
	ErrNoApoapsisFound = errors.New("no apoapsis found")
	// ErrAmbiguousTrim means the apoapsis list cannot be reduced without picking a side.
	ErrAmbiguousTrim = errors.New("ambiguous apoapsis trim")
	// ErrInvalidWindow means the time window or the cadence is unusable.
	ErrInvalidWindow = errors.New("invalid time window")
	// ErrDegenerateGeometry means a direction could not be normalized.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

// EphemerisUnavailableError identifies the epoch (and body) which could not be resolved.
type EphemerisUnavailableError struct {
	Body  string
	Epoch time.Time
	Err   error
}

func (e *EphemerisUnavailableError) Error() string {
	return fmt.Sprintf("ephemeris unavailable for %s at %s: %s", e.Body, e.Epoch.Format(time.RFC3339Nano), e.Err)
}

// Unwrap returns the provider error.
func (e *EphemerisUnavailableError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrEphemerisUnavailable) hold.
func (e *EphemerisUnavailableError) Is(target error) bool {
	return target == ErrEphemerisUnavailable
}

func unavailable(body string, epoch time.Time, err error) error {
	return &EphemerisUnavailableError{Body: body, Epoch: epoch, Err: err}
}
