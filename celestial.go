package herm

import (
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// AU is one astronomical unit in kilometers.
	AU = 1.49597870700e8
)

// CelestialObject defines a gravitating body used by the trajectory kernels.
type CelestialObject struct {
	Name   string
	Radius float64 // km
	a      float64 // semi-major axis about the Sun, km
	μ      float64 // km^3/s^2
	J2     float64
}

// GM returns μ (which is unexported because it's a lowercase letter)
func (c CelestialObject) GM() float64 {
	return c.μ
}

// SemiMajorAxis returns the heliocentric semi-major axis in km (-1 for the Sun).
func (c CelestialObject) SemiMajorAxis() float64 {
	return c.a
}

// String implements the Stringer interface.
func (c CelestialObject) String() string {
	return c.Name + " body"
}

// Equals returns whether the provided celestial object is the same.
func (c CelestialObject) Equals(b CelestialObject) bool {
	return c.Name == b.Name && c.Radius == b.Radius && c.a == b.a && c.μ == b.μ && c.J2 == b.J2
}

// CelestialObjectFromString returns the object from its name
func CelestialObjectFromString(name string) (CelestialObject, error) {
	switch strings.ToUpper(name) {
	case "SUN":
		return Sun, nil
	case "MERCURY":
		return Mercury, nil
	default:
		return CelestialObject{}, errors.Wrapf(ErrUnknownBody, "'%s'", name)
	}
}

/* Definitions */

// Sun is our closest star.
var Sun = CelestialObject{"SUN", 695700, -1, 1.32712440017987e11, 0}

// Mercury is where the magnetosphere of interest lives.
var Mercury = CelestialObject{"MERCURY", 2439.7, 57909050, 2.2031868551e4, 5.03e-5}

// BowShockParams is the conic description of the bow shock in planet radii.
// ρ(φ) = ψ·p / (1 + ψ cos φ), X = X0 + ρ cos φ, R = ρ sin φ.
type BowShockParams struct {
	X0           float64 // focus offset along X
	Eccentricity float64 // ψ
	SemiLatus    float64 // p
}

// MagnetopauseParams is the Shue-type magnetopause description in planet radii.
// ρ(φ) = Rss·(2 / (1 + cos φ))^α.
type MagnetopauseParams struct {
	Standoff float64 // sub-solar standoff distance Rss
	Flaring  float64 // α
}

// Constants is a named, versioned set of physical constants and empirical fit
// parameters. Units are given per field.
type Constants struct {
	Name              string
	Planet            string  // ephemeris name of the planet
	Spacecraft        string  // default target
	PlanetRadius      float64 // km
	DipoleOffset      float64 // km, along +Z
	SemiMajorAxis     float64 // km
	SolarMass         float64 // kg
	G                 float64 // m^3 kg^-1 s^-2
	SolarWindSpeed    float64 // km/s
	AverageAberration float64 // rad, used by AberrationAverage
	BowShock          BowShockParams
	Magnetopause      MagnetopauseParams
}

// DipoleOffsetRadii returns the dipole offset in planet radii.
func (c Constants) DipoleOffsetRadii() float64 {
	return c.DipoleOffset / c.PlanetRadius
}

// HermpyConstants are the constants of the MESSENGER analysis toolkit with the
// Winslow et al. (2013) boundary fits.
var HermpyConstants = Constants{
	Name:              "hermpy",
	Planet:            "MERCURY",
	Spacecraft:        "MESSENGER",
	PlanetRadius:      2439.7,
	DipoleOffset:      479,
	SemiMajorAxis:     57909050,
	SolarMass:         1.9891e30,
	G:                 6.6743e-11,
	SolarWindSpeed:    400,
	AverageAberration: 6.7523 * deg2rad,
	BowShock:          BowShockParams{X0: 0.5, Eccentricity: 1.04, SemiLatus: 2.75},
	Magnetopause:      MagnetopauseParams{Standoff: 1.45, Flaring: 0.5},
}

// Winslow2013Constants only differ from HermpyConstants by the solar mass,
// derived from the IAU nominal solar mass parameter GM☉.
var Winslow2013Constants = func() Constants {
	c := HermpyConstants
	c.Name = "winslow2013"
	c.SolarMass = 1.32712440041e20 / c.G
	return c
}()

var constantSets = map[string]Constants{
	HermpyConstants.Name:      HermpyConstants,
	Winslow2013Constants.Name: Winslow2013Constants,
}

// LookupConstants returns the named constant set.
func LookupConstants(name string) (Constants, error) {
	c, ok := constantSets[strings.ToLower(name)]
	if !ok {
		return Constants{}, errors.Errorf("unknown constant set '%s'", name)
	}
	return c, nil
}

// Period returns the period of a conic of semi-major axis a (km) about this body.
func (c CelestialObject) Period(a float64) time.Duration {
	return time.Duration(2 * math.Pi * math.Sqrt(math.Pow(a, 3)/c.μ) * float64(time.Second))
}
