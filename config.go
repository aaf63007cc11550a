package herm

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ConfigEnv is the environment variable holding the directory of conf.toml.
const ConfigEnv = "HERM_CONFIG"

// OrbitConfig describes the synthetic spacecraft trajectory served when no
// spacecraft kernel is available. Angles in degrees.
//
// In conf.toml the elements may instead be given as a state vector at the
// orbit epoch (orbit.position in km, orbit.velocity in km/s, planet-centred
// MSO) or, for a and e only, as apsis altitudes above the surface
// (orbit.apoapsis_altitude, orbit.periapsis_altitude).
type OrbitConfig struct {
	SemiMajorAxis float64 // km
	Eccentricity  float64
	Inclination   float64
	RAAN          float64
	ArgPeriapsis  float64
	TrueAnomaly   float64
	Epoch         time.Time
	// Propagate integrates the orbit (with J2 if set) between Start and End
	// instead of using the fixed conic.
	Propagate  bool
	J2         bool
	Step       time.Duration
	Start, End time.Time
}

// EphemerisConfig selects the kernels.
type EphemerisConfig struct {
	Source     string // kepler, vsop87 or de: the heliocentric planet source
	VSOP87Dir  string
	DEFile     string
	MSOFrame   string
	HelioFrame string
	Spacecraft string
	DeltaT     time.Duration
	Orbit      OrbitConfig
}

// AberrationConfig selects the aberration model.
type AberrationConfig struct {
	Mode       AberrationMode
	AverageDeg float64
}

// BoundaryConfig configures the boundary models.
type BoundaryConfig struct {
	Samples            int
	NormalToleranceDeg float64
}

// Config is the library configuration.
type Config struct {
	Constants  Constants
	Ephemeris  EphemerisConfig
	Aberration AberrationConfig
	Boundary   BoundaryConfig
	Workers    int
	LogLevel   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("constants.set", HermpyConstants.Name)
	v.SetDefault("ephemeris.source", "kepler")
	v.SetDefault("ephemeris.mso_frame", DefaultMSOFrame)
	v.SetDefault("ephemeris.helio_frame", DefaultHelioFrame)
	v.SetDefault("ephemeris.delta_t", DefaultDeltaT)
	v.SetDefault("orbit.semi_major_axis", 10189.7)
	v.SetDefault("orbit.eccentricity", 0.741)
	v.SetDefault("orbit.inclination", 82.5)
	v.SetDefault("orbit.raan", 0.)
	v.SetDefault("orbit.arg_periapsis", 60.)
	v.SetDefault("orbit.true_anomaly", 0.)
	v.SetDefault("orbit.epoch", "2011-03-24T00:00:00Z")
	v.SetDefault("orbit.step", 10*time.Second)
	v.SetDefault("aberration.mode", AberrationDaily.String())
	v.SetDefault("boundary.samples", DefaultBoundarySamples)
	v.SetDefault("boundary.normal_tolerance", DefaultNormalTolerance)
	v.SetDefault("general.log_level", "info")
}

// LoadConfig reads conf.toml from dir (or from the directory in HERM_CONFIG if
// dir is empty). Without a directory only the defaults and the HERM_*
// environment variables are used.
func LoadConfig(dir string) (Config, error) {
	v := viper.New()
	v.SetConfigName("conf")
	v.SetConfigType("toml")
	v.SetEnvPrefix("HERM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if dir == "" {
		dir = os.Getenv(ConfigEnv)
	}
	if dir != "" {
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "reading %s/conf.toml", dir)
		}
	}
	return configFrom(v)
}

func configFrom(v *viper.Viper) (Config, error) {
	consts, err := LookupConstants(v.GetString("constants.set"))
	if err != nil {
		return Config{}, err
	}
	overrides := map[string]*float64{
		"constants.planet_radius":    &consts.PlanetRadius,
		"constants.dipole_offset":    &consts.DipoleOffset,
		"constants.semi_major_axis":  &consts.SemiMajorAxis,
		"constants.solar_mass":       &consts.SolarMass,
		"constants.g":                &consts.G,
		"constants.solar_wind_speed": &consts.SolarWindSpeed,
		"bow_shock.x0":               &consts.BowShock.X0,
		"bow_shock.eccentricity":     &consts.BowShock.Eccentricity,
		"bow_shock.semi_latus":       &consts.BowShock.SemiLatus,
		"magnetopause.standoff":      &consts.Magnetopause.Standoff,
		"magnetopause.flaring":       &consts.Magnetopause.Flaring,
	}
	for key, field := range overrides {
		if v.IsSet(key) {
			*field = v.GetFloat64(key)
		}
	}
	if v.IsSet("constants.planet") {
		consts.Planet = strings.ToUpper(v.GetString("constants.planet"))
	}
	if v.IsSet("aberration.average") {
		consts.AverageAberration = v.GetFloat64("aberration.average") * deg2rad
	}
	mode, err := ParseAberrationMode(v.GetString("aberration.mode"))
	if err != nil {
		return Config{}, err
	}
	spacecraft := consts.Spacecraft
	if v.IsSet("ephemeris.spacecraft") {
		spacecraft = strings.ToUpper(v.GetString("ephemeris.spacecraft"))
		consts.Spacecraft = spacecraft
	}
	orbitEpoch, err := ParseEpoch(v.GetString("orbit.epoch"))
	if err != nil {
		return Config{}, errors.Wrap(err, "orbit.epoch")
	}
	cfg := Config{
		Constants: consts,
		Ephemeris: EphemerisConfig{
			Source:     strings.ToLower(v.GetString("ephemeris.source")),
			VSOP87Dir:  v.GetString("VSOP87.directory"),
			DEFile:     v.GetString("DE.file"),
			MSOFrame:   v.GetString("ephemeris.mso_frame"),
			HelioFrame: v.GetString("ephemeris.helio_frame"),
			Spacecraft: spacecraft,
			DeltaT:     v.GetDuration("ephemeris.delta_t"),
			Orbit: OrbitConfig{
				SemiMajorAxis: v.GetFloat64("orbit.semi_major_axis"),
				Eccentricity:  v.GetFloat64("orbit.eccentricity"),
				Inclination:   v.GetFloat64("orbit.inclination"),
				RAAN:          v.GetFloat64("orbit.raan"),
				ArgPeriapsis:  v.GetFloat64("orbit.arg_periapsis"),
				TrueAnomaly:   v.GetFloat64("orbit.true_anomaly"),
				Epoch:         orbitEpoch,
				Propagate:     v.GetBool("orbit.propagate"),
				J2:            v.GetBool("orbit.j2"),
				Step:          v.GetDuration("orbit.step"),
			},
		},
		Aberration: AberrationConfig{Mode: mode, AverageDeg: consts.AverageAberration * r2d},
		Boundary: BoundaryConfig{
			Samples:            v.GetInt("boundary.samples"),
			NormalToleranceDeg: v.GetFloat64("boundary.normal_tolerance"),
		},
		Workers:  v.GetInt("general.workers"),
		LogLevel: v.GetString("general.log_level"),
	}
	if cfg.Ephemeris.Orbit.Propagate {
		o := &cfg.Ephemeris.Orbit
		if o.Start, err = ParseEpoch(v.GetString("orbit.start")); err != nil {
			return Config{}, errors.Wrap(err, "orbit.start")
		}
		if o.End, err = ParseEpoch(v.GetString("orbit.end")); err != nil {
			return Config{}, errors.Wrap(err, "orbit.end")
		}
	}
	planet, err := CelestialObjectFromString(consts.Planet)
	if err != nil {
		return Config{}, err
	}
	if err = resolveOrbit(v, &cfg.Ephemeris.Orbit, planet); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// resolveOrbit replaces the orbital elements by those of the state vector or
// of the apsis altitudes when either is configured.
func resolveOrbit(v *viper.Viper, oc *OrbitConfig, planet CelestialObject) error {
	switch {
	case v.IsSet("orbit.position") || v.IsSet("orbit.velocity"):
		R, err := vector3(v, "orbit.position")
		if err != nil {
			return err
		}
		V, err := vector3(v, "orbit.velocity")
		if err != nil {
			return err
		}
		o := NewOrbitFromRV(R, V, planet)
		if ξ := o.Energyξ(); ξ >= 0 || o.Periapsis() <= 0 {
			return errors.Errorf("orbit.position and orbit.velocity: not a bound orbit (ξ=%f km²/s²)", ξ)
		}
		a, e, i, Ω, ω, ν := o.Elements()
		oc.SemiMajorAxis, oc.Eccentricity = a, e
		oc.Inclination, oc.RAAN, oc.ArgPeriapsis, oc.TrueAnomaly = Rad2deg(i), Rad2deg(Ω), Rad2deg(ω), Rad2deg(ν)
	case v.IsSet("orbit.apoapsis_altitude") || v.IsSet("orbit.periapsis_altitude"):
		rA := planet.Radius + v.GetFloat64("orbit.apoapsis_altitude")
		rP := planet.Radius + v.GetFloat64("orbit.periapsis_altitude")
		if rP <= planet.Radius || rA < rP {
			return errors.Errorf("invalid apsis altitudes: apoapsis %.1f km, periapsis %.1f km", rA-planet.Radius, rP-planet.Radius)
		}
		oc.SemiMajorAxis, oc.Eccentricity = Radii2ae(rA, rP)
	}
	return nil
}

// vector3 reads a three component vector, either a TOML array or a space
// separated environment variable.
func vector3(v *viper.Viper, key string) ([]float64, error) {
	fields := v.GetStringSlice(key)
	if len(fields) != 3 {
		return nil, errors.Errorf("%s: expected 3 components, got %d", key, len(fields))
	}
	out := make([]float64, 3)
	for i, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", key, i)
		}
		out[i] = x
	}
	return out, nil
}

// ParseEpoch parses an RFC 3339, "2006-01-02 15:04:05" or "2006-01-02" UTC epoch.
func ParseEpoch(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("cannot parse epoch %q", s)
}

// SpacecraftKernel returns the kernel serving the configured spacecraft orbit.
func (c Config) SpacecraftKernel() (KernelSet, error) {
	oc := c.Ephemeris.Orbit
	planet, err := CelestialObjectFromString(c.Constants.Planet)
	if err != nil {
		return nil, err
	}
	o, err := NewOrbitFromOE(oc.SemiMajorAxis, oc.Eccentricity, oc.Inclination, oc.RAAN, oc.ArgPeriapsis, oc.TrueAnomaly, planet)
	if err != nil {
		return nil, err
	}
	if r := o.RNorm(); r <= planet.Radius {
		return nil, errors.Errorf("%s starts %.1f km below the surface of %s", c.Ephemeris.Spacecraft, planet.Radius-r, planet.Name)
	}
	if oc.Propagate {
		return PropagatedKernel{
			Target:   c.Ephemeris.Spacecraft,
			Observer: planet.Name,
			Frame:    c.Ephemeris.MSOFrame,
			Initial:  o.After(oc.Start.Sub(oc.Epoch)),
			Start:    oc.Start,
			End:      oc.End,
			Step:     oc.Step,
			J2:       oc.J2,
		}, nil
	}
	return KeplerKernel{
		Target:   c.Ephemeris.Spacecraft,
		Observer: planet.Name,
		Frame:    c.Ephemeris.MSOFrame,
		Epoch:    oc.Epoch,
		Orbit:    o,
	}, nil
}

// HelioKernel returns the kernel serving the heliocentric position of the planet.
func (c Config) HelioKernel() (KernelSet, error) {
	switch c.Ephemeris.Source {
	case "", "kepler":
		return MercuryHelioKernel(), nil
	case "vsop87":
		return VSOP87Kernel{Dir: c.Ephemeris.VSOP87Dir, Planet: c.Constants.Planet, DeltaT: c.Ephemeris.DeltaT}, nil
	case "de":
		return DEKernel{File: c.Ephemeris.DEFile, DeltaT: c.Ephemeris.DeltaT}, nil
	default:
		return nil, errors.Errorf("unknown ephemeris source %q", c.Ephemeris.Source)
	}
}

// KernelSet returns the spacecraft and heliocentric kernels combined.
func (c Config) KernelSet() (KernelSet, error) {
	sc, err := c.SpacecraftKernel()
	if err != nil {
		return nil, err
	}
	helio, err := c.HelioKernel()
	if err != nil {
		return nil, err
	}
	return Kernels(sc, helio), nil
}

// NewTracker builds the ephemeris and the aberration model of the configuration.
func (c Config) NewTracker(opts ...Option) (*Tracker, error) {
	ks, err := c.KernelSet()
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithMSOFrame(c.Ephemeris.MSOFrame), WithHelioFrame(c.Ephemeris.HelioFrame)}, opts...)
	eph := NewEphemeris(ks, c.Constants, opts...)
	return NewTracker(eph, NewAberrationModel(eph, c.Constants, c.Aberration.Mode).Instrumented(eph.metrics)), nil
}
