package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/roverdyn/internal/logging"
	"github.com/san-kum/roverdyn/internal/observability"
	"github.com/san-kum/roverdyn/internal/rover"
	"github.com/san-kum/roverdyn/internal/solver"
	"github.com/san-kum/roverdyn/internal/sweep"
)

const (
	DefaultGravity  = 3.72
	DefaultCrr      = 0.15
	DefaultSlope    = 0.0
	DefaultPoints   = 25
	DefaultDataDir  = "data"
	DefaultSlopeMin = -15.0
	DefaultSlopeMax = 35.0
	DefaultCrrMin   = 0.01
	DefaultCrrMax   = 0.5
)

type Config struct {
	Planet  PlanetConfig                `yaml:"planet"`
	Rover   *RoverConfig                `yaml:"rover"`
	Solver  SolverConfig                `yaml:"solver"`
	Sweep   SweepConfig                 `yaml:"sweep"`
	DataDir string                      `yaml:"data_dir"`
	Log     logging.Config              `yaml:"log"`
	Tracing observability.TracingConfig `yaml:"tracing"`
}

type PlanetConfig struct {
	Name string  `yaml:"name"`
	G    float64 `yaml:"g"`
}

// RoverConfig mirrors the nested rover document. Every numeric field is
// required; a nil pointer means the key was absent.
type RoverConfig struct {
	WheelAssembly  WheelAssemblyConfig `yaml:"wheel_assembly"`
	Chassis        MassConfig          `yaml:"chassis"`
	SciencePayload MassConfig          `yaml:"science_payload"`
	PowerSubsys    MassConfig          `yaml:"power_subsys"`
}

type WheelAssemblyConfig struct {
	Wheel        WheelConfig   `yaml:"wheel"`
	Motor        MotorConfig   `yaml:"motor"`
	SpeedReducer ReducerConfig `yaml:"speed_reducer"`
}

type WheelConfig struct {
	Radius *float64 `yaml:"radius"`
	Mass   *float64 `yaml:"mass"`
}

type MotorConfig struct {
	TorqueStall  *float64 `yaml:"torque_stall"`
	TorqueNoLoad *float64 `yaml:"torque_noload"`
	SpeedNoLoad  *float64 `yaml:"speed_noload"`
	Mass         *float64 `yaml:"mass"`
}

type ReducerConfig struct {
	Type       string   `yaml:"type"`
	DiamPinion *float64 `yaml:"diam_pinion"`
	DiamGear   *float64 `yaml:"diam_gear"`
	Mass       *float64 `yaml:"mass"`
}

type MassConfig struct {
	Mass *float64 `yaml:"mass"`
}

type SolverConfig struct {
	Iterations int     `yaml:"iterations"`
	OmegaLow   float64 `yaml:"omega_low"`
}

type RangeConfig struct {
	Start  float64 `yaml:"start"`
	End    float64 `yaml:"end"`
	Points int     `yaml:"points"`
}

type SweepConfig struct {
	Slope      RangeConfig `yaml:"slope"`
	Crr        RangeConfig `yaml:"crr"`
	FixedCrr   float64     `yaml:"fixed_crr"`   // held constant in slope sweeps
	FixedSlope float64     `yaml:"fixed_slope"` // held constant in Crr sweeps
	Workers    int         `yaml:"workers"`     // 0 means GOMAXPROCS
}

func ptr(v float64) *float64 { return &v }

// DefaultRover is the reference six-wheel rover, 869 kg in total.
func DefaultRover() *RoverConfig {
	return &RoverConfig{
		WheelAssembly: WheelAssemblyConfig{
			Wheel: WheelConfig{Radius: ptr(0.30), Mass: ptr(1.0)},
			Motor: MotorConfig{
				TorqueStall:  ptr(170),
				TorqueNoLoad: ptr(0),
				SpeedNoLoad:  ptr(3.80),
				Mass:         ptr(5.0),
			},
			SpeedReducer: ReducerConfig{
				Type:       rover.ReducerReverted,
				DiamPinion: ptr(0.04),
				DiamGear:   ptr(0.07),
				Mass:       ptr(1.5),
			},
		},
		Chassis:        MassConfig{Mass: ptr(659)},
		SciencePayload: MassConfig{Mass: ptr(75)},
		PowerSubsys:    MassConfig{Mass: ptr(90)},
	}
}

func DefaultConfig() *Config {
	return &Config{
		Planet: PlanetConfig{Name: "mars", G: DefaultGravity},
		Rover:  DefaultRover(),
		Solver: SolverConfig{
			Iterations: solver.DefaultIterations,
			OmegaLow:   solver.DefaultOmegaLow,
		},
		Sweep: SweepConfig{
			Slope:      RangeConfig{Start: DefaultSlopeMin, End: DefaultSlopeMax, Points: DefaultPoints},
			Crr:        RangeConfig{Start: DefaultCrrMin, End: DefaultCrrMax, Points: DefaultPoints},
			FixedCrr:   DefaultCrr,
			FixedSlope: DefaultSlope,
		},
		DataDir: DefaultDataDir,
		Log:     logging.Config{Level: "info", Format: "text"},
		Tracing: observability.DefaultTracingConfig(),
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a YAML document over the defaults. Unknown keys are rejected.
// When the rover section is present it must be complete; when absent the
// default rover is used.
func Decode(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Rover = nil

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Rover == nil {
		cfg.Rover = DefaultRover()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Config) Validate() error {
	if _, _, err := c.Build(); err != nil {
		return err
	}
	if err := c.SolverOptions().Validate(); err != nil {
		return err
	}
	if c.Sweep.Slope.Points < 1 || c.Sweep.Crr.Points < 1 {
		return fmt.Errorf("config: sweep points must be positive")
	}
	if c.Sweep.Workers < 0 {
		return fmt.Errorf("config: sweep workers must be >= 0, got %d", c.Sweep.Workers)
	}
	return nil
}

// Build turns the document into validated rover and planet records.
func (c *Config) Build() (rover.Rover, rover.Planet, error) {
	p, err := rover.NewPlanet(c.Planet.Name, c.Planet.G)
	if err != nil {
		return rover.Rover{}, rover.Planet{}, err
	}
	rc := c.Rover
	if rc == nil {
		rc = DefaultRover()
	}
	r, err := rc.Build()
	if err != nil {
		return rover.Rover{}, rover.Planet{}, err
	}
	return r, p, nil
}

func (rc *RoverConfig) Build() (rover.Rover, error) {
	var missing error
	get := func(op, field string, v *float64) float64 {
		if v == nil {
			if missing == nil {
				missing = rover.Missing(op, field)
			}
			return 0
		}
		return *v
	}

	wa := rc.WheelAssembly
	stall := get("motor", "torque_stall", wa.Motor.TorqueStall)
	noload := get("motor", "torque_noload", wa.Motor.TorqueNoLoad)
	speed := get("motor", "speed_noload", wa.Motor.SpeedNoLoad)
	motorMass := get("motor", "mass", wa.Motor.Mass)
	pinion := get("speed_reducer", "diam_pinion", wa.SpeedReducer.DiamPinion)
	gear := get("speed_reducer", "diam_gear", wa.SpeedReducer.DiamGear)
	reducerMass := get("speed_reducer", "mass", wa.SpeedReducer.Mass)
	radius := get("wheel", "radius", wa.Wheel.Radius)
	wheelMass := get("wheel", "mass", wa.Wheel.Mass)
	chassis := get("rover", "chassis.mass", rc.Chassis.Mass)
	payload := get("rover", "science_payload.mass", rc.SciencePayload.Mass)
	power := get("rover", "power_subsys.mass", rc.PowerSubsys.Mass)
	if missing != nil {
		return rover.Rover{}, missing
	}

	m, err := rover.NewMotor(stall, noload, speed, motorMass)
	if err != nil {
		return rover.Rover{}, err
	}
	sr, err := rover.NewSpeedReducer(wa.SpeedReducer.Type, pinion, gear, reducerMass)
	if err != nil {
		return rover.Rover{}, err
	}
	w, err := rover.NewWheel(radius, wheelMass)
	if err != nil {
		return rover.Rover{}, err
	}
	assembly, err := rover.NewWheelAssembly(m, sr, w)
	if err != nil {
		return rover.Rover{}, err
	}
	return rover.NewRover(assembly, chassis, payload, power)
}

func (c *Config) SolverOptions() solver.Options {
	return solver.Options{
		Iterations: c.Solver.Iterations,
		OmegaLow:   c.Solver.OmegaLow,
	}
}

func (r RangeConfig) Values() ([]float64, error) {
	return sweep.Linspace(r.Start, r.End, r.Points)
}
