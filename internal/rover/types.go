package rover

import (
	"math"
	"strings"
)

const (
	// WheelCount is the number of identical drive units on the rover.
	WheelCount = 6

	// MaxTerrainAngle bounds the terrain inclination in degrees, inclusive.
	MaxTerrainAngle = 75.0

	// ReducerReverted is the only supported speed reducer type.
	ReducerReverted = "reverted"
)

type Motor struct {
	StallTorque  float64 // N·m
	NoLoadTorque float64 // N·m
	NoLoadSpeed  float64 // rad/s
	Mass         float64 // kg
}

type SpeedReducer struct {
	Type           string
	PinionDiameter float64 // m
	GearDiameter   float64 // m
	Mass           float64 // kg
}

type Wheel struct {
	Radius float64 // m
	Mass   float64 // kg
}

// WheelAssembly is one drive unit: motor, reducer and wheel.
type WheelAssembly struct {
	Motor   Motor
	Reducer SpeedReducer
	Wheel   Wheel
}

// Rover owns a single WheelAssembly that stands for all WheelCount units.
type Rover struct {
	WheelAssembly      WheelAssembly
	ChassisMass        float64
	SciencePayloadMass float64
	PowerSubsystemMass float64
}

type Planet struct {
	Name    string
	Gravity float64 // m/s²
}

func NewMotor(stallTorque, noLoadTorque, noLoadSpeed, mass float64) (Motor, error) {
	m := Motor{
		StallTorque:  stallTorque,
		NoLoadTorque: noLoadTorque,
		NoLoadSpeed:  noLoadSpeed,
		Mass:         mass,
	}
	if err := m.Validate(); err != nil {
		return Motor{}, err
	}
	return m, nil
}

func (m Motor) Validate() error {
	const op = "motor"
	if m == (Motor{}) {
		return newError(op, "", 0, ErrInvalidRecord)
	}
	if err := positive(op, "torque_stall", m.StallTorque); err != nil {
		return err
	}
	if err := nonNegative(op, "torque_noload", m.NoLoadTorque); err != nil {
		return err
	}
	if err := positive(op, "speed_noload", m.NoLoadSpeed); err != nil {
		return err
	}
	return nonNegative(op, "mass", m.Mass)
}

func NewSpeedReducer(kind string, pinionDiameter, gearDiameter, mass float64) (SpeedReducer, error) {
	r := SpeedReducer{
		Type:           kind,
		PinionDiameter: pinionDiameter,
		GearDiameter:   gearDiameter,
		Mass:           mass,
	}
	if err := r.Validate(); err != nil {
		return SpeedReducer{}, err
	}
	return r, nil
}

func (r SpeedReducer) Validate() error {
	const op = "speed_reducer"
	if strings.TrimSpace(r.Type) == "" {
		return Missing(op, "type")
	}
	if !strings.EqualFold(r.Type, ReducerReverted) {
		return &Error{Op: op, Field: "type", Value: math.NaN(), Err: ErrUnsupportedReducer}
	}
	if err := positive(op, "diam_pinion", r.PinionDiameter); err != nil {
		return err
	}
	if err := positive(op, "diam_gear", r.GearDiameter); err != nil {
		return err
	}
	return nonNegative(op, "mass", r.Mass)
}

func NewWheel(radius, mass float64) (Wheel, error) {
	w := Wheel{Radius: radius, Mass: mass}
	if err := w.Validate(); err != nil {
		return Wheel{}, err
	}
	return w, nil
}

func (w Wheel) Validate() error {
	if w == (Wheel{}) {
		return newError("wheel", "", 0, ErrInvalidRecord)
	}
	if err := positive("wheel", "radius", w.Radius); err != nil {
		return err
	}
	return nonNegative("wheel", "mass", w.Mass)
}

func NewWheelAssembly(m Motor, r SpeedReducer, w Wheel) (WheelAssembly, error) {
	wa := WheelAssembly{Motor: m, Reducer: r, Wheel: w}
	if err := wa.Validate(); err != nil {
		return WheelAssembly{}, err
	}
	return wa, nil
}

func (wa WheelAssembly) Validate() error {
	if err := wa.Motor.Validate(); err != nil {
		return err
	}
	if err := wa.Reducer.Validate(); err != nil {
		return err
	}
	return wa.Wheel.Validate()
}

func NewRover(wa WheelAssembly, chassisMass, payloadMass, powerMass float64) (Rover, error) {
	r := Rover{
		WheelAssembly:      wa,
		ChassisMass:        chassisMass,
		SciencePayloadMass: payloadMass,
		PowerSubsystemMass: powerMass,
	}
	if err := r.Validate(); err != nil {
		return Rover{}, err
	}
	return r, nil
}

func (r Rover) Validate() error {
	if err := r.WheelAssembly.Validate(); err != nil {
		return err
	}
	if err := nonNegative("chassis", "mass", r.ChassisMass); err != nil {
		return err
	}
	if err := nonNegative("science_payload", "mass", r.SciencePayloadMass); err != nil {
		return err
	}
	return nonNegative("power_subsys", "mass", r.PowerSubsystemMass)
}

func NewPlanet(name string, gravity float64) (Planet, error) {
	p := Planet{Name: name, Gravity: gravity}
	if err := p.Validate(); err != nil {
		return Planet{}, err
	}
	return p, nil
}

func (p Planet) Validate() error {
	if p == (Planet{}) {
		return newError("planet", "", 0, ErrInvalidRecord)
	}
	return positive("planet", "g", p.Gravity)
}

// ValidateAngle checks a terrain angle in degrees against MaxTerrainAngle.
func ValidateAngle(op string, deg float64) error {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return newError(op, "terrain_angle", deg, ErrNonFinite)
	}
	if deg < -MaxTerrainAngle || deg > MaxTerrainAngle {
		return newError(op, "terrain_angle", deg, ErrAngleRange)
	}
	return nil
}

// ValidateCrr checks a rolling resistance coefficient.
func ValidateCrr(op string, crr float64) error {
	if math.IsNaN(crr) || math.IsInf(crr, 0) {
		return newError(op, "crr", crr, ErrNonFinite)
	}
	if crr <= 0 {
		return newError(op, "crr", crr, ErrNonPositiveCrr)
	}
	return nil
}

func positive(op, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return newError(op, field, v, ErrNonFinite)
	}
	if v <= 0 {
		return newError(op, field, v, ErrNonPositive)
	}
	return nil
}

func nonNegative(op, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return newError(op, field, v, ErrNonFinite)
	}
	if v < 0 {
		return newError(op, field, v, ErrNegative)
	}
	return nil
}
