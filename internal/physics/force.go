package physics

import (
	"math"

	"github.com/san-kum/roverdyn/internal/ndarray"
	"github.com/san-kum/roverdyn/internal/rover"
)

// erfGain sets how quickly rolling resistance ramps up with ground speed.
const erfGain = 40.0

// Model is a validated rover/planet pair with its derived constants cached.
type Model struct {
	rover  rover.Rover
	planet rover.Planet
	drive  drive
	mass   float64
}

func NewModel(r rover.Rover, p rover.Planet) (Model, error) {
	if err := p.Validate(); err != nil {
		return Model{}, err
	}
	mass, err := rover.TotalMass(r)
	if err != nil {
		return Model{}, err
	}
	d, err := newDrive(r.WheelAssembly)
	if err != nil {
		return Model{}, err
	}
	return Model{rover: r, planet: p, drive: d, mass: mass}, nil
}

func (m Model) Rover() rover.Rover   { return m.rover }
func (m Model) Planet() rover.Planet { return m.planet }
func (m Model) Mass() float64        { return m.mass }
func (m Model) GearRatio() float64   { return m.drive.ng }
func (m Model) NoLoadSpeed() float64 { return m.drive.motor.NoLoadSpeed }

// GroundSpeed converts motor shaft speed to rover speed in m/s.
func (m Model) GroundSpeed(omega float64) float64 {
	return m.drive.speed(omega)
}

// FreeRollingSpeed is the rover speed at motor no-load speed, an upper bound
// on any terminal speed.
func (m Model) FreeRollingSpeed() float64 {
	return m.drive.speed(m.drive.motor.NoLoadSpeed)
}

func (m Model) valid() error {
	if m.mass == 0 && m.drive.ng == 0 {
		return &rover.Error{Op: "model", Err: rover.ErrInvalidRecord}
	}
	return nil
}

func (m Model) DriveForce(omega float64) (float64, error) {
	if err := m.valid(); err != nil {
		return 0, err
	}
	if err := finite("drive_force", "omega", omega); err != nil {
		return 0, err
	}
	return m.drive.force(omega), nil
}

func (m Model) GravityForce(angleDeg float64) (float64, error) {
	if err := m.valid(); err != nil {
		return 0, err
	}
	if err := rover.ValidateAngle("gravity_force", angleDeg); err != nil {
		return 0, err
	}
	return m.gravity(angleDeg), nil
}

func (m Model) RollingForce(omega, angleDeg, crr float64) (float64, error) {
	if err := m.valid(); err != nil {
		return 0, err
	}
	if err := checkRolling("rolling_force", omega, angleDeg, crr); err != nil {
		return 0, err
	}
	return m.rolling(omega, angleDeg, crr), nil
}

// NetForce is drive + gravity + rolling resistance at one operating point.
func (m Model) NetForce(omega, angleDeg, crr float64) (float64, error) {
	if err := m.valid(); err != nil {
		return 0, err
	}
	if err := checkRolling("net_force", omega, angleDeg, crr); err != nil {
		return 0, err
	}
	return m.net(omega, angleDeg, crr), nil
}

func (m Model) gravity(angleDeg float64) float64 {
	return -m.mass * m.planet.Gravity * math.Sin(deg2rad(angleDeg))
}

func (m Model) rolling(omega, angleDeg, crr float64) float64 {
	normal := m.mass * m.planet.Gravity * math.Cos(deg2rad(angleDeg))
	simple := crr * normal
	s := math.Erf(erfGain * m.drive.speed(omega))
	// Always opposes the assumed forward direction, whatever the sign of s.
	return -math.Abs(s * simple)
}

func (m Model) net(omega, angleDeg, crr float64) float64 {
	return m.drive.force(omega) + m.gravity(angleDeg) + m.rolling(omega, angleDeg, crr)
}

func (m Model) GravityForces(angleDeg ndarray.Array[float64]) (ndarray.Array[float64], error) {
	if err := m.valid(); err != nil {
		return ndarray.Array[float64]{}, err
	}
	return angleDeg.MapErr(m.GravityForce)
}

func (m Model) RollingForces(omega, angleDeg ndarray.Array[float64], crr float64) (ndarray.Array[float64], error) {
	if err := checkPair("rolling_force", omega, angleDeg, crr); err != nil {
		return ndarray.Array[float64]{}, err
	}
	return ndarray.Zip(omega, angleDeg, func(w, a float64) (float64, error) {
		return m.RollingForce(w, a, crr)
	})
}

func (m Model) NetForces(omega, angleDeg ndarray.Array[float64], crr float64) (ndarray.Array[float64], error) {
	if err := checkPair("net_force", omega, angleDeg, crr); err != nil {
		return ndarray.Array[float64]{}, err
	}
	return ndarray.Zip(omega, angleDeg, func(w, a float64) (float64, error) {
		return m.NetForce(w, a, crr)
	})
}

// GravityForce returns the slope component of weight in N. Uphill (positive)
// angles give a negative force.
func GravityForce(angleDeg float64, r rover.Rover, p rover.Planet) (float64, error) {
	m, err := NewModel(r, p)
	if err != nil {
		return 0, err
	}
	return m.GravityForce(angleDeg)
}

// RollingForce returns the rolling resistance in N, never positive.
func RollingForce(omega, angleDeg float64, r rover.Rover, p rover.Planet, crr float64) (float64, error) {
	if err := rover.ValidateCrr("rolling_force", crr); err != nil {
		return 0, err
	}
	m, err := NewModel(r, p)
	if err != nil {
		return 0, err
	}
	return m.RollingForce(omega, angleDeg, crr)
}

func NetForce(omega, angleDeg float64, r rover.Rover, p rover.Planet, crr float64) (float64, error) {
	if err := rover.ValidateCrr("net_force", crr); err != nil {
		return 0, err
	}
	m, err := NewModel(r, p)
	if err != nil {
		return 0, err
	}
	return m.NetForce(omega, angleDeg, crr)
}

func GravityForces(angleDeg ndarray.Array[float64], r rover.Rover, p rover.Planet) (ndarray.Array[float64], error) {
	m, err := NewModel(r, p)
	if err != nil {
		return ndarray.Array[float64]{}, err
	}
	return m.GravityForces(angleDeg)
}

func RollingForces(omega, angleDeg ndarray.Array[float64], r rover.Rover, p rover.Planet, crr float64) (ndarray.Array[float64], error) {
	if err := checkPair("rolling_force", omega, angleDeg, crr); err != nil {
		return ndarray.Array[float64]{}, err
	}
	m, err := NewModel(r, p)
	if err != nil {
		return ndarray.Array[float64]{}, err
	}
	return m.RollingForces(omega, angleDeg, crr)
}

func NetForces(omega, angleDeg ndarray.Array[float64], r rover.Rover, p rover.Planet, crr float64) (ndarray.Array[float64], error) {
	if err := checkPair("net_force", omega, angleDeg, crr); err != nil {
		return ndarray.Array[float64]{}, err
	}
	m, err := NewModel(r, p)
	if err != nil {
		return ndarray.Array[float64]{}, err
	}
	return m.NetForces(omega, angleDeg, crr)
}

func checkRolling(op string, omega, angleDeg, crr float64) error {
	if err := rover.ValidateCrr(op, crr); err != nil {
		return err
	}
	if err := finite(op, "omega", omega); err != nil {
		return err
	}
	return rover.ValidateAngle(op, angleDeg)
}

func checkPair(op string, omega, angleDeg ndarray.Array[float64], crr float64) error {
	if !ndarray.SameShape(omega, angleDeg) {
		return &rover.Error{Op: op, Err: rover.ErrShapeMismatch}
	}
	return rover.ValidateCrr(op, crr)
}

func finite(op, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &rover.Error{Op: op, Field: field, Value: v, Err: rover.ErrNonFinite}
	}
	return nil
}

func deg2rad(deg float64) float64 {
	return deg * math.Pi / 180
}
