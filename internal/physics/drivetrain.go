package physics

import (
	"github.com/san-kum/roverdyn/internal/ndarray"
	"github.com/san-kum/roverdyn/internal/rover"
)

// GearRatio returns the speed reduction ratio Ng = (gear/pinion)² of a
// reverted two-stage reducer.
func GearRatio(r rover.SpeedReducer) (float64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	k := r.GearDiameter / r.PinionDiameter
	return k * k, nil
}

// DriveForce returns the total tractive force in N of all six wheels at
// motor speed omega.
func DriveForce(omega float64, r rover.Rover) (float64, error) {
	d, err := newDrive(r.WheelAssembly)
	if err != nil {
		return 0, err
	}
	if err := finite("drive_force", "omega", omega); err != nil {
		return 0, err
	}
	return d.force(omega), nil
}

func DriveForces(omega ndarray.Array[float64], r rover.Rover) (ndarray.Array[float64], error) {
	d, err := newDrive(r.WheelAssembly)
	if err != nil {
		return ndarray.Array[float64]{}, err
	}
	return omega.MapErr(func(w float64) (float64, error) {
		if err := finite("drive_force", "omega", w); err != nil {
			return 0, err
		}
		return d.force(w), nil
	})
}

// drive caches the per-assembly constants of the drive train.
type drive struct {
	motor  rover.Motor
	ng     float64
	radius float64
}

func newDrive(wa rover.WheelAssembly) (drive, error) {
	if err := wa.Validate(); err != nil {
		return drive{}, err
	}
	ng, err := GearRatio(wa.Reducer)
	if err != nil {
		return drive{}, err
	}
	return drive{motor: wa.Motor, ng: ng, radius: wa.Wheel.Radius}, nil
}

func (d drive) force(omega float64) float64 {
	return rover.WheelCount * d.ng * motorTorque(omega, d.motor) / d.radius
}

// speed converts motor shaft speed to rover ground speed in m/s.
func (d drive) speed(omega float64) float64 {
	return d.radius * omega / d.ng
}

// ReducerPoint is one sample of the reducer output characteristic.
type ReducerPoint struct {
	MotorSpeed   float64 // rad/s
	OutputSpeed  float64 // rad/s, wheel shaft
	OutputTorque float64 // N·m, wheel shaft
	Power        float64 // W
}

// ReducerCurve samples n points of the speed reducer output over the motor's
// operating range. Torque is multiplied and speed divided by the gear ratio.
func ReducerCurve(wa rover.WheelAssembly, n int) ([]ReducerPoint, error) {
	d, err := newDrive(wa)
	if err != nil {
		return nil, err
	}
	omega, tau, err := sampleMotor(wa.Motor, n)
	if err != nil {
		return nil, err
	}
	speed := omega.Map(func(w float64) float64 { return w / d.ng })
	torque := tau.Scale(d.ng)

	pts := make([]ReducerPoint, omega.Len())
	for i := range pts {
		pts[i] = ReducerPoint{
			MotorSpeed:   omega.At(i),
			OutputSpeed:  speed.At(i),
			OutputTorque: torque.At(i),
			Power:        speed.At(i) * torque.At(i),
		}
	}
	return pts, nil
}
