package physics

import (
	"github.com/san-kum/roverdyn/internal/ndarray"
	"github.com/san-kum/roverdyn/internal/rover"
)

// MotorTorque returns the shaft torque in N·m at shaft speed omega (rad/s).
//
// Below zero speed the motor holds stall torque, above no-load speed it
// produces nothing, and in between torque falls linearly from stall to no-load.
func MotorTorque(omega float64, m rover.Motor) (float64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	if err := finite("motor_torque", "omega", omega); err != nil {
		return 0, err
	}
	return motorTorque(omega, m), nil
}

func MotorTorques(omega ndarray.Array[float64], m rover.Motor) (ndarray.Array[float64], error) {
	if err := m.Validate(); err != nil {
		return ndarray.Array[float64]{}, err
	}
	return omega.MapErr(func(w float64) (float64, error) {
		if err := finite("motor_torque", "omega", w); err != nil {
			return 0, err
		}
		return motorTorque(w, m), nil
	})
}

func motorTorque(omega float64, m rover.Motor) float64 {
	switch {
	case omega < 0:
		return m.StallTorque
	case omega > m.NoLoadSpeed:
		return 0
	case omega == m.NoLoadSpeed:
		return m.NoLoadTorque
	default:
		return m.StallTorque - (m.StallTorque-m.NoLoadTorque)*(omega/m.NoLoadSpeed)
	}
}

// MotorPower returns mechanical shaft power in W.
func MotorPower(omega float64, m rover.Motor) (float64, error) {
	tau, err := MotorTorque(omega, m)
	if err != nil {
		return 0, err
	}
	return tau * omega, nil
}

// CurvePoint is one sample of a torque-speed characteristic.
type CurvePoint struct {
	Omega  float64 // rad/s
	Torque float64 // N·m
	Power  float64 // W
}

// MotorCurve samples n points of the motor characteristic over [0, NoLoadSpeed].
func MotorCurve(m rover.Motor, n int) ([]CurvePoint, error) {
	omega, tau, err := sampleMotor(m, n)
	if err != nil {
		return nil, err
	}
	power, err := ndarray.Zip(omega, tau, func(w, t float64) (float64, error) { return w * t, nil })
	if err != nil {
		return nil, err
	}
	pts := make([]CurvePoint, omega.Len())
	for i := range pts {
		pts[i] = CurvePoint{Omega: omega.At(i), Torque: tau.At(i), Power: power.At(i)}
	}
	return pts, nil
}

// sampleMotor evaluates the torque curve at n evenly spaced speeds ending
// exactly at no-load speed.
func sampleMotor(m rover.Motor, n int) (omega, tau ndarray.Array[float64], err error) {
	if err := m.Validate(); err != nil {
		return omega, tau, err
	}
	n = max(n, 2)
	speeds := make([]float64, n)
	step := m.NoLoadSpeed / float64(n-1)
	for i := range speeds {
		speeds[i] = float64(i) * step
	}
	speeds[n-1] = m.NoLoadSpeed

	omega = ndarray.FromSlice(speeds)
	tau, err = MotorTorques(omega, m)
	return omega, tau, err
}
