// Package physics implements the quasi-static longitudinal force model of a
// six-wheeled rover.
//
// The chain runs from a single motor to the whole vehicle:
//
//   - [MotorTorque]: piecewise linear DC motor torque-speed curve
//   - [GearRatio], [DriveForce]: reverted reducer and wheel, times six
//   - [GravityForce]: slope component of weight
//   - [RollingForce]: erf-smoothed rolling resistance
//   - [NetForce]: the sum the terminal speed solver drives to zero
//
// Every operation has a scalar kernel and an array form (suffix "s") that
// broadcasts the kernel over an [ndarray.Array] and returns the same shape.
//
// # Model
//
// The free functions validate their inputs on every call. For repeated
// evaluation, compile a [Model] once; it caches mass and gear ratio and is a
// plain value, safe to copy into concurrent workers:
//
//	m, err := physics.NewModel(r, mars)
//	f, err := m.NetForce(omega, slopeDeg, crr)
//
// # Sign convention
//
// Positive force points in the assumed forward direction of travel. Rolling
// resistance is always reported as non-positive, even for negative motor
// speeds; the model only evaluates forward motion.
package physics
