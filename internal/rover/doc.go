// Package rover defines the immutable configuration records of a six-wheeled
// rover and the planet it drives on.
//
// Records are built once through validating constructors and then passed by
// value into the physics and solver packages:
//
//   - [Motor]: linear DC motor with stall and no-load limits
//   - [SpeedReducer]: reverted compound gear train
//   - [Wheel], [WheelAssembly]: one drive unit, replicated [WheelCount] times
//   - [Rover]: wheel assembly plus chassis, science payload and power masses
//   - [Planet]: gravitational acceleration
//
// # Errors
//
// Every failure is an [*Error] wrapping one of the package sentinels. Use
// [KindOf], [IsValidation] or [IsDomain] to branch on the category:
//
//	m, err := rover.NewMotor(170, 0, 3.8, 5)
//	if rover.IsDomain(err) {
//	    // physically invalid value
//	}
package rover
