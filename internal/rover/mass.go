package rover

// MassBreakdown lists each contribution to the total rover mass in kg.
type MassBreakdown struct {
	Chassis        float64
	SciencePayload float64
	PowerSubsystem float64
	Motor          float64
	Reducer        float64
	Wheel          float64
	WheelAssembly  float64 // one unit
	Wheels         int
	Total          float64
}

// TotalMass sums the rover mass, counting the wheel assembly once per
// physical drive unit.
func TotalMass(r Rover) (float64, error) {
	b, err := Breakdown(r)
	if err != nil {
		return 0, err
	}
	return b.Total, nil
}

func Breakdown(r Rover) (MassBreakdown, error) {
	if err := r.Validate(); err != nil {
		return MassBreakdown{}, err
	}
	wa := r.WheelAssembly
	unit := wa.Motor.Mass + wa.Reducer.Mass + wa.Wheel.Mass
	return MassBreakdown{
		Chassis:        r.ChassisMass,
		SciencePayload: r.SciencePayloadMass,
		PowerSubsystem: r.PowerSubsystemMass,
		Motor:          wa.Motor.Mass,
		Reducer:        wa.Reducer.Mass,
		Wheel:          wa.Wheel.Mass,
		WheelAssembly:  unit,
		Wheels:         WheelCount,
		Total:          r.ChassisMass + r.SciencePayloadMass + r.PowerSubsystemMass + WheelCount*unit,
	}, nil
}
