package model

import "github.com/samber/lo"

// VType holds the tunable parameters of a vehicle type, mirroring the
// <vType> attributes of the traffic-specification format. Every field is
// optional on load; ApplyDefaults fills in the documented defaults and
// clamps out-of-range values, recording a Warning for each clamp.
type VType struct {
	ID             string
	VClass         string
	MinGap         float64
	SpeedFactor    float64
	SpeedDev       float64
	MaxSpeed       float64
	Accel          float64
	Decel          float64
	EmergencyDecel float64
	Tau            float64
	LCAssertive    float64
	LCCutinProb    float64
}

// DefaultVType returns the zero-valued-field defaults a <vType> falls back
// to.
func DefaultVType() VType {
	return VType{
		MinGap:         2.5,
		SpeedFactor:    1.0,
		SpeedDev:       0.1,
		MaxSpeed:       55.5,
		Accel:          2.6,
		Decel:          4.5,
		EmergencyDecel: 4.5,
		Tau:            1.0,
		LCAssertive:    1.0,
		LCCutinProb:    0.0,
	}
}

// ApplyDefaults fills any zero-valued numeric field of v with the matching
// field of DefaultVType(), then clamps lcAssertive/lcCutinProb into their
// valid ranges, returning the list of warnings produced by clamping.
func ApplyDefaults(v VType) (VType, []Warning) {
	d := DefaultVType()
	var warnings []Warning

	fields := []struct {
		cur *float64
		def float64
	}{
		{&v.MinGap, d.MinGap},
		{&v.SpeedFactor, d.SpeedFactor},
		{&v.SpeedDev, d.SpeedDev},
		{&v.MaxSpeed, d.MaxSpeed},
		{&v.Accel, d.Accel},
		{&v.Decel, d.Decel},
		{&v.EmergencyDecel, d.EmergencyDecel},
		{&v.Tau, d.Tau},
		{&v.LCAssertive, d.LCAssertive},
	}
	for _, f := range fields {
		*f.cur = lo.Ternary(*f.cur == 0, f.def, *f.cur)
	}

	if v.LCAssertive <= 0 {
		warnings = append(warnings, Warning{
			Field: "lcAssertive", Value: v.LCAssertive, Message: "non-positive aggressiveness clamped to 1",
		})
		v.LCAssertive = 1
	}
	if v.LCCutinProb < 0 || v.LCCutinProb > 1 {
		warnings = append(warnings, Warning{
			Field: "lcCutinProb", Value: v.LCCutinProb, Message: "cut-in probability out of [0,1] clamped to 0",
		})
		v.LCCutinProb = 0
	}

	return v, warnings
}
