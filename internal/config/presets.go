package config

import (
	"slices"

	"github.com/samber/lo"
)

// Presets build fresh configs so callers may mutate the result.
var Presets = map[string]func() *Config{
	"mars-baseline": DefaultConfig,
	"mars-heavy": func() *Config {
		cfg := DefaultConfig()
		cfg.Rover.SciencePayload.Mass = ptr(250)
		cfg.Rover.PowerSubsys.Mass = ptr(140)
		cfg.Sweep.FixedCrr = 0.2
		return cfg
	},
	"lunar": func() *Config {
		cfg := DefaultConfig()
		cfg.Planet = PlanetConfig{Name: "moon", G: 1.62}
		cfg.Sweep.Slope = RangeConfig{Start: -25, End: 45, Points: DefaultPoints}
		cfg.Sweep.FixedCrr = 0.1
		return cfg
	},
}

func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := lo.Keys(Presets)
	slices.Sort(names)
	return names
}
