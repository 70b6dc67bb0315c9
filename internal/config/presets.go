package config

import (
	"sort"
)

// nxnDiameter and nxnRefinement describe the ball-lattice case:
// mesh size he = D/(2^refinement+1) and force range 1.5*he.
const (
	nxnDiameter   = 0.03
	nxnRefinement = 5
)

func nxnForceRange() float64 {
	he := nxnDiameter / float64(int(1)<<nxnRefinement+1)
	return 1.5 * he
}

func nxnBall(rows, cols, layers int, repulsive bool) *Config {
	return &Config{
		Case: "nxn_ball", Integrator: "verlet", Duration: 0.05, FluidDt: 0.001,
		Gravity: Vec{0, -9.81, 0}, MaxSpeed: DefaultMaxSpeed,
		SkipBootstrapAdvance: true,
		Domain:               DomainConfig{Walls: []string{"x-", "x+", "y-"}},
		Particles: ParticleConfig{
			Density: 1.5, Radius: nxnDiameter / 2,
			Lattice: &LatticeConfig{
				Rows: rows, Cols: cols, Layers: layers,
				BetweenBalls: 2.0, ToLeft: 4.5, ToTop: 1.5, ToBack: 1.5,
			},
		},
		Repulsion: RepulsionConfig{
			Enabled: repulsive, Model: "glowinski",
			ForceRange: nxnForceRange(), ParticleStiffness: 1e-5, WallStiffness: 0.5e-5,
		},
		Fluid: FluidConfig{Viscosity: 1.2 * 1.8e-5, Density: 1.2},
	}
}

func twoBall(offset float64, model string) *Config {
	return &Config{
		Case: "two_ball", Integrator: "verlet", Duration: 2.0, FluidDt: 0.001,
		Gravity: Vec{0, -9.81, 0}, MaxSpeed: DefaultMaxSpeed,
		Domain: DomainConfig{Min: Vec{0, 0, 0}, Max: Vec{1, 2, 1}},
		Particles: ParticleConfig{
			Density: 1.5, Radius: 0.05,
			Centers: []Vec{{0.5, 1.6, 0.5}, {0.5 + offset, 1.4, 0.5}},
		},
		Repulsion: RepulsionConfig{
			Enabled: true, Model: model,
			ForceRange: 0.015, ParticleStiffness: 1e-5, WallStiffness: 0.5e-5,
		},
		Fluid: FluidConfig{Viscosity: 0.01, Density: 1.0},
	}
}

func settling(density float64) *Config {
	cfg := DefaultConfig()
	cfg.Duration = 1.0
	cfg.Particles.Density = density
	return cfg
}

var Presets = map[string]map[string]*Config{
	"two_ball": {
		"dkt":     twoBall(0.001, "glowinski"),
		"aligned": twoBall(0, "glowinski"),
		"linear":  twoBall(0.001, "linear"),
	},
	"nxn_ball": {
		"default":   nxnBall(10, 10, 2, false),
		"repulsive": nxnBall(10, 10, 2, true),
		"small":     nxnBall(3, 3, 1, true),
	},
	"settling": {
		"stokes": settling(1.5),
		"heavy":  settling(3.0),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(caseName, preset string) *Config {
	casePresets, ok := Presets[caseName]
	if !ok {
		return nil
	}
	cfg, ok := casePresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListCases() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListPresets(caseName string) []string {
	casePresets, ok := Presets[caseName]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(casePresets))
	for name := range casePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
