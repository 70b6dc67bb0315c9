package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/ibmcouple/internal/coupling"
	"github.com/san-kum/ibmcouple/internal/dynamo"
	"github.com/san-kum/ibmcouple/internal/geom"
	"github.com/san-kum/ibmcouple/internal/particle"
	"github.com/san-kum/ibmcouple/internal/repulsion"
)

const (
	DefaultFluidDt   = 0.001
	DefaultDuration  = 0.05
	DefaultDensity   = 1.5
	DefaultRadius    = 0.05
	DefaultMaxSpeed  = 100.0
	DefaultViscosity = 0.01
	// DefaultSubSteps is the ratio of fluid dt to rigid-body sub-step.
	DefaultSubSteps = 100
)

// Vec is a vector written as a three-element list in config files.
type Vec [3]float64

func (v Vec) R3() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func FromR3(v r3.Vec) Vec { return Vec{v.X, v.Y, v.Z} }

type Config struct {
	Case       string  `yaml:"case" toml:"case"`
	Integrator string  `yaml:"integrator" toml:"integrator"`
	Duration   float64 `yaml:"duration" toml:"duration"`
	FluidDt    float64 `yaml:"fluid_dt" toml:"fluid_dt"`
	// SubDt defaults to FluidDt/DefaultSubSteps; InitialDt to FluidDt/2.
	SubDt     float64 `yaml:"sub_dt,omitempty" toml:"sub_dt,omitempty"`
	InitialDt float64 `yaml:"initial_dt,omitempty" toml:"initial_dt,omitempty"`
	Gravity   Vec     `yaml:"gravity" toml:"gravity"`
	MaxSpeed  float64 `yaml:"max_speed" toml:"max_speed"`

	SkipBootstrapAdvance bool `yaml:"skip_bootstrap_advance,omitempty" toml:"skip_bootstrap_advance,omitempty"`

	Domain    DomainConfig    `yaml:"domain" toml:"domain"`
	Particles ParticleConfig  `yaml:"particles" toml:"particles"`
	Repulsion RepulsionConfig `yaml:"repulsion" toml:"repulsion"`
	Fluid     FluidConfig     `yaml:"fluid" toml:"fluid"`
	Boundary  BoundaryConfig  `yaml:"boundary" toml:"boundary"`
}

// DomainConfig bounds the container. A zero box is derived from the
// particle lattice.
type DomainConfig struct {
	Min   Vec      `yaml:"min" toml:"min"`
	Max   Vec      `yaml:"max" toml:"max"`
	Walls []string `yaml:"walls,omitempty" toml:"walls,omitempty"`
}

type ParticleConfig struct {
	Density float64 `yaml:"density" toml:"density"`
	Radius  float64 `yaml:"radius" toml:"radius"`
	// Radii overrides Radius per particle when set.
	Radii   []float64      `yaml:"radii,omitempty" toml:"radii,omitempty"`
	Centers []Vec          `yaml:"centers,omitempty" toml:"centers,omitempty"`
	Lattice *LatticeConfig `yaml:"lattice,omitempty" toml:"lattice,omitempty"`
}

// LatticeConfig lays out rows x cols x layers balls. Distances are in
// particle diameters.
type LatticeConfig struct {
	Rows         int     `yaml:"rows" toml:"rows"`
	Cols         int     `yaml:"cols" toml:"cols"`
	Layers       int     `yaml:"layers" toml:"layers"`
	BetweenBalls float64 `yaml:"between_balls" toml:"between_balls"`
	ToLeft       float64 `yaml:"to_left" toml:"to_left"`
	ToTop        float64 `yaml:"to_top" toml:"to_top"`
	ToBack       float64 `yaml:"to_back" toml:"to_back"`
}

type RepulsionConfig struct {
	Enabled           bool    `yaml:"enabled" toml:"enabled"`
	Model             string  `yaml:"model" toml:"model"`
	ForceRange        float64 `yaml:"force_range" toml:"force_range"`
	ParticleStiffness float64 `yaml:"particle_stiffness" toml:"particle_stiffness"`
	WallStiffness     float64 `yaml:"wall_stiffness" toml:"wall_stiffness"`
}

func (r RepulsionConfig) Params() repulsion.Params {
	return repulsion.Params{
		ForceRange:        r.ForceRange,
		ParticleStiffness: r.ParticleStiffness,
		WallStiffness:     r.WallStiffness,
	}
}

type FluidConfig struct {
	Viscosity        float64 `yaml:"viscosity" toml:"viscosity"`
	Density          float64 `yaml:"density" toml:"density"`
	QuadraturePoints int     `yaml:"quadrature_points,omitempty" toml:"quadrature_points,omitempty"`
}

// BoundaryConfig tunes implicit boundary queries. A zero Band answers
// every query with the nearest particle.
type BoundaryConfig struct {
	Band float64 `yaml:"band,omitempty" toml:"band,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Case:       "settling",
		Integrator: "verlet",
		Duration:   DefaultDuration,
		FluidDt:    DefaultFluidDt,
		Gravity:    Vec{0, -9.81, 0},
		MaxSpeed:   DefaultMaxSpeed,
		Domain:     DomainConfig{Min: Vec{0, 0, 0}, Max: Vec{1, 1, 1}},
		Particles: ParticleConfig{
			Density: DefaultDensity,
			Radius:  DefaultRadius,
			Centers: []Vec{{0.5, 0.8, 0.5}},
		},
		Repulsion: RepulsionConfig{
			Model:             "glowinski",
			ForceRange:        0.015,
			ParticleStiffness: 1e-5,
			WallStiffness:     0.5e-5,
		},
		Fluid: FluidConfig{Viscosity: DefaultViscosity, Density: 1.0},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a yaml or toml file, chosen by extension, over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	// Lists replace rather than merge.
	cfg.Particles.Centers = nil
	cfg.Domain.Walls = nil

	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if isTOML(path) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Domain.Walls = append([]string(nil), c.Domain.Walls...)
	out.Particles.Radii = append([]float64(nil), c.Particles.Radii...)
	out.Particles.Centers = append([]Vec(nil), c.Particles.Centers...)
	if c.Particles.Lattice != nil {
		l := *c.Particles.Lattice
		out.Particles.Lattice = &l
	}
	return &out
}

func (c *Config) SubStep() float64 {
	if c.SubDt > 0 {
		return c.SubDt
	}
	return c.FluidDt / DefaultSubSteps
}

func (c *Config) BootstrapDt() float64 {
	if c.InitialDt > 0 {
		return c.InitialDt
	}
	return 0.5 * c.FluidDt
}

// Steps is the number of fluid steps covering Duration.
func (c *Config) Steps() int {
	return int(math.Round(c.Duration / c.FluidDt))
}

func (c *Config) Validate() error {
	if !(c.FluidDt > 0) {
		return dynamo.Configf("fluid_dt must be positive, got %g", c.FluidDt)
	}
	if !(c.Duration > 0) {
		return dynamo.Configf("duration must be positive, got %g", c.Duration)
	}
	if c.SubDt < 0 || c.InitialDt < 0 {
		return dynamo.Configf("sub_dt and initial_dt must not be negative")
	}
	if !(c.Particles.Density > 0) {
		return dynamo.Configf("particle density must be positive, got %g", c.Particles.Density)
	}
	if !(c.Boundary.Band >= 0) || math.IsInf(c.Boundary.Band, 0) {
		return dynamo.Configf("boundary band must be finite and not negative, got %g", c.Boundary.Band)
	}
	if !(c.Fluid.Viscosity > 0) {
		return dynamo.Configf("fluid viscosity must be positive, got %g", c.Fluid.Viscosity)
	}
	if c.Repulsion.Enabled {
		if err := c.Repulsion.Params().Validate(); err != nil {
			return err
		}
	}

	centers, radii, err := c.Layout()
	if err != nil {
		return err
	}
	box, err := c.Box()
	if err != nil {
		return err
	}
	for i, p := range centers {
		if !box.Contains(p) {
			return dynamo.Configf("particle %d at %v lies outside %s", i, p, box)
		}
		if radii[i] <= 0 {
			return dynamo.Configf("particle %d radius must be positive, got %g", i, radii[i])
		}
	}
	return nil
}

// Layout returns the initial centres and radii.
func (c *Config) Layout() ([]r3.Vec, []float64, error) {
	pc := c.Particles
	var centers []r3.Vec
	switch {
	case len(pc.Centers) > 0 && pc.Lattice != nil:
		return nil, nil, dynamo.Configf("particles: set either centers or lattice, not both")
	case len(pc.Centers) > 0:
		for _, v := range pc.Centers {
			centers = append(centers, v.R3())
		}
	case pc.Lattice != nil:
		var err error
		if centers, err = pc.Lattice.Centers(2*pc.Radius); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, dynamo.Configf("particles: no centers or lattice given")
	}

	radii := make([]float64, len(centers))
	switch {
	case len(pc.Radii) == 0:
		for i := range radii {
			radii[i] = pc.Radius
		}
	case len(pc.Radii) == len(centers):
		copy(radii, pc.Radii)
	default:
		return nil, nil, dynamo.Configf("particles: %d radii for %d centers", len(pc.Radii), len(centers))
	}
	return centers, radii, nil
}

// Extent is the container size the lattice was laid out for.
func (l *LatticeConfig) Extent(d float64) r3.Vec {
	return r3.Vec{
		X: 2*l.ToLeft*d + float64(l.Cols-1)*l.BetweenBalls*d,
		Y: 2*l.ToTop*d + float64(l.Rows-1)*l.BetweenBalls*d,
		Z: 2*l.ToBack*d + float64(l.Layers-1)*l.BetweenBalls*d,
	}
}

// Centers places row 0 at the top of the container.
func (l *LatticeConfig) Centers(d float64) ([]r3.Vec, error) {
	if l.Rows <= 0 || l.Cols <= 0 || l.Layers <= 0 {
		return nil, dynamo.Configf("lattice needs positive rows, cols and layers")
	}
	if !(d > 0) {
		return nil, dynamo.Configf("lattice needs a positive radius")
	}
	top := l.Extent(d).Y
	centers := make([]r3.Vec, 0, l.Rows*l.Cols*l.Layers)
	for layer := 0; layer < l.Layers; layer++ {
		for row := 0; row < l.Rows; row++ {
			for col := 0; col < l.Cols; col++ {
				centers = append(centers, r3.Vec{
					X: l.ToLeft*d + l.BetweenBalls*d*float64(col),
					Y: top - l.ToTop*d - l.BetweenBalls*d*float64(row),
					Z: l.ToBack*d + l.BetweenBalls*d*float64(layer),
				})
			}
		}
	}
	return centers, nil
}

// Box returns the container, deriving it from the lattice when the domain
// is left empty.
func (c *Config) Box() (geom.Box, error) {
	lo, hi := c.Domain.Min.R3(), c.Domain.Max.R3()
	if lo == hi && c.Particles.Lattice != nil {
		lo, hi = r3.Vec{}, c.Particles.Lattice.Extent(2*c.Particles.Radius)
	}
	box := geom.NewBox(lo, hi)
	if err := box.Validate(); err != nil {
		return geom.Box{}, err
	}
	return box, nil
}

func (c *Config) Walls() ([]geom.Wall, error) {
	box, err := c.Box()
	if err != nil {
		return nil, err
	}
	return box.Walls(c.Domain.Walls...)
}

func (c *Config) Registry() (*particle.Registry, error) {
	centers, radii, err := c.Layout()
	if err != nil {
		return nil, err
	}
	return particle.New(len(centers), centers, radii, c.Particles.Density)
}

// CouplingContext builds the driver context. Walls are only attached when
// repulsion is enabled.
func (c *Config) CouplingContext() (coupling.Context, error) {
	ctx := coupling.Context{
		SubDt:                c.SubStep(),
		InitialDt:            c.BootstrapDt(),
		FluidDt:              c.FluidDt,
		Gravity:              c.Gravity.R3(),
		RepulsionEnabled:     c.Repulsion.Enabled,
		Repulsion:            c.Repulsion.Params(),
		SkipBootstrapAdvance: c.SkipBootstrapAdvance,
	}
	if c.Repulsion.Enabled {
		walls, err := c.Walls()
		if err != nil {
			return coupling.Context{}, err
		}
		ctx.Walls = walls
	}
	return ctx, nil
}
