package repulsion

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/dynamo"
	"github.com/san-kum/ibmcouple/internal/geom"
	"github.com/san-kum/ibmcouple/internal/particle"
)

// minSeparation is the centre distance below which a pair has no direction.
const minSeparation = 1e-14

// Params are the global repulsion parameters.
type Params struct {
	ForceRange        float64 `yaml:"force_range" toml:"force_range"`
	ParticleStiffness float64 `yaml:"particle_stiffness" toml:"particle_stiffness"`
	WallStiffness     float64 `yaml:"wall_stiffness" toml:"wall_stiffness"`
}

func (p Params) Validate() error {
	if !(p.ForceRange > 0) || math.IsInf(p.ForceRange, 0) {
		return dynamo.Configf("force range must be positive, got %g", p.ForceRange)
	}
	if !(p.ParticleStiffness > 0) {
		return dynamo.Configf("particle stiffness must be positive, got %g", p.ParticleStiffness)
	}
	if !(p.WallStiffness > 0) {
		return dynamo.Configf("wall stiffness must be positive, got %g", p.WallStiffness)
	}
	return nil
}

// Model computes one repulsive force per particle, index-aligned with ps.
type Model interface {
	Name() string
	Compute(ps []particle.Particle, walls []geom.Wall, p Params) ([]r3.Vec, error)
}

// Law is a gap penalty applied pairwise and against walls.
type Law struct {
	name string
	// magnitude maps a positive penetration into the force range to a force.
	magnitude   func(penetration, stiffness float64) float64
	mirrorWalls bool
}

// Glowinski is the penalty of Glowinski et al. (2001), eqs. (19) and (20).
// Stiffness values are the epsilon parameters, so smaller is stiffer.
func Glowinski() *Law {
	return &Law{
		name: "glowinski",
		magnitude: func(pen, eps float64) float64 {
			return pen * pen / eps
		},
		mirrorWalls: true,
	}
}

// Linear is a spring penalty; stiffness values are spring constants.
func Linear() *Law {
	return &Law{
		name: "linear",
		magnitude: func(pen, k float64) float64 {
			return k * pen
		},
	}
}

func (l *Law) Name() string { return l.name }

// Pair returns the force on a exerted by b. The force on b is its negation.
func (l *Law) Pair(a, b particle.Particle, p Params) (r3.Vec, error) {
	d := r3.Sub(a.Center, b.Center)
	dist := r3.Norm(d)
	if dist < minSeparation {
		return r3.Vec{}, fmt.Errorf("particles %d and %d share a center: %w", a.ID, b.ID, dynamo.ErrDegenerateGeometry)
	}

	gap := dist - (a.Radius + b.Radius)
	if gap >= p.ForceRange {
		return r3.Vec{}, nil
	}
	return r3.Scale(l.magnitude(p.ForceRange-gap, p.ParticleStiffness)/dist, d), nil
}

// Wall returns the force on a exerted by w, along the wall's inward normal.
func (l *Law) Wall(a particle.Particle, w geom.Wall, p Params) r3.Vec {
	gap := w.Distance(a.Center) - a.Radius
	if l.mirrorWalls {
		gap *= 2
	}
	if gap >= p.ForceRange {
		return r3.Vec{}
	}
	return r3.Scale(l.magnitude(p.ForceRange-gap, p.WallStiffness), w.Normal)
}

// Compute sums pair and wall forces. Pairs are visited in (i, j), i < j
// order so the result is deterministic.
func (l *Law) Compute(ps []particle.Particle, walls []geom.Wall, p Params) ([]r3.Vec, error) {
	forces := make([]r3.Vec, len(ps))

	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			f, err := l.Pair(ps[i], ps[j], p)
			if err != nil {
				return nil, err
			}
			forces[i] = r3.Add(forces[i], f)
			forces[j] = r3.Sub(forces[j], f)
		}

		for _, w := range walls {
			forces[i] = r3.Add(forces[i], l.Wall(ps[i], w, p))
		}
	}

	return forces, nil
}

var models = map[string]func() Model{
	"glowinski": func() Model { return Glowinski() },
	"linear":    func() Model { return Linear() },
}

// New returns the model called name. "none" and "" return a nil model,
// which the coupling driver treats as disabled.
func New(name string) (Model, error) {
	if name == "" || name == "none" {
		return nil, nil
	}
	fn, ok := models[name]
	if !ok {
		return nil, dynamo.Configf("unknown repulsion model: %s (available: %v)", name, List())
	}
	return fn(), nil
}

// List returns the selectable model names.
func List() []string {
	names := make([]string, 0, len(models)+1)
	for name := range models {
		names = append(names, name)
	}
	names = append(names, "none")
	sort.Strings(names)
	return names
}
