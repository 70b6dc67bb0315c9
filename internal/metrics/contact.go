package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/coupling"
	"github.com/san-kum/ibmcouple/internal/geom"
)

// MinGap is the smallest surface-to-surface gap seen over a run, between
// particle pairs and against the configured walls. Negative values mean
// overlap.
type MinGap struct {
	name  string
	walls []geom.Wall
	min   float64
}

func NewMinGap(walls []geom.Wall) *MinGap {
	return &MinGap{name: "min_gap", walls: walls, min: math.Inf(1)}
}

func (g *MinGap) Name() string { return g.name }

func (g *MinGap) Observe(r *coupling.StepReport) {
	ps := r.Particles
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			gap := r3.Norm(r3.Sub(ps[i].Center, ps[j].Center)) - ps[i].Radius - ps[j].Radius
			g.min = math.Min(g.min, gap)
		}
		for _, w := range g.walls {
			g.min = math.Min(g.min, w.Distance(ps[i].Center)-ps[i].Radius)
		}
	}
}

// Value is +Inf until a gap has been observed.
func (g *MinGap) Value() float64 { return g.min }

func (g *MinGap) Reset() { g.min = math.Inf(1) }

// MaxSpeed is the largest particle speed observed, counting the surface
// speed |w|*r of spinning particles.
type MaxSpeed struct {
	name string
	max  float64
}

func NewMaxSpeed() *MaxSpeed {
	return &MaxSpeed{name: "max_speed"}
}

func (s *MaxSpeed) Name() string { return s.name }

func (s *MaxSpeed) Observe(r *coupling.StepReport) {
	for _, p := range r.Particles {
		s.max = math.Max(s.max, r3.Norm(p.LinearVelocity))
		s.max = math.Max(s.max, r3.Norm(p.AngularVelocity)*p.Radius)
	}
}

func (s *MaxSpeed) Value() float64 { return s.max }

func (s *MaxSpeed) Reset() { s.max = 0 }

// All returns the standard metric set.
func All(walls []geom.Wall) []coupling.Metric {
	return []coupling.Metric{
		NewKineticEnergy(),
		NewEnergyDrift(),
		NewLoadEffort(),
		NewMinGap(walls),
		NewMaxSpeed(),
	}
}
