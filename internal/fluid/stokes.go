// Package fluid provides a quiescent Stokes-flow surrogate for the fluid
// solver. It integrates the no-slip surface velocity exposed by the
// implicit boundary field and returns drag, torque and buoyancy per
// particle, which is enough to drive the coupling loop without a mesh.
package fluid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/boundary"
	"github.com/san-kum/ibmcouple/internal/coupling"
	"github.com/san-kum/ibmcouple/internal/dynamo"
)

const DefaultQuadraturePoints = 256

// Stokes computes loads on each particle from the surface velocity field.
type Stokes struct {
	field *boundary.Field

	Viscosity    float64
	FluidDensity float64
	Gravity      r3.Vec
	Points       int

	unit   []r3.Vec
	force  []r3.Vec
	moment []r3.Vec
	info   coupling.StepInfo
	done   bool
}

func NewStokes(field *boundary.Field, viscosity, fluidDensity float64, gravity r3.Vec) (*Stokes, error) {
	if field == nil {
		return nil, dynamo.Configf("stokes surrogate needs a boundary field")
	}
	if viscosity <= 0 || math.IsNaN(viscosity) {
		return nil, dynamo.Configf("viscosity must be positive, got %g", viscosity)
	}
	if fluidDensity < 0 {
		return nil, dynamo.Configf("fluid density must not be negative, got %g", fluidDensity)
	}
	return &Stokes{
		field:        field,
		Viscosity:    viscosity,
		FluidDensity: fluidDensity,
		Gravity:      gravity,
		Points:       DefaultQuadraturePoints,
	}, nil
}

// FibonacciSphere returns n nearly uniform unit vectors.
func FibonacciSphere(n int) []r3.Vec {
	pts := make([]r3.Vec, n)
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := range pts {
		z := 1 - (2*float64(i)+1)/float64(n)
		rho := math.Sqrt(1 - z*z)
		phi := golden * float64(i)
		pts[i] = r3.Vec{X: rho * math.Cos(phi), Y: rho * math.Sin(phi), Z: z}
	}
	return pts
}

// Advance recomputes every load from the field's current snapshot and
// marks a fluid step of length dt as complete.
func (s *Stokes) Advance(dt float64) error {
	if dt <= 0 {
		return dynamo.Configf("fluid dt must be positive, got %g", dt)
	}
	if len(s.unit) != s.Points {
		s.unit = FibonacciSphere(s.Points)
	}

	v := s.field.View()
	n := v.Len()
	force := make([]r3.Vec, n)
	moment := make([]r3.Vec, n)
	errs := make([]error, n)

	dynamo.ParallelFor(n, 8, func(start, end int) {
		for i := start; i < end; i++ {
			force[i], moment[i], errs[i] = s.load(i, v.Center(i), v.Radius(i))
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	s.force, s.moment = force, moment
	s.info = coupling.StepInfo{Dt: dt, ModelTime: s.info.ModelTime + dt}
	s.done = true
	return nil
}

func (s *Stokes) load(id int, c r3.Vec, r float64) (r3.Vec, r3.Vec, error) {
	var mean, swirl r3.Vec
	for _, u := range s.unit {
		arm := r3.Scale(r, u)
		vs, err := s.field.SurfaceVelocity(r3.Add(c, arm), id)
		if err != nil {
			return r3.Vec{}, r3.Vec{}, fmt.Errorf("particle %d: %w", id, err)
		}
		mean = r3.Add(mean, vs)
		swirl = r3.Add(swirl, r3.Cross(arm, vs))
	}
	inv := 1 / float64(len(s.unit))
	mean = r3.Scale(inv, mean)
	swirl = r3.Scale(inv, swirl)

	mu := s.Viscosity
	drag := r3.Scale(-6*math.Pi*mu*r, mean)
	buoyancy := r3.Scale(-s.FluidDensity*4.0/3.0*math.Pi*r*r*r, s.Gravity)
	omega := r3.Scale(3/(2*r*r), swirl)
	torque := r3.Scale(-8*math.Pi*mu*r*r*r, omega)
	return r3.Add(drag, buoyancy), torque, nil
}

// NetForceAndMoment returns the loads from the last Advance. Before the
// first Advance every load is zero.
func (s *Stokes) NetForceAndMoment(id int) (r3.Vec, r3.Vec, error) {
	n := s.field.View().Len()
	if err := dynamo.CheckIndex(id, n); err != nil {
		return r3.Vec{}, r3.Vec{}, err
	}
	if id >= len(s.force) {
		return r3.Vec{}, r3.Vec{}, nil
	}
	return s.force[id], s.moment[id], nil
}

func (s *Stokes) LastStep() (coupling.StepInfo, bool) {
	return s.info, s.done
}

// TerminalVelocity is the Stokes settling speed of a sphere.
func TerminalVelocity(radius, density, fluidDensity, viscosity, g float64) float64 {
	return 2.0 / 9.0 * (density - fluidDensity) * g * radius * radius / viscosity
}
