// Package boundary exposes the particles to the fluid solver as an implicit
// boundary: a signed distance field (positive outside, negative inside) plus
// the rigid-body surface velocity used for no-slip enforcement.
package boundary

import (
	"fmt"
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/dynamo"
	"github.com/san-kum/ibmcouple/internal/particle"
)

// DefaultMinDistance is the centre-distance below which a query is treated
// as sitting on a particle centre.
const DefaultMinDistance = 1e-12

// Sample is the result of a field query.
type Sample struct {
	// Particle is the nearest particle, or -1 when the point is outside all
	// particles' bands.
	Particle int
	Distance float64
	// Normal is the outward unit normal of the nearest surface. It is zero
	// for degenerate queries.
	Normal r3.Vec
}

func (s Sample) Inside() bool { return s.Particle >= 0 && s.Distance < 0 }

// DegenerateError reports a query point on top of a particle centre.
type DegenerateError struct {
	Particle int
	Point    r3.Vec
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("query point %v coincides with center of particle %d", e.Point, e.Particle)
}

func (e *DegenerateError) Unwrap() error { return dynamo.ErrDegenerateGeometry }

// Field answers signed distance and surface velocity queries against the
// most recently published registry state.
type Field struct {
	reg  *particle.Registry
	view atomic.Pointer[particle.View]

	// Band limits queries to a narrow band around the particles; points
	// farther than Band from every surface come back with Particle == -1.
	// Zero disables the band.
	Band float64
	// MinDistance guards the division in the normal computation.
	MinDistance float64
}

// New binds a field to reg and captures its current state.
func New(reg *particle.Registry) *Field {
	f := &Field{reg: reg, MinDistance: DefaultMinDistance}
	f.Refresh()
	return f
}

// Refresh re-reads the registry. The coupling driver calls it after
// publishing new kinematics; readers in flight keep the view they loaded.
func (f *Field) Refresh() {
	f.view.Store(f.reg.View())
}

// View returns the snapshot the field currently answers from.
func (f *Field) View() *particle.View {
	return f.view.Load()
}

// Query returns the signed distance and outward normal of the particle
// surface nearest to x. t is the fluid model time of the query; particle
// state is held constant over a fluid step.
func (f *Field) Query(x r3.Vec, t float64) (Sample, error) {
	return f.query(f.view.Load(), x)
}

func (f *Field) query(v *particle.View, x r3.Vec) (Sample, error) {
	best := Sample{Particle: -1, Distance: math.Inf(1)}
	bestDist := math.Inf(1)

	for i := 0; i < v.Len(); i++ {
		arm := r3.Sub(x, v.Center(i))
		dist := r3.Norm(arm)
		sd := dist - v.Radius(i)
		if sd < best.Distance {
			best.Particle = i
			best.Distance = sd
			bestDist = dist
		}
	}

	if best.Particle < 0 {
		return best, nil
	}

	minDist := f.MinDistance
	if minDist <= 0 {
		minDist = DefaultMinDistance
	}
	if bestDist < minDist {
		best.Distance = -v.Radius(best.Particle)
		return best, &DegenerateError{Particle: best.Particle, Point: x}
	}

	if f.Band > 0 && best.Distance > f.Band {
		return Sample{Particle: -1, Distance: math.Inf(1)}, nil
	}

	best.Normal = r3.Scale(1/bestDist, r3.Sub(x, v.Center(best.Particle)))
	return best, nil
}

// QueryBatch evaluates many points in parallel. Every partition reads the
// same snapshot. The returned error is the one for the lowest failing index;
// samples for degenerate points are still filled in.
func (f *Field) QueryBatch(points []r3.Vec, t float64) ([]Sample, error) {
	v := f.view.Load()
	samples := make([]Sample, len(points))
	errs := make([]error, len(points))

	dynamo.ParallelFor(len(points), 256, func(start, end int) {
		for i := start; i < end; i++ {
			samples[i], errs[i] = f.query(v, points[i])
		}
	})

	for _, err := range errs {
		if err != nil {
			return samples, err
		}
	}
	return samples, nil
}

// SurfaceVelocity returns the rigid-body velocity of particle id at x.
func (f *Field) SurfaceVelocity(x r3.Vec, id int) (r3.Vec, error) {
	return f.view.Load().SurfaceVelocity(id, x)
}
