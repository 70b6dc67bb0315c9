package particle

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/dynamo"
)

// Registry owns index-aligned particle arrays. It is not safe for concurrent
// mutation; readers on other goroutines should use a View.
type Registry struct {
	centers     []r3.Vec
	radii       []float64
	linVel      []r3.Vec
	angVel      []r3.Vec
	orientation []mgl64.Quat
	netForce    []r3.Vec
	netMoment   []r3.Vec

	prevCenter []r3.Vec
	prevLinVel []r3.Vec
	prevAngVel []r3.Vec

	mass    []float64
	inertia []float64

	version uint64
}

// New allocates a registry for count spheres of a common density.
func New(count int, centers []r3.Vec, radii []float64, density float64) (*Registry, error) {
	if count <= 0 {
		return nil, dynamo.Configf("particle count must be positive, got %d", count)
	}
	if len(centers) != count {
		return nil, dynamo.Configf("got %d centers for %d particles", len(centers), count)
	}
	if len(radii) != count {
		return nil, dynamo.Configf("got %d radii for %d particles", len(radii), count)
	}
	if !(density > 0) || math.IsInf(density, 0) {
		return nil, dynamo.Configf("density must be positive, got %g", density)
	}
	for i, r := range radii {
		if !(r > 0) || math.IsInf(r, 0) {
			return nil, dynamo.Configf("particle %d: radius must be positive, got %g", i, r)
		}
		if !dynamo.IsFinite(centers[i]) {
			return nil, dynamo.Configf("particle %d: center is not finite: %v", i, centers[i])
		}
	}

	reg := &Registry{
		centers:     append([]r3.Vec(nil), centers...),
		radii:       append([]float64(nil), radii...),
		linVel:      make([]r3.Vec, count),
		angVel:      make([]r3.Vec, count),
		orientation: make([]mgl64.Quat, count),
		netForce:    make([]r3.Vec, count),
		netMoment:   make([]r3.Vec, count),
		prevCenter:  append([]r3.Vec(nil), centers...),
		prevLinVel:  make([]r3.Vec, count),
		prevAngVel:  make([]r3.Vec, count),
		mass:        make([]float64, count),
		inertia:     make([]float64, count),
	}

	for i, r := range radii {
		reg.orientation[i] = mgl64.QuatIdent()
		reg.mass[i] = SphereMass(density, r)
		reg.inertia[i] = SphereInertia(reg.mass[i], r)
	}

	return reg, nil
}

func (r *Registry) Len() int        { return len(r.radii) }
func (r *Registry) Version() uint64 { return r.version }

// Centers returns a copy of the centre array, index-aligned with Radii.
func (r *Registry) Centers() []r3.Vec {
	return append([]r3.Vec(nil), r.centers...)
}

func (r *Registry) Radii() []float64 {
	return append([]float64(nil), r.radii...)
}

func (r *Registry) Velocities() []r3.Vec {
	return append([]r3.Vec(nil), r.linVel...)
}

func (r *Registry) AngularVelocities() []r3.Vec {
	return append([]r3.Vec(nil), r.angVel...)
}

// ResetAccumulators zeroes every net force and moment. Calling it twice in
// one coupling step discards what was accumulated in between.
func (r *Registry) ResetAccumulators() {
	for i := range r.netForce {
		r.netForce[i] = r3.Vec{}
		r.netMoment[i] = r3.Vec{}
	}
}

// AddForce accumulates a force and moment contribution on particle i.
func (r *Registry) AddForce(i int, force, moment r3.Vec) error {
	if err := dynamo.CheckIndex(i, r.Len()); err != nil {
		return err
	}
	r.netForce[i] = r3.Add(r.netForce[i], force)
	r.netMoment[i] = r3.Add(r.netMoment[i], moment)
	return nil
}

// Snapshot copies the current kinematic state into the previous* arrays.
func (r *Registry) Snapshot() {
	copy(r.prevCenter, r.centers)
	copy(r.prevLinVel, r.linVel)
	copy(r.prevAngVel, r.angVel)
}

// Get returns a copy of particle i.
func (r *Registry) Get(i int) (Particle, error) {
	if err := dynamo.CheckIndex(i, r.Len()); err != nil {
		return Particle{}, err
	}
	return Particle{
		ID:                      i,
		Center:                  r.centers[i],
		Radius:                  r.radii[i],
		LinearVelocity:          r.linVel[i],
		AngularVelocity:         r.angVel[i],
		Orientation:             r.orientation[i],
		NetForce:                r.netForce[i],
		NetMoment:               r.netMoment[i],
		PreviousCenter:          r.prevCenter[i],
		PreviousLinearVelocity:  r.prevLinVel[i],
		PreviousAngularVelocity: r.prevAngVel[i],
		Mass:                    r.mass[i],
		Inertia:                 r.inertia[i],
	}, nil
}

// Particles returns copies of every particle in index order.
func (r *Registry) Particles() []Particle {
	ps := make([]Particle, r.Len())
	for i := range ps {
		ps[i], _ = r.Get(i)
	}
	return ps
}

// Set publishes new kinematics for particle i. Radius, mass and inertia are
// immutable and untouched.
func (r *Registry) Set(i int, k Kinematics) error {
	if err := dynamo.CheckIndex(i, r.Len()); err != nil {
		return err
	}
	r.centers[i] = k.Center
	r.linVel[i] = k.LinearVelocity
	r.angVel[i] = k.AngularVelocity
	if k.Orientation.Len() > 0 {
		r.orientation[i] = k.Orientation.Normalize()
	}
	r.version++
	return nil
}

// View returns an immutable copy of the published geometry and velocities.
func (r *Registry) View() *View {
	return &View{
		centers: r.Centers(),
		radii:   r.Radii(),
		linVel:  r.Velocities(),
		angVel:  r.AngularVelocities(),
		version: r.version,
	}
}
