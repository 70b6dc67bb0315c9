package particle

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

// Particle is a copy of one registry entry.
type Particle struct {
	ID     int
	Center r3.Vec
	Radius float64

	LinearVelocity  r3.Vec
	AngularVelocity r3.Vec
	Orientation     mgl64.Quat

	NetForce  r3.Vec
	NetMoment r3.Vec

	PreviousCenter          r3.Vec
	PreviousLinearVelocity  r3.Vec
	PreviousAngularVelocity r3.Vec

	Mass    float64
	Inertia float64
}

// Kinematics is the state published after a coupling step.
type Kinematics struct {
	Center          r3.Vec
	LinearVelocity  r3.Vec
	AngularVelocity r3.Vec
	Orientation     mgl64.Quat
}

// Kinematics returns the particle's current kinematic state.
func (p Particle) Kinematics() Kinematics {
	return Kinematics{
		Center:          p.Center,
		LinearVelocity:  p.LinearVelocity,
		AngularVelocity: p.AngularVelocity,
		Orientation:     p.Orientation,
	}
}

// Volume of a sphere of radius r.
func Volume(r float64) float64 {
	return 4.0 / 3.0 * math.Pi * r * r * r
}

// SphereMass returns rho * 4/3 pi r^3.
func SphereMass(rho, r float64) float64 {
	return rho * Volume(r)
}

// SphereInertia returns the moment of inertia of a uniform sphere about any
// axis through its centre.
func SphereInertia(mass, r float64) float64 {
	return 0.4 * mass * r * r
}

// KineticEnergy is the translational plus rotational energy.
func (p Particle) KineticEnergy() float64 {
	return 0.5*p.Mass*r3.Norm2(p.LinearVelocity) + 0.5*p.Inertia*r3.Norm2(p.AngularVelocity)
}
