package rigid

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/dynamo"
	"github.com/san-kum/ibmcouple/internal/integrators"
	"github.com/san-kum/ibmcouple/internal/particle"
)

// InstabilityError reports a particle whose update left the sane range.
type InstabilityError struct {
	Particle int
	Speed    float64
	Limit    float64
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("particle %d: speed %g exceeds limit %g", e.Particle, e.Speed, e.Limit)
}

func (e *InstabilityError) Unwrap() error { return dynamo.ErrNumericalInstability }

// SubStepper advances one particle under a held force and moment.
// It keeps integrator scratch buffers and is not safe for concurrent use.
type SubStepper struct {
	integ    dynamo.Integrator
	spin     *integrators.RK4
	gravity  r3.Vec
	maxSpeed float64
}

// NewSubStepper builds a stepper. A nil integrator selects the default
// scheme; maxSpeed <= 0 disables the speed bound.
func NewSubStepper(integ dynamo.Integrator, gravity r3.Vec, maxSpeed float64) *SubStepper {
	if integ == nil {
		integ, _ = integrators.New(integrators.DefaultScheme)
	}
	return &SubStepper{
		integ:    integ,
		spin:     integrators.NewRK4(),
		gravity:  gravity,
		maxSpeed: maxSpeed,
	}
}

// Step advances p by dtSub under constant force and moment.
func (s *SubStepper) Step(p particle.Particle, force, moment r3.Vec, dtSub float64) (particle.Kinematics, error) {
	return s.Advance(p, force, moment, dtSub, 1)
}

// Advance runs n sub-steps of dtSub, holding force and moment fixed.
func (s *SubStepper) Advance(p particle.Particle, force, moment r3.Vec, dtSub float64, n int) (particle.Kinematics, error) {
	if dtSub <= 0 {
		return particle.Kinematics{}, dynamo.Configf("sub-step must be positive, got %g", dtSub)
	}
	if p.Mass <= 0 || p.Inertia <= 0 {
		return particle.Kinematics{}, dynamo.Configf("particle %d has non-positive mass or inertia", p.ID)
	}

	trans := &Translation{Mass: p.Mass, Gravity: s.gravity}
	rot := Sphere(p.Inertia)
	fu := dynamo.ControlVec(force)
	mu := dynamo.ControlVec(moment)

	x := make(dynamo.State, 6)
	x.SetVec(0, p.Center)
	x.SetVec(3, p.LinearVelocity)
	w := dynamo.State{p.AngularVelocity.X, p.AngularVelocity.Y, p.AngularVelocity.Z}

	q := p.Orientation
	if q.Len() == 0 {
		q = mgl64.QuatIdent()
	}

	t := 0.0
	for k := 0; k < n; k++ {
		x = s.integ.Step(trans, x, fu, t, dtSub)
		w0 := w.Vec(0)
		w = s.spin.Step(rot, w, mu, t, dtSub)
		q = rotate(q, r3.Scale(0.5, r3.Add(w0, w.Vec(0))), dtSub)
		t += dtSub

		if err := s.check(p, x, w); err != nil {
			return particle.Kinematics{}, err
		}
	}

	return particle.Kinematics{
		Center:          x.Vec(0),
		LinearVelocity:  x.Vec(3),
		AngularVelocity: w.Vec(0),
		Orientation:     q,
	}, nil
}

func (s *SubStepper) check(p particle.Particle, x, w dynamo.State) error {
	v := r3.Norm(x.Vec(3))
	if spin := r3.Norm(w.Vec(0)) * p.Radius; spin > v {
		v = spin
	}
	if !x.IsValid() || !w.IsValid() {
		return &InstabilityError{Particle: p.ID, Speed: v, Limit: s.maxSpeed}
	}
	if s.maxSpeed > 0 && v > s.maxSpeed {
		return &InstabilityError{Particle: p.ID, Speed: v, Limit: s.maxSpeed}
	}
	return nil
}

// rotate applies q <- normalize(q + dt/2 (0, w) q).
func rotate(q mgl64.Quat, w r3.Vec, dt float64) mgl64.Quat {
	spin := mgl64.Quat{W: 0, V: mgl64.Vec3{w.X, w.Y, w.Z}}
	return q.Add(spin.Mul(q).Scale(0.5 * dt)).Normalize()
}
