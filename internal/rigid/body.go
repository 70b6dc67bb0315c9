package rigid

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/dynamo"
)

// Translation is a point mass under an applied force and uniform gravity.
// State is [x, y, z, vx, vy, vz]; control is the applied force.
type Translation struct {
	Mass    float64
	Gravity r3.Vec
}

func (t *Translation) StateDim() int   { return 6 }
func (t *Translation) ControlDim() int { return 3 }

func (t *Translation) Derive(x dynamo.State, u dynamo.Control, _ float64) dynamo.State {
	acc := t.Gravity
	if len(u) >= 3 {
		acc = r3.Add(acc, r3.Scale(1/t.Mass, r3.Vec{X: u[0], Y: u[1], Z: u[2]}))
	}
	return dynamo.State{x[3], x[4], x[5], acc.X, acc.Y, acc.Z}
}

// Rotation integrates Euler's equations in the principal frame.
// State is the angular velocity; control is the applied moment.
type Rotation struct {
	I1, I2, I3 float64
}

// Sphere returns the isotropic rotation model for moment of inertia i.
func Sphere(i float64) *Rotation {
	return &Rotation{I1: i, I2: i, I3: i}
}

func (r *Rotation) StateDim() int   { return 3 }
func (r *Rotation) ControlDim() int { return 3 }

func (r *Rotation) Derive(x dynamo.State, u dynamo.Control, _ float64) dynamo.State {
	w1, w2, w3 := x[0], x[1], x[2]
	var m1, m2, m3 float64
	if len(u) >= 3 {
		m1, m2, m3 = u[0], u[1], u[2]
	}
	return dynamo.State{
		(m1 + (r.I2-r.I3)*w2*w3) / r.I1,
		(m2 + (r.I3-r.I1)*w3*w1) / r.I2,
		(m3 + (r.I1-r.I2)*w1*w2) / r.I3,
	}
}

// Energy is the rotational kinetic energy.
func (r *Rotation) Energy(x dynamo.State) float64 {
	return 0.5 * (r.I1*x[0]*x[0] + r.I2*x[1]*x[1] + r.I3*x[2]*x[2])
}
