package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}


// Vec reads three consecutive components starting at offset.
func (s State) Vec(offset int) r3.Vec {
	return r3.Vec{X: s[offset], Y: s[offset+1], Z: s[offset+2]}
}

// SetVec writes v into three consecutive components starting at offset.
func (s State) SetVec(offset int, v r3.Vec) {
	s[offset], s[offset+1], s[offset+2] = v.X, v.Y, v.Z
}

type Control []float64

// ControlVec packs vectors into a control vector.
func ControlVec(vs ...r3.Vec) Control {
	u := make(Control, 0, 3*len(vs))
	for _, v := range vs {
		u = append(u, v.X, v.Y, v.Z)
	}
	return u
}

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// IsFinite reports whether every component of v is finite.
func IsFinite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}
