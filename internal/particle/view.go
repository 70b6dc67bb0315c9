package particle

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/dynamo"
)

// View is a read-only snapshot of the registry. All partitions of a fluid
// step read the same View, so they observe identical particle state.
type View struct {
	centers []r3.Vec
	radii   []float64
	linVel  []r3.Vec
	angVel  []r3.Vec
	version uint64
}

func (v *View) Len() int             { return len(v.radii) }
func (v *View) Version() uint64      { return v.version }
func (v *View) Center(i int) r3.Vec  { return v.centers[i] }
func (v *View) Radius(i int) float64 { return v.radii[i] }

// SurfaceVelocity returns linear + angular x (x - center) for particle i.
func (v *View) SurfaceVelocity(i int, x r3.Vec) (r3.Vec, error) {
	if err := dynamo.CheckIndex(i, v.Len()); err != nil {
		return r3.Vec{}, err
	}
	arm := r3.Sub(x, v.centers[i])
	return r3.Add(v.linVel[i], r3.Cross(v.angVel[i], arm)), nil
}
