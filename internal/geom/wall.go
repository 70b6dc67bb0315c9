package geom

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/dynamo"
)

// WallNames lists the six faces of a Box in canonical order.
var WallNames = []string{"x-", "x+", "y-", "y+", "z-", "z+"}

// Wall is one planar face of the container.
type Wall struct {
	Name     string
	Axis     int
	Position float64
	// Normal points into the domain.
	Normal r3.Vec
}

// Distance returns the signed distance from p to the wall plane, positive
// on the domain side.
func (w Wall) Distance(p r3.Vec) float64 {
	return r3.Dot(w.Normal, p) - r3.Dot(w.Normal, r3.Scale(w.Position, Axis(w.Axis)))
}

// Wall returns the face called name ("x-", "y+", ...).
func (b Box) Wall(name string) (Wall, error) {
	if len(name) != 2 || name[0] < 'x' || name[0] > 'z' || (name[1] != '-' && name[1] != '+') {
		return Wall{}, dynamo.Configf("unknown wall %q (want one of %v)", name, WallNames)
	}

	axis := int(name[0] - 'x')
	w := Wall{Name: name, Axis: axis, Normal: Axis(axis)}
	if name[1] == '-' {
		w.Position = Component(b.Min(), axis)
	} else {
		w.Position = Component(b.Max(), axis)
		w.Normal = r3.Scale(-1, w.Normal)
	}
	return w, nil
}

// Walls returns the named faces, or all six when names is empty.
func (b Box) Walls(names ...string) ([]Wall, error) {
	if len(names) == 0 {
		names = WallNames
	}

	walls := make([]Wall, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		w, err := b.Wall(name)
		if err != nil {
			return nil, err
		}
		walls = append(walls, w)
	}
	return walls, nil
}
