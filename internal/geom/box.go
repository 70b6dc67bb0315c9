// Package geom holds the domain container used as the frame for wall
// repulsion.
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/dynamo"
)

// Box is an axis-aligned domain container.
type Box struct {
	Dimensions r3.Vec
	Center     r3.Vec
}

// NewBox returns the box spanning [min, max].
func NewBox(min, max r3.Vec) Box {
	return Box{
		Dimensions: r3.Sub(max, min),
		Center:     r3.Scale(0.5, r3.Add(min, max)),
	}
}

func (b Box) Min() r3.Vec { return r3.Sub(b.Center, r3.Scale(0.5, b.Dimensions)) }
func (b Box) Max() r3.Vec { return r3.Add(b.Center, r3.Scale(0.5, b.Dimensions)) }

// Validate rejects boxes with a non-positive or non-finite extent.
func (b Box) Validate() error {
	d := b.Dimensions
	if !dynamo.IsFinite(d) || !dynamo.IsFinite(b.Center) {
		return dynamo.Configf("container is not finite: dims=%v center=%v", d, b.Center)
	}
	if d.X <= 0 || d.Y <= 0 || d.Z <= 0 {
		return dynamo.Configf("container dimensions must be positive, got %v", d)
	}
	return nil
}

// Contains reports whether p lies inside the closed box.
func (b Box) Contains(p r3.Vec) bool {
	lo, hi := b.Min(), b.Max()
	return p.X >= lo.X && p.X <= hi.X &&
		p.Y >= lo.Y && p.Y <= hi.Y &&
		p.Z >= lo.Z && p.Z <= hi.Z
}

func (b Box) String() string {
	lo, hi := b.Min(), b.Max()
	return fmt.Sprintf("[%g,%g]x[%g,%g]x[%g,%g]", lo.X, hi.X, lo.Y, hi.Y, lo.Z, hi.Z)
}

// Component returns v's coordinate along axis 0, 1 or 2.
func Component(v r3.Vec, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
	return math.NaN()
}

// Axis returns the unit vector along axis 0, 1 or 2.
func Axis(axis int) r3.Vec {
	switch axis {
	case 0:
		return r3.Vec{X: 1}
	case 1:
		return r3.Vec{Y: 1}
	default:
		return r3.Vec{Z: 1}
	}
}
