package coupling

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/geom"
	"github.com/san-kum/ibmcouple/internal/particle"
	"github.com/san-kum/ibmcouple/internal/repulsion"
)

// StepInfo is what the fluid solver knows about its last completed step.
type StepInfo struct {
	Dt        float64
	ModelTime float64
}

// FluidSolver is the part of the fluid solver the driver consumes.
type FluidSolver interface {
	// NetForceAndMoment returns the surface integral of stress over
	// particle id from the last completed solve.
	NetForceAndMoment(id int) (force, moment r3.Vec, err error)
	// LastStep reports false until the first fluid step has completed.
	LastStep() (StepInfo, bool)
}

// Advancer is implemented by solvers that Run can drive directly.
type Advancer interface {
	Advance(dt float64) error
}

// Context holds the coupling parameters. Only Time and LastDt change after
// construction.
type Context struct {
	Time   float64
	LastDt float64

	SubDt     float64
	InitialDt float64
	FluidDt   float64

	Gravity          r3.Vec
	RepulsionEnabled bool
	Repulsion        repulsion.Params
	Walls            []geom.Wall

	// SkipBootstrapAdvance leaves particles untouched on the bootstrap step.
	SkipBootstrapAdvance bool
}

func (c Context) Validate() error {
	if !(c.SubDt > 0) || math.IsInf(c.SubDt, 0) {
		return fmt.Errorf("sub-cycle dt must be positive, got %g", c.SubDt)
	}
	if !(c.InitialDt > 0) || math.IsInf(c.InitialDt, 0) {
		return fmt.Errorf("initial dt must be positive, got %g", c.InitialDt)
	}
	if c.FluidDt < 0 || math.IsNaN(c.FluidDt) || math.IsInf(c.FluidDt, 0) {
		return fmt.Errorf("fluid dt must not be negative, got %g", c.FluidDt)
	}
	if c.RepulsionEnabled {
		if err := c.Repulsion.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Phase is the driver's position in the per-step cycle.
type Phase int

const (
	AwaitingFluidStep Phase = iota
	CollectingForces
	ApplyingRepulsion
	Subcycling
	PublishingState
)

func (p Phase) String() string {
	switch p {
	case AwaitingFluidStep:
		return "awaiting-fluid-step"
	case CollectingForces:
		return "collecting-forces"
	case ApplyingRepulsion:
		return "applying-repulsion"
	case Subcycling:
		return "subcycling"
	case PublishingState:
		return "publishing-state"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// StepReport describes one completed coupling step.
type StepReport struct {
	Step      int
	Bootstrap bool
	FluidDt   float64
	SubDt     float64
	NSub      int

	// ModelTime is nil on the bootstrap step.
	ModelTime *float64

	// Advanced is false when the bootstrap step skipped the rigid-body update.
	Advanced bool

	Particles []particle.Particle
}

// Time returns the model time or zero when it is unset.
func (r *StepReport) Time() float64 {
	if r.ModelTime == nil {
		return 0
	}
	return *r.ModelTime
}

// StepError reports a fatal failure inside a coupling step. Particle is -1
// when the failure is not tied to one particle.
type StepError struct {
	Step     int
	Time     float64
	Particle int
	Err      error
}

func (e *StepError) Error() string {
	if e.Particle < 0 {
		return fmt.Sprintf("coupling step %d (t=%g): %v", e.Step, e.Time, e.Err)
	}
	return fmt.Sprintf("coupling step %d (t=%g): particle %d: %v", e.Step, e.Time, e.Particle, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type Observer interface {
	OnStep(r *StepReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(r *StepReport)

func (f ObserverFunc) OnStep(r *StepReport) { f(r) }

type Metric interface {
	Name() string
	Observe(r *StepReport)
	Value() float64
	Reset()
}

// Result summarizes a Run.
type Result struct {
	StepsTaken int
	Time       float64
	Metrics    map[string]float64
}
