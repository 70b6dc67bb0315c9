package coupling

import (
	"context"
	"errors"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/boundary"
	"github.com/san-kum/ibmcouple/internal/dynamo"
	"github.com/san-kum/ibmcouple/internal/particle"
	"github.com/san-kum/ibmcouple/internal/repulsion"
	"github.com/san-kum/ibmcouple/internal/rigid"
)

// nSubSlack absorbs rounding in fluidDt/subDt so an exact multiple does not
// gain an extra sub-step.
const nSubSlack = 1e-9

type Option func(*Driver)

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Driver) { d.log = l }
}

// WithPhaseHook registers fn to be called on every phase transition.
func WithPhaseHook(fn func(step int, p Phase)) Option {
	return func(d *Driver) { d.hooks = append(d.hooks, fn) }
}

// Driver runs the per-fluid-step rigid-body update.
type Driver struct {
	reg     *particle.Registry
	solver  FluidSolver
	field   *boundary.Field
	stepper *rigid.SubStepper
	model   repulsion.Model
	ctx     Context

	phase     Phase
	step      int
	log       logrus.FieldLogger
	hooks     []func(int, Phase)
	observers []Observer
	metrics   []Metric
}

// New wires a driver. field may be nil when no fluid solver reads the
// implicit boundary; model may be nil to disable repulsion.
func New(reg *particle.Registry, solver FluidSolver, field *boundary.Field, stepper *rigid.SubStepper,
	model repulsion.Model, ctx Context, opts ...Option) (*Driver, error) {
	if reg == nil || solver == nil || stepper == nil {
		return nil, dynamo.Configf("driver needs a registry, a fluid solver and a sub-stepper")
	}
	if err := ctx.Validate(); err != nil {
		return nil, dynamo.Configf("%v", err)
	}

	d := &Driver{
		reg:     reg,
		solver:  solver,
		field:   field,
		stepper: stepper,
		model:   model,
		ctx:     ctx,
		phase:   AwaitingFluidStep,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Driver) AddObserver(o Observer) { d.observers = append(d.observers, o) }
func (d *Driver) AddMetric(m Metric)     { d.metrics = append(d.metrics, m) }

func (d *Driver) Phase() Phase     { return d.phase }
func (d *Driver) Context() Context { return d.ctx }
func (d *Driver) Steps() int       { return d.step }

func (d *Driver) enter(p Phase) {
	d.phase = p
	for _, fn := range d.hooks {
		fn(d.step, p)
	}
}

// NSub returns the number of sub-steps covering fluidDt.
func NSub(fluidDt, subDt float64) int {
	n := int(math.Ceil(fluidDt/subDt - nSubSlack))
	if n < 1 {
		n = 1
	}
	return n
}

// Step performs one coupling step. It is not interrupted by ctx; once
// begun, every particle is advanced or the step fails and the registry is
// left as it was after force collection.
func (d *Driver) Step(ctx context.Context) (*StepReport, error) {
	report := &StepReport{Step: d.step, SubDt: d.ctx.SubDt}
	defer d.enter(AwaitingFluidStep)

	d.enter(CollectingForces)
	if err := d.collect(report); err != nil {
		return nil, err
	}
	log := d.log.WithFields(logrus.Fields{
		"step": d.step,
		"time": report.Time(),
		"dt":   report.FluidDt,
	})
	log.Debug("time/dt before rigid-body update")

	if report.Bootstrap && d.ctx.SkipBootstrapAdvance {
		log.Info("no completed fluid step, skipping rigid-body update")
		report.Particles = d.reg.Particles()
		d.step++
		return report, nil
	}

	if d.model != nil && d.ctx.RepulsionEnabled {
		d.enter(ApplyingRepulsion)
		if err := d.repel(); err != nil {
			return nil, err
		}
	}

	d.enter(Subcycling)
	report.NSub = NSub(report.FluidDt, d.ctx.SubDt)
	log.WithField("nsub", report.NSub).Debug("sub-cycling")

	next, err := d.subcycle(report.NSub)
	if err != nil {
		log.WithError(err).Error("rigid-body update failed")
		return nil, err
	}

	d.enter(PublishingState)
	d.reg.Snapshot()
	for i, k := range next {
		if err := d.reg.Set(i, k); err != nil {
			return nil, d.fail(i, err)
		}
	}
	if d.field != nil {
		d.field.Refresh()
	}

	report.Advanced = true
	report.Particles = d.reg.Particles()
	d.step++
	return report, nil
}

func (d *Driver) collect(report *StepReport) error {
	d.reg.ResetAccumulators()
	for i := 0; i < d.reg.Len(); i++ {
		f, m, err := d.solver.NetForceAndMoment(i)
		if err != nil {
			return d.fail(i, err)
		}
		if err := d.reg.AddForce(i, f, m); err != nil {
			return d.fail(i, err)
		}
	}

	info, ok := d.solver.LastStep()
	if !ok {
		report.Bootstrap = true
		report.FluidDt = d.ctx.InitialDt
		return nil
	}
	if info.Dt <= 0 {
		return d.fail(-1, dynamo.Configf("fluid solver reported non-positive dt %g", info.Dt))
	}
	d.ctx.Time = info.ModelTime
	d.ctx.LastDt = info.Dt
	t := info.ModelTime
	report.ModelTime = &t
	report.FluidDt = info.Dt
	return nil
}

func (d *Driver) repel() error {
	forces, err := d.model.Compute(d.reg.Particles(), d.ctx.Walls, d.ctx.Repulsion)
	if err != nil {
		return d.fail(-1, err)
	}
	for i, f := range forces {
		if err := d.reg.AddForce(i, f, r3.Vec{}); err != nil {
			return d.fail(i, err)
		}
	}
	return nil
}

func (d *Driver) subcycle(n int) ([]particle.Kinematics, error) {
	ps := d.reg.Particles()
	next := make([]particle.Kinematics, len(ps))
	for i, p := range ps {
		k, err := d.stepper.Advance(p, p.NetForce, p.NetMoment, d.ctx.SubDt, n)
		if err != nil {
			return nil, d.fail(i, err)
		}
		next[i] = k
	}
	return next, nil
}

func (d *Driver) fail(i int, err error) error {
	var ie *rigid.InstabilityError
	if i < 0 && errors.As(err, &ie) {
		i = ie.Particle
	}
	return &StepError{Step: d.step, Time: d.ctx.Time, Particle: i, Err: err}
}

// Tick performs one coupling step, feeds the report to metrics and
// observers, then advances the solver by one fluid dt when it implements
// Advancer.
func (d *Driver) Tick(ctx context.Context) (*StepReport, error) {
	report, err := d.Step(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range d.metrics {
		m.Observe(report)
	}
	for _, obs := range d.observers {
		obs.OnStep(report)
	}

	if adv, ok := d.solver.(Advancer); ok {
		dt := d.ctx.FluidDt
		if dt <= 0 {
			dt = d.ctx.InitialDt
		}
		if err := adv.Advance(dt); err != nil {
			return report, d.fail(-1, err)
		}
	}
	return report, nil
}

// Run performs steps coupling steps through Tick. Cancellation is checked
// between steps only. Metrics whose value is not finite are left out of
// the result.
func (d *Driver) Run(ctx context.Context, steps int) (*Result, error) {
	result := &Result{Metrics: make(map[string]float64)}
	for _, m := range d.metrics {
		m.Reset()
	}

	var runErr error
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		report, err := d.Tick(ctx)
		if report != nil {
			result.StepsTaken++
		}
		if err != nil {
			runErr = err
			break
		}
	}

	result.Time = d.ctx.Time
	for _, m := range d.metrics {
		// Metrics with nothing observed may still hold their +Inf seed.
		if v := m.Value(); !math.IsNaN(v) && !math.IsInf(v, 0) {
			result.Metrics[m.Name()] = v
		}
	}
	return result, runErr
}
