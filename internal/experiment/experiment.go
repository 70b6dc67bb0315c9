// Package experiment wires a configured case into a runnable coupling loop:
// registry, implicit boundary, Stokes surrogate, sub-stepper, repulsion law
// and driver, plus the standard metrics and a trajectory recorder.
package experiment

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/ibmcouple/internal/boundary"
	"github.com/san-kum/ibmcouple/internal/config"
	"github.com/san-kum/ibmcouple/internal/coupling"
	"github.com/san-kum/ibmcouple/internal/fluid"
	"github.com/san-kum/ibmcouple/internal/geom"
	"github.com/san-kum/ibmcouple/internal/integrators"
	"github.com/san-kum/ibmcouple/internal/metrics"
	"github.com/san-kum/ibmcouple/internal/particle"
	"github.com/san-kum/ibmcouple/internal/repulsion"
	"github.com/san-kum/ibmcouple/internal/rigid"
	"github.com/san-kum/ibmcouple/internal/storage"
)

type Experiment struct {
	Config   *config.Config
	Box      geom.Box
	Registry *particle.Registry
	Field    *boundary.Field
	Solver   *fluid.Stokes
	Driver   *coupling.Driver
	Recorder *storage.Recorder
	Metrics  []coupling.Metric

	repulsionName string
}

// New validates cfg and builds every collaborator.
func New(cfg *config.Config, log logrus.FieldLogger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	box, err := cfg.Box()
	if err != nil {
		return nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	field := boundary.New(reg)
	field.Band = cfg.Boundary.Band

	solver, err := fluid.NewStokes(field, cfg.Fluid.Viscosity, cfg.Fluid.Density, cfg.Gravity.R3())
	if err != nil {
		return nil, err
	}
	if cfg.Fluid.QuadraturePoints > 0 {
		solver.Points = cfg.Fluid.QuadraturePoints
	}

	integ, err := integrators.New(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	stepper := rigid.NewSubStepper(integ, cfg.Gravity.R3(), cfg.MaxSpeed)

	var model repulsion.Model
	name := "none"
	if cfg.Repulsion.Enabled {
		if model, err = repulsion.New(cfg.Repulsion.Model); err != nil {
			return nil, err
		}
		if model != nil {
			name = model.Name()
		}
	}

	cctx, err := cfg.CouplingContext()
	if err != nil {
		return nil, err
	}
	walls, err := cfg.Walls()
	if err != nil {
		return nil, err
	}

	driver, err := coupling.New(reg, solver, field, stepper, model, cctx, coupling.WithLogger(log))
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		Config:        cfg,
		Box:           box,
		Registry:      reg,
		Field:         field,
		Solver:        solver,
		Driver:        driver,
		Recorder:      &storage.Recorder{},
		Metrics:       metrics.All(walls),
		repulsionName: name,
	}
	for _, m := range e.Metrics {
		driver.AddMetric(m)
	}
	driver.AddObserver(e.Recorder)
	return e, nil
}

// Run performs steps coupling steps, or the configured duration when steps
// is not positive.
func (e *Experiment) Run(ctx context.Context, steps int) (*coupling.Result, error) {
	if steps <= 0 {
		steps = e.Config.Steps()
	}
	if steps <= 0 {
		return nil, fmt.Errorf("nothing to run: duration %g with fluid dt %g", e.Config.Duration, e.Config.FluidDt)
	}
	return e.Driver.Run(ctx, steps)
}

// Metadata describes a finished run for storage.
func (e *Experiment) Metadata(preset string, result *coupling.Result) storage.RunMetadata {
	cfg := e.Config
	meta := storage.RunMetadata{
		Case:       cfg.Case,
		Preset:     preset,
		FluidDt:    cfg.FluidDt,
		SubDt:      cfg.SubStep(),
		Duration:   cfg.Duration,
		Particles:  e.Registry.Len(),
		Integrator: cfg.Integrator,
		Repulsion:  e.repulsionName,
	}
	if result != nil {
		meta.Steps = result.StepsTaken
		meta.Metrics = result.Metrics
	}
	return meta
}
