package coupling_test

import (
	"context"
	"errors"
	"io"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/boundary"
	"github.com/san-kum/ibmcouple/internal/coupling"
	"github.com/san-kum/ibmcouple/internal/dynamo"
	"github.com/san-kum/ibmcouple/internal/geom"
	"github.com/san-kum/ibmcouple/internal/particle"
	"github.com/san-kum/ibmcouple/internal/repulsion"
	"github.com/san-kum/ibmcouple/internal/rigid"
)

// scriptedSolver returns fixed loads and a settable last step.
type scriptedSolver struct {
	force, moment r3.Vec
	info          coupling.StepInfo
	ready         bool
	failOn        int
	advanced      []float64
}

func (s *scriptedSolver) NetForceAndMoment(id int) (r3.Vec, r3.Vec, error) {
	if id == s.failOn {
		return r3.Vec{}, r3.Vec{}, errors.New("solve diverged")
	}
	return s.force, s.moment, nil
}

func (s *scriptedSolver) LastStep() (coupling.StepInfo, bool) { return s.info, s.ready }

func (s *scriptedSolver) Advance(dt float64) error {
	s.advanced = append(s.advanced, dt)
	s.info.ModelTime += dt
	s.info.Dt = dt
	s.ready = true
	return nil
}

// fixedMetric reports a constant value.
type fixedMetric struct {
	name  string
	value float64
}

func (m *fixedMetric) Name() string                 { return m.name }
func (m *fixedMetric) Observe(*coupling.StepReport) {}
func (m *fixedMetric) Value() float64               { return m.value }
func (m *fixedMetric) Reset()                       {}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

var _ = Describe("Driver", func() {
	var (
		reg     *particle.Registry
		solver  *scriptedSolver
		field   *boundary.Field
		stepper *rigid.SubStepper
		cctx    coupling.Context
		phases  []coupling.Phase
	)

	newDriver := func(model repulsion.Model) *coupling.Driver {
		d, err := coupling.New(reg, solver, field, stepper, model, cctx,
			coupling.WithLogger(quietLogger()),
			coupling.WithPhaseHook(func(_ int, p coupling.Phase) { phases = append(phases, p) }))
		Expect(err).NotTo(HaveOccurred())
		return d
	}

	BeforeEach(func() {
		var err error
		reg, err = particle.New(2,
			[]r3.Vec{{X: 0.3, Y: 0.5, Z: 0.5}, {X: 0.7, Y: 0.5, Z: 0.5}},
			[]float64{0.05, 0.05}, 1.5)
		Expect(err).NotTo(HaveOccurred())

		solver = &scriptedSolver{failOn: -1}
		field = boundary.New(reg)
		stepper = rigid.NewSubStepper(nil, r3.Vec{Y: -9.81}, 100)
		cctx = coupling.Context{
			SubDt:     1e-4,
			InitialDt: 5e-4,
			FluidDt:   1e-3,
			Gravity:   r3.Vec{Y: -9.81},
		}
		phases = nil
	})

	Describe("construction", func() {
		It("rejects missing collaborators", func() {
			_, err := coupling.New(reg, nil, field, stepper, nil, cctx)
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
		})

		It("rejects NaN timesteps", func() {
			for _, mutate := range []func(*coupling.Context){
				func(c *coupling.Context) { c.SubDt = math.NaN() },
				func(c *coupling.Context) { c.InitialDt = math.NaN() },
				func(c *coupling.Context) { c.FluidDt = math.NaN() },
			} {
				bad := cctx
				mutate(&bad)
				_, err := coupling.New(reg, solver, field, stepper, nil, bad)
				Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
			}
		})

		It("rejects a non-positive sub-cycle dt", func() {
			cctx.SubDt = 0
			_, err := coupling.New(reg, solver, field, stepper, nil, cctx)
			Expect(errors.Is(err, dynamo.ErrConfiguration)).To(BeTrue())
		})
	})

	Describe("bootstrap", func() {
		It("falls back to the initial dt without failing", func() {
			d := newDriver(nil)
			report, err := d.Step(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Bootstrap).To(BeTrue())
			Expect(report.ModelTime).To(BeNil())
			Expect(report.FluidDt).To(Equal(5e-4))
			Expect(report.NSub).To(Equal(5))
			Expect(report.Advanced).To(BeTrue())
			Expect(report.Particles[0].LinearVelocity.Y).To(BeNumerically("~", -9.81*5e-4, 1e-12))
		})

		It("can leave particles untouched on the bootstrap step", func() {
			cctx.SkipBootstrapAdvance = true
			d := newDriver(nil)
			before := reg.Centers()

			report, err := d.Step(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Advanced).To(BeFalse())
			Expect(reg.Centers()).To(Equal(before))
			Expect(phases).To(Equal([]coupling.Phase{coupling.CollectingForces, coupling.AwaitingFluidStep}))
		})
	})

	Describe("a regular step", func() {
		BeforeEach(func() {
			solver.ready = true
			solver.info = coupling.StepInfo{Dt: 1e-3, ModelTime: 0.25}
		})

		It("walks the phases in order", func() {
			d := newDriver(nil)
			_, err := d.Step(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(phases).To(Equal([]coupling.Phase{
				coupling.CollectingForces,
				coupling.Subcycling,
				coupling.PublishingState,
				coupling.AwaitingFluidStep,
			}))
			Expect(d.Phase()).To(Equal(coupling.AwaitingFluidStep))
		})

		It("applies repulsion when enabled", func() {
			cctx.RepulsionEnabled = true
			cctx.Repulsion = repulsion.Params{ForceRange: 0.015, ParticleStiffness: 1e-5, WallStiffness: 0.5e-5}
			cctx.Walls = []geom.Wall{}
			d := newDriver(repulsion.Glowinski())
			_, err := d.Step(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(phases).To(ContainElement(coupling.ApplyingRepulsion))
		})

		It("sub-cycles ceil(fluidDt/subDt) times with the held load", func() {
			d := newDriver(nil)
			report, err := d.Step(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(report.NSub).To(Equal(10))
			Expect(*report.ModelTime).To(Equal(0.25))
			Expect(d.Context().LastDt).To(Equal(1e-3))
			Expect(report.Particles[1].LinearVelocity.Y).To(BeNumerically("~", -9.81*1e-3, 1e-12))
		})

		It("snapshots the start-of-step state into the previous fields", func() {
			d := newDriver(nil)
			start := reg.Centers()
			_, err := d.Step(context.Background())
			Expect(err).NotTo(HaveOccurred())

			p, err := reg.Get(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.PreviousCenter).To(Equal(start[0]))
			Expect(p.Center).NotTo(Equal(start[0]))
		})

		It("publishes to the boundary field", func() {
			d := newDriver(nil)
			_, err := d.Step(context.Background())
			Expect(err).NotTo(HaveOccurred())

			for i, c := range reg.Centers() {
				s, err := field.Query(r3.Add(c, r3.Vec{X: 1e-9}), 0.25)
				Expect(err).NotTo(HaveOccurred())
				Expect(s.Particle).To(Equal(i))
				Expect(s.Distance).To(BeNumerically("~", -0.05, 1e-8))
			}
		})

		It("wraps solver failures with the step and particle", func() {
			solver.failOn = 1
			d := newDriver(nil)
			_, err := d.Step(context.Background())

			var se *coupling.StepError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.Particle).To(Equal(1))
			Expect(se.Step).To(Equal(0))
		})

		It("surfaces instability without publishing", func() {
			solver.force = r3.Vec{X: 1e3}
			d := newDriver(nil)
			before := reg.Centers()

			_, err := d.Step(context.Background())
			Expect(errors.Is(err, dynamo.ErrNumericalInstability)).To(BeTrue())
			Expect(reg.Centers()).To(Equal(before))
		})
	})

	Describe("Tick", func() {
		It("leaves bootstrap after the first solver advance", func() {
			d := newDriver(nil)

			first, err := d.Tick(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Bootstrap).To(BeTrue())

			second, err := d.Tick(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Bootstrap).To(BeFalse())
			Expect(second.ModelTime).NotTo(BeNil())
			Expect(*second.ModelTime).To(BeNumerically("~", 1e-3, 1e-15))
		})
	})

	Describe("Run", func() {
		It("advances the solver between steps and notifies observers", func() {
			d := newDriver(nil)
			var seen []int
			d.AddObserver(coupling.ObserverFunc(func(r *coupling.StepReport) { seen = append(seen, r.Step) }))

			result, err := d.Run(context.Background(), 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.StepsTaken).To(Equal(3))
			Expect(seen).To(Equal([]int{0, 1, 2}))
			Expect(solver.advanced).To(Equal([]float64{1e-3, 1e-3, 1e-3}))
		})

		It("leaves non-finite metrics out of the result", func() {
			d := newDriver(nil)
			d.AddMetric(&fixedMetric{name: "unseen", value: math.Inf(1)})
			d.AddMetric(&fixedMetric{name: "seen", value: 2})
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			result, err := d.Run(ctx, 3)
			Expect(err).To(MatchError(context.Canceled))
			Expect(result.Metrics).To(Equal(map[string]float64{"seen": 2}))
		})

		It("stops between steps when the context is cancelled", func() {
			d := newDriver(nil)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			result, err := d.Run(ctx, 5)
			Expect(err).To(MatchError(context.Canceled))
			Expect(result.StepsTaken).To(Equal(0))
		})
	})
})

var _ = DescribeTable("NSub",
	func(fluidDt, subDt float64, want int) {
		Expect(coupling.NSub(fluidDt, subDt)).To(Equal(want))
	},
	Entry("exact multiple", 1e-3, 1e-4, 10),
	Entry("rounds up", 1.05e-3, 1e-4, 11),
	Entry("shorter than one sub-step", 1e-5, 1e-4, 1),
	Entry("hundred sub-steps per fluid step", 0.005, 0.005/100, 100),
)

var _ = Describe("Phase", func() {
	It("has readable names", func() {
		Expect(coupling.Subcycling.String()).To(Equal("subcycling"))
		Expect(coupling.Phase(42).String()).To(Equal("phase(42)"))
	})
})
