package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/ibmcouple/internal/coupling"
)

// LoadEffort is the mean, over steps, of the summed force magnitude the
// sub-stepper was driven with.
type LoadEffort struct {
	name    string
	sum     float64
	samples int
}

func NewLoadEffort() *LoadEffort {
	return &LoadEffort{
		name: "load_effort",
	}
}

func (c *LoadEffort) Name() string {
	return c.name
}

func (c *LoadEffort) Observe(r *coupling.StepReport) {
	for _, p := range r.Particles {
		c.sum += r3.Norm(p.NetForce)
	}
	c.samples++
}

func (c *LoadEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *LoadEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
