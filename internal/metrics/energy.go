package metrics

import (
	"math"

	"github.com/san-kum/ibmcouple/internal/coupling"
)

// KineticEnergy tracks the total translational and rotational energy of
// every particle after the most recent step.
type KineticEnergy struct {
	name    string
	current float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(r *coupling.StepReport) {
	k.current = Total(r)
}

func (k *KineticEnergy) Value() float64 { return k.current }

func (k *KineticEnergy) Reset() {
	k.current = 0
}

// Total sums the kinetic energy of every particle in r.
func Total(r *coupling.StepReport) float64 {
	e := 0.0
	for _, p := range r.Particles {
		e += p.KineticEnergy()
	}
	return e
}

// EnergyDrift is the largest relative change of kinetic energy between
// consecutive steps.
type EnergyDrift struct {
	name     string
	previous float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(r *coupling.StepReport) {
	energy := Total(r)
	if e.samples > 0 && e.previous != 0 {
		drift := math.Abs(energy-e.previous) / math.Abs(e.previous)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
	e.previous = energy
	e.samples++
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.previous = 0
	e.maxDrift = 0
	e.samples = 0
}
