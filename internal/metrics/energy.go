package metrics

import (
	"math"

	"github.com/san-kum/fesdsim/internal/fesd"
)

// EnergyDrift tracks the largest relative change of a scalar invariant of
// the state, such as the pendulum energy or the oscillator level set.
type EnergyDrift struct {
	name          string
	energy        func(x []float64) float64
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(name string, energy func(x []float64) float64) *EnergyDrift {
	return &EnergyDrift{
		name:   name,
		energy: energy,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

// Start sets the reference from the initial state. Without it the first
// observed element is the reference.
func (e *EnergyDrift) Start(x0 []float64) {
	e.initialEnergy = e.energy(x0)
	e.samples = 1
}

func (e *EnergyDrift) OnStep(step int, t float64, res *fesd.Result) {
	for _, x := range res.XList {
		energy := e.energy(x)

		if e.samples == 0 {
			e.initialEnergy = energy
		}
		e.samples++

		if e.initialEnergy != 0 {
			drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
			e.maxDrift = math.Max(e.maxDrift, drift)
		}
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
