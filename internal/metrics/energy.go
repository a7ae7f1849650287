package metrics

import (
	"math"

	"github.com/san-kum/celestial/internal/physics"
)

// Energy is the mean total energy over the observed steps.
type Energy struct {
	name        string
	g           float64
	samples     int
	totalEnergy float64
}

func NewEnergy(g float64) *Energy {
	return &Energy{
		name: "energy",
		g:    g,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(step int, bodies []physics.Body) {
	e.totalEnergy += physics.TotalEnergy(bodies, e.g)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative departure from the first observed
// energy.
type EnergyDrift struct {
	name          string
	g             float64
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(g float64) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		g:    g,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(step int, bodies []physics.Body) {
	energy := physics.TotalEnergy(bodies, e.g)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
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
