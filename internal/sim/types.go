package sim

import "github.com/san-kum/celestial/internal/physics"

// Observer is notified after every completed iteration.
type Observer interface {
	OnStep(step int, bodies []physics.Body)
}

// Metric accumulates a scalar over a run.
type Metric interface {
	Name() string
	Observe(step int, bodies []physics.Body)
	Value() float64
	Reset()
}

type Config struct {
	Dt         float32
	Iterations int
	Kernel     physics.Kernel
	// SampleEvery records a snapshot every n iterations. Zero keeps only the
	// initial and final states.
	SampleEvery int
}

// DefaultConfig is one year in daily steps.
func DefaultConfig() Config {
	return Config{
		Dt:         86400,
		Iterations: 365,
		Kernel:     physics.DefaultKernel(),
	}
}

type Sample struct {
	Step   int
	Bodies []physics.Body
}

type Result struct {
	Samples     []Sample
	StepsTaken  int
	Metrics     map[string]float64
	EnergyDrift float64
}

// Final returns the last recorded snapshot.
func (r *Result) Final() []physics.Body {
	if len(r.Samples) == 0 {
		return nil
	}
	return r.Samples[len(r.Samples)-1].Bodies
}
