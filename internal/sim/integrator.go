package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/celestial/internal/physics"
)

// Integrator advances a fixed-size body set with explicit position updates
// followed by O(N^2) pairwise velocity updates.
type Integrator struct {
	metrics   []Metric
	observers []Observer
	stepper   Stepper
}

// Stepper performs one iteration in place. Implementations must match Step
// bit for bit.
type Stepper interface {
	Step(bodies []physics.Body, dt float32, k physics.Kernel)
}

type serial struct{}

func (serial) Step(bodies []physics.Body, dt float32, k physics.Kernel) { Step(bodies, dt, k) }

func New() *Integrator {
	return &Integrator{
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		stepper:   serial{},
	}
}

func (in *Integrator) AddMetric(m Metric)     { in.metrics = append(in.metrics, m) }
func (in *Integrator) AddObserver(o Observer) { in.observers = append(in.observers, o) }

// SetStepper replaces the serial step; nil restores it.
func (in *Integrator) SetStepper(s Stepper) {
	if s == nil {
		s = serial{}
	}
	in.stepper = s
}

// Step performs one iteration in place. Every position is moved with the
// velocities of the previous iteration before any velocity changes.
func Step(bodies []physics.Body, dt float32, k physics.Kernel) {
	for j := range bodies {
		physics.UpdatePosition(&bodies[j], dt)
	}

	for j := range bodies {
		for i := range bodies {
			if i != j {
				physics.UpdateVelocity(&bodies[j], &bodies[i], dt, k)
			}
		}
	}
}

// Run integrates bodies in place for cfg.Iterations steps. The outcome only
// depends on the initial state and cfg. On cancellation the partial result
// is returned together with the context error.
func (in *Integrator) Run(ctx context.Context, bodies []physics.Body, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	result := &Result{
		Samples: make([]Sample, 0, sampleCapacity(cfg)),
		Metrics: make(map[string]float64),
	}

	for _, m := range in.metrics {
		m.Reset()
		m.Observe(0, bodies)
	}

	result.Samples = append(result.Samples, Sample{Step: 0, Bodies: physics.Clone(bodies)})
	g := float64(cfg.Kernel.G)
	initialEnergy := physics.TotalEnergy(bodies, g)

	for i := 1; i <= cfg.Iterations; i++ {
		select {
		case <-ctx.Done():
			in.finish(result, bodies, g, initialEnergy)
			return result, ctx.Err()
		default:
		}

		in.stepper.Step(bodies, cfg.Dt, cfg.Kernel)
		result.StepsTaken++

		for _, m := range in.metrics {
			m.Observe(i, bodies)
		}
		for _, obs := range in.observers {
			obs.OnStep(i, bodies)
		}

		if cfg.SampleEvery > 0 && i%cfg.SampleEvery == 0 && i != cfg.Iterations {
			result.Samples = append(result.Samples, Sample{Step: i, Bodies: physics.Clone(bodies)})
		}
	}

	in.finish(result, bodies, g, initialEnergy)
	return result, nil
}

func (in *Integrator) finish(result *Result, bodies []physics.Body, g, initialEnergy float64) {
	last := result.Samples[len(result.Samples)-1]
	if last.Step != result.StepsTaken {
		result.Samples = append(result.Samples, Sample{Step: result.StepsTaken, Bodies: physics.Clone(bodies)})
	}

	finalEnergy := physics.TotalEnergy(bodies, g)
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range in.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", cfg.Dt)
	}
	if cfg.Iterations < 0 {
		return fmt.Errorf("iterations must be non-negative, got %d", cfg.Iterations)
	}
	if cfg.Kernel.Refinements < 0 {
		return fmt.Errorf("refinements must be non-negative, got %d", cfg.Kernel.Refinements)
	}
	if cfg.SampleEvery < 0 {
		return fmt.Errorf("sample interval must be non-negative, got %d", cfg.SampleEvery)
	}
	return nil
}

func sampleCapacity(cfg Config) int {
	if cfg.SampleEvery <= 0 {
		return 2
	}
	return cfg.Iterations/cfg.SampleEvery + 2
}
