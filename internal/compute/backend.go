package compute

import (
	"fmt"

	"github.com/san-kum/celestial/internal/physics"
)

// Backend advances a body set by one iteration in place.
type Backend interface {
	Name() string
	Step(bodies []physics.Body, dt float32, k physics.Kernel)
}

// Serial is the single-goroutine backend.
type Serial struct{}

func (Serial) Name() string { return "serial" }

func (Serial) Step(bodies []physics.Body, dt float32, k physics.Kernel) {
	for j := range bodies {
		physics.UpdatePosition(&bodies[j], dt)
	}
	accumulate(bodies, 0, len(bodies), dt, k)
}

// accumulate applies every source to the targets in [start, end).
func accumulate(bodies []physics.Body, start, end int, dt float32, k physics.Kernel) {
	for j := start; j < end; j++ {
		for i := range bodies {
			if i != j {
				physics.UpdateVelocity(&bodies[j], &bodies[i], dt, k)
			}
		}
	}
}

// ByName returns "serial" or "cpu"; workers applies to cpu only.
func ByName(name string, workers int) (Backend, error) {
	switch name {
	case "serial", "":
		return Serial{}, nil
	case "cpu":
		return NewCPUBackend(workers), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want serial or cpu)", name)
	}
}
