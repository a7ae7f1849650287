package compute

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/san-kum/celestial/internal/physics"
)

// ParallelThreshold is the smallest set the CPU backend splits across
// workers.
const ParallelThreshold = 16

type CPUBackend struct {
	workers int
}

// NewCPUBackend uses workers goroutines, or one per CPU when workers < 1.
func NewCPUBackend(workers int) *CPUBackend {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{workers: workers}
}

func (c *CPUBackend) Name() string { return fmt.Sprintf("cpu/%d", c.workers) }

func (c *CPUBackend) Step(bodies []physics.Body, dt float32, k physics.Kernel) {
	n := len(bodies)
	if n < ParallelThreshold || c.workers == 1 {
		Serial{}.Step(bodies, dt, k)
		return
	}

	for j := range bodies {
		physics.UpdatePosition(&bodies[j], dt)
	}

	var wg sync.WaitGroup
	chunkSize := (n + c.workers - 1) / c.workers

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func() {
			defer wg.Done()
			accumulate(bodies, start, end, dt, k)
		}()
	}
	wg.Wait()
}
