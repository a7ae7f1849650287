// Package compute provides CPU backends for the integration step.
//
// Both backends produce bit-identical results. The parallel backend splits
// the velocity phase by target body: every target still sums its sources in
// index order, and positions are frozen for the whole phase.
//
//	in := sim.New()
//	in.SetStepper(compute.NewCPUBackend(0))
//
// Small sets run serially; spawning workers costs more than it saves below
// ParallelThreshold bodies.
package compute
