// Package physics holds the single-precision gravity kernel shared by the
// software reference and the accelerator emulator.
//
// A step is split in two phases that callers run in order:
//
//	for j := range bodies {
//		physics.UpdatePosition(&bodies[j], dt)
//	}
//	for j := range bodies {
//		for i := range bodies {
//			if i != j {
//				physics.UpdateVelocity(&bodies[j], &bodies[i], dt, k)
//			}
//		}
//	}
//
// UpdateVelocity uses [FastInvSqrt], a bit-level reciprocal square root
// followed by [Kernel.Refinements] Newton-Raphson corrections. With G set to
// 1 the same kernel runs on pre-scaled accelerator units.
//
// # Energy
//
// [TotalEnergy] and [Momentum] are computed in float64 and are only used to
// monitor drift; they never feed back into the integration.
package physics
