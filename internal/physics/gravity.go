package physics

import "math"

// UpdatePosition advances a body along its current velocity.
func UpdatePosition(b *Body, dt float32) {
	b.X += b.VX * dt
	b.Y += b.VY * dt
	b.Z += b.VZ * dt
}

// UpdateVelocity adds the velocity change imparted on target by source over
// dt. The two bodies must not coincide.
func UpdateVelocity(target *Body, source *Body, dt float32, k Kernel) {
	dx := source.X - target.X
	dy := source.Y - target.Y
	dz := source.Z - target.Z

	distSq := dx*dx + dy*dy + dz*dz
	invDist := FastInvSqrt(distSq, k.Refinements)
	invDistCube := invDist * invDist * invDist

	acc := k.G * source.Mass * invDistCube * dt

	target.VX += acc * dx
	target.VY += acc * dy
	target.VZ += acc * dz
}

// Distance is the exact euclidean distance between two bodies, in float64.
func Distance(a, b Body) float64 {
	dx := float64(b.X) - float64(a.X)
	dy := float64(b.Y) - float64(a.Y)
	dz := float64(b.Z) - float64(a.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// ApproxDistance is the distance as the accelerator would compute it, via
// FastInvSqrt.
func ApproxDistance(a, b Body, refinements int) float32 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	return 1 / FastInvSqrt(dx*dx+dy*dy+dz*dz, refinements)
}

// TotalEnergy returns kinetic plus potential energy of the set, with g as the
// gravitational constant. Coincident pairs are skipped.
func TotalEnergy(bodies []Body, g float64) float64 {
	ke := 0.0
	pe := 0.0

	for i := range bodies {
		bi := bodies[i]
		vx, vy, vz := float64(bi.VX), float64(bi.VY), float64(bi.VZ)
		ke += 0.5 * float64(bi.Mass) * (vx*vx + vy*vy + vz*vz)

		for j := i + 1; j < len(bodies); j++ {
			r := Distance(bi, bodies[j])
			if r == 0 {
				continue
			}
			pe -= g * float64(bi.Mass) * float64(bodies[j].Mass) / r
		}
	}

	return ke + pe
}

// Momentum returns the total linear momentum of the set.
func Momentum(bodies []Body) (px, py, pz float64) {
	for _, b := range bodies {
		m := float64(b.Mass)
		px += m * float64(b.VX)
		py += m * float64(b.VY)
		pz += m * float64(b.VZ)
	}
	return
}
