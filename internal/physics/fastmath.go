package physics

import "math"

// invSqrtMagic is the initial-guess constant for the reciprocal square root.
const invSqrtMagic uint32 = 0x5f3759df

// Float32Bits reinterprets the IEEE-754 single precision bit pattern of f as
// an unsigned integer. No numeric conversion takes place: NaN payloads, signed
// zeros and denormals are preserved bit for bit.
func Float32Bits(f float32) uint32 { return math.Float32bits(f) }

// Float32FromBits is the inverse of Float32Bits.
func Float32FromBits(b uint32) float32 { return math.Float32frombits(b) }

// FastInvSqrt approximates 1/sqrt(x) without a square root or a division.
//
// The bit pattern of x gives a coarse guess, which is corrected by one
// Newton-Raphson step and then by refinements further steps. Each step
// roughly squares the relative error: about 1.7e-3 after the fixed step,
// below 1e-5 after one refinement and at float32 rounding after two.
//
// x must be strictly positive. Zero, negative and NaN inputs produce
// meaningless results.
func FastInvSqrt(x float32, refinements int) float32 {
	half := x * 0.5
	y := Float32FromBits(invSqrtMagic - (Float32Bits(x) >> 1))

	y = y * (1.5 - half*y*y)
	for i := 0; i < refinements; i++ {
		y = y * (1.5 - half*y*y)
	}
	return y
}
