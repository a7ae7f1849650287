package physics

import (
	"math"
	"testing"
)

func relErr(got float32, x float32) float64 {
	want := 1 / math.Sqrt(float64(x))
	return math.Abs(float64(got)-want) / want
}

func TestFastInvSqrt_Bounds(t *testing.T) {
	bounds := []struct {
		refinements int
		maxErr      float64
	}{
		{0, 2e-3},
		{1, 1e-5},
		{2, 2e-6},
		{3, 2e-6},
	}

	for x := 1e6; x <= 1e20; x *= 10 {
		for _, b := range bounds {
			if e := relErr(FastInvSqrt(float32(x), b.refinements), float32(x)); e > b.maxErr {
				t.Errorf("x=%g r=%d: relative error %.3e exceeds %.1e", x, b.refinements, e, b.maxErr)
			}
		}
	}
}

func TestFastInvSqrt_Converges(t *testing.T) {
	inputs := []float32{1e6, 3.7e9, 2.25e22 / 1e3, 1.4e17, 9.99e19}

	for _, x := range inputs {
		e0 := relErr(FastInvSqrt(x, 0), x)
		e1 := relErr(FastInvSqrt(x, 1), x)
		e2 := relErr(FastInvSqrt(x, 2), x)

		if e1 >= e0 {
			t.Errorf("x=%g: one refinement did not improve (%.3e -> %.3e)", x, e0, e1)
		}
		// past convergence only float32 rounding remains
		if e2 > e1+1e-7 {
			t.Errorf("x=%g: second refinement regressed (%.3e -> %.3e)", x, e1, e2)
		}
	}
}

func TestFastInvSqrt_TwoBodyMagnitude(t *testing.T) {
	// squared Sun-Earth distance
	x := float32(2.2842e22)
	if e := relErr(FastInvSqrt(x, DefaultRefinements), x); e > 0.002 {
		t.Errorf("relative error %.3e above 0.2%%", e)
	}
}

func TestFloat32Bits_RoundTrip(t *testing.T) {
	values := []float32{
		0, float32(math.Copysign(0, -1)), 1, -1, 1.989e30, 6.67430e-11,
		math.MaxFloat32, math.SmallestNonzeroFloat32, float32(math.Inf(1)),
	}

	for _, v := range values {
		bits := Float32Bits(v)
		if got := Float32FromBits(bits); Float32Bits(got) != bits {
			t.Errorf("bits of %g changed: %08x -> %08x", v, bits, Float32Bits(got))
		}
	}

	if Float32Bits(1) != 0x3f800000 {
		t.Errorf("Float32Bits(1) = %08x, want 3f800000", Float32Bits(1))
	}
}
