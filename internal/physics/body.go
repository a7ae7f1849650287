package physics

// G is the gravitational constant in SI units (m^3 kg^-1 s^-2).
const G float32 = 6.67430e-11

// Body is a point mass with a display size. All fields are single precision
// to match the accelerator's datapath.
//
// Mass must be positive for any body acting as a gravitational source; this
// is not checked.
type Body struct {
	X, Y, Z    float32
	VX, VY, VZ float32
	Mass       float32
	Size       float32
}

// Kernel holds the tunable parameters of the pairwise gravity update.
type Kernel struct {
	// G multiplies every source mass. Use 1 when masses are already
	// pre-multiplied by the gravitational constant (accelerator units).
	G float32
	// Refinements is the number of Newton-Raphson corrections applied on top
	// of the fixed first one in FastInvSqrt.
	Refinements int
}

// DefaultRefinements matches the two-body reference scenario.
const DefaultRefinements = 2

// DefaultKernel returns the SI kernel with DefaultRefinements.
func DefaultKernel() Kernel {
	return Kernel{G: G, Refinements: DefaultRefinements}
}

// Clone returns an independent copy of a body set.
func Clone(bodies []Body) []Body {
	c := make([]Body, len(bodies))
	copy(c, bodies)
	return c
}
