package analysis

import (
	"fmt"

	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/sim"
)

// Axis selects one scalar of a body's state.
type Axis int

const (
	X Axis = iota
	Y
	Z
	VX
	VY
	VZ
)

var axisNames = []string{"x", "y", "z", "vx", "vy", "vz"}

func (a Axis) String() string {
	if a >= 0 && int(a) < len(axisNames) {
		return axisNames[a]
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// ParseAxis accepts the lower-case names printed by String.
func ParseAxis(s string) (Axis, error) {
	for i, n := range axisNames {
		if n == s {
			return Axis(i), nil
		}
	}
	return 0, fmt.Errorf("unknown axis %q (want one of %v)", s, axisNames)
}

func (a Axis) of(b physics.Body) float64 {
	switch a {
	case X:
		return float64(b.X)
	case Y:
		return float64(b.Y)
	case Z:
		return float64(b.Z)
	case VX:
		return float64(b.VX)
	case VY:
		return float64(b.VY)
	default:
		return float64(b.VZ)
	}
}

// Component returns one axis of body index across samples. Samples that do
// not contain the body are skipped.
func Component(samples []sim.Sample, index int, axis Axis) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		if index < len(s.Bodies) {
			out = append(out, axis.of(s.Bodies[index]))
		}
	}
	return out
}

// Distances returns the separation of two bodies across samples.
func Distances(samples []sim.Sample, a, b int) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		if a < len(s.Bodies) && b < len(s.Bodies) {
			out = append(out, physics.Distance(s.Bodies[a], s.Bodies[b]))
		}
	}
	return out
}
