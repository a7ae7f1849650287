package accel

import "github.com/san-kum/celestial/internal/physics"

// Scaling maps SI quantities into the accelerator's limited numeric range.
// Masses carry G so the device never multiplies by it; lengths, velocities
// and sizes share one factor, which keeps accelerations consistent:
// G*m*MassFactor / (r*LengthFactor)^2 == LengthFactor * G*m/r^2 when
// MassFactor == LengthFactor^3.
type Scaling struct {
	G            float32 `yaml:"g"`
	MassFactor   float32 `yaml:"mass_factor"`
	LengthFactor float32 `yaml:"length_factor"`
}

func DefaultScaling() Scaling {
	return Scaling{
		G:            physics.G,
		MassFactor:   1e-18,
		LengthFactor: 1e-6,
	}
}

func (s Scaling) Mass(m float32) float32   { return m * s.G * s.MassFactor }
func (s Scaling) Length(v float32) float32 { return v * s.LengthFactor }

// Unlength converts a scaled position or velocity component back to SI.
func (s Scaling) Unlength(v float32) float32 { return v / s.LengthFactor }

// Body returns b in device units.
func (s Scaling) Body(b physics.Body) physics.Body {
	return physics.Body{
		X:    s.Length(b.X),
		Y:    s.Length(b.Y),
		Z:    s.Length(b.Z),
		VX:   s.Length(b.VX),
		VY:   s.Length(b.VY),
		VZ:   s.Length(b.VZ),
		Mass: s.Mass(b.Mass),
		Size: s.Length(b.Size),
	}
}
