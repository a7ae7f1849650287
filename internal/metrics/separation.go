package metrics

import (
	"fmt"
	"math"

	"github.com/san-kum/celestial/internal/physics"
)

// Separation follows the distance between two bodies. Its value is the
// largest relative departure from the first observed distance.
type Separation struct {
	name    string
	a, b    int
	initial float64
	min     float64
	max     float64
	final   float64
	samples int
}

func NewSeparation(label string, a, b int) *Separation {
	return &Separation{
		name: fmt.Sprintf("separation_%s", label),
		a:    a,
		b:    b,
	}
}

func (s *Separation) Name() string { return s.name }

func (s *Separation) Observe(step int, bodies []physics.Body) {
	if s.a >= len(bodies) || s.b >= len(bodies) {
		return
	}
	d := physics.Distance(bodies[s.a], bodies[s.b])

	if s.samples == 0 {
		s.initial, s.min, s.max = d, d, d
	}
	s.min = math.Min(s.min, d)
	s.max = math.Max(s.max, d)
	s.final = d
	s.samples++
}

func (s *Separation) Value() float64 {
	if s.samples == 0 || s.initial == 0 {
		return 0
	}
	return math.Max(s.max-s.initial, s.initial-s.min) / s.initial
}

func (s *Separation) Initial() float64 { return s.initial }
func (s *Separation) Min() float64     { return s.min }
func (s *Separation) Max() float64     { return s.max }
func (s *Separation) Final() float64   { return s.final }

func (s *Separation) Reset() {
	s.initial, s.min, s.max, s.final = 0, 0, 0, 0
	s.samples = 0
}
