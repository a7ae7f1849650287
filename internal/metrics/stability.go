package metrics

import (
	"math"

	"github.com/san-kum/celestial/internal/physics"
)

// Stability is the fraction of observed steps in which every body stayed
// finite and within threshold of the origin on each axis.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(step int, bodies []physics.Body) {
	s.samples++
	for _, b := range bodies {
		if !bounded(b.X, s.threshold) || !bounded(b.Y, s.threshold) || !bounded(b.Z, s.threshold) {
			s.violations++
			break
		}
	}
}

func bounded(v float32, threshold float64) bool {
	f := float64(v)
	return !math.IsNaN(f) && math.Abs(f) <= threshold
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
