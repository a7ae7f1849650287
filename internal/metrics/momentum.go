package metrics

import (
	"math"

	"github.com/san-kum/celestial/internal/physics"
)

// MomentumDrift tracks the largest change in total linear momentum relative
// to the momentum scale of the first observation. Pairwise updates with the
// approximate inverse square root are not exactly antisymmetric, so this is
// small but not zero.
type MomentumDrift struct {
	name       string
	px, py, pz float64
	scale      float64
	maxDrift   float64
	samples    int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(step int, bodies []physics.Body) {
	px, py, pz := physics.Momentum(bodies)

	if m.samples == 0 {
		m.px, m.py, m.pz = px, py, pz
		for _, b := range bodies {
			v := math.Sqrt(float64(b.VX)*float64(b.VX) + float64(b.VY)*float64(b.VY) + float64(b.VZ)*float64(b.VZ))
			m.scale += float64(b.Mass) * v
		}
	}
	m.samples++

	if m.scale == 0 {
		return
	}
	dx, dy, dz := px-m.px, py-m.py, pz-m.pz
	m.maxDrift = math.Max(m.maxDrift, math.Sqrt(dx*dx+dy*dy+dz*dz)/m.scale)
}

func (m *MomentumDrift) Value() float64 {
	return m.maxDrift
}

func (m *MomentumDrift) Reset() {
	m.px, m.py, m.pz = 0, 0, 0
	m.scale = 0
	m.maxDrift = 0
	m.samples = 0
}
