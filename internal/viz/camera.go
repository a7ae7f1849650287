package viz

import (
	"math"

	"github.com/san-kum/celestial/internal/physics"
)

type Vec3 struct {
	X, Y, Z float64
}

func Position(b physics.Body) Vec3 {
	return Vec3{float64(b.X), float64(b.Y), float64(b.Z)}
}

func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Length() float64      { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Camera is an orthographic view onto the ecliptic. Extent is the world
// distance shown from the center to the nearest canvas edge at zoom 1.
type Camera struct {
	Center     Vec3
	Extent     float64
	RotX, RotZ float64
	Zoom       float64
}

func NewCamera(extent float64) *Camera {
	if extent <= 0 {
		extent = 1
	}
	return &Camera{Extent: extent, Zoom: 1}
}

// FitCamera returns a camera whose extent covers every body with a margin.
func FitCamera(bodies []physics.Body) *Camera {
	var extent float64
	for _, b := range bodies {
		if d := Position(b).Length(); d > extent && !math.IsInf(d, 0) {
			extent = d
		}
	}
	return NewCamera(extent * 1.1)
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(1e4, c.Zoom*1.5) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.5) }

// rotate spins around the ecliptic normal, then tilts.
func (c *Camera) rotate(p Vec3) Vec3 {
	cz, sz := math.Cos(c.RotZ), math.Sin(c.RotZ)
	p.X, p.Y = p.X*cz-p.Y*sz, p.X*sz+p.Y*cz
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	return p
}

// Project maps a world point to dot coordinates on a sw x sh canvas and
// reports whether it lands inside.
func (c *Camera) Project(p Vec3, sw, sh int) (int, int, bool) {
	rot := c.rotate(p.Sub(c.Center))
	half := math.Min(float64(sw), float64(sh)) / 2
	scale := half * c.Zoom / c.Extent

	fx := rot.X*scale + float64(sw)/2
	fy := -rot.Y*scale + float64(sh)/2
	if !(fx >= 0 && fx < float64(sw) && fy >= 0 && fy < float64(sh)) {
		return 0, 0, false
	}
	return int(fx), int(fy), true
}
