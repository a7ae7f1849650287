package scenario

import "github.com/san-kum/celestial/internal/physics"

// Heliocentric states in SI units. Positions and velocities are the km and
// km/s ephemeris values scaled by 1e3 in single precision.
var catalog = map[string]physics.Body{
	"sun": {
		Mass: 1.989e30,
		Size: 1,
	},
	"earth": {
		X:    -9.34039169997118860e+07 * 1e3,
		Y:    -1.18811312084356889e+08 * 1e3,
		Z:    7.94186043863161467e+03 * 1e3,
		VX:   2.29385493455156606e+01 * 1e3,
		VY:   -1.85184623747619383e+01 * 1e3,
		VZ:   1.33196768834853430e-03 * 1e3,
		Mass: 5.972e24,
		Size: 6371,
	},
	"moon": {
		X:    -9.36559689590353370e+07 * 1e3,
		Y:    -1.19127336121712506e+08 * 1e3,
		Z:    -2.17642638604252134e+04 * 1e3,
		VX:   2.37093629959455896e+01 * 1e3,
		VY:   -1.91124440864929994e+01 * 1e3,
		VZ:   -4.60429620468332246e-02 * 1e3,
		Mass: 7.34767309e22,
		Size: 1737.4,
	},
	"venus": {
		X:    -1.25794823898377996e+07 * 1e3,
		Y:    -1.07962059001944438e+08 * 1e3,
		Z:    -7.57368338207921246e+05 * 1e3,
		VX:   3.45628783498460805e+01 * 1e3,
		VY:   -4.19309824420221489e+00 * 1e3,
		VZ:   -2.05133668909497757e+00 * 1e3,
		Mass: 4.8675e24,
		Size: 6051.8,
	},
}

// Lookup returns the catalogued initial state of a named body.
func Lookup(name string) (physics.Body, bool) {
	b, ok := catalog[name]
	return b, ok
}
