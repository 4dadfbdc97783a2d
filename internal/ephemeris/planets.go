package ephemeris

import (
	"math"

	"github.com/hyperjump/vedika/internal/models"
)

// auKM is the astronomical unit in kilometres.
const auKM = 149597870.7

// elements are Keplerian elements at J2000 with their rates per Julian century:
// semi-major axis (au), eccentricity, inclination, mean longitude, longitude of
// perihelion and longitude of the ascending node (degrees).
type elements struct {
	a, e, i, l, peri, node       float64
	da, de, di, dl, dperi, dnode float64
}

// keplerian holds approximate elements valid 1800-2050, referred to the J2000 ecliptic.
var keplerian = map[models.Body]elements{
	models.Mercury: {
		0.38709927, 0.20563593, 7.00497902, 252.25032350, 77.45779628, 48.33076593,
		0.00000037, 0.00001906, -0.00594749, 149472.67411175, 0.16047689, -0.12534081,
	},
	models.Venus: {
		0.72333566, 0.00677672, 3.39467605, 181.97909950, 131.60246718, 76.67984255,
		0.00000390, -0.00004107, -0.00078890, 58517.81538729, 0.00268329, -0.27769418,
	},
	models.Mars: {
		1.52371034, 0.09339410, 1.84969142, -4.55343205, -23.94362959, 49.55953891,
		0.00001847, 0.00007882, -0.00813131, 19140.30268499, 0.44441088, -0.29257343,
	},
	models.Jupiter: {
		5.20288700, 0.04838624, 1.30439695, 34.39644051, 14.72847983, 100.47390909,
		-0.00011607, -0.00013253, -0.00183714, 3034.74612775, 0.21252668, 0.20469106,
	},
	models.Saturn: {
		9.53667594, 0.05386179, 2.48599187, 49.95424423, 92.59887831, 113.66242448,
		-0.00125060, -0.00050991, 0.00193609, 1222.49362201, -0.41897216, -0.28867794,
	},
}

// earthMoonBarycenter stands in for the Earth's heliocentric position.
var earthMoonBarycenter = elements{
	1.00000261, 0.01671123, -0.00001531, 100.46457166, 102.93768193, 0,
	0.00000562, -0.00004392, -0.01294668, 35999.37244981, 0.32327364, 0,
}

// heliocentric returns J2000 ecliptic rectangular coordinates in au.
func (el elements) heliocentric(T float64) (x, y, z float64) {
	a := el.a + el.da*T
	e := el.e + el.de*T
	inc := el.i + el.di*T
	L := el.l + el.dl*T
	peri := el.peri + el.dperi*T
	node := el.node + el.dnode*T

	omega := peri - node
	M := math.Mod(L-peri, 360)
	if M > 180 {
		M -= 360
	} else if M < -180 {
		M += 360
	}
	E := solveKepler(M*deg, e)

	xp := a * (math.Cos(E) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(E)

	co, so := cos(omega), sin(omega)
	cn, sn := cos(node), sin(node)
	ci, si := cos(inc), sin(inc)
	x = (co*cn-so*sn*ci)*xp + (-so*cn-co*sn*ci)*yp
	y = (co*sn+so*cn*ci)*xp + (-so*sn+co*cn*ci)*yp
	z = (so*si)*xp + (co*si)*yp
	return x, y, z
}

// solveKepler solves E − e sin E = M by Newton iteration. Angles are in radians.
func solveKepler(M, e float64) float64 {
	E := M + e*math.Sin(M)
	for range 30 {
		dE := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= dE
		if math.Abs(dE) < 1e-12 {
			break
		}
	}
	return E
}

// planetPosition returns geometric geocentric longitude and latitude referred to the mean
// equinox of date, and distance in au.
func planetPosition(el elements, T float64) (lon, lat, dist float64) {
	px, py, pz := el.heliocentric(T)
	ex, ey, ez := earthMoonBarycenter.heliocentric(T)
	x, y, z := px-ex, py-ey, pz-ez
	lon = atan2(y, x) + precession(T)
	lat = math.Atan2(z, math.Hypot(x, y)) / deg
	return lon, lat, math.Sqrt(x*x + y*y + z*z)
}

// sunPosition returns the geometric longitude of the Sun referred to the mean equinox of
// date and its distance in au.
func sunPosition(T float64) (lon, dist float64) {
	L0 := 280.46646 + 36000.76983*T + 0.0003032*T*T
	M := 357.52911 + 35999.05029*T - 0.0001537*T*T
	e := 0.016708634 - 0.000042037*T - 0.0000001267*T*T
	C := (1.914602-0.004817*T-0.000014*T*T)*sin(M) + (0.019993-0.000101*T)*sin(2*M) + 0.000289*sin(3*M)
	nu := M + C
	return L0 + C, 1.000001018 * (1 - e*e) / (1 + e*cos(nu))
}

// meanNode returns the longitude of the mean ascending lunar node.
func meanNode(T float64) float64 {
	return 125.0445479 - 1934.1362891*T + 0.0020754*T*T + T*T*T/467441 - T*T*T*T/60616000
}
