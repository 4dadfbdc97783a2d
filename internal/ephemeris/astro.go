package ephemeris

import (
	"math"
	"time"

	"github.com/hyperjump/vedika/internal/zodiac"
)

const (
	j2000       = 2451545.0
	unixEpochJD = 2440587.5
	deg         = math.Pi / 180
)

// julianDay returns the Julian day of t. Terrestrial and universal time are not
// distinguished.
func julianDay(t time.Time) float64 {
	return unixEpochJD + float64(t.Unix())/86400 + float64(t.Nanosecond())/86400e9
}

// centuries returns Julian centuries since J2000.
func centuries(t time.Time) float64 {
	return (julianDay(t) - j2000) / 36525
}

func sin(d float64) float64 { return math.Sin(d * deg) }
func cos(d float64) float64 { return math.Cos(d * deg) }
func tan(d float64) float64 { return math.Tan(d * deg) }

func atan2(y, x float64) float64 { return zodiac.Normalize(math.Atan2(y, x) / deg) }

// obliquity returns the mean obliquity of the ecliptic in degrees.
func obliquity(T float64) float64 {
	return 23.439291 - 0.0130042*T - 1.64e-7*T*T + 5.04e-7*T*T*T
}

// nutation returns the nutation in longitude in degrees, to about 0.5".
func nutation(T float64) float64 {
	omega := 125.04452 - 1934.136261*T
	sunL := 280.4665 + 36000.7698*T
	moonL := 218.3165 + 481267.8813*T
	return (-17.20*sin(omega) - 1.32*sin(2*sunL) - 0.23*sin(2*moonL) + 0.21*sin(2*omega)) / 3600
}

// precession returns the general precession in longitude since J2000, in degrees.
func precession(T float64) float64 {
	return (5028.796195*T + 1.1054348*T*T) / 3600
}

// siderealTime returns the local mean sidereal time in degrees for an east-positive longitude.
func siderealTime(t time.Time, lon float64) float64 {
	d := julianDay(t) - j2000
	T := d / 36525
	gmst := 280.46061837 + 360.98564736629*d + 0.000387933*T*T - T*T*T/38710000
	return zodiac.Normalize(gmst + lon)
}
