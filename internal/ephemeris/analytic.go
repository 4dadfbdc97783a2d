package ephemeris

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/house"
	"github.com/hyperjump/vedika/internal/models"
	"github.com/hyperjump/vedika/internal/zodiac"
)

// speedStep is the half-width of the central difference used for daily motion.
const speedStep = 12 * time.Hour

// Analytic computes positions from closed-form series: a low-precision solar theory,
// the principal terms of the lunar theory, approximate Keplerian elements for the
// planets and the mean lunar node. Longitudes are apparent (nutation applied) and good
// to roughly 0.01° for the Sun and Moon and a few arcminutes for the planets between
// 1800 and 2050.
type Analytic struct{}

// NewAnalytic returns the built-in analytic adapter.
func NewAnalytic() *Analytic {
	return &Analytic{}
}

// Position implements Adapter. The observer location is unused: positions are geocentric.
func (a *Analytic) Position(ctx context.Context, body models.Body, t time.Time, lat, lon float64) (models.BodyPosition, error) {
	if err := ctx.Err(); err != nil {
		return models.BodyPosition{}, err
	}
	if body < models.Sun || body > models.Ketu {
		return models.BodyPosition{}, fmt.Errorf("unsupported body %d", int(body))
	}
	l, b, r := longitudeAt(body, centuries(t))
	before, _, _ := longitudeAt(body, centuries(t.Add(-speedStep)))
	after, _, _ := longitudeAt(body, centuries(t.Add(speedStep)))
	speed := zodiac.Diff(before, after) / (2 * speedStep.Hours() / 24)

	return models.BodyPosition{
		Body:              body,
		TropicalLongitude: l,
		Latitude:          b,
		Distance:          r,
		Speed:             speed,
		Retrograde:        speed < 0,
	}, nil
}

// longitudeAt returns apparent longitude, latitude and distance (au) at T centuries.
func longitudeAt(body models.Body, T float64) (lon, lat, dist float64) {
	switch body {
	case models.Sun:
		l, r := sunPosition(T)
		lon, dist = l-0.005691611/r, r
	case models.Moon:
		l, b, km := moonPosition(T)
		lon, lat, dist = l, b, km/auKM
	case models.Rahu:
		lon = meanNode(T)
	case models.Ketu:
		lon = meanNode(T) + 180
	default:
		lon, lat, dist = planetPosition(keplerian[body], T)
	}
	return zodiac.Normalize(lon + nutation(T)), lat, dist
}

// Ascendant implements Adapter.
func (a *Analytic) Ascendant(ctx context.Context, t time.Time, lat, lon float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ramc := siderealTime(t, lon)
	return ascendant(ramc, obliquity(centuries(t)), lat), nil
}

// Cusps implements Adapter for Porphyry and Placidus. Sripati callers ask for Porphyry.
func (a *Analytic) Cusps(ctx context.Context, t time.Time, lat, lon float64, system house.System) (house.Cusps, error) {
	if err := ctx.Err(); err != nil {
		return house.Cusps{}, err
	}
	ramc := siderealTime(t, lon)
	eps := obliquity(centuries(t))
	switch system.CuspSource() {
	case house.Porphyry:
		return porphyry(ascendant(ramc, eps, lat), midheaven(ramc, eps)), nil
	case house.Placidus:
		return placidus(ramc, eps, lat)
	default:
		return house.Cusps{}, errs.Validation("%s is not a quadrant house system", system)
	}
}

// ascendant returns the ecliptic longitude rising in the east.
func ascendant(ramc, eps, lat float64) float64 {
	return atan2(cos(ramc), -(sin(ramc)*cos(eps) + tan(lat)*sin(eps)))
}

// midheaven returns the ecliptic longitude culminating on the meridian.
func midheaven(ramc, eps float64) float64 {
	return atan2(sin(ramc), cos(ramc)*cos(eps))
}

// porphyry trisects the quadrants between the angles.
func porphyry(asc, mc float64) house.Cusps {
	var c house.Cusps
	ic := zodiac.Normalize(mc + 180)
	upper := zodiac.Arc(mc, asc)
	lower := zodiac.Arc(asc, ic)
	c[0] = asc
	c[1] = zodiac.Normalize(asc + lower/3)
	c[2] = zodiac.Normalize(asc + 2*lower/3)
	c[9] = mc
	c[10] = zodiac.Normalize(mc + upper/3)
	c[11] = zodiac.Normalize(mc + 2*upper/3)
	for i := 3; i < 9; i++ {
		c[i] = zodiac.Normalize(c[(i+6)%12] + 180)
	}
	return c
}

// placidus finds the cusps that trisect the semi-arcs in time. It fails where some
// ecliptic degrees never rise or set.
func placidus(ramc, eps, lat float64) (house.Cusps, error) {
	if math.Abs(lat) >= 90-eps {
		return house.Cusps{}, errs.Validation("placidus houses are undefined at latitude %.4f", lat)
	}
	var c house.Cusps
	c[0] = ascendant(ramc, eps, lat)
	c[9] = midheaven(ramc, eps)

	steps := []struct {
		index    int
		fraction float64
		above    bool
	}{
		{10, 1.0 / 3, true},
		{11, 2.0 / 3, true},
		{1, 2.0 / 3, false},
		{2, 1.0 / 3, false},
	}
	for _, s := range steps {
		lon, err := placidusCusp(ramc, eps, lat, s.fraction, s.above)
		if err != nil {
			return house.Cusps{}, err
		}
		c[s.index] = lon
	}
	for i := 3; i < 9; i++ {
		c[i] = zodiac.Normalize(c[(i+6)%12] + 180)
	}
	return c, nil
}

// placidusCusp iterates on right ascension until the ecliptic point sits the given fraction
// of its diurnal (above) or nocturnal semi-arc from the meridian.
func placidusCusp(ramc, eps, lat, fraction float64, above bool) (float64, error) {
	ra := ramc + fraction*90
	if !above {
		ra = ramc + 180 - fraction*90
	}
	for range 100 {
		lon := atan2(sin(ra), cos(ra)*cos(eps))
		dec := math.Asin(sin(eps)*sin(lon)) / deg
		x := tan(lat) * tan(dec)
		if math.Abs(x) >= 1 {
			return 0, errs.Validation("placidus cusp undefined at latitude %.4f", lat)
		}
		ad := math.Asin(x) / deg
		next := ramc + fraction*(90+ad)
		if !above {
			next = ramc + 180 - fraction*(90-ad)
		}
		if math.Abs(zodiac.Diff(ra, next)) < 1e-10 {
			return atan2(sin(next), cos(next)*cos(eps)), nil
		}
		ra = next
	}
	return 0, errs.Boundary("placidus cusp did not converge at latitude %.4f", lat)
}
