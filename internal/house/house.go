// Package house assigns sidereal longitudes to the twelve houses under a selected house system.
package house

import (
	"fmt"
	"math"
	"strings"

	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/zodiac"
)

// System is a house-division method.
type System int

const (
	// WholeSign makes each sign one house, starting with the ascendant's sign.
	WholeSign System = iota
	// Equal makes twelve 30° houses starting at the ascendant degree.
	Equal
	// Porphyry trisects each quadrant between the angles.
	Porphyry
	// Placidus divides the diurnal and nocturnal semi-arcs.
	Placidus
	// Sripati treats Porphyry cusps as house middles; boundaries fall halfway between them.
	Sripati
)

// Default is the house system used when none is configured.
const Default = WholeSign

var systemNames = map[System]string{
	WholeSign: "whole_sign",
	Equal:     "equal",
	Porphyry:  "porphyry",
	Placidus:  "placidus",
	Sripati:   "sripati",
}

var aliases = map[string]System{
	"whole_sign": WholeSign,
	"wholesign":  WholeSign,
	"whole":      WholeSign,
	"rashi":      WholeSign,
	"equal":      Equal,
	"porphyry":   Porphyry,
	"placidus":   Placidus,
	"sripati":    Sripati,
	"bhava":      Sripati,
}

// Systems lists every supported system.
var Systems = []System{WholeSign, Equal, Porphyry, Placidus, Sripati}

func (s System) String() string {
	if n, ok := systemNames[s]; ok {
		return n
	}
	return fmt.Sprintf("System(%d)", int(s))
}

// MarshalText encodes the canonical name.
func (s System) MarshalText() ([]byte, error) {
	if _, ok := systemNames[s]; !ok {
		return nil, errs.Configuration("house system", s.String())
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a system name or alias.
func (s *System) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Parse resolves a house system name, case-insensitively.
func Parse(name string) (System, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if s, ok := aliases[key]; ok {
		return s, nil
	}
	return 0, errs.Configuration("house system", name)
}

// IsQuadrant reports whether cusps for s come from the ephemeris adapter.
func (s System) IsQuadrant() bool {
	return s == Porphyry || s == Placidus || s == Sripati
}

// CuspSource returns the quadrant system the adapter must compute cusps for.
// Sripati is derived from Porphyry cusps.
func (s System) CuspSource() System {
	if s == Sripati {
		return Porphyry
	}
	return s
}

// PlacidusLatitudeLimit is the highest absolute latitude at which Placidus cusps exist
// for any epoch the adapters cover. Poleward of it some ecliptic degrees never rise or set.
const PlacidusLatitudeLimit = 66.5

// CheckLatitude rejects a system that has no cusps at lat.
func (s System) CheckLatitude(lat float64) error {
	if s.CuspSource() == Placidus && math.Abs(lat) >= PlacidusLatitudeLimit {
		return errs.Validation("%s houses are undefined at latitude %.4f", s, lat).
			WithDetail("limit", PlacidusLatitudeLimit)
	}
	return nil
}

// Cusps holds the twelve house starting longitudes; Cusps[0] is house 1.
type Cusps [12]float64

// Calculator assigns longitudes to houses for one chart.
type Calculator struct {
	system    System
	ascendant float64
	cusps     Cusps
}

// NewCalculator builds a calculator from the sidereal ascendant.
// quadrant holds the sidereal cusps supplied by the ephemeris adapter and is ignored
// for WholeSign and Equal. For Sripati it holds the Porphyry cusps.
func NewCalculator(system System, ascendant float64, quadrant *Cusps) (*Calculator, error) {
	if _, ok := systemNames[system]; !ok {
		return nil, errs.Configuration("house system", system.String())
	}
	asc := zodiac.Normalize(ascendant)
	c := &Calculator{system: system, ascendant: asc}
	switch system {
	case WholeSign:
		start := float64(zodiac.SignOf(asc)) * zodiac.SignSpan
		for i := range c.cusps {
			c.cusps[i] = zodiac.Normalize(start + float64(i)*zodiac.SignSpan)
		}
	case Equal:
		for i := range c.cusps {
			c.cusps[i] = zodiac.Normalize(asc + float64(i)*zodiac.SignSpan)
		}
	default:
		if quadrant == nil {
			return nil, errs.Validation("%s houses need cusps from the ephemeris", system)
		}
		src := *quadrant
		for i := range src {
			src[i] = zodiac.Normalize(src[i])
		}
		if system == Sripati {
			for i := range c.cusps {
				prev := src[(i+11)%12]
				c.cusps[i] = zodiac.Midpoint(prev, src[i])
			}
		} else {
			c.cusps = src
		}
		if err := checkOrder(c.cusps); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// checkOrder verifies the cusps advance around the circle exactly once.
func checkOrder(c Cusps) error {
	total := 0.0
	for i := range c {
		arc := zodiac.Arc(c[i], c[(i+1)%12])
		if arc == 0 {
			return errs.Boundary("house %d has zero width", i+1)
		}
		total += arc
	}
	if total < zodiac.FullCircle-1e-6 || total > zodiac.FullCircle+1e-6 {
		return errs.Boundary("house arcs sum to %.6f degrees", total)
	}
	return nil
}

// System returns the active house system.
func (c *Calculator) System() System { return c.system }

// Ascendant returns the sidereal ascendant.
func (c *Calculator) Ascendant() float64 { return c.ascendant }

// Cusps returns the sidereal house starting longitudes.
func (c *Calculator) Cusps() Cusps { return c.cusps }

// Assign returns the house (1-12) containing the sidereal longitude.
// House n covers [cusp n, cusp n+1), which is the house whose cusp lies the shortest
// forward arc behind the longitude. Picking that minimum keeps assignment total and
// exclusive even when rounding leaves arcs a few ulps short of 360°.
func (c *Calculator) Assign(lon float64) int {
	lon = zodiac.Normalize(lon)
	if c.system == WholeSign {
		return WholeSignHouse(zodiac.SignOf(c.ascendant), zodiac.SignOf(lon))
	}
	best, bestArc := 0, zodiac.FullCircle
	for i, cusp := range c.cusps {
		if arc := zodiac.Arc(cusp, lon); arc < bestArc {
			best, bestArc = i, arc
		}
	}
	return best + 1
}

// WholeSignHouse returns ((body − ascendant) mod 12) + 1.
func WholeSignHouse(ascendant, body zodiac.Sign) int {
	return (int(body)-int(ascendant)+12)%12 + 1
}
