// Package varga computes divisional (harmonic) chart placements from sidereal longitudes.
//
// Every supported factor N splits each 30° sign into N segments of 30/N degrees. The
// sign a segment maps to is read from a lookup table built once from the classical
// rules in tables.go; nothing is derived per call.
package varga

import (
	"fmt"
	"math"
	"sort"

	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/zodiac"
	"github.com/hyperjump/vedika/pkg/utils"
)

// Position is a body's placement in one divisional chart.
type Position struct {
	Factor int         `json:"factor"`
	Sign   zodiac.Sign `json:"sign"`
	// Degree is the position within Sign, in [0, 30).
	Degree float64 `json:"degree"`
	// Segment is the one-based division of the originating sign.
	Segment int `json:"segment"`
}

// Longitude returns the position as a longitude in the divisional zodiac.
func (p Position) Longitude() float64 {
	return float64(p.Sign)*zodiac.SignSpan + p.Degree
}

type entry struct {
	name  string
	table [12][]zodiac.Sign
}

var registry = map[int]entry{}

func init() {
	for _, sc := range schemes {
		table, err := sc.expand()
		if err != nil {
			panic(err)
		}
		registry[sc.factor] = entry{name: sc.name, table: table}
	}
}

// Supported returns the supported factors in ascending order.
func Supported() []int {
	out := make([]int, 0, len(registry))
	for f := range registry {
		out = append(out, f)
	}
	sort.Ints(out)
	return out
}

// IsSupported reports whether a table exists for factor.
func IsSupported(factor int) bool {
	_, ok := registry[factor]
	return ok
}

// Name returns the classical name of the D-factor chart, e.g. "Navamsa" for 9.
func Name(factor int) (string, error) {
	e, ok := registry[factor]
	if !ok {
		return "", errs.UnsupportedFactor(factor)
	}
	return e.name, nil
}

// Lookup returns the resulting sign for a zero-based segment of the originating sign.
func Lookup(factor int, origin zodiac.Sign, segment int) (zodiac.Sign, error) {
	e, ok := registry[factor]
	if !ok {
		return 0, errs.UnsupportedFactor(factor)
	}
	if origin < zodiac.Aries || origin > zodiac.Pisces || segment < 0 || segment >= factor {
		return 0, errs.Boundary("D%d segment %d of %s out of range", factor, segment, origin)
	}
	return e.table[origin][segment], nil
}

// Compute places a sidereal longitude in the D-factor chart.
// The degree within the resulting sign is (degrees into sign mod 30/N) × N.
func Compute(lon float64, factor int) (Position, error) {
	e, ok := registry[factor]
	if !ok {
		return Position{}, errs.UnsupportedFactor(factor)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return Position{}, errs.Boundary("longitude %v is not finite", lon)
	}
	origin, inSign := zodiac.Locate(lon)
	if factor == 1 {
		return Position{Factor: 1, Sign: origin, Degree: inSign, Segment: 1}, nil
	}

	// segment within the sign, snapped so exact boundaries open the next segment
	width := zodiac.SignSpan / float64(factor)
	pos := utils.SnapUnits(inSign, width)
	seg := min(int(math.Floor(pos)), factor-1)

	degree := 0.0
	if pos != float64(seg) {
		degree = (inSign - float64(seg)*width) * float64(factor)
		degree = math.Max(0, math.Min(degree, math.Nextafter(zodiac.SignSpan, 0)))
	}
	return Position{
		Factor:  factor,
		Sign:    e.table[origin][seg],
		Degree:  degree,
		Segment: seg + 1,
	}, nil
}

// Vargottama reports whether a longitude occupies the same sign in the rashi and navamsa charts.
func Vargottama(lon float64) bool {
	d9, err := Compute(lon, 9)
	if err != nil {
		return false
	}
	return d9.Sign == zodiac.SignOf(lon)
}

// Describe returns "D9 Navamsa" style labels; unsupported factors render as "D5".
func Describe(factor int) string {
	if name, err := Name(factor); err == nil {
		return fmt.Sprintf("D%d %s", factor, name)
	}
	return fmt.Sprintf("D%d", factor)
}
