// Package zodiac provides the angle and sign arithmetic shared by every stage of the chart pipeline.
package zodiac

import (
	"fmt"
	"math"
	"strings"

	"github.com/hyperjump/vedika/pkg/utils"
)

const (
	// FullCircle is 360 degrees.
	FullCircle = 360.0
	// SignSpan is the width of one zodiac sign in degrees.
	SignSpan = 30.0
)

// Sign is a zodiac sign, Aries = 0 through Pisces = 11.
type Sign int

const (
	Aries Sign = iota
	Taurus
	Gemini
	Cancer
	Leo
	Virgo
	Libra
	Scorpio
	Sagittarius
	Capricorn
	Aquarius
	Pisces
)

var signNames = [12]string{
	"Aries", "Taurus", "Gemini", "Cancer", "Leo", "Virgo",
	"Libra", "Scorpio", "Sagittarius", "Capricorn", "Aquarius", "Pisces",
}

// String returns the English sign name.
func (s Sign) String() string {
	if s < 0 || s > Pisces {
		return fmt.Sprintf("Sign(%d)", int(s))
	}
	return signNames[s]
}

// Number returns the one-based sign number (Aries = 1).
func (s Sign) Number() int { return int(s) + 1 }

// Add returns the sign n places forward, cyclically.
func (s Sign) Add(n int) Sign {
	return Sign(((int(s)+n)%12 + 12) % 12)
}

// MarshalText encodes the sign by name.
func (s Sign) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a sign name, case-insensitively.
func (s *Sign) UnmarshalText(b []byte) error {
	name := strings.TrimSpace(string(b))
	for i, n := range signNames {
		if strings.EqualFold(n, name) {
			*s = Sign(i)
			return nil
		}
	}
	return fmt.Errorf("unknown sign %q", name)
}

// Odd reports whether the sign is odd-numbered (Aries, Gemini, ...).
func (s Sign) Odd() bool { return s%2 == 0 }

// Modality is the movable/fixed/dual grouping of a sign.
type Modality int

const (
	Movable Modality = iota
	Fixed
	Dual
)

func (m Modality) String() string {
	return [...]string{"movable", "fixed", "dual"}[m]
}

// Modality returns the sign's modality.
func (s Sign) Modality() Modality { return Modality(s % 3) }

// Element is the fire/earth/air/water grouping of a sign.
type Element int

const (
	Fire Element = iota
	Earth
	Air
	Water
)

func (e Element) String() string {
	return [...]string{"fire", "earth", "air", "water"}[e]
}

// Element returns the sign's element.
func (s Sign) Element() Element { return Element(s % 4) }

// Normalize maps any finite angle into [0, 360).
// NaN and infinities are returned unchanged; callers check with InRange.
func Normalize(deg float64) float64 {
	r := math.Mod(deg, FullCircle)
	if r < 0 {
		r += FullCircle
	}
	// math.Mod of a tiny negative value plus 360 can round to exactly 360.
	if r >= FullCircle {
		r -= FullCircle
	}
	return r
}

// InRange reports whether deg lies in [0, 360).
func InRange(deg float64) bool {
	return deg >= 0 && deg < FullCircle
}

// SignOf returns the sign containing the longitude.
func SignOf(lon float64) Sign {
	sign, _ := Locate(lon)
	return sign
}

// DegreeInSign returns the offset of the longitude from the start of its sign, in [0, 30).
func DegreeInSign(lon float64) float64 {
	_, deg := Locate(lon)
	return deg
}

// Locate returns the sign containing the longitude and the offset into it. A longitude
// within utils.SnapEpsilon degrees below a boundary opens the next sign, the same rule
// the nakshatra and divisional classifiers apply.
func Locate(lon float64) (Sign, float64) {
	n := Normalize(lon)
	pos := utils.SnapUnits(n, SignSpan)
	s := int(math.Floor(pos))
	if s >= 12 {
		return Aries, 0
	}
	if pos == float64(s) {
		return Sign(s), 0
	}
	d := n - float64(s)*SignSpan
	return Sign(s), math.Max(0, math.Min(d, math.Nextafter(SignSpan, 0)))
}

// Diff returns the signed shortest arc from a to b, in (-180, 180].
func Diff(a, b float64) float64 {
	d := Normalize(b - a)
	if d > 180 {
		d -= FullCircle
	}
	return d
}

// Arc returns the forward arc from a to b, in [0, 360).
func Arc(a, b float64) float64 {
	return Normalize(b - a)
}

// Midpoint returns the longitude halfway along the forward arc from a to b.
func Midpoint(a, b float64) float64 {
	return Normalize(a + Arc(a, b)/2)
}

// FormatDMS renders an angle as degrees, minutes and whole seconds, e.g. 13°20'00".
func FormatDMS(deg float64) string {
	sign := ""
	if deg < 0 {
		sign = "-"
		deg = -deg
	}
	total := int64(math.Round(deg * 3600))
	d := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%s%d°%02d'%02d\"", sign, d, m, s)
}

// FormatInSign renders a longitude as degree-in-sign plus sign abbreviation, e.g. 15°30'00" Leo.
func FormatInSign(lon float64) string {
	return fmt.Sprintf("%s %s", FormatDMS(DegreeInSign(lon)), SignOf(lon))
}
