package dasha

import (
	"slices"
	"strings"
	"time"

	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/models"
)

// CycleYears is the length of one full Vimshottari cycle.
const CycleYears = 120

var order = [9]models.Body{
	models.Ketu, models.Venus, models.Sun, models.Moon, models.Mars,
	models.Rahu, models.Jupiter, models.Saturn, models.Mercury,
}

var years = map[models.Body]int64{
	models.Ketu:    7,
	models.Venus:   20,
	models.Sun:     6,
	models.Moon:    10,
	models.Mars:    7,
	models.Rahu:    18,
	models.Jupiter: 16,
	models.Saturn:  19,
	models.Mercury: 17,
}

// Order returns the nine dasha lords in sequence, starting with Ketu.
func Order() []models.Body {
	return slices.Clone(order[:])
}

// Years returns the Mahadasha length of a lord in years.
func Years(b models.Body) int64 {
	return years[b]
}

// LordOf returns the dasha lord of a one-based nakshatra index.
// Ashwini, Magha and Mula start the three nine-lord rounds with Ketu.
func LordOf(nakshatraIndex int) models.Body {
	return order[((nakshatraIndex-1)%9+9)%9]
}

// sequence returns the nine lords starting from the given one.
func sequence(from models.Body) [9]models.Body {
	start := slices.Index(order[:], from)
	var out [9]models.Body
	for i := range out {
		out[i] = order[(start+i)%9]
	}
	return out
}

// YearBasis is the number of days counted as one dasha year.
type YearBasis int

const (
	// Julian years of 365.25 days.
	Julian YearBasis = iota
	// Gregorian years of 365.2425 days.
	Gregorian
	// Sidereal years of 365.256363 days.
	Sidereal
	// Savana years of 360 days.
	Savana
)

var basisNames = map[YearBasis]string{
	Julian:    "julian",
	Gregorian: "gregorian",
	Sidereal:  "sidereal",
	Savana:    "savana",
}

var basisLengths = map[YearBasis]time.Duration{
	Julian:    31557600 * time.Second,
	Gregorian: 31556952 * time.Second,
	Sidereal:  31558149763200 * time.Microsecond,
	Savana:    31104000 * time.Second,
}

func (y YearBasis) String() string {
	if n, ok := basisNames[y]; ok {
		return n
	}
	return "unknown"
}

// Length returns the duration of one year under the basis.
func (y YearBasis) Length() time.Duration {
	return basisLengths[y]
}

// MarshalText encodes the basis name.
func (y YearBasis) MarshalText() ([]byte, error) {
	if _, ok := basisNames[y]; !ok {
		return nil, errs.Configuration("dasha year basis", y.String())
	}
	return []byte(y.String()), nil
}

// UnmarshalText decodes a basis name.
func (y *YearBasis) UnmarshalText(b []byte) error {
	parsed, err := ParseYearBasis(string(b))
	if err != nil {
		return err
	}
	*y = parsed
	return nil
}

// ParseYearBasis resolves a basis name, case-insensitively. An empty name is Julian.
func ParseYearBasis(name string) (YearBasis, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "julian", "":
		return Julian, nil
	case "gregorian", "solar", "tropical":
		return Gregorian, nil
	case "sidereal":
		return Sidereal, nil
	case "savana", "360":
		return Savana, nil
	}
	return 0, errs.Configuration("dasha year basis", name)
}
