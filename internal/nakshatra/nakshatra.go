// Package nakshatra resolves sidereal longitudes to lunar mansions and their padas.
package nakshatra

import (
	"math"

	"github.com/hyperjump/vedika/internal/zodiac"
	"github.com/hyperjump/vedika/pkg/utils"
)

const (
	// Count is the number of nakshatras in the zodiac.
	Count = 27
	// PadasPer is the number of padas in one nakshatra.
	PadasPer = 4
	// Span is the width of one nakshatra: 13°20'.
	Span = zodiac.FullCircle / Count
	// PadaSpan is the width of one pada: 3°20'.
	PadaSpan = Span / PadasPer

	totalPadas = Count * PadasPer
)

// Names holds the nakshatra names; Names[0] is nakshatra 1.
var Names = [Count]string{
	"Ashwini", "Bharani", "Krittika", "Rohini", "Mrigashira", "Ardra",
	"Punarvasu", "Pushya", "Ashlesha", "Magha", "Purva Phalguni", "Uttara Phalguni",
	"Hasta", "Chitra", "Swati", "Vishakha", "Anuradha", "Jyeshtha",
	"Mula", "Purva Ashadha", "Uttara Ashadha", "Shravana", "Dhanishta", "Shatabhisha",
	"Purva Bhadrapada", "Uttara Bhadrapada", "Revati",
}

// Placement is the nakshatra and pada containing a longitude.
type Placement struct {
	Index                int     `json:"index"`
	Name                 string  `json:"name"`
	Pada                 int     `json:"pada"`
	DegreesIntoNakshatra float64 `json:"degrees_into_nakshatra"`
	DegreesIntoPada      float64 `json:"degrees_into_pada"`
}

// FractionElapsed returns how much of the nakshatra lies behind the longitude, in [0, 1).
func (p Placement) FractionElapsed() float64 {
	return p.DegreesIntoNakshatra / Span
}

// Resolve returns the placement of a sidereal longitude. 360 wraps to 0.
//
// The longitude is measured in padas and snapped to a nearby pada boundary before flooring,
// so 13°20'00" lands in nakshatra 2 pada 1 rather than nakshatra 1 pada 4.
func Resolve(lon float64) Placement {
	lon = zodiac.Normalize(lon)
	padas := utils.SnapUnits(lon, PadaSpan)
	whole := int(math.Floor(padas))
	if whole >= totalPadas {
		whole -= totalPadas
		padas -= totalPadas
	}
	idx := whole / PadasPer
	pada := whole%PadasPer + 1

	intoPada := (padas - float64(whole)) * PadaSpan
	intoNak := float64(pada-1)*PadaSpan + intoPada
	return Placement{
		Index:                idx + 1,
		Name:                 Names[idx],
		Pada:                 pada,
		DegreesIntoNakshatra: intoNak,
		DegreesIntoPada:      intoPada,
	}
}

// Start returns the sidereal longitude where the one-based nakshatra index begins.
func Start(index int) float64 {
	return float64(((index-1)%Count+Count)%Count) * Span
}
