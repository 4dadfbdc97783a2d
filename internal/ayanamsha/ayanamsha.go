// Package ayanamsha converts tropical ecliptic longitudes to the sidereal zodiac.
package ayanamsha

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/zodiac"
)

// Model is a named ayanamsha definition.
type Model int

const (
	Lahiri Model = iota
	Raman
	Krishnamurti
	FaganBradley
	Yukteshwar
	JNBhasin
	DeLuce
	UshaShashi
	DjwhalKhul
)

// Default is the model used when none is configured.
const Default = Lahiri

type definition struct {
	name    string
	aliases []string
	// value at J2000.0 (2000-01-01T12:00:00 TT), degrees
	epochValue float64
}

var definitions = map[Model]definition{
	Lahiri:       {name: "lahiri", aliases: []string{"chitrapaksha"}, epochValue: 23.857092},
	Raman:        {name: "raman", epochValue: 22.410791},
	Krishnamurti: {name: "krishnamurti", aliases: []string{"kp"}, epochValue: 23.760240},
	FaganBradley: {name: "fagan_bradley", aliases: []string{"fagan", "western"}, epochValue: 24.740300},
	Yukteshwar:   {name: "yukteshwar", epochValue: 22.478803},
	JNBhasin:     {name: "jn_bhasin", aliases: []string{"bhasin"}, epochValue: 22.762137},
	DeLuce:       {name: "de_luce", epochValue: 27.815753},
	UshaShashi:   {name: "usha_shashi", epochValue: 20.057541},
	DjwhalKhul:   {name: "djwhal_khul", epochValue: 28.359679},
}

// Models lists every supported model in declaration order.
var Models = []Model{Lahiri, Raman, Krishnamurti, FaganBradley, Yukteshwar, JNBhasin, DeLuce, UshaShashi, DjwhalKhul}

// String returns the canonical model name.
func (m Model) String() string {
	if d, ok := definitions[m]; ok {
		return d.name
	}
	return fmt.Sprintf("Model(%d)", int(m))
}

// MarshalText encodes the canonical name.
func (m Model) MarshalText() ([]byte, error) {
	if _, ok := definitions[m]; !ok {
		return nil, errs.Configuration("ayanamsha", m.String())
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a model name or alias.
func (m *Model) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Parse resolves a model name or alias, case-insensitively. Hyphens and spaces count as underscores.
func Parse(name string) (Model, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for _, m := range Models {
		d := definitions[m]
		if d.name == key {
			return m, nil
		}
		for _, a := range d.aliases {
			if a == key {
				return m, nil
			}
		}
	}
	return 0, errs.Configuration("ayanamsha", name)
}

const j2000 = 2451545.0

// julianCenturies returns Julian centuries of 36525 days since J2000.0.
func julianCenturies(t time.Time) float64 {
	jd := float64(t.UnixNano())/86400e9 + 2440587.5
	return (jd - j2000) / 36525.0
}

// precession returns the accumulated general precession in longitude since J2000, in degrees (IAU 2006).
func precession(T float64) float64 {
	return (5028.796195*T + 1.1054348*T*T) / 3600.0
}

// Value returns the ayanamsha in degrees for instant t under model.
func Value(t time.Time, model Model) (float64, error) {
	d, ok := definitions[model]
	if !ok {
		return 0, errs.Configuration("ayanamsha", model.String())
	}
	return d.epochValue + precession(julianCenturies(t)), nil
}

// Sidereal converts a tropical longitude to sidereal under model at instant t.
// The result lies in [0, 360).
func Sidereal(tropical float64, t time.Time, model Model) (float64, error) {
	ayan, err := Value(t, model)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(tropical) || math.IsInf(tropical, 0) {
		return 0, errs.Boundary("tropical longitude %v is not finite", tropical)
	}
	lon := zodiac.Normalize(tropical - ayan + zodiac.FullCircle)
	if !zodiac.InRange(lon) {
		return 0, errs.Boundary("sidereal longitude %v outside [0,360)", lon).
			WithDetail("model", model.String())
	}
	return lon, nil
}

// Converter binds a model to an instant so repeated conversions for one chart share one offset.
type Converter struct {
	model Model
	value float64
}

// NewConverter computes the offset for t once.
func NewConverter(t time.Time, model Model) (*Converter, error) {
	v, err := Value(t, model)
	if err != nil {
		return nil, err
	}
	return &Converter{model: model, value: v}, nil
}

// Offset returns the ayanamsha in degrees.
func (c *Converter) Offset() float64 { return c.value }

// Model returns the bound model.
func (c *Converter) Model() Model { return c.model }

// Sidereal converts a tropical longitude with the bound offset.
func (c *Converter) Sidereal(tropical float64) (float64, error) {
	if math.IsNaN(tropical) || math.IsInf(tropical, 0) {
		return 0, errs.Boundary("tropical longitude %v is not finite", tropical)
	}
	lon := zodiac.Normalize(tropical - c.value + zodiac.FullCircle)
	if !zodiac.InRange(lon) {
		return 0, errs.Boundary("sidereal longitude %v outside [0,360)", lon)
	}
	return lon, nil
}
