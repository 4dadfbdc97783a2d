package config

import (
	"time"

	"github.com/hyperjump/vedika/internal/ayanamsha"
	"github.com/hyperjump/vedika/internal/dasha"
	"github.com/hyperjump/vedika/internal/house"
)

// ChartOverrides are per-request changes to the chart defaults. Zero values keep the default.
type ChartOverrides struct {
	Ayanamsha   string
	HouseSystem string
	// Factors replaces the default divisional factors when non-nil.
	Factors      []int
	MaxDepth     int
	MinDuration  time.Duration
	HorizonYears float64
	YearBasis    string
}

// Apply returns the defaults with o applied. Unknown names and invalid dasha options fail
// with errs.KindConfiguration.
func (d ChartDefaults) Apply(o ChartOverrides) (ChartDefaults, error) {
	out := d
	out.Settings.Factors = append([]int(nil), d.Settings.Factors...)
	if o.Ayanamsha != "" {
		m, err := ayanamsha.Parse(o.Ayanamsha)
		if err != nil {
			return ChartDefaults{}, err
		}
		out.Ayanamsha = m
	}
	if o.HouseSystem != "" {
		s, err := house.Parse(o.HouseSystem)
		if err != nil {
			return ChartDefaults{}, err
		}
		out.HouseSystem = s
	}
	if o.Factors != nil {
		out.Settings.Factors = append([]int(nil), o.Factors...)
	}
	opts := &out.Settings.Dasha
	if o.MaxDepth != 0 {
		opts.MaxDepth = o.MaxDepth
	}
	if o.MinDuration != 0 {
		opts.MinDuration = o.MinDuration
	}
	if o.HorizonYears != 0 {
		opts.HorizonYears = o.HorizonYears
	}
	if o.YearBasis != "" {
		b, err := dasha.ParseYearBasis(o.YearBasis)
		if err != nil {
			return ChartDefaults{}, err
		}
		opts.YearBasis = b
	}
	if err := opts.Validate(); err != nil {
		return ChartDefaults{}, err
	}
	return out, nil
}
