package server

import (
	"slices"
	"time"

	"github.com/hyperjump/vedika/internal/chart"
	"github.com/hyperjump/vedika/internal/config"
	"github.com/hyperjump/vedika/internal/dasha"
	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/models"
	"github.com/hyperjump/vedika/internal/nakshatra"
)

// birthRequest is the birth data of a chart request.
type birthRequest struct {
	BirthTime string   `json:"birth_time" validate:"required"`
	TimeZone  string   `json:"time_zone,omitempty"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// settingsRequest overrides the configured chart defaults.
type settingsRequest struct {
	Ayanamsha   string         `json:"ayanamsha,omitempty"`
	HouseSystem string         `json:"house_system,omitempty"`
	Factors     []int          `json:"divisional_factors,omitempty" validate:"omitempty,max=64"`
	Dasha       *dashaSettings `json:"dasha,omitempty"`
}

type dashaSettings struct {
	MaxDepth     int     `json:"max_depth,omitempty"`
	MinDuration  string  `json:"min_duration,omitempty"`
	HorizonYears float64 `json:"horizon_years,omitempty"`
	YearBasis    string  `json:"year_basis,omitempty"`
}

func (r settingsRequest) overrides() (config.ChartOverrides, error) {
	o := config.ChartOverrides{
		Ayanamsha:   r.Ayanamsha,
		HouseSystem: r.HouseSystem,
		Factors:     r.Factors,
	}
	if r.Dasha != nil {
		o.MaxDepth = r.Dasha.MaxDepth
		o.HorizonYears = r.Dasha.HorizonYears
		o.YearBasis = r.Dasha.YearBasis
		if r.Dasha.MinDuration != "" {
			d, err := time.ParseDuration(r.Dasha.MinDuration)
			if err != nil {
				return config.ChartOverrides{}, errs.Validation("invalid min_duration %q", r.Dasha.MinDuration)
			}
			o.MinDuration = d
		}
	}
	return o, nil
}

type chartRequest struct {
	birthRequest
	settingsRequest
}

type batchRequest struct {
	Charts []chartRequest `json:"charts" validate:"required,min=1,dive"`
}

type batchItem struct {
	Chart *chart.Chart `json:"chart,omitempty"`
	Error *errs.Error  `json:"error,omitempty"`
}

type dashaRequest struct {
	birthRequest
	settingsRequest
	// At, when set, adds the periods active at that instant to the response.
	At string `json:"at,omitempty"`
}

type dashaResponse struct {
	Nakshatra    nakshatra.Placement `json:"nakshatra"`
	FirstLord    models.Body         `json:"first_lord"`
	BalanceYears float64             `json:"balance_years"`
	Options      dasha.Options       `json:"options"`
	Periods      []dasha.Period      `json:"periods"`
	Active       []dasha.Period      `json:"active,omitempty"`
}

func newDashaResponse(tl *dasha.Timeline) dashaResponse {
	return dashaResponse{
		Nakshatra:    tl.Nakshatra(),
		FirstLord:    tl.FirstLord(),
		BalanceYears: tl.BalanceYears(),
		Options:      tl.Options(),
		Periods:      slices.Collect(tl.All()),
	}
}

// resolve turns request data into a validated birth moment and settings, starting
// from the current chart defaults.
func resolve(defaults config.ChartDefaults, b birthRequest, s settingsRequest) (models.BirthMoment, chart.Settings, error) {
	o, err := s.overrides()
	if err != nil {
		return models.BirthMoment{}, chart.Settings{}, err
	}
	d, err := defaults.Apply(o)
	if err != nil {
		return models.BirthMoment{}, chart.Settings{}, err
	}
	instant, err := models.ParseBirthTime(b.BirthTime, b.TimeZone)
	if err != nil {
		return models.BirthMoment{}, chart.Settings{}, err
	}
	birth, err := models.NewBirthMoment(instant, *b.Latitude, *b.Longitude, d.Ayanamsha, d.HouseSystem)
	if err != nil {
		return models.BirthMoment{}, chart.Settings{}, err
	}
	return birth, d.Settings, nil
}
