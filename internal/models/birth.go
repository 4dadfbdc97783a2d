package models

import (
	"math"
	"time"

	"github.com/hyperjump/vedika/internal/ayanamsha"
	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/house"
)

// BirthMoment is the immutable input of one chart computation.
type BirthMoment struct {
	Instant     time.Time       `json:"instant"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	Ayanamsha   ayanamsha.Model `json:"ayanamsha"`
	HouseSystem house.System    `json:"house_system"`
}

// NewBirthMoment validates the inputs and returns a moment with the instant in UTC.
func NewBirthMoment(instant time.Time, lat, lon float64, model ayanamsha.Model, system house.System) (BirthMoment, error) {
	b := BirthMoment{
		Instant:     instant.UTC(),
		Latitude:    lat,
		Longitude:   lon,
		Ayanamsha:   model,
		HouseSystem: system,
	}
	if err := b.Validate(); err != nil {
		return BirthMoment{}, err
	}
	return b, nil
}

// Validate checks coordinates, the instant and the configuration enums.
func (b BirthMoment) Validate() error {
	if b.Instant.IsZero() {
		return errs.Validation("birth instant is required")
	}
	if math.IsNaN(b.Latitude) || b.Latitude < -90 || b.Latitude > 90 {
		return errs.Validation("latitude %v outside [-90, 90]", b.Latitude)
	}
	if math.IsNaN(b.Longitude) || b.Longitude < -180 || b.Longitude > 180 {
		return errs.Validation("longitude %v outside [-180, 180]", b.Longitude)
	}
	if _, err := b.Ayanamsha.MarshalText(); err != nil {
		return err
	}
	if _, err := b.HouseSystem.MarshalText(); err != nil {
		return err
	}
	return nil
}
