package models

import (
	"strings"
	"time"

	"github.com/hyperjump/vedika/internal/ayanamsha"
	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/house"
)

// Profile is a saved birth record.
type Profile struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Place     string    `json:"place,omitempty" db:"place"`
	BirthTime time.Time `json:"birth_time" db:"birth_time"`
	// TimeZone is the IANA zone the birth time was recorded in, for display only.
	TimeZone  string    `json:"time_zone,omitempty" db:"time_zone"`
	Latitude  float64   `json:"latitude" db:"latitude"`
	Longitude float64   `json:"longitude" db:"longitude"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProfileInput is the input for creating or updating a profile.
type ProfileInput struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Place     string  `json:"place,omitempty" validate:"max=200"`
	BirthTime string  `json:"birth_time" validate:"required"`
	TimeZone  string  `json:"time_zone,omitempty"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Notes     string  `json:"notes,omitempty" validate:"max=2000"`
}

// Layouts accepted for birth times without an explicit offset; they are read in the input's TimeZone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseBirthTime reads an RFC 3339 timestamp, or a local timestamp in the named IANA zone
// (UTC when zone is empty). The result is in UTC.
func ParseBirthTime(value, zone string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	loc := time.UTC
	if zone != "" {
		l, err := time.LoadLocation(zone)
		if err != nil {
			return time.Time{}, errs.Validation("unknown time zone %q", zone)
		}
		loc = l
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errs.Validation("cannot parse birth time %q", value)
}

// Apply copies the input onto p, parsing the birth time. Identity and timestamps are untouched.
func (in ProfileInput) Apply(p *Profile) error {
	bt, err := ParseBirthTime(in.BirthTime, in.TimeZone)
	if err != nil {
		return err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Place = strings.TrimSpace(in.Place)
	p.BirthTime = bt
	p.TimeZone = in.TimeZone
	p.Latitude = in.Latitude
	p.Longitude = in.Longitude
	p.Notes = in.Notes
	return nil
}

// BirthMoment returns the chart input for the profile.
func (p *Profile) BirthMoment(model ayanamsha.Model, system house.System) (BirthMoment, error) {
	return NewBirthMoment(p.BirthTime, p.Latitude, p.Longitude, model, system)
}
