// Package ephemeris supplies tropical body positions, ascendants and house cusps.
//
// Adapters report geocentric tropical coordinates of date. Sidereal conversion happens
// downstream; nothing here knows about ayanamsha models.
package ephemeris

import (
	"context"
	"time"

	"github.com/hyperjump/vedika/internal/house"
	"github.com/hyperjump/vedika/internal/models"
)

// Adapter is the ephemeris collaborator of the chart pipeline.
type Adapter interface {
	// Position returns the tropical position of body at t for an observer at lat/lon.
	// SiderealLongitude is left zero.
	Position(ctx context.Context, body models.Body, t time.Time, lat, lon float64) (models.BodyPosition, error)
	// Ascendant returns the tropical ascendant longitude.
	Ascendant(ctx context.Context, t time.Time, lat, lon float64) (float64, error)
	// Cusps returns tropical cusps for a quadrant house system. Cusps[0] is the ascendant.
	Cusps(ctx context.Context, t time.Time, lat, lon float64, system house.System) (house.Cusps, error)
}
