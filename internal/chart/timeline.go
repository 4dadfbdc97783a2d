package chart

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/vedika/internal/ayanamsha"
	"github.com/hyperjump/vedika/internal/dasha"
	"github.com/hyperjump/vedika/internal/models"
)

// Timeline builds only the Vimshottari timeline for a birth moment. It makes a single
// ephemeris call, for the Moon.
func (c *Calculator) Timeline(ctx context.Context, birth models.BirthMoment, opts dasha.Options) (*dasha.Timeline, error) {
	if err := birth.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	pos, err := c.adapter.Position(ctx, models.Moon, birth.Instant, birth.Latitude, birth.Longitude)
	if err != nil {
		return nil, unavailable(models.Moon.String(), err)
	}
	moon, err := ayanamsha.Sidereal(pos.TropicalLongitude, birth.Instant, birth.Ayanamsha)
	if err != nil {
		return nil, err
	}
	tl, err := dasha.New(birth.Instant, moon, opts)
	if err != nil {
		return nil, err
	}
	if err := tl.VerifyUpTo(dasha.Antardasha); err != nil {
		return nil, err
	}
	if c.logger != nil {
		c.logger.Debug("dasha timeline built",
			zap.Time("instant", birth.Instant),
			zap.String("first_lord", tl.FirstLord().String()),
			zap.Float64("balance_years", tl.BalanceYears()))
	}
	return tl, nil
}
