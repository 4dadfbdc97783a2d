package chart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/vedika/internal/dasha"
	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/house"
	"github.com/hyperjump/vedika/internal/models"
)

func TestTimeline_OnlyFetchesMoon(t *testing.T) {
	static, _ := fixture(t)
	calc := NewCalculator(static)

	tl, err := calc.Timeline(context.Background(), mustBirth(t, house.Placidus), dasha.Options{MaxDepth: 2})
	require.NoError(t, err)
	assert.Equal(t, models.Saturn, tl.FirstLord())
	assert.InDelta(t, 2.375, tl.BalanceYears(), 1e-6)

	assert.Equal(t, 1, static.Calls(models.Moon.String()))
	assert.Equal(t, 0, static.Calls(models.Sun.String()))
	assert.Equal(t, 0, static.Calls("ascendant"))
	assert.Equal(t, 0, static.Calls("cusps"))
}

func TestTimeline_MatchesChart(t *testing.T) {
	static, _ := fixture(t)
	calc := NewCalculator(static)
	ctx := context.Background()

	c, err := calc.Compute(ctx, mustBirth(t, house.WholeSign), DefaultSettings())
	require.NoError(t, err)
	tl, err := calc.Timeline(ctx, mustBirth(t, house.WholeSign), dasha.DefaultOptions())
	require.NoError(t, err)

	var n int
	for p := range tl.All() {
		require.Equal(t, c.Dasha.Periods[n], p)
		n++
	}
	assert.Equal(t, len(c.Dasha.Periods), n)
}

func TestTimeline_Errors(t *testing.T) {
	static, _ := fixture(t)
	calc := NewCalculator(static)
	ctx := context.Background()

	_, err := calc.Timeline(ctx, models.BirthMoment{}, dasha.DefaultOptions())
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = calc.Timeline(ctx, mustBirth(t, house.WholeSign), dasha.Options{MaxDepth: 7})
	assert.ErrorIs(t, err, errs.ErrConfiguration)
	assert.Equal(t, 0, static.Calls(models.Moon.String()))

	static.FailWith(errors.New("offline"))
	_, err = calc.Timeline(ctx, mustBirth(t, house.WholeSign), dasha.DefaultOptions())
	assert.ErrorIs(t, err, errs.ErrEphemerisUnavailable)
}
