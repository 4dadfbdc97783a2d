// Package chart assembles the Vedic chart record from an ephemeris adapter.
//
// The pipeline fetches every body once, converts it to sidereal and reuses that one
// longitude for the nakshatra, the house and every divisional chart.
package chart

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vedika/internal/ayanamsha"
	"github.com/hyperjump/vedika/internal/dasha"
	"github.com/hyperjump/vedika/internal/ephemeris"
	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/house"
	"github.com/hyperjump/vedika/internal/models"
	"github.com/hyperjump/vedika/internal/nakshatra"
	"github.com/hyperjump/vedika/internal/varga"
	"github.com/hyperjump/vedika/internal/zodiac"
)

// Settings are the per-request choices beyond the birth moment itself.
type Settings struct {
	Factors []int         `json:"divisional_factors"`
	Dasha   dasha.Options `json:"dasha"`
}

// DefaultSettings computes every supported divisional chart and three dasha levels.
func DefaultSettings() Settings {
	return Settings{Factors: varga.Supported(), Dasha: dasha.DefaultOptions()}
}

// Point is a sidereal longitude with its sign and nakshatra.
type Point struct {
	Longitude float64             `json:"longitude"`
	Sign      zodiac.Sign         `json:"sign"`
	Degree    float64             `json:"degree"`
	Nakshatra nakshatra.Placement `json:"nakshatra"`
}

func pointAt(lon float64) Point {
	sign, deg := zodiac.Locate(lon)
	return Point{
		Longitude: lon,
		Sign:      sign,
		Degree:    deg,
		Nakshatra: nakshatra.Resolve(lon),
	}
}

// Placement is one body in the chart.
type Placement struct {
	Body models.Body `json:"body"`
	Point
	Tropical   float64 `json:"tropical_longitude"`
	Latitude   float64 `json:"latitude"`
	Speed      float64 `json:"speed"`
	Retrograde bool    `json:"retrograde"`
	House      int     `json:"house"`
}

// Varga is one divisional chart. Error is set, and the positions empty, when the factor
// has no classical table.
type Varga struct {
	Factor    int                            `json:"factor"`
	Name      string                         `json:"name,omitempty"`
	Ascendant *varga.Position                `json:"ascendant,omitempty"`
	Positions map[models.Body]varga.Position `json:"positions,omitempty"`
	Error     string                         `json:"error,omitempty"`
}

// Dasha is the Vimshottari timeline flattened depth-first.
type Dasha struct {
	Nakshatra    nakshatra.Placement `json:"nakshatra"`
	FirstLord    models.Body         `json:"first_lord"`
	BalanceYears float64             `json:"balance_years"`
	Periods      []dasha.Period      `json:"periods"`
}

// Chart is the complete computed record. It is plain data and carries no computation
// timestamp, so equal inputs serialize to identical bytes.
type Chart struct {
	Birth          models.BirthMoment `json:"birth"`
	AyanamshaValue float64            `json:"ayanamsha_value"`
	Ascendant      Point              `json:"ascendant"`
	Cusps          house.Cusps        `json:"cusps"`
	Bodies         []Placement        `json:"bodies"`
	Vargas         map[int]Varga      `json:"vargas"`
	Dasha          Dasha              `json:"dasha"`
}

// Body returns the placement of b.
func (c *Chart) Body(b models.Body) (Placement, bool) {
	for _, p := range c.Bodies {
		if p.Body == b {
			return p, true
		}
	}
	return Placement{}, false
}

// Observer receives the outcome of every chart computation.
type Observer interface {
	ObserveChart(d time.Duration, err error)
}

// Calculator runs the chart pipeline against an ephemeris adapter.
type Calculator struct {
	adapter     ephemeris.Adapter
	logger      *zap.Logger // optional
	observer    Observer    // optional
	concurrency int
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Calculator) { c.logger = l }
}

// WithObserver reports computation durations and failures, e.g. to metrics.
func WithObserver(o Observer) Option {
	return func(c *Calculator) { c.observer = o }
}

// WithConcurrency bounds how many charts ComputeBatch computes at once.
func WithConcurrency(n int) Option {
	return func(c *Calculator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// NewCalculator creates a calculator backed by adapter.
func NewCalculator(adapter ephemeris.Adapter, opts ...Option) *Calculator {
	c := &Calculator{adapter: adapter, concurrency: 4}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute runs the full pipeline for one birth moment.
//
// Invalid settings abort before any ephemeris call. An ephemeris failure aborts the
// chart. An unsupported divisional factor is recorded on that varga only.
func (c *Calculator) Compute(ctx context.Context, birth models.BirthMoment, settings Settings) (*Chart, error) {
	start := time.Now()
	chart, err := c.compute(ctx, birth, settings)
	if c.observer != nil {
		c.observer.ObserveChart(time.Since(start), err)
	}
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("chart failed", zap.Time("instant", birth.Instant), zap.Error(err))
		}
		return nil, err
	}
	if c.logger != nil {
		c.logger.Debug("chart computed",
			zap.Time("instant", birth.Instant),
			zap.String("ayanamsha", birth.Ayanamsha.String()),
			zap.String("house_system", birth.HouseSystem.String()),
			zap.Int("dasha_periods", len(chart.Dasha.Periods)),
			zap.Duration("elapsed", time.Since(start)))
	}
	return chart, nil
}

func (c *Calculator) compute(ctx context.Context, birth models.BirthMoment, settings Settings) (*Chart, error) {
	if err := birth.Validate(); err != nil {
		return nil, err
	}
	if err := birth.HouseSystem.CheckLatitude(birth.Latitude); err != nil {
		return nil, err
	}
	if err := settings.Dasha.Validate(); err != nil {
		return nil, err
	}
	conv, err := ayanamsha.NewConverter(birth.Instant, birth.Ayanamsha)
	if err != nil {
		return nil, err
	}

	ascTropical, err := c.adapter.Ascendant(ctx, birth.Instant, birth.Latitude, birth.Longitude)
	if err != nil {
		return nil, unavailable("ascendant", err)
	}
	asc, err := conv.Sidereal(ascTropical)
	if err != nil {
		return nil, err
	}

	var quadrant *house.Cusps
	if birth.HouseSystem.IsQuadrant() {
		tropical, err := c.adapter.Cusps(ctx, birth.Instant, birth.Latitude, birth.Longitude, birth.HouseSystem)
		if err != nil {
			return nil, unavailable("cusps", err)
		}
		var sidereal house.Cusps
		for i, cusp := range tropical {
			if sidereal[i], err = conv.Sidereal(cusp); err != nil {
				return nil, err
			}
		}
		quadrant = &sidereal
	}
	houses, err := house.NewCalculator(birth.HouseSystem, asc, quadrant)
	if err != nil {
		return nil, err
	}

	chart := &Chart{
		Birth:          birth,
		AyanamshaValue: conv.Offset(),
		Ascendant:      pointAt(asc),
		Cusps:          houses.Cusps(),
		Bodies:         make([]Placement, 0, len(models.Bodies)),
	}

	for _, body := range models.Bodies {
		pos, err := c.adapter.Position(ctx, body, birth.Instant, birth.Latitude, birth.Longitude)
		if err != nil {
			return nil, unavailable(body.String(), err)
		}
		lon, err := conv.Sidereal(pos.TropicalLongitude)
		if err != nil {
			return nil, err
		}
		chart.Bodies = append(chart.Bodies, Placement{
			Body:       body,
			Point:      pointAt(lon),
			Tropical:   zodiac.Normalize(pos.TropicalLongitude),
			Latitude:   pos.Latitude,
			Speed:      pos.Speed,
			Retrograde: pos.Retrograde,
			House:      houses.Assign(lon),
		})
	}

	if chart.Vargas, err = vargas(chart, settings.Factors); err != nil {
		return nil, err
	}

	moon, _ := chart.Body(models.Moon)
	timeline, err := dasha.New(birth.Instant, moon.Longitude, settings.Dasha)
	if err != nil {
		return nil, err
	}
	if err := timeline.VerifyUpTo(dasha.Antardasha); err != nil {
		return nil, err
	}
	chart.Dasha = Dasha{
		Nakshatra:    timeline.Nakshatra(),
		FirstLord:    timeline.FirstLord(),
		BalanceYears: timeline.BalanceYears(),
		Periods:      slices.Collect(timeline.All()),
	}
	return chart, nil
}

// vargas computes the requested divisional charts from the sidereal longitudes already
// in the chart.
func vargas(chart *Chart, factors []int) (map[int]Varga, error) {
	out := make(map[int]Varga, len(factors))
	for _, f := range factors {
		if _, done := out[f]; done {
			continue
		}
		name, err := varga.Name(f)
		if err != nil {
			out[f] = Varga{Factor: f, Error: err.Error()}
			continue
		}
		asc, err := varga.Compute(chart.Ascendant.Longitude, f)
		if err != nil {
			return nil, err
		}
		v := Varga{
			Factor:    f,
			Name:      name,
			Ascendant: &asc,
			Positions: make(map[models.Body]varga.Position, len(chart.Bodies)),
		}
		for _, p := range chart.Bodies {
			pos, err := varga.Compute(p.Longitude, f)
			if err != nil {
				return nil, err
			}
			v.Positions[p.Body] = pos
		}
		out[f] = v
	}
	return out, nil
}

func unavailable(target string, err error) error {
	switch errs.KindOf(err) {
	case errs.KindEphemerisUnavailable, errs.KindValidation:
		return err
	}
	return errs.EphemerisUnavailable(target, err)
}
