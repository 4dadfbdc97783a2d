package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperjump/vedika/internal/cli"
	"github.com/hyperjump/vedika/internal/config"
	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/models"
)

// birthFlags are the flags naming a birth moment, either directly or by profile.
type birthFlags struct {
	time      string
	zone      string
	latitude  float64
	longitude float64
	profile   string

	ayanamsha   string
	houseSystem string
	factors     []int
	depth       int
	minDuration time.Duration
	yearBasis   string
}

func (b *birthFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&b.time, "time", "", "birth time, RFC 3339 or local \"2006-01-02 15:04\" in --tz")
	f.StringVar(&b.zone, "tz", "", "IANA time zone for a local --time (default UTC)")
	f.Float64Var(&b.latitude, "lat", 0, "birth latitude in degrees, north positive")
	f.Float64Var(&b.longitude, "lon", 0, "birth longitude in degrees, east positive")
	f.StringVar(&b.profile, "profile", "", "use the birth data of a saved profile")
	f.StringVar(&b.ayanamsha, "ayanamsha", "", "ayanamsha model (default from config)")
	f.StringVar(&b.houseSystem, "house-system", "", "house system (default from config)")
	f.IntSliceVar(&b.factors, "factors", nil, "divisional chart factors, e.g. 1,9,10")
	f.IntVar(&b.depth, "depth", 0, "dasha depth, 1 (Mahadasha) to 6 (Deha)")
	f.DurationVar(&b.minDuration, "min-duration", 0, "do not subdivide dasha periods shorter than this")
	f.StringVar(&b.yearBasis, "year-basis", "", "dasha year basis: julian, gregorian, sidereal or savana")
}

func (b *birthFlags) overrides(cmd *cobra.Command) config.ChartOverrides {
	o := config.ChartOverrides{
		Ayanamsha:   b.ayanamsha,
		HouseSystem: b.houseSystem,
		MaxDepth:    b.depth,
		MinDuration: b.minDuration,
		YearBasis:   b.yearBasis,
	}
	if cmd.Flags().Changed("factors") {
		o.Factors = b.factors
	}
	return o
}

// resolve builds the birth moment and settings from the flags and the config defaults.
func (b *birthFlags) resolve(cmd *cobra.Command, c *components) (models.BirthMoment, config.ChartDefaults, *models.Profile, error) {
	d, err := c.defaults.Apply(b.overrides(cmd))
	if err != nil {
		return models.BirthMoment{}, d, nil, err
	}
	if b.profile != "" {
		p, err := c.profiles.Get(cmd.Context(), b.profile)
		if err != nil {
			return models.BirthMoment{}, d, nil, err
		}
		birth, err := p.BirthMoment(d.Ayanamsha, d.HouseSystem)
		return birth, d, p, err
	}
	for _, name := range []string{"time", "lat", "lon"} {
		if !cmd.Flags().Changed(name) {
			return models.BirthMoment{}, d, nil, errs.Validation("--%s is required unless --profile is given", name)
		}
	}
	instant, err := models.ParseBirthTime(b.time, b.zone)
	if err != nil {
		return models.BirthMoment{}, d, nil, err
	}
	birth, err := models.NewBirthMoment(instant, b.latitude, b.longitude, d.Ayanamsha, d.HouseSystem)
	return birth, d, nil, err
}

func (a *app) chartCmd() *cobra.Command {
	var bf birthFlags
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Compute a birth chart",
		Example: `  vedika chart --time "1990-05-17 10:10" --tz Asia/Kolkata --lat 25.3 --lon 83.0
  vedika chart --profile 2b7c... --house-system placidus --factors 1,9 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			c, err := a.setup(bf.profile != "")
			if err != nil {
				return err
			}
			defer c.Close()

			birth, d, _, err := bf.resolve(cmd, c)
			if err != nil {
				return err
			}
			result, err := c.calc.Compute(cmd.Context(), birth, d.Settings)
			if err != nil {
				return err
			}
			return cli.WriteChart(a.out, result, format)
		},
	}
	bf.register(cmd)
	return cmd
}

func (a *app) dashaCmd() *cobra.Command {
	var (
		bf   birthFlags
		at   string
		xlsx string
	)
	cmd := &cobra.Command{
		Use:   "dasha",
		Short: "Compute the Vimshottari dasha timeline",
		Example: `  vedika dasha --time 1990-05-17T04:40:00Z --lat 25.3 --lon 83.0 --depth 2 --at 2024-01-01T00:00:00Z
  vedika dasha --profile 2b7c... --xlsx dasha.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			c, err := a.setup(bf.profile != "")
			if err != nil {
				return err
			}
			defer c.Close()

			birth, d, p, err := bf.resolve(cmd, c)
			if err != nil {
				return err
			}
			var instant time.Time
			if at != "" {
				if instant, err = models.ParseBirthTime(at, bf.zone); err != nil {
					return err
				}
			}
			tl, err := c.calc.Timeline(cmd.Context(), birth, d.Settings.Dasha)
			if err != nil {
				return err
			}
			if xlsx == "" {
				return cli.WriteDasha(a.out, tl, instant, format)
			}

			title := birth.Instant.Format(time.RFC3339)
			if p != nil {
				title = p.Name
			}
			f, err := os.Create(xlsx)
			if err != nil {
				return fmt.Errorf("create workbook: %w", err)
			}
			if err := cli.ExportDashaXLSX(f, tl, title); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close workbook: %w", err)
			}
			fmt.Fprintf(a.out, "Wrote %s\n", xlsx)
			return nil
		},
	}
	bf.register(cmd)
	cmd.Flags().StringVar(&at, "at", "", "mark the periods running at this instant")
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "write the timeline to an Excel workbook instead")
	return cmd
}
