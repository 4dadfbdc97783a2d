// Package cli renders charts, dasha timelines and profiles for the vedika command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hyperjump/vedika/internal/chart"
	"github.com/hyperjump/vedika/internal/dasha"
	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/models"
	"github.com/hyperjump/vedika/internal/nakshatra"
	"github.com/hyperjump/vedika/internal/profiles"
	"github.com/hyperjump/vedika/internal/zodiac"
	"github.com/hyperjump/vedika/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat resolves an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", errs.Validation("unknown output format %q; use text or json", s)
	}
}

var heading = lipgloss.NewStyle().Bold(true)

const timeLayout = "2006-01-02 15:04 MST"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteChart writes c to w in the given format.
func WriteChart(w io.Writer, c *chart.Chart, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, c)
	}
	b := c.Birth
	fmt.Fprintln(w, heading.Render("Birth"))
	fmt.Fprintf(w, "  %s  lat %.4f  lon %.4f\n", b.Instant.Format(timeLayout), b.Latitude, b.Longitude)
	fmt.Fprintf(w, "  ayanamsha %s %s  houses %s\n", b.Ayanamsha, zodiac.FormatDMS(c.AyanamshaValue), b.HouseSystem)
	fmt.Fprintf(w, "  ascendant %s  %s\n\n", zodiac.FormatInSign(c.Ascendant.Longitude), formatNakshatra(c.Ascendant.Nakshatra))

	rows := make([][]string, 0, len(c.Bodies))
	for _, p := range c.Bodies {
		retro := ""
		if p.Retrograde {
			retro = "R"
		}
		rows = append(rows, []string{
			p.Body.String(),
			zodiac.FormatInSign(p.Longitude),
			formatNakshatra(p.Nakshatra),
			fmt.Sprint(p.House),
			retro,
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Body", "Longitude", "Nakshatra", "House", "").
		Rows(rows...)
	fmt.Fprintln(w, t.String())

	if len(c.Vargas) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, heading.Render("Divisional charts"))
		factors := make([]int, 0, len(c.Vargas))
		for f := range c.Vargas {
			factors = append(factors, f)
		}
		slices.Sort(factors)
		for _, f := range factors {
			fmt.Fprintf(w, "  %s\n", formatVarga(c.Vargas[f]))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, heading.Render("Vimshottari"))
	fmt.Fprintf(w, "  Moon in %s, %s balance %.2f years\n",
		formatNakshatra(c.Dasha.Nakshatra), c.Dasha.FirstLord, c.Dasha.BalanceYears)
	for _, p := range c.Dasha.Periods {
		if p.Level == dasha.Mahadasha {
			fmt.Fprintf(w, "  %-8s %s - %s\n", p.Lord, p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
		}
	}
	return nil
}

func formatNakshatra(p nakshatra.Placement) string {
	return fmt.Sprintf("%s %d", p.Name, p.Pada)
}

func formatVarga(v chart.Varga) string {
	if v.Error != "" {
		return fmt.Sprintf("D%-3d %s", v.Factor, v.Error)
	}
	parts := make([]string, 0, len(v.Positions)+1)
	if v.Ascendant != nil {
		parts = append(parts, "Asc "+v.Ascendant.Sign.String())
	}
	for _, b := range models.Bodies {
		if pos, ok := v.Positions[b]; ok {
			parts = append(parts, fmt.Sprintf("%s %s", b, pos.Sign))
		}
	}
	return fmt.Sprintf("D%-3d %-14s %s", v.Factor, v.Name, strings.Join(parts, ", "))
}

type dashaOutput struct {
	Nakshatra    nakshatra.Placement `json:"nakshatra"`
	FirstLord    models.Body         `json:"first_lord"`
	BalanceYears float64             `json:"balance_years"`
	Options      dasha.Options       `json:"options"`
	Periods      []dasha.Period      `json:"periods"`
	Active       []dasha.Period      `json:"active,omitempty"`
}

// WriteDasha writes the timeline to w. When at is non-zero the periods running at that
// instant are marked with "*" in text and listed under "active" in JSON.
func WriteDasha(w io.Writer, tl *dasha.Timeline, at time.Time, format OutputFormat) error {
	var active []dasha.Period
	if !at.IsZero() {
		active = tl.At(at)
	}
	if format == OutputJSON {
		return writeJSON(w, dashaOutput{
			Nakshatra:    tl.Nakshatra(),
			FirstLord:    tl.FirstLord(),
			BalanceYears: tl.BalanceYears(),
			Options:      tl.Options(),
			Periods:      slices.Collect(tl.All()),
			Active:       active,
		})
	}

	fmt.Fprintf(w, "Moon in %s, first lord %s, balance %.4f years (%s years)\n\n",
		formatNakshatra(tl.Nakshatra()), tl.FirstLord(), tl.BalanceYears(), tl.Options().YearBasis)
	for p := range tl.All() {
		mark := " "
		for _, a := range active {
			if a.Level == p.Level && a.Start.Equal(p.Start) {
				mark = "*"
				break
			}
		}
		indent := strings.Repeat("  ", int(p.Level)-1)
		fmt.Fprintf(w, "%s %s%-*s %s - %s\n", mark, indent, 32-len(indent), p.Label(),
			p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
	}
	return nil
}

// WriteProfiles writes a profile listing to w.
func WriteProfiles(w io.Writer, list []*models.Profile, format OutputFormat) error {
	if format == OutputJSON {
		if list == nil {
			list = []*models.Profile{}
		}
		return writeJSON(w, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No profiles.")
		return nil
	}
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, profileRow(p))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Name", "Birth (UTC)", "Place", "Notes").
		Rows(rows...)
	fmt.Fprintln(w, t.String())
	return nil
}

func profileRow(p *models.Profile) []string {
	return []string{
		p.ID,
		utils.Truncate(p.Name, 40),
		p.BirthTime.UTC().Format("2006-01-02 15:04"),
		utils.Truncate(p.Place, 30),
		TruncateWords(p.Notes, 8),
	}
}

// WriteProfile writes one profile to w.
func WriteProfile(w io.Writer, p *models.Profile, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, p)
	}
	fmt.Fprintf(w, "ID:        %s\n", p.ID)
	fmt.Fprintf(w, "Name:      %s\n", p.Name)
	if p.Place != "" {
		fmt.Fprintf(w, "Place:     %s\n", p.Place)
	}
	birth := p.BirthTime.UTC().Format(time.RFC3339)
	if p.TimeZone != "" {
		if loc, err := time.LoadLocation(p.TimeZone); err == nil {
			birth = p.BirthTime.In(loc).Format(time.RFC3339) + " (" + p.TimeZone + ")"
		}
	}
	fmt.Fprintf(w, "Birth:     %s\n", birth)
	fmt.Fprintf(w, "Location:  %.4f, %.4f\n", p.Latitude, p.Longitude)
	if p.Notes != "" {
		fmt.Fprintf(w, "Notes:     %s\n", p.Notes)
	}
	return nil
}

// WriteHits writes profile search results to w.
func WriteHits(w io.Writer, query string, hits []profiles.Hit, format OutputFormat) error {
	if format == OutputJSON {
		if hits == nil {
			hits = []profiles.Hit{}
		}
		return writeJSON(w, map[string]any{"query": query, "results": hits})
	}
	fmt.Fprintf(w, "Found %d profiles for %q\n", len(hits), query)
	for i, h := range hits {
		fmt.Fprintf(w, "%2d. %.4f  %s  %s  %s\n", i+1, h.Score, h.Profile.ID,
			utils.Truncate(h.Profile.Name, 40), h.Profile.BirthTime.UTC().Format("2006-01-02"))
	}
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
