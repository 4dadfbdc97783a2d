// Package dasha builds Vimshottari dasha timelines from the Moon's sidereal longitude.
//
// Boundaries are kept in integer nanoseconds. A sub-period boundary is
// start + parent × cumulativeYears / 120 evaluated with a 128-bit intermediate, so
// children partition their parent exactly and the last child ends on the parent's end.
package dasha

import (
	"fmt"
	"iter"
	"math"
	"math/bits"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/models"
	"github.com/hyperjump/vedika/internal/nakshatra"
	"github.com/hyperjump/vedika/internal/zodiac"
)

// Level is the depth of a period; Mahadasha is 1.
type Level int

const (
	Mahadasha Level = iota + 1
	Antardasha
	Pratyantardasha
	Sookshma
	Prana
	Deha
)

var levelNames = [...]string{"", "Mahadasha", "Antardasha", "Pratyantardasha", "Sookshma", "Prana", "Deha"}

func (l Level) String() string {
	if l < Mahadasha || l > Deha {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// MarshalText encodes the level name.
func (l Level) MarshalText() ([]byte, error) {
	if l < Mahadasha || l > Deha {
		return nil, fmt.Errorf("invalid dasha level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *Level) UnmarshalText(b []byte) error {
	for i := Mahadasha; i <= Deha; i++ {
		if strings.EqualFold(levelNames[i], string(b)) {
			*l = i
			return nil
		}
	}
	return fmt.Errorf("unknown dasha level %q", string(b))
}

// MaxHorizonYears bounds how far past birth a timeline may extend.
const MaxHorizonYears = 2 * CycleYears

// Options controls how deep and how far a timeline extends.
type Options struct {
	// MaxDepth is the deepest level generated, 1 (Mahadasha only) to 6 (Deha).
	MaxDepth int `json:"max_depth" yaml:"max_depth"`
	// MinDuration stops subdivision of periods shorter than it.
	MinDuration time.Duration `json:"min_duration" yaml:"min_duration"`
	// HorizonYears is how many years after birth the Mahadashas must cover.
	HorizonYears float64   `json:"horizon_years" yaml:"horizon_years"`
	YearBasis    YearBasis `json:"year_basis" yaml:"year_basis"`
}

// DefaultOptions returns three levels over one full cycle of Julian years.
func DefaultOptions() Options {
	return Options{MaxDepth: 3, HorizonYears: CycleYears, YearBasis: Julian}
}

// Validate checks the option ranges. Zero MaxDepth and HorizonYears are accepted and
// take the defaults in New.
func (o Options) Validate() error {
	if o.MaxDepth < 0 || o.MaxDepth > int(Deha) {
		return errs.Configuration("dasha max depth", fmt.Sprint(o.MaxDepth))
	}
	if o.MinDuration < 0 {
		return errs.Configuration("dasha min duration", o.MinDuration.String())
	}
	if math.IsNaN(o.HorizonYears) || o.HorizonYears < 0 || o.HorizonYears > MaxHorizonYears {
		return errs.Configuration("dasha horizon years", fmt.Sprint(o.HorizonYears))
	}
	if _, ok := basisLengths[o.YearBasis]; !ok {
		return errs.Configuration("dasha year basis", o.YearBasis.String())
	}
	return nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxDepth == 0 {
		o.MaxDepth = d.MaxDepth
	}
	if o.HorizonYears == 0 {
		o.HorizonYears = d.HorizonYears
	}
	return o
}

// Period is one dasha period, [Start, End).
type Period struct {
	Lord  models.Body `json:"lord"`
	Level Level       `json:"level"`
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
	// Lords is the chain from the Mahadasha lord down to Lord.
	Lords []models.Body `json:"lords"`
}

// Duration returns End − Start.
func (p Period) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Contains reports whether t falls in [Start, End).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Label renders the lord chain, e.g. "Saturn/Mercury".
func (p Period) Label() string {
	names := make([]string, len(p.Lords))
	for i, b := range p.Lords {
		names[i] = b.String()
	}
	return strings.Join(names, "/")
}

// Node is a period with its generated sub-periods.
type Node struct {
	Period
	Children []*Node `json:"children,omitempty"`
}

// Timeline is the Vimshottari dasha sequence for one birth.
// Sub-periods are derived on demand; only the Mahadashas are stored.
type Timeline struct {
	birth     time.Time
	placement nakshatra.Placement
	opts      Options
	year      time.Duration
	elapsed   time.Duration
	balance   time.Duration
	mahas     []Period
}

// New builds the timeline for a birth instant and the Moon's sidereal longitude.
//
// The first Mahadasha is placed at its full length over [birth − elapsed, birth + balance),
// where elapsed is the share of the lord's years matching the fraction of the birth
// nakshatra already traversed. Mahadashas follow cyclically until birth + HorizonYears.
func New(birth time.Time, moonSidereal float64, opts Options) (*Timeline, error) {
	if birth.IsZero() {
		return nil, errs.Validation("birth instant is required")
	}
	if math.IsNaN(moonSidereal) || math.IsInf(moonSidereal, 0) {
		return nil, errs.Boundary("moon longitude %v is not finite", moonSidereal)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	birth = birth.UTC()
	placement := nakshatra.Resolve(zodiac.Normalize(moonSidereal))
	first := LordOf(placement.Index)
	year := opts.YearBasis.Length()
	full := time.Duration(years[first]) * year

	elapsed := time.Duration(math.Round(float64(full) * placement.FractionElapsed()))
	elapsed = max(0, min(elapsed, full-1))

	tl := &Timeline{
		birth:     birth,
		placement: placement,
		opts:      opts,
		year:      year,
		elapsed:   elapsed,
		balance:   full - elapsed,
	}

	horizon := birth.Add(time.Duration(opts.HorizonYears * float64(year)))
	start := birth.Add(-elapsed)
	seq := sequence(first)
	for i := 0; ; i++ {
		lord := seq[i%9]
		end := start.Add(time.Duration(years[lord]) * year)
		tl.mahas = append(tl.mahas, Period{
			Lord:  lord,
			Level: Mahadasha,
			Start: start,
			End:   end,
			Lords: []models.Body{lord},
		})
		if !end.Before(horizon) {
			break
		}
		start = end
	}
	return tl, nil
}

// Birth returns the birth instant in UTC.
func (tl *Timeline) Birth() time.Time { return tl.birth }

// Nakshatra returns the Moon's birth nakshatra.
func (tl *Timeline) Nakshatra() nakshatra.Placement { return tl.placement }

// Options returns the options in effect, defaults applied.
func (tl *Timeline) Options() Options { return tl.opts }

// YearLength returns the duration of one dasha year.
func (tl *Timeline) YearLength() time.Duration { return tl.year }

// FirstLord returns the lord of the Mahadasha running at birth.
func (tl *Timeline) FirstLord() models.Body { return tl.mahas[0].Lord }

// Elapsed returns how much of the first Mahadasha passed before birth.
func (tl *Timeline) Elapsed() time.Duration { return tl.elapsed }

// Balance returns how much of the first Mahadasha remains at birth.
func (tl *Timeline) Balance() time.Duration { return tl.balance }

// BalanceYears returns Balance in dasha years.
func (tl *Timeline) BalanceYears() float64 {
	return float64(tl.balance) / float64(tl.year)
}

// Mahadashas returns the top-level periods.
func (tl *Timeline) Mahadashas() []Period {
	out := make([]Period, len(tl.mahas))
	copy(out, tl.mahas)
	return out
}

// Children returns the nine sub-periods of p, or nil when p is at the depth limit or
// shorter than MinDuration.
func (tl *Timeline) Children(p Period) []Period {
	if int(p.Level) >= tl.opts.MaxDepth {
		return nil
	}
	dur := p.Duration()
	if dur <= 0 || dur < tl.opts.MinDuration {
		return nil
	}
	out := make([]Period, 0, 9)
	start := p.Start
	var cum int64
	for i, lord := range sequence(p.Lord) {
		cum += years[lord]
		end := p.End
		if i < 8 {
			end = p.Start.Add(scale(dur, cum, CycleYears))
		}
		lords := make([]models.Body, len(p.Lords)+1)
		copy(lords, p.Lords)
		lords[len(p.Lords)] = lord
		out = append(out, Period{Lord: lord, Level: p.Level + 1, Start: start, End: end, Lords: lords})
		start = end
	}
	return out
}

// scale returns d × num / den without intermediate overflow. d must be non-negative and
// num at most den.
func scale(d time.Duration, num, den int64) time.Duration {
	hi, lo := bits.Mul64(uint64(d), uint64(num))
	q, _ := bits.Div64(hi, lo, uint64(den))
	return time.Duration(q)
}

// All yields every period depth-first: each Mahadasha, then its sub-periods in order.
// The sequence is finite and may be ranged over any number of times.
func (tl *Timeline) All() iter.Seq[Period] {
	return func(yield func(Period) bool) {
		for _, m := range tl.mahas {
			if !tl.walk(m, yield) {
				return
			}
		}
	}
}

func (tl *Timeline) walk(p Period, yield func(Period) bool) bool {
	if !yield(p) {
		return false
	}
	for _, c := range tl.Children(p) {
		if !tl.walk(c, yield) {
			return false
		}
	}
	return true
}

// UpTo yields the periods of All at or above the given level.
func (tl *Timeline) UpTo(level Level) iter.Seq[Period] {
	return func(yield func(Period) bool) {
		for p := range tl.All() {
			if p.Level <= level && !yield(p) {
				return
			}
		}
	}
}

// Tree materializes the timeline as nested nodes.
func (tl *Timeline) Tree() []*Node {
	out := make([]*Node, len(tl.mahas))
	for i, m := range tl.mahas {
		out[i] = tl.node(m)
	}
	return out
}

func (tl *Timeline) node(p Period) *Node {
	n := &Node{Period: p}
	for _, c := range tl.Children(p) {
		n.Children = append(n.Children, tl.node(c))
	}
	return n
}

// At returns the chain of periods active at t, Mahadasha first. It is empty when t is
// outside the timeline.
func (tl *Timeline) At(t time.Time) []Period {
	var chain []Period
	periods := tl.mahas
	for len(periods) > 0 {
		i := sort.Search(len(periods), func(i int) bool { return periods[i].End.After(t) })
		if i == len(periods) || t.Before(periods[i].Start) {
			break
		}
		chain = append(chain, periods[i])
		periods = tl.Children(periods[i])
	}
	return chain
}

// Verify checks every generated period against the timeline invariants: Mahadashas are
// contiguous at their full lengths, the first ends at birth + balance, nine consecutive
// Mahadashas span exactly 120 years, and children exactly partition their parent.
func (tl *Timeline) Verify() error {
	return tl.VerifyUpTo(Deha)
}

// VerifyUpTo is Verify restricted to periods down to level. Every level is subdivided
// by the same arithmetic, so checking the upper levels bounds the cost on deep timelines.
func (tl *Timeline) VerifyUpTo(level Level) error {
	if got, want := tl.mahas[0].End, tl.birth.Add(tl.balance); !got.Equal(want) {
		return errs.Boundary("first mahadasha ends at %s, want birth + balance %s", got, want)
	}
	var cycle time.Duration
	for i, m := range tl.mahas {
		if want := time.Duration(years[m.Lord]) * tl.year; m.Duration() != want {
			return errs.Boundary("%s mahadasha lasts %s, want %s", m.Lord, m.Duration(), want)
		}
		if i > 0 && !m.Start.Equal(tl.mahas[i-1].End) {
			return errs.Boundary("gap before %s mahadasha at %s", m.Lord, m.Start)
		}
		if i < 9 {
			cycle += m.Duration()
		}
		if err := tl.verifyChildren(m, level); err != nil {
			return err
		}
	}
	if len(tl.mahas) >= 9 && cycle != CycleYears*tl.year {
		return errs.Boundary("mahadasha cycle spans %s, want %d years", cycle, CycleYears)
	}
	return nil
}

func (tl *Timeline) verifyChildren(p Period, level Level) error {
	if p.Level >= level {
		return nil
	}
	kids := tl.Children(p)
	if len(kids) == 0 {
		return nil
	}
	if !kids[0].Start.Equal(p.Start) || !kids[len(kids)-1].End.Equal(p.End) {
		return errs.Boundary("sub-periods of %s do not span [%s, %s)", p.Label(), p.Start, p.End)
	}
	var sum time.Duration
	for i, k := range kids {
		if k.End.Before(k.Start) {
			return errs.Boundary("%s ends before it starts", k.Label())
		}
		if i > 0 && !k.Start.Equal(kids[i-1].End) {
			return errs.Boundary("gap before %s", k.Label())
		}
		sum += k.Duration()
		if err := tl.verifyChildren(k, level); err != nil {
			return err
		}
	}
	if sum != p.Duration() {
		return errs.Boundary("sub-periods of %s sum to %s, want %s", p.Label(), sum, p.Duration())
	}
	return nil
}
