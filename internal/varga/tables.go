package varga

import (
	"fmt"

	z "github.com/hyperjump/vedika/internal/zodiac"
)

// category selects which property of the originating sign picks the starting anchor.
type category int

const (
	bySelf     category = iota // one anchor for every sign
	byParity                   // [odd, even]
	byModality                 // [movable, fixed, dual]
	byElement                  // [fire, earth, air, water]
)

// anchor is where counting starts: an absolute sign, or an offset from the originating sign.
type anchor struct {
	relative bool
	value    int
}

func from(offset int) anchor { return anchor{relative: true, value: offset} }
func at(s z.Sign) anchor { return anchor{value: int(s)} }

// run assigns count consecutive segments to one sign.
type run struct {
	count int
	sign  z.Sign
}

// scheme is the classical rule for one divisional factor. Exactly one of
// anchors (cyclic counting) or runs (explicit per-parity segments) is set.
type scheme struct {
	factor  int
	name    string
	by      category
	anchors []anchor
	step    int
	runs    *[2][]run // [odd, even]
}

// schemes follows the Parashari rules.
var schemes = []scheme{
	{factor: 1, name: "Rashi", by: bySelf, anchors: []anchor{from(0)}, step: 1},
	{factor: 2, name: "Hora", runs: &[2][]run{
		{{1, z.Leo}, {1, z.Cancer}},
		{{1, z.Cancer}, {1, z.Leo}},
	}},
	{factor: 3, name: "Drekkana", by: bySelf, anchors: []anchor{from(0)}, step: 4},
	{factor: 4, name: "Chaturthamsa", by: bySelf, anchors: []anchor{from(0)}, step: 3},
	{factor: 7, name: "Saptamsa", by: byParity, anchors: []anchor{from(0), from(6)}, step: 1},
	{factor: 9, name: "Navamsa", by: byModality, anchors: []anchor{from(0), from(8), from(4)}, step: 1},
	{factor: 10, name: "Dasamsa", by: byParity, anchors: []anchor{from(0), from(8)}, step: 1},
	{factor: 12, name: "Dwadasamsa", by: bySelf, anchors: []anchor{from(0)}, step: 1},
	{factor: 16, name: "Shodasamsa", by: byModality, anchors: []anchor{at(z.Aries), at(z.Leo), at(z.Sagittarius)}, step: 1},
	{factor: 20, name: "Vimsamsa", by: byModality, anchors: []anchor{at(z.Aries), at(z.Sagittarius), at(z.Leo)}, step: 1},
	{factor: 24, name: "Chaturvimsamsa", by: byParity, anchors: []anchor{at(z.Leo), at(z.Cancer)}, step: 1},
	{factor: 27, name: "Saptavimsamsa", by: byElement, anchors: []anchor{at(z.Aries), at(z.Cancer), at(z.Libra), at(z.Capricorn)}, step: 1},
	{factor: 30, name: "Trimsamsa", runs: &[2][]run{
		{{5, z.Aries}, {5, z.Aquarius}, {8, z.Sagittarius}, {7, z.Gemini}, {5, z.Libra}},
		{{5, z.Taurus}, {7, z.Virgo}, {8, z.Pisces}, {5, z.Capricorn}, {5, z.Scorpio}},
	}},
	{factor: 40, name: "Khavedamsa", by: byParity, anchors: []anchor{at(z.Aries), at(z.Libra)}, step: 1},
	{factor: 45, name: "Akshavedamsa", by: byModality, anchors: []anchor{at(z.Aries), at(z.Leo), at(z.Sagittarius)}, step: 1},
	{factor: 60, name: "Shashtiamsa", by: bySelf, anchors: []anchor{from(0)}, step: 1},
}

func (c category) of(s z.Sign) int {
	switch c {
	case byParity:
		if s.Odd() {
			return 0
		}
		return 1
	case byModality:
		return int(s.Modality())
	case byElement:
		return int(s.Element())
	default:
		return 0
	}
}

// expand builds the full (originating sign, segment) -> resulting sign table.
func (sc scheme) expand() ([12][]z.Sign, error) {
	var table [12][]z.Sign
	for s := z.Aries; s <= z.Pisces; s++ {
		row := make([]z.Sign, 0, sc.factor)
		if sc.runs != nil {
			parity := byParity.of(s)
			for _, r := range sc.runs[parity] {
				for i := 0; i < r.count; i++ {
					row = append(row, r.sign)
				}
			}
		} else {
			a := sc.anchors[sc.by.of(s)]
			start := z.Sign(a.value)
			if a.relative {
				start = s.Add(a.value)
			}
			for k := 0; k < sc.factor; k++ {
				row = append(row, start.Add(k*sc.step))
			}
		}
		if len(row) != sc.factor {
			return table, fmt.Errorf("D%d: %s row has %d segments", sc.factor, s, len(row))
		}
		table[s] = row
	}
	return table, nil
}
