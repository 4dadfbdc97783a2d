// Package models defines the plain data types shared across the chart pipeline, storage and API.
package models

import (
	"fmt"
	"strings"
)

// Body is a celestial body used in Vedic charts.
type Body int

const (
	Sun Body = iota
	Moon
	Mars
	Mercury
	Jupiter
	Venus
	Saturn
	// Rahu is the mean north lunar node.
	Rahu
	// Ketu is the south lunar node, always opposite Rahu.
	Ketu
)

// Bodies lists every body in the traditional order.
var Bodies = []Body{Sun, Moon, Mars, Mercury, Jupiter, Venus, Saturn, Rahu, Ketu}

var bodyNames = [...]string{"Sun", "Moon", "Mars", "Mercury", "Jupiter", "Venus", "Saturn", "Rahu", "Ketu"}

func (b Body) String() string {
	if b < Sun || b > Ketu {
		return fmt.Sprintf("Body(%d)", int(b))
	}
	return bodyNames[b]
}

// IsNode reports whether b is one of the lunar nodes.
func (b Body) IsNode() bool { return b == Rahu || b == Ketu }

// MarshalText encodes the body by name.
func (b Body) MarshalText() ([]byte, error) {
	if b < Sun || b > Ketu {
		return nil, fmt.Errorf("invalid body %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText decodes a body name, case-insensitively.
func (b *Body) UnmarshalText(text []byte) error {
	parsed, err := ParseBody(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBody resolves a body name, case-insensitively.
func ParseBody(name string) (Body, error) {
	n := strings.TrimSpace(name)
	for i, bn := range bodyNames {
		if strings.EqualFold(bn, n) {
			return Body(i), nil
		}
	}
	return 0, fmt.Errorf("unknown body %q", name)
}
