package ephemeris

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/vedika/internal/house"
	"github.com/hyperjump/vedika/internal/models"
)

// Static serves fixed positions regardless of time and place. It records how often each
// target is requested.
type Static struct {
	mu        sync.Mutex
	positions map[models.Body]models.BodyPosition
	ascendant float64
	cusps     map[house.System]house.Cusps
	err       error
	delay     time.Duration
	calls     map[string]int
}

// NewStatic returns an adapter with the given tropical ascendant and no bodies.
func NewStatic(ascendant float64) *Static {
	return &Static{
		positions: make(map[models.Body]models.BodyPosition),
		ascendant: ascendant,
		cusps:     make(map[house.System]house.Cusps),
		calls:     make(map[string]int),
	}
}

// SetBody sets a body's tropical longitude and daily motion.
func (s *Static) SetBody(body models.Body, tropical, speed float64) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[body] = models.BodyPosition{
		Body:              body,
		TropicalLongitude: tropical,
		Speed:             speed,
		Retrograde:        speed < 0,
	}
	return s
}

// SetCusps sets the tropical cusps returned for a quadrant system.
func (s *Static) SetCusps(system house.System, cusps house.Cusps) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cusps[system] = cusps
	return s
}

// FailWith makes every subsequent call return err.
func (s *Static) FailWith(err error) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// Delay makes every call block for d or until the context is done.
func (s *Static) Delay(d time.Duration) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	return s
}

// Calls returns how many times target ("Moon", "ascendant", "cusps") was requested.
func (s *Static) Calls(target string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[target]
}

func (s *Static) begin(ctx context.Context, target string) error {
	s.mu.Lock()
	s.calls[target]++
	err, delay := s.err, s.delay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Position implements Adapter.
func (s *Static) Position(ctx context.Context, body models.Body, t time.Time, lat, lon float64) (models.BodyPosition, error) {
	if err := s.begin(ctx, body.String()); err != nil {
		return models.BodyPosition{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[body]
	if !ok {
		return models.BodyPosition{}, fmt.Errorf("no position for %s", body)
	}
	return p, nil
}

// Ascendant implements Adapter.
func (s *Static) Ascendant(ctx context.Context, t time.Time, lat, lon float64) (float64, error) {
	if err := s.begin(ctx, "ascendant"); err != nil {
		return 0, err
	}
	return s.ascendant, nil
}

// Cusps implements Adapter.
func (s *Static) Cusps(ctx context.Context, t time.Time, lat, lon float64, system house.System) (house.Cusps, error) {
	if err := s.begin(ctx, "cusps"); err != nil {
		return house.Cusps{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cusps[system.CuspSource()]
	if !ok {
		return house.Cusps{}, fmt.Errorf("no %s cusps", system.CuspSource())
	}
	return c, nil
}
