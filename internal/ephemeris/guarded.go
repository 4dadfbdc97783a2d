package ephemeris

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/house"
	"github.com/hyperjump/vedika/internal/models"
)

// BreakerConfig configures the circuit breaker around an adapter.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that opens the breaker once MinRequests is reached.
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "ephemeris",
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Guarded bounds each adapter call with a timeout and a circuit breaker. Every failure,
// including an open breaker, is reported as errs.KindEphemerisUnavailable. Validation
// errors pass through unchanged.
//
// Only adapter faults count toward opening the breaker. Validation errors and calls
// cancelled by the caller are counted as successes, so one client's bad input cannot
// trip the breaker for everyone else.
//
// A call that times out returns at once, but its worker goroutine runs until the
// adapter returns. Adapters must honor ctx to keep that bounded by the timeout.
type Guarded struct {
	next    Adapter
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger // optional
}

// GuardedOption configures a Guarded adapter.
type GuardedOption func(*Guarded)

// WithLogger logs breaker state changes and failed calls.
func WithLogger(l *zap.Logger) GuardedOption {
	return func(g *Guarded) { g.logger = l }
}

// NewGuarded wraps next. A zero timeout leaves calls bounded only by the caller's context.
func NewGuarded(next Adapter, timeout time.Duration, cfg BreakerConfig, opts ...GuardedOption) *Guarded {
	g := &Guarded{next: next, timeout: timeout}
	for _, opt := range opts {
		opt(g)
	}
	g.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if g.logger != nil {
				g.logger.Warn("ephemeris breaker state changed",
					zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
			}
		},
	})
	return g
}

// countsAsSuccess reports whether err is nil or the caller's fault rather than the adapter's.
func countsAsSuccess(err error) bool {
	return err == nil ||
		errs.KindOf(err) == errs.KindValidation ||
		errors.Is(err, context.Canceled)
}

// State returns the breaker state: "closed", "half-open" or "open".
func (g *Guarded) State() string {
	return g.cb.State().String()
}

type outcome struct {
	value any
	err   error
}

func (g *Guarded) call(ctx context.Context, target string, fn func(context.Context) (any, error)) (any, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	v, err := g.cb.Execute(func() (any, error) {
		done := make(chan outcome, 1)
		go func() {
			v, err := fn(ctx)
			done <- outcome{v, err}
		}()
		select {
		case o := <-done:
			return o.value, o.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	if err != nil {
		if g.logger != nil {
			g.logger.Debug("ephemeris call failed", zap.String("target", target), zap.Error(err))
		}
		if errs.KindOf(err) == errs.KindValidation {
			return nil, err
		}
		return nil, errs.EphemerisUnavailable(target, err)
	}
	return v, nil
}

// Position implements Adapter.
func (g *Guarded) Position(ctx context.Context, body models.Body, t time.Time, lat, lon float64) (models.BodyPosition, error) {
	v, err := g.call(ctx, body.String(), func(ctx context.Context) (any, error) {
		return g.next.Position(ctx, body, t, lat, lon)
	})
	if err != nil {
		return models.BodyPosition{}, err
	}
	return v.(models.BodyPosition), nil
}

// Ascendant implements Adapter.
func (g *Guarded) Ascendant(ctx context.Context, t time.Time, lat, lon float64) (float64, error) {
	v, err := g.call(ctx, "ascendant", func(ctx context.Context) (any, error) {
		return g.next.Ascendant(ctx, t, lat, lon)
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Cusps implements Adapter.
func (g *Guarded) Cusps(ctx context.Context, t time.Time, lat, lon float64, system house.System) (house.Cusps, error) {
	v, err := g.call(ctx, "cusps", func(ctx context.Context) (any, error) {
		return g.next.Cusps(ctx, t, lat, lon, system)
	})
	if err != nil {
		return house.Cusps{}, err
	}
	return v.(house.Cusps), nil
}
