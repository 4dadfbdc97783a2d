package ephemeris

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/house"
	"github.com/hyperjump/vedika/internal/models"
)

var when = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

func TestLRU_GetSet(t *testing.T) {
	c := newLRU(2)
	if v, ok := c.get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.set("a", 1.0)
	v, ok := c.get("a")
	if !ok || v.(float64) != 1.0 {
		t.Errorf("get: got %v, %v", v, ok)
	}
	c.set("b", 2.0)
	c.get("a")      // a is now most recent
	c.set("c", 3.0) // evicts b
	if _, ok := c.get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.get("a"); !ok {
		t.Error("expected a to remain")
	}
	if c.len() != 2 {
		t.Errorf("len = %d, want 2", c.len())
	}
}

func TestCached_MemoizesByTargetAndInstant(t *testing.T) {
	static := NewStatic(15).SetBody(models.Moon, 100, 13)
	c := NewCached(static, 16)
	ctx := context.Background()

	for range 3 {
		p, err := c.Position(ctx, models.Moon, when, 10, 20)
		if err != nil {
			t.Fatal(err)
		}
		if p.TropicalLongitude != 100 {
			t.Errorf("longitude = %v", p.TropicalLongitude)
		}
	}
	if n := static.Calls("Moon"); n != 1 {
		t.Errorf("adapter called %d times, want 1", n)
	}

	if _, err := c.Position(ctx, models.Moon, when.Add(time.Second), 10, 20); err != nil {
		t.Fatal(err)
	}
	if n := static.Calls("Moon"); n != 2 {
		t.Errorf("adapter called %d times, want 2", n)
	}

	if _, err := c.Ascendant(ctx, when, 10, 20); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Ascendant(ctx, when, 10, 20); err != nil {
		t.Fatal(err)
	}
	stats := c.Stats()
	if stats.Hits != 3 || stats.Misses != 3 || stats.Entries != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCached_DoesNotCacheFailures(t *testing.T) {
	static := NewStatic(15).FailWith(errors.New("offline"))
	c := NewCached(static, 16)
	for range 2 {
		if _, err := c.Ascendant(context.Background(), when, 0, 0); err == nil {
			t.Fatal("expected error")
		}
	}
	if n := static.Calls("ascendant"); n != 2 {
		t.Errorf("adapter called %d times, want 2", n)
	}
}

func TestCached_ZeroCapacity(t *testing.T) {
	static := NewStatic(15)
	c := NewCached(static, 0)
	c.Ascendant(context.Background(), when, 0, 0)
	c.Ascendant(context.Background(), when, 0, 0)
	assert.Equal(t, 2, static.Calls("ascendant"))
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestStatic_Cusps(t *testing.T) {
	q := house.Cusps{0, 30, 60, 90, 120, 150, 180, 210, 240, 270, 300, 330}
	s := NewStatic(0).SetCusps(house.Porphyry, q)
	got, err := s.Cusps(context.Background(), when, 0, 0, house.Sripati)
	require.NoError(t, err)
	assert.Equal(t, q, got)

	_, err = s.Cusps(context.Background(), when, 0, 0, house.Placidus)
	assert.Error(t, err)
}

func TestGuarded_PassesThrough(t *testing.T) {
	static := NewStatic(42).SetBody(models.Sun, 280, 1)
	g := NewGuarded(static, time.Second, DefaultBreakerConfig())

	p, err := g.Position(context.Background(), models.Sun, when, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 280.0, p.TropicalLongitude)

	asc, err := g.Ascendant(context.Background(), when, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 42.0, asc)
	assert.Equal(t, "closed", g.State())
}

func TestGuarded_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	static := NewStatic(42).Delay(time.Second)
	g := NewGuarded(static, 20*time.Millisecond, DefaultBreakerConfig())

	start := time.Now()
	_, err := g.Ascendant(context.Background(), when, 0, 0)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.ErrorIs(t, err, errs.ErrEphemerisUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, errs.KindEphemerisUnavailable, errs.KindOf(err))
}

func TestGuarded_BreakerOpens(t *testing.T) {
	static := NewStatic(42).FailWith(errors.New("offline"))
	cfg := DefaultBreakerConfig()
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	g := NewGuarded(static, time.Second, cfg)

	for range 3 {
		_, err := g.Ascendant(context.Background(), when, 0, 0)
		require.ErrorIs(t, err, errs.ErrEphemerisUnavailable)
	}
	assert.Equal(t, "open", g.State())

	_, err := g.Ascendant(context.Background(), when, 0, 0)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorIs(t, err, errs.ErrEphemerisUnavailable)
	assert.Equal(t, 3, static.Calls("ascendant"))
}

func TestGuarded_CallerErrorsDoNotTrip(t *testing.T) {
	cfg := DefaultBreakerConfig()
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	g := NewCached(NewGuarded(NewAnalytic(), time.Second, cfg), 64)

	for range 5 {
		_, err := g.Cusps(context.Background(), when, 80, 20, house.Placidus)
		require.ErrorIs(t, err, errs.ErrValidation)
		assert.NotErrorIs(t, err, errs.ErrEphemerisUnavailable)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range 5 {
		_, err := g.Ascendant(ctx, when.Add(time.Hour), 28.61, 77.21)
		require.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, "closed", g.next.(*Guarded).State())
	_, err := g.Ascendant(context.Background(), when, 28.61, 77.21)
	assert.NoError(t, err)
}

func TestGuarded_AdapterFaultsStillTrip(t *testing.T) {
	static := NewStatic(42).FailWith(errs.Validation("bad input"))
	cfg := DefaultBreakerConfig()
	cfg.MinRequests = 3
	cfg.FailureThreshold = 0.5
	g := NewGuarded(static, time.Second, cfg)

	for range 4 {
		_, err := g.Ascendant(context.Background(), when, 0, 0)
		require.ErrorIs(t, err, errs.ErrValidation)
	}
	assert.Equal(t, "closed", g.State())

	static.FailWith(errors.New("offline"))
	for range 4 {
		g.Ascendant(context.Background(), when, 0, 0)
	}
	assert.Equal(t, "open", g.State())
}
