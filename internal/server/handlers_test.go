package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyperjump/vedika/internal/chart"
	"github.com/hyperjump/vedika/internal/config"
	"github.com/hyperjump/vedika/internal/dasha"
	"github.com/hyperjump/vedika/internal/ephemeris"
	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/house"
	"github.com/hyperjump/vedika/internal/keyword"
	"github.com/hyperjump/vedika/internal/metrics"
	"github.com/hyperjump/vedika/internal/models"
	"github.com/hyperjump/vedika/internal/profiles"
	"github.com/hyperjump/vedika/internal/storage"
)

type testEnv struct {
	srv     *Server
	handler http.Handler
	metrics *metrics.Collector
}

func newTestEnv(t *testing.T, adapter ephemeris.Adapter) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Server.BatchLimit = 3
	cfg.Storage.DatabasePath = filepath.Join(dir, "profiles.db")
	cfg.Storage.IndexPath = ""

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	idx, err := keyword.NewBleveIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	collector := metrics.NewCollector("test")
	calc := chart.NewCalculator(adapter, chart.WithObserver(collector))
	cached := ephemeris.NewCached(adapter, 16)
	srv, err := NewServer(calc, profiles.NewService(store, idx), cfg,
		WithLogger(zap.NewNop()),
		WithMetrics(collector),
		WithEphemerisStatus(cached.Stats, func() string { return "closed" }))
	require.NoError(t, err)
	srv.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return &testEnv{srv: srv, handler: srv.Handler(), metrics: collector}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out), w.Body.String())
	return out
}

var birth = map[string]any{
	"birth_time": "1990-05-17 10:10",
	"time_zone":  "Asia/Kolkata",
	"latitude":   25.3,
	"longitude":  83.0,
}

func withFields(extra map[string]any) map[string]any {
	out := make(map[string]any, len(birth)+len(extra))
	for k, v := range birth {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())
	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHandleChart(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())
	w := env.do(t, http.MethodPost, "/api/v1/charts", birth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	c := decodeBody[chart.Chart](t, w)
	assert.Len(t, c.Bodies, len(models.Bodies))
	assert.Len(t, c.Vargas, 16)
	assert.Equal(t, house.WholeSign, c.Birth.HouseSystem)
	assert.Equal(t, 4, c.Birth.Instant.Hour())
	assert.NotEmpty(t, c.Dasha.Periods)
}

func TestHandleChart_Overrides(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())
	w := env.do(t, http.MethodPost, "/api/v1/charts", withFields(map[string]any{
		"house_system":       "placidus",
		"divisional_factors": []int{9, 5},
		"dasha":              map[string]any{"max_depth": 1, "year_basis": "savana"},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	c := decodeBody[chart.Chart](t, w)
	assert.Equal(t, house.Placidus, c.Birth.HouseSystem)
	require.Len(t, c.Vargas, 2)
	assert.NotEmpty(t, c.Vargas[5].Error)
	assert.Empty(t, c.Vargas[9].Error)
	for _, p := range c.Dasha.Periods {
		assert.EqualValues(t, 1, p.Level)
	}
}

func TestHandleChart_Errors(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())
	tests := []struct {
		name   string
		body   any
		status int
		kind   errs.Kind
	}{
		{"malformed json", "{", http.StatusBadRequest, errs.KindValidation},
		{"missing latitude", map[string]any{"birth_time": "2000-01-01T00:00:00Z", "longitude": 1.0}, http.StatusBadRequest, errs.KindValidation},
		{"latitude out of range", withFields(map[string]any{"latitude": 95}), http.StatusBadRequest, errs.KindValidation},
		{"bad birth time", withFields(map[string]any{"birth_time": "soon"}), http.StatusBadRequest, errs.KindValidation},
		{"unknown ayanamsha", withFields(map[string]any{"ayanamsha": "bogus"}), http.StatusBadRequest, errs.KindConfiguration},
		{"unknown house system", withFields(map[string]any{"house_system": "koch"}), http.StatusBadRequest, errs.KindConfiguration},
		{"bad min duration", withFields(map[string]any{"dasha": map[string]any{"min_duration": "a while"}}), http.StatusBadRequest, errs.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/charts", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			body := decodeBody[errorBody](t, w)
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestHandleChart_EphemerisUnavailable(t *testing.T) {
	static := ephemeris.NewStatic(0).FailWith(errors.New("offline"))
	env := newTestEnv(t, static)
	w := env.do(t, http.MethodPost, "/api/v1/charts", birth)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody[errorBody](t, w)
	assert.Equal(t, errs.KindEphemerisUnavailable, body.Kind)
}

func TestHandleChartBatch(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())
	w := env.do(t, http.MethodPost, "/api/v1/charts/batch", map[string]any{
		"charts": []any{
			birth,
			withFields(map[string]any{"ayanamsha": "bogus"}),
			withFields(map[string]any{"birth_time": "2001-01-01T00:00:00Z"}),
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		Results []struct {
			Chart *chart.Chart `json:"chart"`
			Error *errs.Error  `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	require.Len(t, out.Results, 3)
	assert.NotNil(t, out.Results[0].Chart)
	require.NotNil(t, out.Results[1].Error)
	assert.Equal(t, errs.KindConfiguration, out.Results[1].Error.Kind)
	require.NotNil(t, out.Results[2].Chart)
	assert.Equal(t, 2001, out.Results[2].Chart.Birth.Instant.Year())
}

func TestHandleChartBatch_Limits(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())

	w := env.do(t, http.MethodPost, "/api/v1/charts/batch", map[string]any{"charts": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/charts/batch", map[string]any{"charts": []any{birth, birth, birth, birth}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds the limit")
}

func TestHandleDasha(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())
	w := env.do(t, http.MethodPost, "/api/v1/dasha", withFields(map[string]any{
		"at":    "2020-01-01T00:00:00Z",
		"dasha": map[string]any{"max_depth": 2},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeBody[dashaResponse](t, w)
	assert.Equal(t, 2, resp.Options.MaxDepth)
	assert.Len(t, resp.Periods, 10*(1+9))
	require.Len(t, resp.Active, 2)
	at := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, p := range resp.Active {
		assert.True(t, p.Contains(at), p.Label())
	}
	assert.Equal(t, resp.Active[0].Lord, resp.Active[1].Lords[0])

	w = env.do(t, http.MethodPost, "/api/v1/dasha", withFields(map[string]any{"at": "yesterday"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashaDepthLimit(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())
	deep := withFields(map[string]any{"dasha": map[string]any{"max_depth": 6, "horizon_years": 240}})

	for _, path := range []string{"/api/v1/charts", "/api/v1/dasha"} {
		w := env.do(t, http.MethodPost, path, deep)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Contains(t, w.Body.String(), "dasha depth 6 exceeds the limit of 3", path)
	}

	w := env.do(t, http.MethodPost, "/api/v1/charts/batch", map[string]any{"charts": []any{birth, deep}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Results []struct {
			Chart *chart.Chart `json:"chart"`
			Error *errs.Error  `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	require.Len(t, out.Results, 2)
	assert.NotNil(t, out.Results[0].Chart)
	require.NotNil(t, out.Results[1].Error)
	assert.Equal(t, errs.KindValidation, out.Results[1].Error.Kind)

	w = env.do(t, http.MethodPost, "/api/v1/profiles", map[string]any{
		"name":       "Deep",
		"birth_time": "1985-02-03T06:30:00Z",
		"latitude":   19.07,
		"longitude":  72.88,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decodeBody[models.Profile](t, w)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/profiles/%s/chart?depth=5", p.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Active periods stay available at every depth.
	w = env.do(t, http.MethodGet, "/api/v1/dasha/current?depth=6&profile_id="+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var current struct {
		Periods []dasha.Period `json:"periods"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&current))
	assert.Len(t, current.Periods, 6)

	// A reloaded default depth is always allowed.
	d := env.srv.chartDefaults()
	d.Settings.Dasha.MaxDepth = 4
	d.Settings.Factors = []int{1}
	env.srv.SetChartDefaults(d)
	w = env.do(t, http.MethodPost, "/api/v1/charts", birth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(t, http.MethodPost, "/api/v1/charts", withFields(map[string]any{"dasha": map[string]any{"max_depth": 5}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAyanamsha(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())

	w := env.do(t, http.MethodGet, "/api/v1/ayanamsha/lahiri?at=2000-01-01T12:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Model     string  `json:"model"`
		Value     float64 `json:"value"`
		Formatted string  `json:"formatted"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, "lahiri", out.Model)
	assert.InDelta(t, 23.857092, out.Value, 1e-6)
	assert.True(t, strings.HasPrefix(out.Formatted, "23°"), out.Formatted)

	w = env.do(t, http.MethodGet, "/api/v1/ayanamsha/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfilesCRUD(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())
	in := map[string]any{
		"name":       "Ravi",
		"place":      "Varanasi",
		"birth_time": "1990-05-17 10:10",
		"time_zone":  "Asia/Kolkata",
		"latitude":   25.3,
		"longitude":  83.0,
	}

	w := env.do(t, http.MethodPost, "/api/v1/profiles", in)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[models.Profile](t, w)
	require.NotEmpty(t, created.ID)

	w = env.do(t, http.MethodGet, "/api/v1/profiles/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Varanasi", decodeBody[models.Profile](t, w).Place)

	in["place"] = "Kolkata"
	w = env.do(t, http.MethodPut, "/api/v1/profiles/"+created.ID, in)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Kolkata", decodeBody[models.Profile](t, w).Place)

	w = env.do(t, http.MethodGet, "/api/v1/profiles/search?q=kolkata", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var search struct {
		Results []profiles.Hit `json:"results"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&search))
	require.Len(t, search.Results, 1)
	assert.Equal(t, created.ID, search.Results[0].Profile.ID)

	w = env.do(t, http.MethodGet, "/api/v1/profiles/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Profiles []models.Profile `json:"profiles"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Len(t, list.Profiles, 1)

	w = env.do(t, http.MethodDelete, "/api/v1/profiles/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/api/v1/profiles/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errs.KindNotFound, decodeBody[errorBody](t, w).Kind)
}

func TestProfiles_Validation(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())
	w := env.do(t, http.MethodPost, "/api/v1/profiles", map[string]any{"latitude": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody[errorBody](t, w)
	assert.Contains(t, body.Error, "name is required")
	assert.Contains(t, body.Error, "birth_time is required")

	w = env.do(t, http.MethodGet, "/api/v1/profiles/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileChartAndCurrentDasha(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())
	w := env.do(t, http.MethodPost, "/api/v1/profiles", map[string]any{
		"name":       "Mira",
		"birth_time": "1985-02-03T06:30:00Z",
		"latitude":   19.07,
		"longitude":  72.88,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decodeBody[models.Profile](t, w)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/profiles/%s/chart?house_system=equal&factors=1,9&depth=1", p.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Chart chart.Chart `json:"chart"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, house.Equal, out.Chart.Birth.HouseSystem)
	assert.Len(t, out.Chart.Vargas, 2)
	assert.Len(t, out.Chart.Dasha.Periods, 10)

	w = env.do(t, http.MethodGet, "/api/v1/dasha/current?profile_id="+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var current struct {
		At      time.Time `json:"at"`
		Periods []struct {
			Lord  string    `json:"lord"`
			Start time.Time `json:"start"`
			End   time.Time `json:"end"`
		} `json:"periods"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&current))
	require.Len(t, current.Periods, 3)
	for _, per := range current.Periods {
		assert.False(t, current.At.Before(per.Start))
		assert.True(t, current.At.Before(per.End))
	}

	w = env.do(t, http.MethodGet, "/api/v1/dasha/current?profile_id=missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/api/v1/dasha/current", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStatusAndMetrics(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())
	env.do(t, http.MethodPost, "/api/v1/charts", birth)

	w := env.do(t, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var status map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.EqualValues(t, 0, status["profiles"])
	defaults := status["chart_defaults"].(map[string]any)
	assert.Equal(t, "lahiri", defaults["ayanamsha"])
	eph := status["ephemeris"].(map[string]any)
	assert.Equal(t, "closed", eph["breaker"])

	w = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_charts_total{outcome="ok"} 1`)
	assert.Contains(t, w.Body.String(), `route="/api/v1/charts"`)
}

func TestSetChartDefaults(t *testing.T) {
	env := newTestEnv(t, ephemeris.NewAnalytic())
	d := env.srv.chartDefaults()
	d.HouseSystem = house.Porphyry
	d.Settings.Factors = []int{1}
	env.srv.SetChartDefaults(d)

	w := env.do(t, http.MethodPost, "/api/v1/charts", birth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	c := decodeBody[chart.Chart](t, w)
	assert.Equal(t, house.Porphyry, c.Birth.HouseSystem)
	assert.Len(t, c.Vargas, 1)
}

func TestNewServer_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Chart.Ayanamsha = "bogus"
	_, err := NewServer(chart.NewCalculator(ephemeris.NewAnalytic()), nil, cfg)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}
