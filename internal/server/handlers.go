package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/vedika/internal/ayanamsha"
	"github.com/hyperjump/vedika/internal/chart"
	"github.com/hyperjump/vedika/internal/config"
	"github.com/hyperjump/vedika/internal/dasha"
	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/keyword"
	"github.com/hyperjump/vedika/internal/models"
	"github.com/hyperjump/vedika/internal/storage"
	"github.com/hyperjump/vedika/internal/zodiac"
	"github.com/hyperjump/vedika/pkg/utils"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	var req chartRequest
	if !s.decode(w, r, &req) {
		return
	}
	birth, settings, err := resolve(s.chartDefaults(), req.birthRequest, req.settingsRequest)
	if err == nil {
		err = s.checkDashaDepth(settings.Dasha)
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}
	c, err := s.calc.Compute(r.Context(), birth, settings)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleChartBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if limit := s.config.Server.BatchLimit; limit > 0 && len(req.Charts) > limit {
		s.respondErr(w, errs.Validation("batch of %d charts exceeds the limit of %d", len(req.Charts), limit))
		return
	}

	defaults := s.chartDefaults()
	items := make([]batchItem, len(req.Charts))
	reqs := make([]chart.Request, 0, len(req.Charts))
	slots := make([]int, 0, len(req.Charts))
	for i, cr := range req.Charts {
		birth, settings, err := resolve(defaults, cr.birthRequest, cr.settingsRequest)
		if err == nil {
			err = s.checkDashaDepth(settings.Dasha)
		}
		if err != nil {
			items[i].Error = asError(err)
			continue
		}
		reqs = append(reqs, chart.Request{Birth: birth, Settings: settings})
		slots = append(slots, i)
	}
	for j, res := range s.calc.ComputeBatch(r.Context(), reqs) {
		if res.Err != nil {
			items[slots[j]].Error = asError(res.Err)
			continue
		}
		items[slots[j]].Chart = res.Chart
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"results": items})
}

func (s *Server) handleDasha(w http.ResponseWriter, r *http.Request) {
	var req dashaRequest
	if !s.decode(w, r, &req) {
		return
	}
	birth, settings, err := resolve(s.chartDefaults(), req.birthRequest, req.settingsRequest)
	if err == nil {
		err = s.checkDashaDepth(settings.Dasha)
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}
	var at time.Time
	if req.At != "" {
		if at, err = time.Parse(time.RFC3339, req.At); err != nil {
			s.respondErr(w, errs.Validation("invalid at %q: want RFC 3339", req.At))
			return
		}
	}
	tl, err := s.calc.Timeline(r.Context(), birth, settings.Dasha)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	resp := newDashaResponse(tl)
	if !at.IsZero() {
		resp.Active = tl.At(at)
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDashaCurrent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("profile_id")
	if id == "" {
		s.respondErr(w, errs.Validation("profile_id is required"))
		return
	}
	at := s.now().UTC()
	if v := q.Get("at"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.respondErr(w, errs.Validation("invalid at %q: want RFC 3339", v))
			return
		}
		at = t.UTC()
	}
	p, err := s.profiles.Get(r.Context(), id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	d, err := s.chartDefaults().Apply(queryOverrides(q))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	birth, err := p.BirthMoment(d.Ayanamsha, d.HouseSystem)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	tl, err := s.calc.Timeline(r.Context(), birth, d.Settings.Dasha)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"profile_id": p.ID,
		"at":         at,
		"periods":    tl.At(at),
	})
}

func (s *Server) handleAyanamsha(w http.ResponseWriter, r *http.Request) {
	model, err := ayanamsha.Parse(chi.URLParam(r, "model"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	at := s.now().UTC()
	if v := r.URL.Query().Get("at"); v != "" {
		if at, err = models.ParseBirthTime(v, r.URL.Query().Get("time_zone")); err != nil {
			s.respondErr(w, err)
			return
		}
	}
	value, err := ayanamsha.Value(at, model)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"model":     model,
		"at":        at,
		"value":     value,
		"formatted": zodiac.FormatDMS(value),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := s.profiles.Count(ctx)
	if err != nil {
		s.logger.Error("status: count profiles failed", zap.Error(err))
		s.respondErr(w, err)
		return
	}
	d := s.chartDefaults()
	resp := map[string]any{
		"profiles":       count,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"chart_defaults": map[string]any{
			"ayanamsha":          d.Ayanamsha,
			"house_system":       d.HouseSystem,
			"divisional_factors": d.Settings.Factors,
			"dasha":              d.Settings.Dasha,
		},
	}
	if usage, err := storage.DiskUsage(s.config.Storage.DatabasePath, s.config.Storage.IndexPath); err == nil {
		resp["disk_usage"] = usage
	}
	eph := map[string]any{"timeout": s.config.Ephemeris.Timeout.String()}
	if s.cache != nil {
		eph["cache"] = s.cache()
	}
	if s.breaker != nil {
		eph["breaker"] = s.breaker()
	}
	resp["ephemeris"] = eph
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	list, err := s.profiles.List(r.Context(), offset, limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if list == nil {
		list = []*models.Profile{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"profiles": list})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var in models.ProfileInput
	if !s.decode(w, r, &in) {
		return
	}
	p, err := s.profiles.Create(r.Context(), &in)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in models.ProfileInput
	if !s.decode(w, r, &in) {
		return
	}
	p, err := s.profiles.Update(r.Context(), chi.URLParam(r, "id"), &in)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.profiles.Delete(r.Context(), id); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleSearchProfiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		s.respondErr(w, errs.Validation("q is required"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	opts := &keyword.SearchOptions{NameBoost: 2}
	if fuzzy, _ := strconv.ParseBool(q.Get("fuzzy")); fuzzy {
		opts.FuzzyEnabled = true
	}
	hits, err := s.profiles.Search(r.Context(), query, limit, opts)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"query": query, "results": hits})
}

func (s *Server) handleProfileChart(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	d, err := s.chartDefaults().Apply(queryOverrides(r.URL.Query()))
	if err == nil {
		err = s.checkDashaDepth(d.Settings.Dasha)
	}
	if err != nil {
		s.respondErr(w, err)
		return
	}
	birth, err := p.BirthMoment(d.Ayanamsha, d.HouseSystem)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	c, err := s.calc.Compute(r.Context(), birth, d.Settings)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"profile": p, "chart": c})
}

// checkDashaDepth rejects settings that would list a timeline deeper than the server
// allows. The configured default depth is always allowed, including after a reload.
// Periods at any depth stay reachable through the active-period lookups.
func (s *Server) checkDashaDepth(opts dasha.Options) error {
	depth := opts.MaxDepth
	if depth == 0 {
		depth = dasha.DefaultOptions().MaxDepth
	}
	limit := max(s.config.Server.MaxDashaDepth, s.chartDefaults().Settings.Dasha.MaxDepth)
	if limit > 0 && depth > limit {
		return errs.Validation("dasha depth %d exceeds the limit of %d", depth, limit).
			WithDetail("limit", limit)
	}
	return nil
}

// queryOverrides reads ayanamsha, house_system, factors (comma separated) and depth.
// Malformed numbers are ignored.
func queryOverrides(q map[string][]string) config.ChartOverrides {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	o := config.ChartOverrides{
		Ayanamsha:   get("ayanamsha"),
		HouseSystem: get("house_system"),
		YearBasis:   get("year_basis"),
	}
	if v := get("factors"); v != "" {
		o.Factors = []int{}
		for _, f := range strings.Split(v, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(f)); err == nil {
				o.Factors = append(o.Factors, n)
			}
		}
	}
	if n, err := strconv.Atoi(get("depth")); err == nil {
		o.MaxDepth = n
	}
	return o
}

// decode reads and validates a JSON body. It writes the error response and returns
// false on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.respondErr(w, errs.Validation("invalid request body").WithCause(err))
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		s.respondErr(w, err)
		return false
	}
	return true
}

func asError(err error) *errs.Error {
	var e *errs.Error
	if errors.As(err, &e) {
		return e
	}
	return errs.New("INTERNAL_ERROR", "%s", err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type errorBody struct {
	Error   string         `json:"error"`
	Kind    errs.Kind      `json:"kind,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := errs.StatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	body := errorBody{Error: err.Error()}
	var e *errs.Error
	if errors.As(err, &e) {
		body.Kind = e.Kind
		body.Details = e.Details
	}
	s.respondJSON(w, status, body)
}
