package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/vedika/internal/chart"
	"github.com/hyperjump/vedika/internal/config"
	"github.com/hyperjump/vedika/internal/ephemeris"
	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/house"
	"github.com/hyperjump/vedika/internal/models"
	"github.com/hyperjump/vedika/internal/server"
)

// writeTestConfig writes a config whose storage lives next to it.
func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `storage:
  database_path: ./data/profiles.db
  index_path: ./data/index
` + extra
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := newRootCmd(&buf)
	root.SetArgs(args)
	root.SetErr(&buf)
	err := root.Execute()
	return buf.String(), err
}

func TestLoadConfig(t *testing.T) {
	path := writeTestConfig(t, "chart:\n  house_system: placidus\n")
	cfg, loaded, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if loaded != path {
		t.Errorf("loaded path = %q, want %q", loaded, path)
	}
	if cfg.Chart.HouseSystem != "placidus" {
		t.Errorf("house system = %q", cfg.Chart.HouseSystem)
	}
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for an explicit missing config")
	}
}

func TestLoadConfig_defaultPathPrefersWorkingDirectory(t *testing.T) {
	path := writeTestConfig(t, "chart:\n  ayanamsha: raman\n")
	t.Chdir(filepath.Dir(path))
	cfg, loaded, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if filepath.Base(loaded) != "config.yaml" || cfg.Chart.Ayanamsha != "raman" {
		t.Errorf("loaded %q with ayanamsha %q, want the working directory config", loaded, cfg.Chart.Ayanamsha)
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"ravi"}, "ravi"},
		{"multiple words", []string{"ravi", "varanasi"}, "ravi varanasi"},
		{"single quoted phrase", []string{"ravi varanasi"}, "ravi varanasi"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSearchQuery(tt.args); got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "vedika version dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestChartCommand_JSON(t *testing.T) {
	cfg := writeTestConfig(t, "")
	out, err := run(t, "--config", cfg, "chart",
		"--time", "1990-05-17 10:10", "--tz", "Asia/Kolkata", "--lat", "25.3", "--lon", "83.0",
		"--house-system", "equal", "--factors", "1,9", "--depth", "1", "-o", "json")
	if err != nil {
		t.Fatalf("chart: %v\n%s", err, out)
	}
	var c chart.Chart
	if err := json.Unmarshal([]byte(out), &c); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if c.Birth.HouseSystem != house.Equal {
		t.Errorf("house system = %v, want equal", c.Birth.HouseSystem)
	}
	if len(c.Vargas) != 2 {
		t.Errorf("vargas = %d, want 2", len(c.Vargas))
	}
	if got := c.Birth.Instant.Format("15:04"); got != "04:40" {
		t.Errorf("instant = %s, want 04:40 UTC", got)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(cfg), "data")); !os.IsNotExist(err) {
		t.Errorf("chart without --profile should not open the archive")
	}
}

func TestChartCommand_Errors(t *testing.T) {
	cfg := writeTestConfig(t, "")
	tests := []struct {
		name string
		args []string
		kind errs.Kind
	}{
		{"missing lat", []string{"chart", "--time", "2000-01-01T00:00:00Z", "--lon", "1"}, errs.KindValidation},
		{"bad ayanamsha", []string{"chart", "--time", "2000-01-01T00:00:00Z", "--lat", "1", "--lon", "1", "--ayanamsha", "bogus"}, errs.KindConfiguration},
		{"bad output", []string{"chart", "-o", "yaml"}, errs.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"--config", cfg}, tt.args...)...)
			if errs.KindOf(err) != tt.kind {
				t.Errorf("error %v has kind %q, want %q", err, errs.KindOf(err), tt.kind)
			}
		})
	}
}

func TestDashaCommand(t *testing.T) {
	cfg := writeTestConfig(t, "")
	birth := []string{"--config", cfg, "dasha", "--time", "1990-05-17T04:40:00Z", "--lat", "25.3", "--lon", "83.0", "--depth", "2"}

	out, err := run(t, append(birth, "--at", "2010-01-01T00:00:00Z")...)
	if err != nil {
		t.Fatalf("dasha: %v\n%s", err, out)
	}
	if n := strings.Count(out, "\n* "); n != 2 {
		t.Errorf("want 2 active periods marked, got %d:\n%s", n, out)
	}

	xlsx := filepath.Join(t.TempDir(), "dasha.xlsx")
	out, err = run(t, append(birth, "--xlsx", xlsx)...)
	if err != nil {
		t.Fatalf("dasha --xlsx: %v\n%s", err, out)
	}
	f, err := excelize.OpenFile(xlsx)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Dasha")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) < 1+9*10 {
		t.Errorf("workbook has %d rows, want at least %d", len(rows), 1+9*10)
	}
}

func TestProfileCommands(t *testing.T) {
	cfg := writeTestConfig(t, "")
	out, err := run(t, "--config", cfg, "-o", "json", "profile", "add",
		"--name", "Ravi", "--place", "Varanasi", "--time", "1990-05-17 10:10", "--tz", "Asia/Kolkata",
		"--lat", "25.3", "--lon", "83.0", "--notes", "eldest son")
	if err != nil {
		t.Fatalf("profile add: %v\n%s", err, out)
	}
	var p models.Profile
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("decode profile: %v\n%s", err, out)
	}
	if p.ID == "" || p.Name != "Ravi" {
		t.Fatalf("unexpected profile %+v", p)
	}

	out, err = run(t, "--config", cfg, "-o", "json", "profile", "list")
	if err != nil {
		t.Fatal(err)
	}
	var list []models.Profile
	if err := json.Unmarshal([]byte(out), &list); err != nil || len(list) != 1 {
		t.Fatalf("list = %s (err %v)", out, err)
	}

	out, err = run(t, "--config", cfg, "profile", "search", "varanasi")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, p.ID) {
		t.Errorf("search output missing %s:\n%s", p.ID, out)
	}

	out, err = run(t, "--config", cfg, "profile", "search", "varnasi")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, p.ID) {
		t.Errorf("misspelt search should fall back to fuzzy:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "chart", "--profile", p.ID, "--factors", "9")
	if err != nil {
		t.Fatalf("chart --profile: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Navamsa") {
		t.Errorf("chart output missing Navamsa:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "profile", "reindex")
	if err != nil || !strings.Contains(out, "Reindexed 1 profile(s)") {
		t.Errorf("reindex = %q (err %v)", out, err)
	}

	if _, err := run(t, "--config", cfg, "profile", "rm", p.ID); err != nil {
		t.Fatal(err)
	}
	_, err = run(t, "--config", cfg, "profile", "show", p.ID)
	if errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("show after rm: %v, want not found", err)
	}
}

func TestProfileAdd_RequiresName(t *testing.T) {
	cfg := writeTestConfig(t, "")
	_, err := run(t, "--config", cfg, "profile", "add", "--time", "1990-05-17T04:40:00Z")
	if err == nil || !strings.Contains(err.Error(), "name") {
		t.Errorf("expected a missing name error, got %v", err)
	}
}

func TestReloadChartDefaults(t *testing.T) {
	srv, err := server.NewServer(chart.NewCalculator(ephemeris.NewAnalytic()), nil, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	handler := srv.Handler()
	reload := reloadChartDefaults(srv, zap.NewNop())

	good := writeTestConfig(t, "chart:\n  house_system: porphyry\n")
	reload(good)
	if got := chartHouseSystem(t, handler); got != house.Porphyry {
		t.Errorf("after reload house system = %v, want porphyry", got)
	}

	bad := writeTestConfig(t, "chart:\n  house_system: koch\n")
	reload(bad)
	if got := chartHouseSystem(t, handler); got != house.Porphyry {
		t.Errorf("a broken config must keep the previous defaults, got %v", got)
	}
}

func chartHouseSystem(t *testing.T, h http.Handler) house.System {
	t.Helper()
	body := `{"birth_time":"2000-01-01T00:00:00Z","latitude":10,"longitude":10,"divisional_factors":[1]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/charts", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("chart status %d: %s", w.Code, w.Body.String())
	}
	var c chart.Chart
	if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
		t.Fatal(err)
	}
	return c.Birth.HouseSystem
}
