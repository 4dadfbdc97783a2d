// Package config provides configuration loading and structs for the vedika CLI and server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/vedika/internal/ayanamsha"
	"github.com/hyperjump/vedika/internal/chart"
	"github.com/hyperjump/vedika/internal/dasha"
	"github.com/hyperjump/vedika/internal/ephemeris"
	"github.com/hyperjump/vedika/internal/errs"
	"github.com/hyperjump/vedika/internal/house"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Chart     ChartConfig     `yaml:"chart"`
	Ephemeris EphemerisConfig `yaml:"ephemeris"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// BatchLimit caps the number of charts in one batch request.
	BatchLimit int `yaml:"batch_limit"`
	// MaxDashaDepth caps the dasha depth of responses that list a whole timeline.
	MaxDashaDepth int `yaml:"max_dasha_depth"`
}

// StorageConfig holds paths for the profile database and its search index.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	IndexPath    string `yaml:"index_path"`
}

// ChartConfig holds the defaults applied to chart requests that do not override them.
type ChartConfig struct {
	Ayanamsha         string      `yaml:"ayanamsha"`
	HouseSystem       string      `yaml:"house_system"`
	DivisionalFactors []int       `yaml:"divisional_factors"`
	Dasha             DashaConfig `yaml:"dasha"`
}

// DashaConfig holds Vimshottari timeline settings.
type DashaConfig struct {
	MaxDepth     int           `yaml:"max_depth"`
	MinDuration  time.Duration `yaml:"min_duration"`
	HorizonYears float64       `yaml:"horizon_years"`
	YearBasis    string        `yaml:"year_basis"`
}

// EphemerisConfig holds adapter guarding and caching settings.
type EphemerisConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	CacheSize int           `yaml:"cache_size"`
	Breaker   BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the ephemeris adapter.
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// ChartDefaults are the validated chart settings.
type ChartDefaults struct {
	Ayanamsha   ayanamsha.Model
	HouseSystem house.System
	Settings    chart.Settings
}

// ChartDefaults resolves the configured names into enums and validates the dasha options.
// Unknown names fail with errs.KindConfiguration.
func (c *Config) ChartDefaults() (ChartDefaults, error) {
	model, err := ayanamsha.Parse(c.Chart.Ayanamsha)
	if err != nil {
		return ChartDefaults{}, err
	}
	system, err := house.Parse(c.Chart.HouseSystem)
	if err != nil {
		return ChartDefaults{}, err
	}
	basis, err := dasha.ParseYearBasis(c.Chart.Dasha.YearBasis)
	if err != nil {
		return ChartDefaults{}, err
	}
	opts := dasha.Options{
		MaxDepth:     c.Chart.Dasha.MaxDepth,
		MinDuration:  c.Chart.Dasha.MinDuration,
		HorizonYears: c.Chart.Dasha.HorizonYears,
		YearBasis:    basis,
	}
	if err := opts.Validate(); err != nil {
		return ChartDefaults{}, err
	}
	return ChartDefaults{
		Ayanamsha:   model,
		HouseSystem: system,
		Settings: chart.Settings{
			Factors: append([]int(nil), c.Chart.DivisionalFactors...),
			Dasha:   opts,
		},
	}, nil
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errs.Configuration("server port", fmt.Sprint(c.Server.Port))
	}
	if d := c.Server.MaxDashaDepth; d < 1 || d > int(dasha.Deha) || d < c.Chart.Dasha.MaxDepth {
		return errs.Configuration("server max dasha depth", fmt.Sprint(d))
	}
	if c.Ephemeris.Timeout < 0 {
		return errs.Configuration("ephemeris timeout", c.Ephemeris.Timeout.String())
	}
	if t := c.Ephemeris.Breaker.FailureThreshold; t <= 0 || t > 1 {
		return errs.Configuration("breaker failure threshold", fmt.Sprint(t))
	}
	_, err := c.ChartDefaults()
	return err
}

// BreakerSettings converts the breaker section for the ephemeris guard.
func (e *EphemerisConfig) BreakerSettings() ephemeris.BreakerConfig {
	return ephemeris.BreakerConfig{
		Name:             "ephemeris",
		MaxRequests:      e.Breaker.MaxRequests,
		Interval:         e.Breaker.Interval,
		Timeout:          e.Breaker.Timeout,
		FailureThreshold: e.Breaker.FailureThreshold,
		MinRequests:      e.Breaker.MinRequests,
	}
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed, or if a chart setting is unknown.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexPath = expandPath(cfg.Storage.IndexPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
