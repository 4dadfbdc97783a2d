package config

import (
	"time"

	"github.com/hyperjump/vedika/internal/varga"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.BatchLimit == 0 {
		cfg.Server.BatchLimit = 100
	}
	if cfg.Server.MaxDashaDepth == 0 {
		cfg.Server.MaxDashaDepth = max(3, cfg.Chart.Dasha.MaxDepth)
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/vedika/data/db/profiles.db"
	}
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = "/usr/local/var/vedika/data/indices/profiles"
	}
	if cfg.Chart.Ayanamsha == "" {
		cfg.Chart.Ayanamsha = "lahiri"
	}
	if cfg.Chart.HouseSystem == "" {
		cfg.Chart.HouseSystem = "whole_sign"
	}
	if cfg.Chart.DivisionalFactors == nil {
		cfg.Chart.DivisionalFactors = varga.Supported()
	}
	if cfg.Chart.Dasha.MaxDepth == 0 {
		cfg.Chart.Dasha.MaxDepth = 3
	}
	if cfg.Chart.Dasha.HorizonYears == 0 {
		cfg.Chart.Dasha.HorizonYears = 120
	}
	if cfg.Chart.Dasha.YearBasis == "" {
		cfg.Chart.Dasha.YearBasis = "julian"
	}
	if cfg.Ephemeris.Timeout == 0 {
		cfg.Ephemeris.Timeout = 5 * time.Second
	}
	if cfg.Ephemeris.CacheSize == 0 {
		cfg.Ephemeris.CacheSize = 1024
	}
	b := &cfg.Ephemeris.Breaker
	if b.MaxRequests == 0 {
		b.MaxRequests = 5
	}
	if b.Interval == 0 {
		b.Interval = 30 * time.Second
	}
	if b.Timeout == 0 {
		b.Timeout = 60 * time.Second
	}
	if b.FailureThreshold == 0 {
		b.FailureThreshold = 0.8
	}
	if b.MinRequests == 0 {
		b.MinRequests = 5
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}
