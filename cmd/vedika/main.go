// Package main is the vedika CLI entry point.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vedika/internal/chart"
	"github.com/hyperjump/vedika/internal/cli"
	"github.com/hyperjump/vedika/internal/config"
	"github.com/hyperjump/vedika/internal/ephemeris"
	"github.com/hyperjump/vedika/internal/keyword"
	"github.com/hyperjump/vedika/internal/metrics"
	"github.com/hyperjump/vedika/internal/profiles"
	"github.com/hyperjump/vedika/internal/storage"
	"github.com/hyperjump/vedika/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/vedika/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). When neither exists the
// built-in defaults are used and the returned path is empty.
// Returns the config and the path that was actually loaded (for watching, etc.).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// app holds the persistent flags shared by every command.
type app struct {
	configPath string
	output     string
	debug      bool
	out        io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:           "vedika",
		Short:         "Vedic astrology charts, Vimshottari dashas and birth profiles",
		Long:          "vedika computes sidereal birth charts with nakshatras, houses, divisional charts and Vimshottari dasha timelines, and keeps an archive of birth profiles.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: text or json")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.chartCmd(),
		a.dashaCmd(),
		a.serveCmd(),
		a.profileCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Show version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(a.out, "vedika version %s\n", version)
			},
		},
	)
	return root
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) format() (cli.OutputFormat, error) {
	return cli.ParseFormat(a.output)
}

// components holds initialized services.
type components struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	defaults   config.ChartDefaults
	guarded    *ephemeris.Guarded
	cached     *ephemeris.Cached
	metrics    *metrics.Collector
	calc       *chart.Calculator
	store      storage.Storage
	index      keyword.Index
	profiles   *profiles.Service
}

func (c *components) Close() {
	if c.store != nil {
		_ = c.store.Close()
	}
	if c.index != nil {
		_ = c.index.Close()
	}
	_ = c.logger.Sync()
}

// setup loads the config and builds the ephemeris chain and calculator. The profile
// archive is opened only when withProfiles is set, so chart commands never touch disk.
func (a *app) setup(withProfiles bool) (*components, error) {
	cfg, path, err := loadConfig(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || a.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", path), zap.Bool("debug", debugMode))

	defaults, err := cfg.ChartDefaults()
	if err != nil {
		return nil, err
	}

	c := &components{
		cfg:        cfg,
		configPath: path,
		logger:     logger,
		defaults:   defaults,
		metrics:    metrics.NewCollector("vedika"),
	}
	c.guarded = ephemeris.NewGuarded(ephemeris.NewAnalytic(), cfg.Ephemeris.Timeout,
		cfg.Ephemeris.BreakerSettings(), ephemeris.WithLogger(logger))
	c.cached = ephemeris.NewCached(c.guarded, cfg.Ephemeris.CacheSize)
	c.metrics.RegisterCache(c.cached.Stats)
	c.metrics.RegisterBreaker(c.guarded.State)
	c.calc = chart.NewCalculator(c.cached,
		chart.WithLogger(logger),
		chart.WithObserver(c.metrics))

	if !withProfiles {
		return c, nil
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.store = store
	idx, err := keyword.NewBleveIndex(cfg.Storage.IndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize profile index: %w", err)
	}
	c.index = idx
	c.profiles = profiles.NewService(store, idx, profiles.WithLogger(logger))
	return c, nil
}
