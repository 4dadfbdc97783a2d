package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vedika/internal/config"
	"github.com/hyperjump/vedika/internal/server"
	"github.com/hyperjump/vedika/internal/watcher"
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.setup(true)
			if err != nil {
				return err
			}
			defer c.Close()
			logger := c.logger

			srv, err := server.NewServer(c.calc, c.profiles, c.cfg,
				server.WithLogger(logger),
				server.WithMetrics(c.metrics),
				server.WithEphemerisStatus(c.cached.Stats, c.guarded.State))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if c.configPath != "" {
				w, err := watcher.NewWatcher([]string{c.configPath}, reloadChartDefaults(srv, logger),
					watcher.WithLogger(logger))
				if err != nil {
					return err
				}
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Stop()
			}

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					logger.Error("Server failed", zap.Error(err))
				}
				return err
			case <-ctx.Done():
			}

			logger.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}
}

// reloadChartDefaults returns a watcher callback that re-reads the config file and
// swaps the server's chart defaults. A broken file keeps the previous defaults.
func reloadChartDefaults(srv *server.Server, logger *zap.Logger) func(string) {
	return func(path string) {
		cfg, err := config.Load(path)
		if err != nil {
			logger.Warn("config reload failed", zap.String("path", path), zap.Error(err))
			return
		}
		d, err := cfg.ChartDefaults()
		if err != nil {
			logger.Warn("config reload failed", zap.String("path", path), zap.Error(err))
			return
		}
		srv.SetChartDefaults(d)
	}
}
