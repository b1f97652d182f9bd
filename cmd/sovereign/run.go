package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/sovereign/pkg/cli"
	"mercator-hq/sovereign/pkg/config"
	"mercator-hq/sovereign/pkg/engine"
	sectls "mercator-hq/sovereign/pkg/security/tls"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the governance engine",
	Long: `Start the governance engine with the specified configuration.

The engine serves health, readiness, version and metrics endpoints on the
configured ops address and runs the retention purge on its schedule.

With server.tls.enabled the endpoint is served over HTTPS and the
certificate is reloaded when it changes on disk. With server.auth_tokens
set every route except the liveness probe requires a bearer token.

Examples:
  # Start with defaults (development mode, in-memory storage)
  sovereign run

  # Start with a config file
  sovereign run --config /etc/sovereign/config.yaml

  # Override the ops listen address
  sovereign run --listen 0.0.0.0:9090

  # Validate config and wire components without serving
  sovereign run --dry-run`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override ops listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and wire components without serving")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	sys, err := bootstrap(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancel()
		if err := sys.Close(shutdownCtx); err != nil {
			sys.telemetry.Logger.Error("shutdown failed", "error", err)
		}
	}()

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	logger := sys.telemetry.Logger
	logger.Info("starting sovereign",
		"version", Version,
		"mode", cfg.Engine.Mode,
		"storage", cfg.Storage.Backend,
		"audit", cfg.Audit.Backend,
	)

	if cfg.Retention.Enabled {
		scheduler, err := engine.NewScheduler(sys.engine, cfg.Retention.PurgeSchedule, logger)
		if err != nil {
			return cli.NewConfigError("retention.purge_schedule", err.Error())
		}
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer scheduler.Stop()
		if next := scheduler.NextRun(); next != nil {
			logger.Debug("retention scheduler started", "next_purge", next)
		}
	}

	srv := &http.Server{
		Handler:           opsHandler(sys),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
	}
	if cfg.Server.TLS.Enabled {
		certs, err := sectls.NewServer(cfg.Server.TLS, true, logger)
		if err != nil {
			return cli.NewConfigError("server.tls", err.Error())
		}
		defer certs.Close()
		sys.telemetry.Health.Register("tls", certs.HealthCheck)
		srv.TLSConfig = certs.Config()
	}

	ln, err := net.Listen("tcp", cfg.Server.ListenAddress)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to listen on %s: %w", cfg.Server.ListenAddress, err))
	}

	errChan := make(chan error, 1)
	go func() {
		var err error
		if srv.TLSConfig != nil {
			err = srv.ServeTLS(ln, "", "")
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	logger.Info("ops server listening",
		"address", ln.Addr().String(),
		"tls", srv.TLSConfig != nil,
		"auth", len(cfg.Server.AuthTokens) > 0,
	)

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// opsHandler serves health, readiness, version and metrics behind the
// token guard.
func opsHandler(sys *system) http.Handler {
	mux := http.NewServeMux()
	tel := sys.cfg.Telemetry
	if tel.Health.Enabled {
		sys.telemetry.Health.Mount(mux, tel.Health, Version, GitCommit)
	}
	if tel.Metrics.Enabled && sys.telemetry.Metrics != nil {
		mux.Handle(tel.Metrics.Path, sys.telemetry.Metrics.Handler())
	}
	if sys.opsAuth != nil {
		return sys.opsAuth.Handle(mux)
	}
	return mux
}

// shutdownTimeout returns the configured teardown bound or the default.
func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return config.DefaultShutdownTimeout
}
