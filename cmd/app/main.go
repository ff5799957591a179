// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"vpn-subscription/internal/app"
	"vpn-subscription/internal/config"
	pg "vpn-subscription/internal/infra/db/postgres"
	httpserver "vpn-subscription/internal/infra/http"
	"vpn-subscription/internal/infra/logging"
	"vpn-subscription/internal/infra/metrics"
	"vpn-subscription/internal/infra/sched"
)

var (
	version = "dev"
	commit  = "none"
)

const reconcileLimit = 50

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, insecure cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Metrics ----
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Dependencies ----
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer a.Close()

	if err := pg.Migrate(ctx, a.Pool); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	// ---- Background workers ----
	var wg sync.WaitGroup
	spawn := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Str("worker", name).Msg("worker stopped")
			}
		}()
	}
	spawn("db_pool_stats", func(ctx context.Context) error {
		pg.ReportPoolStats(ctx, a.Pool, 15*time.Second)
		return nil
	})
	spawn("sweep", sched.NewSweepWorker(cfg.Scheduler.SweepInterval, cfg.Scheduler.SweepBatch, a.Lifecycle, logger).Run)
	if cfg.Scheduler.ReconcileInterval > 0 {
		spawn("reconcile", sched.NewPaymentReconciler(a.Gate, cfg.Scheduler.ReconcileInterval, cfg.Scheduler.ReconcileAfter, reconcileLimit, logger).Run)
	}

	// ---- HTTP ----
	srv := httpserver.NewServer(cfg.HTTP, a.Router(), logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server failed")
		}
		stop()
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	wg.Wait()
	logger.Info().Msg("bye")
}
