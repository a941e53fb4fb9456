package main

import (
	"os"
	"os/signal"
	"syscall"

	"optix/internal/adapters/config"
	"optix/internal/adapters/errors/noop"
	"optix/internal/adapters/errors/sentry"
	"optix/internal/bootstrap"
	"optix/internal/metrics"
	"optix/pkg/errors"
	"optix/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	log.Infof("Starting %s %s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Env)

	tracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(tracker)

	metrics.Init()

	container := bootstrap.NewContainer(cfg, tracker)
	if err := container.Init(); err != nil {
		log.Errorw("Initialization failed", "error", err)
		container.Shutdown()
		os.Exit(1)
	}

	if err := container.Start(); err != nil {
		log.Errorw("Startup failed", "error", err)
		container.Shutdown()
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infow("Shutdown signal received", "signal", sig.String())
	case <-container.Context.Done():
		log.Warn("Fatal component error, shutting down")
	}

	container.Shutdown()
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}
