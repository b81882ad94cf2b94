package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tobyn/inkwell/internal/config"
	"github.com/tobyn/inkwell/internal/estimate"
	"github.com/tobyn/inkwell/internal/logger"
	"github.com/tobyn/inkwell/internal/service"
	"github.com/tobyn/inkwell/internal/store"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "inkwell-recalibrate",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	dryRun := flag.Bool("dry-run", false, "Fit and report without installing new parameters")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger.WithFields(logger.Fields{
		"driver":  cfg.Database.Driver,
		"dry_run": *dryRun,
	}).Info("Starting recalibration")

	sessions, err := store.NewStore(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize session store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sessions.Connect(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to connect session store")
	}

	configured := make(map[estimate.Method]estimate.Params, len(cfg.Estimate.Methods))
	for name, p := range cfg.Estimate.Methods {
		configured[estimate.Method(name)] = estimate.Params{A: p.A, B: p.B}
	}
	params := estimate.NewParamsStore(configured, cfg.Estimate.MinObservations)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	calibration := service.NewCalibrationService(sessions, params)
	result, err := calibration.Run(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to recalibrate")
	}

	for method, p := range result.Fitted {
		appLogger.WithFields(logger.Fields{
			"method":       string(method),
			"a":            p.A,
			"b":            p.B,
			"observations": result.Counts[method],
		}).Info("Fitted parameters")
	}
	for _, method := range result.Skipped {
		appLogger.WithFields(logger.Fields{
			"method": string(method),
			"count":  result.Counts[method],
		}).Info("Kept previous parameters")
	}

	if *dryRun {
		appLogger.Info("Dry run: fitted parameters were not written back")
		return
	}

	// Emit the active snapshot in config key form so operators can paste it
	// into estimate.methods and make the fit survive restarts.
	for method, p := range params.Snapshot() {
		appLogger.WithFields(logger.Fields{
			"key": "estimate.methods." + string(method),
			"a":   p.A,
			"b":   p.B,
		}).Info("Active parameters")
	}
}
