package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tobyn/inkwell/internal/api"
	"github.com/tobyn/inkwell/internal/api/middleware"
	"github.com/tobyn/inkwell/internal/config"
	"github.com/tobyn/inkwell/internal/estimate"
	"github.com/tobyn/inkwell/internal/logger"
	"github.com/tobyn/inkwell/internal/progress"
	"github.com/tobyn/inkwell/internal/service"
	"github.com/tobyn/inkwell/internal/storage"
	"github.com/tobyn/inkwell/internal/store"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger.SetDefaultLogger(logger.NewDefault())
	defer logger.Sync()

	ctx := context.Background()

	// Initialize session store (memory, sqlite or postgres)
	sessions, err := store.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize session store: %v", err)
	}
	if err := sessions.Connect(ctx); err != nil {
		logger.Fatal("Failed to connect session store: %v", err)
	}

	// Initialize object storage for finished manuscripts. Optional: when no
	// credentials are configured the service runs without archiving.
	var objects storage.ObjectStorage
	if cfg.Storage.AccessKey != "" {
		s3, err := storage.New(&storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			logger.Fatal("Failed to initialize object storage: %v", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			logger.Fatal("Failed to ensure storage bucket: %v", err)
		}
		objects = s3
	} else {
		logger.Warn("Object storage disabled: no access key configured")
	}

	// Active linear parameters, seeded from configuration
	params := estimate.NewParamsStore(methodParams(cfg.Estimate.Methods), cfg.Estimate.MinObservations)

	// Progress tracker with the token-based cost model
	tracker := progress.NewTracker(sessions, progress.TokenPricing{
		PricePer1K:    cfg.Pricing.PricePer1KTokens,
		TokensPerPage: cfg.Pricing.TokensPerPage,
	}, cfg.Generation.WordsPerPage)

	// LLM client for all generation stages
	llm := service.NewLLMService(&service.LLMConfig{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.Timeout,
	})

	books := service.NewBookService(sessions, llm, tracker, params, objects, &service.BookConfig{
		QuestionCount: cfg.Generation.QuestionCount,
		DefaultLength: cfg.Generation.DefaultLength,
		PausePoll:     cfg.Generation.PausePoll,
	})

	// Writing jobs cut short by the last shutdown pick up where they left off
	if relaunched, err := books.ResumeInterrupted(ctx); err != nil {
		logger.Error("Failed to scan for interrupted writing jobs: %v", err)
	} else if relaunched > 0 {
		logger.Info("Relaunched %d interrupted writing jobs", relaunched)
	}

	stats := service.NewStatsService(sessions, cfg.Generation.StatsCacheTTL, cfg.Estimate.MinChapters)
	calibration := service.NewCalibrationService(sessions, params)

	// Reload re-reads the config file and swaps in its parameters without
	// touching the rest of the running service.
	reload := func() error {
		fresh, err := config.Load(configPath)
		if err != nil {
			return err
		}
		params.Reload(methodParams(fresh.Estimate.Methods))
		return nil
	}

	router := api.SetupRouter(api.Services{
		Books:       books,
		Stats:       stats,
		Calibration: calibration,
		Sessions:    sessions,
		ReloadFunc:  reload,
	}, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting API server on port %d (mode=%s)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout. In-flight writing jobs persist their
	// state on every step, so an interrupted book resumes where it left off.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// methodParams converts the configuration map into typed estimator keys.
func methodParams(configured map[string]config.MethodParams) map[estimate.Method]estimate.Params {
	out := make(map[estimate.Method]estimate.Params, len(configured))
	for name, p := range configured {
		out[estimate.Method(name)] = estimate.Params{A: p.A, B: p.B}
	}
	return out
}
