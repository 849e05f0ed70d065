package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/commit-painter/internal/api"
	"github.com/Kamar-Folarin/commit-painter/internal/checkpoint"
	"github.com/Kamar-Folarin/commit-painter/internal/config"
	"github.com/Kamar-Folarin/commit-painter/internal/db"
	"github.com/Kamar-Folarin/commit-painter/internal/metrics"
	"github.com/Kamar-Folarin/commit-painter/internal/service"

	_ "github.com/Kamar-Folarin/commit-painter/docs"
)

// @title Commit Painter API
// @version 1.0
// @description API for painting contribution graphs with dated commits
// @contact.name API Support
// @contact.url http://github.com/Kamar-Folarin
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Load environment variables
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("Failed to load .env: %v", err)
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	// Load configuration with defaults
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}
	if cfg.GitHub.Token == "" {
		logger.Warn("GITHUB_TOKEN is not set; requests must carry an Authorization header")
	}

	// Initialize checkpoint storage with retry logic
	var store db.Store
	if err := retry(3, 5*time.Second, func() error {
		var openErr error
		store, openErr = db.Open(cfg)
		return openErr
	}); err != nil {
		logger.Fatalf("Failed to open checkpoint store after retries: %v", err)
	}
	defer store.Close()
	logger.WithField("backend", cfg.CheckpointBackend).Info("Checkpoint store ready")

	// Initialize services
	m := metrics.New()
	checkpoints := checkpoint.NewManager(store, logger)
	jobService := service.NewJobService(checkpoints, cfg, logger, service.WithMetrics(m))
	apiHandler := api.NewHandler(jobService, logger)

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(apiHandler, m.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	if err := jobService.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Job shutdown failed: %v", err)
	}
	logger.Info("Server exited properly")
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
