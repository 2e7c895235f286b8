package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/wolfman30/carefront-intake/cmd/mainconfig"
	"github.com/wolfman30/carefront-intake/internal/app/bootstrap"
	appconfig "github.com/wolfman30/carefront-intake/internal/config"
	"github.com/wolfman30/carefront-intake/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting carefront-intake API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"patient_store", cfg.PatientStore,
		"llm_provider", cfg.LLMProvider,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := loadAWS(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	app, err := bootstrap.BuildApp(ctx, cfg, bootstrap.AppOptions{AWS: awsCfg}, logger)
	if err != nil {
		logger.Error("failed to build intake service", "error", err)
		os.Exit(1)
	}
	go app.Events.Run(ctx)

	// Create HTTP server. Report extraction can take most of LLM_TIMEOUT twice
	// over when a fallback is configured.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg),
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	if err := app.Close(shutdownCtx); err != nil {
		logger.Warn("background work did not drain cleanly", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func loadAWS(ctx context.Context, cfg *appconfig.Config) (*aws.Config, error) {
	if !mainconfig.NeedsAWS(cfg) {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &awsCfg, nil
}

func writeTimeout(cfg *appconfig.Config) time.Duration {
	budget := cfg.LLMTimeout
	if cfg.LLMFallbackProvider != "" {
		budget *= 2
	}
	if wt := budget + 15*time.Second; wt > 30*time.Second {
		return wt
	}
	return 30 * time.Second
}
