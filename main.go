package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atelier/internal/app"
	"atelier/internal/config"
	"atelier/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.Init(logger.Config{Mode: cfg.LogMode, Filename: cfg.LogFile})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	// --- Wiring: database, media store, queue, services, routes ---
	application, err := app.New(cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize application", zap.Error(err))
	}

	// --- Background workers: queue consumers and media sweep ---
	if err := application.Start(); err != nil {
		_ = application.Close()
		zap.L().Fatal("Failed to start background workers", zap.Error(err))
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		zap.L().Info("Starting server", zap.String("addr", cfg.AppPort))
		if err := application.Listen(); err != nil {
			zap.L().Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	zap.L().Info("Shutting down server...")

	if err := application.Shutdown(10 * time.Second); err != nil {
		zap.L().Error("Error during shutdown", zap.Error(err))
	}
	zap.L().Info("Server gracefully stopped")
}
