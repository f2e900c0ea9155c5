package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsvchal/strp/internal/services/leaderboard"
	"github.com/bsvchal/strp/pkg/config"
	"github.com/bsvchal/strp/pkg/logging"
	"github.com/bsvchal/strp/pkg/metrics"
	"github.com/bsvchal/strp/pkg/server"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	source, err := leaderboard.NewHTTPDataSource(cfg.Leaders, logger.Named("leaders"))
	if err != nil {
		logger.Fatal("Failed to create leaderboard data source", zap.Error(err))
	}

	srv := server.New(*cfg, logger, source, metrics.NewRegistry())

	// Start server in background
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
