package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linkvault/linkvault/internal/api"
	"github.com/linkvault/linkvault/pkg/linkvault/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	svc, repo, err := cfg.BuildService(ctx, logger)
	if err != nil {
		logger.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	sweeper := cfg.BuildSweeper(svc, repo, logger)
	sweeper.Start()

	router := api.NewRouter(svc, api.ServerOptions{
		BaseURL:     cfg.Server.BaseURL,
		Environment: cfg.Server.Environment,
		JWTSecret:   cfg.Auth.JWTSecret,
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("linkvault server starting",
			"port", cfg.Server.Port,
			"environment", cfg.Server.Environment,
			"db_type", cfg.DB.Type,
			"s3_enabled", cfg.S3.Enabled)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		logger.Error("sweeper forced to shutdown", "error", err)
	}

	logger.Info("server exiting")
}
