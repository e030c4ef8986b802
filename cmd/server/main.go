// Package main runs the DineHub back-office API: role and permission
// management over HTTP, plus the audit and integrity-scan job workers.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"dinehub.io/backoffice/internal/app"
	"dinehub.io/backoffice/internal/config"
	"dinehub.io/backoffice/internal/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "backoffice: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := application.Start(ctx); err != nil {
		application.Shutdown(context.Background())
		return fmt.Errorf("start background jobs: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      application.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	logger.Info("back-office API listening",
		zap.String("addr", srv.Addr),
		zap.String("registry", registrySource(cfg)),
		zap.String("log_level", cfg.Log.Level),
	)

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-serveErr:
		runErr = fmt.Errorf("serve: %w", err)
	}

	// Drain in-flight role saves before the job queue and database go away.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("http shutdown: %w", err)
	}
	application.Shutdown(shutdownCtx)

	if runErr == nil {
		logger.Info("back-office API stopped")
	}
	return runErr
}

func registrySource(cfg *config.Config) string {
	if cfg.Registry.Path == "" {
		return "built-in"
	}
	return cfg.Registry.Path
}
