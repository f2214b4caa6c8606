package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/internal/grpcserver"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/config"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/di"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/router"
)

func main() {
	cfg := config.Get()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application",
		"version", cfg.Server.Version,
		"env", cfg.Server.Env,
		"agent_mode", cfg.AgentMode(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize dependency injection container
	container, err := di.New(ctx, cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	r, err := router.New(ctx, container)
	if err != nil {
		log.LogError(err, "Failed to initialize router")
		_ = container.Close(context.Background())
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 2)

	// Start the server in a goroutine
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcSrv *grpcserver.Server
	if cfg.Server.GRPCPort != "" {
		grpcSrv = grpcserver.New(log)
		if container.Breaker != nil {
			grpcSrv.TrackBreaker(container.Breaker)
		}
		go func() {
			if err := grpcSrv.ListenAndServe(cfg.Server.GRPCPort); err != nil {
				errCh <- err
			}
		}()
	}

	// Block until we receive a signal or a listener fails
	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-errCh:
		log.LogError(err, "Server failed")
		exitCode = 1
	}

	// Create a deadline to wait for
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if grpcSrv != nil {
		grpcSrv.Shutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	r.Stop()
	if err := container.Close(shutdownCtx); err != nil {
		log.LogError(err, "Failed to release resources")
	}

	log.Info("Server exited gracefully")
	os.Exit(exitCode)
}
