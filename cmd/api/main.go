package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"graphmem-backend/infrastructure/config"
	"graphmem-backend/infrastructure/di"
	"graphmem-backend/interfaces/http/rest"
)

func main() {
	// Initialize context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Start the background probe so a degraded store recovers on its own
	container.MemoryService.Start()

	// Optional runtime-tunable limits
	if cfg.LimitsFile != "" {
		watcher, err := config.NewLimitsWatcher(cfg.LimitsFile, config.Limits{
			MaxTurns:         cfg.Simulation.MaxTurns,
			FallbackCapacity: cfg.Memory.FallbackCapacity,
			MaxMessageBytes:  cfg.Memory.MaxMessageBytes,
		}, container.Logger)
		if err != nil {
			container.Logger.Warn("limits file unavailable, using static limits", zap.Error(err))
		} else {
			applyLimits := func(limits config.Limits) {
				container.SimulationCoordinator.SetMaxTurns(limits.MaxTurns)
				container.MemoryService.SetMaxMessageBytes(limits.MaxMessageBytes)
				container.FallbackCache.Resize(limits.FallbackCapacity)
			}
			watcher.OnChange(applyLimits)
			applyLimits(watcher.Current())
			watcher.Start()
			defer watcher.Stop()
		}
	}

	// Create router
	router := rest.NewRouter(
		container.MemoryService,
		container.SimulationCoordinator,
		container.SimulationCoordinator,
		container.Logger,
		container.Metrics,
		cfg.EnableCORS,
	)

	// Setup routes
	handler := router.Setup()

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("neo4j_uri", cfg.Neo4j.URI),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	// Clean up resources
	container.Shutdown(shutdownCtx)

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
