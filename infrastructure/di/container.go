package di

import (
	"context"

	"go.uber.org/zap"

	"graphmem-backend/application/ports"
	"graphmem-backend/application/services"
	"graphmem-backend/infrastructure/config"
	"graphmem-backend/infrastructure/persistence/fallback"
	"graphmem-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config                *config.Config
	Logger                *zap.Logger
	Metrics               *observability.Collector
	GraphStore            ports.GraphStore
	FallbackCache         *fallback.Cache
	TextGenerator         ports.TextGenerator
	JobStore              ports.JobStore
	MemoryService         *services.GraphMemoryService
	SimulationCoordinator *services.SimulationCoordinator
}

// Shutdown releases the container's long-lived resources
func (c *Container) Shutdown(ctx context.Context) {
	c.SimulationCoordinator.Stop()
	c.MemoryService.Stop()

	if err := c.GraphStore.Close(ctx); err != nil {
		c.Logger.Error("failed to close graph store", zap.Error(err))
	}
}
