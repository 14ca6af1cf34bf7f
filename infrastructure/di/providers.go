package di

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"graphmem-backend/application/ports"
	"graphmem-backend/application/services"
	"graphmem-backend/infrastructure/config"
	"graphmem-backend/infrastructure/llm/ollama"
	"graphmem-backend/infrastructure/persistence/fallback"
	"graphmem-backend/infrastructure/persistence/jobs"
	neo4jstore "graphmem-backend/infrastructure/persistence/neo4j"
	"graphmem-backend/pkg/observability"
)

// ProvideLogger creates the application logger from configuration
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ProvideMetrics creates the prometheus collector
func ProvideMetrics(cfg *config.Config) *observability.Collector {
	return observability.NewCollector("graphmem")
}

// ProvideFallbackCache creates the bounded degraded-mode cache
func ProvideFallbackCache(cfg *config.Config) *fallback.Cache {
	return fallback.NewCache(cfg.Memory.FallbackCapacity)
}

// ProvideGraphStore connects the Neo4j-backed graph store
func ProvideGraphStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.GraphStore, error) {
	return neo4jstore.NewStore(ctx, cfg.Neo4j, logger)
}

// ProvideTextGenerator creates the Ollama client
func ProvideTextGenerator(cfg *config.Config, logger *zap.Logger) ports.TextGenerator {
	return ollama.NewClient(cfg.Ollama, logger)
}

// ProvideJobStore creates the in-memory simulation job store
func ProvideJobStore(cfg *config.Config) ports.JobStore {
	return jobs.NewInMemoryJobStore(cfg.Simulation.JobRetention)
}

// ProvideMemoryService wires the graph memory service
func ProvideMemoryService(
	store ports.GraphStore,
	cache *fallback.Cache,
	generator ports.TextGenerator,
	logger *zap.Logger,
	metrics *observability.Collector,
	cfg *config.Config,
) *services.GraphMemoryService {
	return services.NewGraphMemoryService(store, cache, generator, logger, metrics, services.MemoryServiceConfig{
		MessageTTL:      cfg.Memory.MessageTTL,
		ProbeInterval:   cfg.Memory.ProbeInterval,
		MaxMessageBytes: cfg.Memory.MaxMessageBytes,
	})
}

// ProvideSimulationCoordinator wires the simulation coordinator
func ProvideSimulationCoordinator(
	jobStore ports.JobStore,
	generator ports.TextGenerator,
	memorySvc *services.GraphMemoryService,
	logger *zap.Logger,
	metrics *observability.Collector,
	cfg *config.Config,
) *services.SimulationCoordinator {
	return services.NewSimulationCoordinator(jobStore, generator, memorySvc, logger, metrics, services.SimulationConfig{
		MaxTurns:   cfg.Simulation.MaxTurns,
		MessageTTL: cfg.Memory.MessageTTL,
	})
}
