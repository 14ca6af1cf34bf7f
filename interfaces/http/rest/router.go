package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"graphmem-backend/interfaces/http/rest/handlers"
	"graphmem-backend/interfaces/http/rest/middleware"
	"graphmem-backend/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	memory      handlers.MemoryService
	simulations handlers.SimulationService
	jobs        handlers.JobCounter
	logger      *zap.Logger
	metrics     *observability.Collector
	enableCORS  bool
}

// NewRouter creates a new router instance
func NewRouter(
	memory handlers.MemoryService,
	simulations handlers.SimulationService,
	jobs handlers.JobCounter,
	logger *zap.Logger,
	metrics *observability.Collector,
	enableCORS bool,
) *Router {
	return &Router{
		memory:      memory,
		simulations: simulations,
		jobs:        jobs,
		logger:      logger,
		metrics:     metrics,
		enableCORS:  enableCORS,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(middleware.Metrics(rt.metrics))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health and metrics
	healthHandler := handlers.NewHealthHandler(rt.memory, rt.jobs, rt.logger)
	router.Get("/health", healthHandler.Health)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.metrics.GetRegistry(), promhttp.HandlerOpts{}))

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		memoryHandler := handlers.NewMemoryHandler(rt.memory, rt.logger)
		r.Post("/chat", memoryHandler.Chat)
		r.Route("/memory", func(r chi.Router) {
			r.Get("/{sessionID}", memoryHandler.GetMemory)
			r.Post("/consolidate", memoryHandler.Consolidate)
		})

		graphHandler := handlers.NewGraphHandler(rt.memory, rt.logger)
		r.Route("/graph", func(r chi.Router) {
			r.Get("/", graphHandler.Export)
			r.Delete("/", graphHandler.Reset)
		})

		simulationHandler := handlers.NewSimulationHandler(rt.simulations, rt.logger)
		r.Route("/simulation", func(r chi.Router) {
			r.Post("/run", simulationHandler.Run)
			r.Get("/run/{jobID}", simulationHandler.Status)
			r.Delete("/run/{jobID}", simulationHandler.Cancel)
			r.Post("/commit", simulationHandler.Commit)
		})
	})

	return router
}
