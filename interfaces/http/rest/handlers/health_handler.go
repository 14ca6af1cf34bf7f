package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"graphmem-backend/application/services"
	"graphmem-backend/domain/simulation"
)

// JobCounter exposes retained job counts for health reporting
type JobCounter interface {
	Counts(ctx context.Context) (map[simulation.JobStatus]int, error)
}

// HealthHandler reports service health
type HealthHandler struct {
	memory MemoryService
	jobs   JobCounter
	logger *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(memorySvc MemoryService, jobs JobCounter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{memory: memorySvc, jobs: jobs, logger: logger}
}

// HealthResponse is the health endpoint body
type HealthResponse struct {
	Status string                       `json:"status"`
	Memory services.HealthStatus        `json:"memory"`
	Jobs   map[simulation.JobStatus]int `json:"jobs"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	memStatus := h.memory.Health(r.Context())

	counts, err := h.jobs.Counts(r.Context())
	if err != nil {
		counts = map[simulation.JobStatus]int{}
	}

	status := "healthy"
	code := http.StatusOK
	if memStatus.Degraded || !memStatus.StoreReachable {
		status = "degraded"
	}

	respondJSON(w, code, HealthResponse{
		Status: status,
		Memory: memStatus,
		Jobs:   counts,
	})
}
