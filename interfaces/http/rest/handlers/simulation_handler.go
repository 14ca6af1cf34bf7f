package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"graphmem-backend/application/services"
	"graphmem-backend/domain/simulation"
	"graphmem-backend/pkg/utils"
)

// SimulationService is the surface the simulation handler needs
type SimulationService interface {
	Submit(ctx context.Context, sessionID string, participants []simulation.Participant, seedContext string, turnLimit int) (*simulation.Job, error)
	Status(ctx context.Context, jobID string) (*simulation.Job, error)
	Cancel(ctx context.Context, jobID string) (*simulation.Job, error)
	Commit(ctx context.Context, jobID string) (*services.CommitResult, error)
}

// SimulationHandler handles simulation job HTTP requests
type SimulationHandler struct {
	simulations SimulationService
	logger      *zap.Logger
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(simulations SimulationService, logger *zap.Logger) *SimulationHandler {
	return &SimulationHandler{simulations: simulations, logger: logger}
}

// ParticipantRequest is one simulated speaker in a run request
type ParticipantRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=64"`
	Persona string `json:"persona,omitempty" validate:"omitempty,max=512"`
}

// RunRequest represents the request body for starting a simulation
type RunRequest struct {
	SessionID    string               `json:"session_id" validate:"required,min=1,max=128"`
	Participants []ParticipantRequest `json:"participants" validate:"required,min=2,dive"`
	SeedContext  string               `json:"seed_context,omitempty" validate:"omitempty,max=2048"`
	TurnLimit    int                  `json:"turn_limit" validate:"required,min=1"`
}

// RunResponse acknowledges an accepted simulation job
type RunResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// Run handles POST /api/v1/simulation/run
func (h *SimulationHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		respondBadRequest(w, "Validation error: "+err.Error())
		return
	}

	participants := make([]simulation.Participant, 0, len(req.Participants))
	for _, p := range req.Participants {
		participants = append(participants, simulation.Participant{Name: p.Name, Persona: p.Persona})
	}

	job, err := h.simulations.Submit(r.Context(), req.SessionID, participants, req.SeedContext, req.TurnLimit)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, RunResponse{JobID: job.ID, Status: string(job.Status)})
}

// Status handles GET /api/v1/simulation/run/{jobID}
func (h *SimulationHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.simulations.Status(r.Context(), jobID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// Cancel handles DELETE /api/v1/simulation/run/{jobID}
func (h *SimulationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.simulations.Cancel(r.Context(), jobID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// CommitRequest represents the request body for committing a completed job
type CommitRequest struct {
	JobID string `json:"job_id" validate:"required,min=1"`
}

// CommitResponse carries the committed knowledge and resulting history
type CommitResponse struct {
	JobID       string      `json:"job_id"`
	KnowledgeID string      `json:"knowledge_id"`
	Summary     string      `json:"summary"`
	History     interface{} `json:"history"`
}

// Commit handles POST /api/v1/simulation/commit
func (h *SimulationHandler) Commit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		respondBadRequest(w, "Validation error: "+err.Error())
		return
	}

	result, err := h.simulations.Commit(r.Context(), req.JobID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CommitResponse{
		JobID:       result.Job.ID,
		KnowledgeID: result.Knowledge.ID,
		Summary:     result.Knowledge.Summary,
		History:     result.History,
	})
}
