package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"graphmem-backend/application/services"
	"graphmem-backend/domain/memory"
	"graphmem-backend/pkg/utils"
)

// MemoryService is the surface the memory handler needs
type MemoryService interface {
	Chat(ctx context.Context, sessionID, content string) (string, []*memory.ShortTermMessage, error)
	LiveMessages(ctx context.Context, sessionID string) ([]*memory.ShortTermMessage, error)
	Consolidate(ctx context.Context, sessionID, note string) (*memory.Knowledge, error)
	Export(ctx context.Context, sessionID string) (memory.GraphSnapshot, error)
	Reset(ctx context.Context) error
	Health(ctx context.Context) services.HealthStatus
}

// MemoryHandler handles chat and memory HTTP requests
type MemoryHandler struct {
	memory MemoryService
	logger *zap.Logger
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(memorySvc MemoryService, logger *zap.Logger) *MemoryHandler {
	return &MemoryHandler{memory: memorySvc, logger: logger}
}

// ChatRequest represents the request body for a chat turn
type ChatRequest struct {
	SessionID string `json:"session_id" validate:"required,min=1,max=128"`
	Message   string `json:"message" validate:"required,min=1"`
}

// ChatResponse represents the reply and the updated short-term snapshot
type ChatResponse struct {
	Reply    string                     `json:"reply"`
	Snapshot []*memory.ShortTermMessage `json:"short_term_snapshot"`
}

// Chat handles POST /api/v1/chat
func (h *MemoryHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		respondBadRequest(w, "Validation error: "+err.Error())
		return
	}

	reply, snapshot, err := h.memory.Chat(r.Context(), req.SessionID, req.Message)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ChatResponse{Reply: reply, Snapshot: snapshot})
}

// MemoryResponse represents the live history of a session
type MemoryResponse struct {
	SessionID string                     `json:"session_id"`
	Messages  []*memory.ShortTermMessage `json:"messages"`
}

// GetMemory handles GET /api/v1/memory/{sessionID}
func (h *MemoryHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		respondBadRequest(w, "session id is required")
		return
	}

	messages, err := h.memory.LiveMessages(r.Context(), sessionID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, MemoryResponse{SessionID: sessionID, Messages: messages})
}

// ConsolidateRequest represents the request body for a consolidation
type ConsolidateRequest struct {
	SessionID string `json:"session_id" validate:"required,min=1,max=128"`
	Note      string `json:"note,omitempty" validate:"omitempty,max=1024"`
}

// ConsolidateResponse carries the new knowledge node and its summary
type ConsolidateResponse struct {
	KnowledgeID string   `json:"knowledge_id"`
	Summary     string   `json:"summary"`
	SourceIDs   []string `json:"source_ids"`
}

// Consolidate handles POST /api/v1/memory/consolidate
func (h *MemoryHandler) Consolidate(w http.ResponseWriter, r *http.Request) {
	var req ConsolidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		respondBadRequest(w, "Validation error: "+err.Error())
		return
	}

	knowledge, err := h.memory.Consolidate(r.Context(), req.SessionID, req.Note)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, ConsolidateResponse{
		KnowledgeID: knowledge.ID,
		Summary:     knowledge.Summary,
		SourceIDs:   knowledge.SourceIDs,
	})
}
