package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// GraphHandler handles graph export and reset requests
type GraphHandler struct {
	memory MemoryService
	logger *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(memorySvc MemoryService, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{memory: memorySvc, logger: logger}
}

// Export handles GET /api/v1/graph
func (h *GraphHandler) Export(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")

	snapshot, err := h.memory.Export(r.Context(), sessionID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// Reset handles DELETE /api/v1/graph
func (h *GraphHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.memory.Reset(r.Context()); err != nil {
		respondError(w, err)
		return
	}

	h.logger.Info("graph reset requested", zap.String("remoteAddr", r.RemoteAddr))
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
