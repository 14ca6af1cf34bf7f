package handlers

import (
	"encoding/json"
	"net/http"

	pkgerrors "graphmem-backend/pkg/errors"
)

// ErrorResponse is the JSON body returned for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps an application error onto an HTTP status and body
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	errType := ""

	switch {
	case pkgerrors.IsValidation(err):
		status = http.StatusBadRequest
		errType = string(pkgerrors.ErrorTypeValidation)
	case pkgerrors.IsNotFound(err):
		status = http.StatusNotFound
		errType = string(pkgerrors.ErrorTypeNotFound)
	case pkgerrors.IsNoMessages(err):
		status = http.StatusNotFound
		errType = string(pkgerrors.ErrorTypeNoMessages)
	case pkgerrors.IsStorageUnavailable(err):
		status = http.StatusServiceUnavailable
		errType = string(pkgerrors.ErrorTypeStorageUnavailable)
	case pkgerrors.IsInvalidState(err):
		status = http.StatusConflict
		errType = string(pkgerrors.ErrorTypeInvalidState)
	case pkgerrors.IsAlreadyCommitted(err):
		status = http.StatusConflict
		errType = string(pkgerrors.ErrorTypeAlreadyCommitted)
	case pkgerrors.IsGenerator(err):
		status = http.StatusBadGateway
		errType = string(pkgerrors.ErrorTypeGenerator)
	}

	respondJSON(w, status, ErrorResponse{Error: err.Error(), Type: errType})
}

// respondBadRequest writes a plain 400 with the given message
func respondBadRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error: message,
		Type:  string(pkgerrors.ErrorTypeValidation),
	})
}
