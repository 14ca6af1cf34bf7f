package simulation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "graphmem-backend/pkg/errors"
)

// JobStatus represents the lifecycle state of a simulation job
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// validTransitions encodes the queued -> running -> terminal lifecycle.
// Cancellation is additionally allowed straight from queued.
var validTransitions = map[JobStatus][]JobStatus{
	StatusQueued:  {StatusRunning, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether a job may move from one status to another
func CanTransition(from, to JobStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Participant is a named simulated speaker with optional persona guidance
type Participant struct {
	Name    string `json:"name"`
	Persona string `json:"persona,omitempty"`
}

// ProgressRecord is a single generated turn of a running simulation
type ProgressRecord struct {
	Turn      int       `json:"turn"`
	Speaker   string    `json:"speaker"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Job is a simulation run and its observable state
type Job struct {
	ID           string           `json:"id"`
	SessionID    string           `json:"session_id"`
	Participants []Participant    `json:"participants"`
	SeedContext  string           `json:"seed_context,omitempty"`
	TurnLimit    int              `json:"turn_limit"`
	Status       JobStatus        `json:"status"`
	Progress     []ProgressRecord `json:"progress"`
	Summary      string           `json:"summary,omitempty"`
	Error        string           `json:"error,omitempty"`
	Committed    bool             `json:"committed"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewJob validates the run parameters and creates a queued job
func NewJob(sessionID string, participants []Participant, seedContext string, turnLimit int, at time.Time) (*Job, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.NewValidation("session id cannot be empty")
	}
	if len(participants) < 2 {
		return nil, pkgerrors.NewValidation("simulation requires at least two participants")
	}
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			return nil, pkgerrors.NewValidation("participant name cannot be empty")
		}
		if _, dup := seen[name]; dup {
			return nil, pkgerrors.NewValidation("participant names must be distinct: " + p.Name)
		}
		seen[name] = struct{}{}
	}
	if turnLimit < 1 {
		return nil, pkgerrors.NewValidation("turn limit must be at least 1")
	}

	return &Job{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		Participants: participants,
		SeedContext:  seedContext,
		TurnLimit:    turnLimit,
		Status:       StatusQueued,
		Progress:     []ProgressRecord{},
		CreatedAt:    at,
		UpdatedAt:    at,
	}, nil
}

// Transition moves the job to the given status, enforcing the lifecycle
func (j *Job) Transition(to JobStatus, at time.Time) error {
	if !CanTransition(j.Status, to) {
		return pkgerrors.NewInvalidState("cannot move job from " + string(j.Status) + " to " + string(to))
	}
	j.Status = to
	j.UpdatedAt = at
	return nil
}

// AppendProgress records a completed turn
func (j *Job) AppendProgress(rec ProgressRecord, at time.Time) {
	j.Progress = append(j.Progress, rec)
	j.UpdatedAt = at
}

// Clone returns a deep copy safe to hand to readers while the job mutates
func (j *Job) Clone() *Job {
	cp := *j
	cp.Participants = append([]Participant(nil), j.Participants...)
	cp.Progress = append([]ProgressRecord(nil), j.Progress...)
	return &cp
}
