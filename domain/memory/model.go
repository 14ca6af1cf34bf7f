package memory

import (
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "graphmem-backend/pkg/errors"
)

// Role identifies the author of a short-term message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ValidRole reports whether r is one of the accepted message roles
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Session is a named conversational scope that owns short-term messages
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ShortTermMessage is a single utterance with a bounded lifetime
type ShortTermMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewShortTermMessage creates a message with a fresh ID and the given lifetime
func NewShortTermMessage(sessionID string, role Role, content string, at time.Time, ttl time.Duration) (*ShortTermMessage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.NewValidation("session id cannot be empty")
	}
	if !ValidRole(role) {
		return nil, pkgerrors.NewValidation("role must be user, assistant or system")
	}
	if strings.TrimSpace(content) == "" {
		return nil, pkgerrors.NewValidation("content cannot be empty")
	}

	return &ShortTermMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Timestamp: at,
		ExpiresAt: at.Add(ttl),
	}, nil
}

// Expired reports whether the message's lifetime has passed at the given instant
func (m *ShortTermMessage) Expired(now time.Time) bool {
	return !m.ExpiresAt.After(now)
}

// Knowledge is a durable consolidation artifact derived from short-term messages
type Knowledge struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Summary   string    `json:"summary"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	// SourceIDs are the message IDs that contributed to this knowledge
	SourceIDs []string `json:"source_ids"`
}

// NewKnowledge creates a knowledge node over the given source messages
func NewKnowledge(sessionID, summary, note string, sources []*ShortTermMessage, at time.Time) (*Knowledge, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, pkgerrors.NewValidation("summary cannot be empty")
	}
	if len(sources) == 0 {
		return nil, pkgerrors.NewNoMessages("knowledge requires at least one source message")
	}

	ids := make([]string, 0, len(sources))
	for _, m := range sources {
		ids = append(ids, m.ID)
	}

	return &Knowledge{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Summary:   summary,
		Note:      note,
		CreatedAt: at,
		SourceIDs: ids,
	}, nil
}

// GraphNode is a node in an exported snapshot
type GraphNode struct {
	ID         string                 `json:"id"`
	Labels     []string               `json:"labels"`
	Properties map[string]interface{} `json:"properties"`
}

// GraphEdge is a directed relationship in an exported snapshot
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// GraphSnapshot is a point-in-time view of nodes and relationships
type GraphSnapshot struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Merge folds other into the snapshot, skipping nodes and edges already present.
// Existing entries win so a durable record shadows its fallback mirror.
func (s *GraphSnapshot) Merge(other GraphSnapshot) {
	seen := make(map[string]struct{}, len(s.Nodes))
	for _, n := range s.Nodes {
		seen[n.ID] = struct{}{}
	}
	for _, n := range other.Nodes {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		s.Nodes = append(s.Nodes, n)
	}

	seenEdges := make(map[string]struct{}, len(s.Edges))
	for _, e := range s.Edges {
		seenEdges[e.Source+"|"+e.Type+"|"+e.Target] = struct{}{}
	}
	for _, e := range other.Edges {
		key := e.Source + "|" + e.Type + "|" + e.Target
		if _, ok := seenEdges[key]; ok {
			continue
		}
		seenEdges[key] = struct{}{}
		s.Edges = append(s.Edges, e)
	}
}

// Delta is a staged set of writes produced by a simulation, applied atomically on commit
type Delta struct {
	SessionID string              `json:"session_id"`
	Messages  []*ShortTermMessage `json:"messages"`
	Summary   string              `json:"summary"`
}
