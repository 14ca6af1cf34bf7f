package ports

import (
	"context"

	"graphmem-backend/domain/memory"
)

// GraphStore is the durable property-graph persistence port
type GraphStore interface {
	// RecordMessage upserts the session, creates the message node and
	// links it to the previous newest message in the session
	RecordMessage(ctx context.Context, msg *memory.ShortTermMessage) error

	// LiveMessages returns the non-expired messages of a session in
	// chronological order
	LiveMessages(ctx context.Context, sessionID string) ([]*memory.ShortTermMessage, error)

	// CreateKnowledge persists a knowledge node with provenance links to
	// its source messages
	CreateKnowledge(ctx context.Context, k *memory.Knowledge) error

	// Snapshot returns the current nodes and relationships. A non-empty
	// sessionID restricts the view to that session's subgraph
	Snapshot(ctx context.Context, sessionID string) (memory.GraphSnapshot, error)

	// Reset removes every node and relationship
	Reset(ctx context.Context) error

	// Probe verifies connectivity with a cheap round trip
	Probe(ctx context.Context) error

	// Close releases the underlying driver
	Close(ctx context.Context) error
}
