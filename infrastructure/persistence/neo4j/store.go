package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"graphmem-backend/domain/memory"
	"graphmem-backend/infrastructure/config"
	pkgerrors "graphmem-backend/pkg/errors"
)

// Store implements ports.GraphStore against a Neo4j instance.
// Timestamps are stored twice: an RFC3339 string for readability and a
// unix-nano integer used for ordering and expiry filters.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewStore connects a driver and verifies connectivity
func NewStore(ctx context.Context, cfg config.Neo4jConfig, logger *zap.Logger) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	store := &Store{driver: driver, database: cfg.Database, logger: logger}
	if err := store.Probe(ctx); err != nil {
		logger.Warn("graph store unreachable at startup", zap.Error(err))
	}

	return store, nil
}

// RecordMessage upserts the session, creates the message node and links it
// behind the session's previous newest live message
func (s *Store) RecordMessage(ctx context.Context, msg *memory.ShortTermMessage) error {
	session := s.driver.NewSession(ctx, sessionConfig(neo4j.AccessModeWrite, s.database))
	defer session.Close(ctx)

	query := `
		MERGE (s:ChatSession {session_id: $sessionID})
		ON CREATE SET s.created_at = $timestamp
		CREATE (m:ShortTermMessage {
			id: $id,
			session_id: $sessionID,
			role: $role,
			content: $content,
			timestamp: $timestamp,
			ts: $ts,
			expires_at: $expiresAt,
			expires_ts: $expiresTs
		})
		CREATE (s)-[:CONTAINS]->(m)
		WITH s, m
		OPTIONAL MATCH (s)-[:CONTAINS]->(prev:ShortTermMessage)
		WHERE prev.id <> m.id AND prev.ts < m.ts
		WITH m, prev ORDER BY prev.ts DESC LIMIT 1
		FOREACH (p IN CASE WHEN prev IS NULL THEN [] ELSE [prev] END |
			CREATE (p)-[:NEXT]->(m))
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"id":        msg.ID,
		"sessionID": msg.SessionID,
		"role":      string(msg.Role),
		"content":   msg.Content,
		"timestamp": msg.Timestamp.UTC().Format(time.RFC3339Nano),
		"ts":        msg.Timestamp.UnixNano(),
		"expiresAt": msg.ExpiresAt.UTC().Format(time.RFC3339Nano),
		"expiresTs": msg.ExpiresAt.UnixNano(),
	})
	if err != nil {
		return pkgerrors.NewStorageUnavailable("failed to record message", err)
	}

	return nil
}

// LiveMessages returns the non-expired messages of a session in
// chronological order
func (s *Store) LiveMessages(ctx context.Context, sessionID string) ([]*memory.ShortTermMessage, error) {
	session := s.driver.NewSession(ctx, sessionConfig(neo4j.AccessModeRead, s.database))
	defer session.Close(ctx)

	query := `
		MATCH (s:ChatSession {session_id: $sessionID})-[:CONTAINS]->(m:ShortTermMessage)
		WHERE m.expires_ts > $now
		RETURN m.id as id, m.role as role, m.content as content,
		       m.timestamp as timestamp, m.expires_at as expires_at
		ORDER BY m.ts ASC
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"sessionID": sessionID,
		"now":       time.Now().UnixNano(),
	})
	if err != nil {
		return nil, pkgerrors.NewStorageUnavailable("failed to list messages", err)
	}

	messages := []*memory.ShortTermMessage{}
	for result.Next(ctx) {
		record := result.Record()
		msg := &memory.ShortTermMessage{
			ID:        getStringFromRecord(record, "id"),
			SessionID: sessionID,
			Role:      memory.Role(getStringFromRecord(record, "role")),
			Content:   getStringFromRecord(record, "content"),
			Timestamp: getTimeFromRecord(record, "timestamp"),
			ExpiresAt: getTimeFromRecord(record, "expires_at"),
		}
		messages = append(messages, msg)
	}
	if err := result.Err(); err != nil {
		return nil, pkgerrors.NewStorageUnavailable("failed to read messages", err)
	}

	return messages, nil
}

// CreateKnowledge persists a knowledge node, links it to its session and
// records provenance edges from each contributing message
func (s *Store) CreateKnowledge(ctx context.Context, k *memory.Knowledge) error {
	session := s.driver.NewSession(ctx, sessionConfig(neo4j.AccessModeWrite, s.database))
	defer session.Close(ctx)

	query := `
		MERGE (s:ChatSession {session_id: $sessionID})
		CREATE (k:Knowledge {
			id: $id,
			session_id: $sessionID,
			summary: $summary,
			note: $note,
			created_at: $createdAt
		})
		CREATE (s)-[:YIELDED]->(k)
		WITH k
		UNWIND $sourceIDs as sourceID
		MATCH (m:ShortTermMessage {id: sourceID})
		CREATE (m)-[:CONTRIBUTED_TO]->(k)
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"id":        k.ID,
		"sessionID": k.SessionID,
		"summary":   k.Summary,
		"note":      k.Note,
		"createdAt": k.CreatedAt.UTC().Format(time.RFC3339Nano),
		"sourceIDs": k.SourceIDs,
	})
	if err != nil {
		return pkgerrors.NewStorageUnavailable("failed to create knowledge", err)
	}

	return nil
}

// Snapshot returns the current nodes and relationships, excluding expired
// messages. A non-empty sessionID restricts the view to that session.
func (s *Store) Snapshot(ctx context.Context, sessionID string) (memory.GraphSnapshot, error) {
	session := s.driver.NewSession(ctx, sessionConfig(neo4j.AccessModeRead, s.database))
	defer session.Close(ctx)

	query := `
		MATCH (n)
		WHERE (n:ChatSession OR n:ShortTermMessage OR n:Knowledge)
		  AND (n.expires_ts IS NULL OR n.expires_ts > $now)
		  AND ($sessionID = '' OR n.session_id = $sessionID)
		OPTIONAL MATCH (n)-[r]->(m)
		WHERE m.expires_ts IS NULL OR m.expires_ts > $now
		RETURN coalesce(n.id, n.session_id) as id,
		       labels(n) as labels,
		       properties(n) as props,
		       type(r) as rel_type,
		       coalesce(m.id, m.session_id) as target
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"sessionID": sessionID,
		"now":       time.Now().UnixNano(),
	})
	if err != nil {
		return memory.GraphSnapshot{}, pkgerrors.NewStorageUnavailable("failed to export graph", err)
	}

	snap := memory.GraphSnapshot{Nodes: []memory.GraphNode{}, Edges: []memory.GraphEdge{}}
	seenNodes := make(map[string]struct{})

	for result.Next(ctx) {
		record := result.Record()
		id := getStringFromRecord(record, "id")
		if id == "" {
			continue
		}

		if _, ok := seenNodes[id]; !ok {
			seenNodes[id] = struct{}{}
			snap.Nodes = append(snap.Nodes, memory.GraphNode{
				ID:         id,
				Labels:     getStringsFromRecord(record, "labels"),
				Properties: getMapFromRecord(record, "props"),
			})
		}

		relType := getStringFromRecord(record, "rel_type")
		target := getStringFromRecord(record, "target")
		if relType != "" && target != "" {
			snap.Edges = append(snap.Edges, memory.GraphEdge{Source: id, Target: target, Type: relType})
		}
	}
	if err := result.Err(); err != nil {
		return memory.GraphSnapshot{}, pkgerrors.NewStorageUnavailable("failed to read graph", err)
	}

	return snap, nil
}

// Reset removes every node and relationship
func (s *Store) Reset(ctx context.Context) error {
	session := s.driver.NewSession(ctx, sessionConfig(neo4j.AccessModeWrite, s.database))
	defer session.Close(ctx)

	_, err := session.Run(ctx, `MATCH (n) DETACH DELETE n`, nil)
	if err != nil {
		return pkgerrors.NewStorageUnavailable("failed to reset graph", err)
	}

	s.logger.Info("graph store reset")
	return nil
}

// Probe verifies connectivity with a cheap round trip
func (s *Store) Probe(ctx context.Context) error {
	session := s.driver.NewSession(ctx, sessionConfig(neo4j.AccessModeRead, s.database))
	defer session.Close(ctx)

	result, err := session.Run(ctx, `RETURN 1`, nil)
	if err != nil {
		return pkgerrors.NewStorageUnavailable("graph store unreachable", err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return pkgerrors.NewStorageUnavailable("graph store unreachable", err)
	}
	return nil
}

// Close releases the underlying driver
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// sessionConfig targets the configured database so sessions never silently
// land on the server default
func sessionConfig(mode neo4j.AccessMode, database string) neo4j.SessionConfig {
	return neo4j.SessionConfig{AccessMode: mode, DatabaseName: database}
}

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getStringsFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return nil
	}
	items, ok := val.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

func getMapFromRecord(record *neo4j.Record, key string) map[string]interface{} {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return map[string]interface{}{}
	}
	if m, ok := val.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func getTimeFromRecord(record *neo4j.Record, key string) time.Time {
	raw := getStringFromRecord(record, key)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
