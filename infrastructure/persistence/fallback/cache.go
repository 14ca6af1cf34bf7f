package fallback

import (
	"sort"
	"sync"
	"time"

	"graphmem-backend/domain/memory"
	pkgerrors "graphmem-backend/pkg/errors"
)

// Cache is a bounded in-memory mirror of short-term messages, written while
// the graph store is unreachable and replayed into it on recovery.
type Cache struct {
	mu       sync.RWMutex
	records  []*memory.ShortTermMessage
	capacity int
}

// NewCache creates a cache holding at most capacity records
func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		records:  make([]*memory.ShortTermMessage, 0, capacity),
		capacity: capacity,
	}
}

// Record stores a message, evicting the oldest record when full
func (c *Cache) Record(msg *memory.ShortTermMessage) error {
	if msg == nil || msg.ID == "" {
		return pkgerrors.NewValidation("message must have an id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(time.Now())

	if len(c.records) >= c.capacity {
		c.records = c.records[1:]
	}
	c.records = append(c.records, msg)
	return nil
}

// Resize adjusts the capacity at runtime, evicting the oldest records when
// the cache already holds more than the new bound
func (c *Cache) Resize(capacity int) {
	if capacity < 1 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.capacity = capacity
	if over := len(c.records) - capacity; over > 0 {
		c.records = append([]*memory.ShortTermMessage{}, c.records[over:]...)
	}
}

// Live returns the non-expired messages for a session in chronological order
func (c *Cache) Live(sessionID string, now time.Time) []*memory.ShortTermMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*memory.ShortTermMessage, 0)
	for _, m := range c.records {
		if m.SessionID == sessionID && !m.Expired(now) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// All returns every retained record in timestamp order
func (c *Cache) All() []*memory.ShortTermMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*memory.ShortTermMessage, len(c.records))
	copy(out, c.records)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Remove drops a record by message ID, typically after it has been
// replayed into the durable store
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, m := range c.records {
		if m.ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return
		}
	}
}

// Clear drops every record
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = c.records[:0]
}

// Size returns the number of retained records
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Active reports whether the cache currently holds unreplayed records
func (c *Cache) Active() bool {
	return c.Size() > 0
}

// Prune drops expired records
func (c *Cache) Prune(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(now)
}

func (c *Cache) pruneLocked(now time.Time) {
	kept := c.records[:0]
	for _, m := range c.records {
		if !m.Expired(now) {
			kept = append(kept, m)
		}
	}
	c.records = kept
}

// Snapshot renders the cached records as a graph view so exports stay
// meaningful while the store is down. Nodes carry an origin marker.
func (c *Cache) Snapshot(sessionID string, now time.Time) memory.GraphSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bySession := make(map[string][]*memory.ShortTermMessage)
	for _, m := range c.records {
		if m.Expired(now) {
			continue
		}
		if sessionID != "" && m.SessionID != sessionID {
			continue
		}
		bySession[m.SessionID] = append(bySession[m.SessionID], m)
	}

	snap := memory.GraphSnapshot{Nodes: []memory.GraphNode{}, Edges: []memory.GraphEdge{}}
	sessions := make([]string, 0, len(bySession))
	for id := range bySession {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)

	for _, sid := range sessions {
		msgs := bySession[sid]
		sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })

		snap.Nodes = append(snap.Nodes, memory.GraphNode{
			ID:     sid,
			Labels: []string{"ChatSession"},
			Properties: map[string]interface{}{
				"session_id": sid,
				"origin":     "fallback",
			},
		})

		for i, m := range msgs {
			snap.Nodes = append(snap.Nodes, memory.GraphNode{
				ID:     m.ID,
				Labels: []string{"ShortTermMessage"},
				Properties: map[string]interface{}{
					"session_id": m.SessionID,
					"role":       string(m.Role),
					"content":    m.Content,
					"timestamp":  m.Timestamp.Format(time.RFC3339Nano),
					"expires_at": m.ExpiresAt.Format(time.RFC3339Nano),
					"origin":     "fallback",
				},
			})
			snap.Edges = append(snap.Edges, memory.GraphEdge{Source: sid, Target: m.ID, Type: "CONTAINS"})
			if i > 0 {
				snap.Edges = append(snap.Edges, memory.GraphEdge{Source: msgs[i-1].ID, Target: m.ID, Type: "NEXT"})
			}
		}
	}

	return snap
}
