package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"graphmem-backend/domain/memory"
)

// mockGraphStore is an in-memory GraphStore whose failures can be scripted
type mockGraphStore struct {
	mu        sync.Mutex
	messages  []*memory.ShortTermMessage
	knowledge []*memory.Knowledge
	resets    int

	// failing makes every call return an error while set
	failing bool
	// failAfterWrites fails writes once this many have succeeded (-1 disables)
	failAfterWrites int
	writes          int
}

func newMockGraphStore() *mockGraphStore {
	return &mockGraphStore{failAfterWrites: -1}
}

func (m *mockGraphStore) setFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

var errStoreDown = errors.New("connection refused")

func (m *mockGraphStore) RecordMessage(ctx context.Context, msg *memory.ShortTermMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errStoreDown
	}
	if m.failAfterWrites >= 0 && m.writes >= m.failAfterWrites {
		return errStoreDown
	}
	m.writes++
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *mockGraphStore) LiveMessages(ctx context.Context, sessionID string) ([]*memory.ShortTermMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errStoreDown
	}
	out := []*memory.ShortTermMessage{}
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *mockGraphStore) CreateKnowledge(ctx context.Context, k *memory.Knowledge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errStoreDown
	}
	cp := *k
	m.knowledge = append(m.knowledge, &cp)
	return nil
}

func (m *mockGraphStore) Snapshot(ctx context.Context, sessionID string) (memory.GraphSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return memory.GraphSnapshot{}, errStoreDown
	}
	snap := memory.GraphSnapshot{Nodes: []memory.GraphNode{}, Edges: []memory.GraphEdge{}}
	for _, msg := range m.messages {
		if sessionID != "" && msg.SessionID != sessionID {
			continue
		}
		snap.Nodes = append(snap.Nodes, memory.GraphNode{
			ID:         msg.ID,
			Labels:     []string{"ShortTermMessage"},
			Properties: map[string]interface{}{"origin": "store"},
		})
	}
	return snap, nil
}

func (m *mockGraphStore) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errStoreDown
	}
	m.messages = nil
	m.knowledge = nil
	m.resets++
	return nil
}

func (m *mockGraphStore) Probe(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errStoreDown
	}
	return nil
}

func (m *mockGraphStore) Close(ctx context.Context) error { return nil }

func (m *mockGraphStore) storedMessages() []*memory.ShortTermMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*memory.ShortTermMessage, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *mockGraphStore) storedKnowledge() []*memory.Knowledge {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*memory.Knowledge, len(m.knowledge))
	copy(out, m.knowledge)
	return out
}

// scriptedGenerator replays queued responses and records prompts
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	prompts   []string
	err       error
	// block, when set, makes Generate wait for ctx cancellation
	block chan struct{}
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "generated text", nil
	}
	next := g.responses[0]
	g.responses = g.responses[1:]
	return next, nil
}

func (g *scriptedGenerator) seenPrompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.prompts))
	copy(out, g.prompts)
	return out
}
