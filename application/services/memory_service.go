package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"graphmem-backend/application/ports"
	"graphmem-backend/domain/memory"
	"graphmem-backend/infrastructure/persistence/fallback"
	pkgerrors "graphmem-backend/pkg/errors"
	"graphmem-backend/pkg/observability"
)

// HealthStatus is the observable state of the memory subsystem
type HealthStatus struct {
	StoreReachable bool `json:"store_reachable"`
	Degraded       bool `json:"degraded"`
	FallbackActive bool `json:"fallback_active"`
	FallbackSize   int  `json:"fallback_size"`
}

// MemoryServiceConfig holds tunables for the memory service
type MemoryServiceConfig struct {
	MessageTTL    time.Duration
	ProbeInterval time.Duration
	// MaxMessageBytes caps the content size of a recorded message;
	// zero means no cap
	MaxMessageBytes int
}

// GraphMemoryService coordinates durable graph writes with the degraded-mode
// fallback cache. The circuit breaker is the single source of truth for the
// healthy/degraded distinction: an open breaker means degraded.
type GraphMemoryService struct {
	store     ports.GraphStore
	cache     *fallback.Cache
	generator ports.TextGenerator
	breaker   *gobreaker.CircuitBreaker
	logger    *zap.Logger
	metrics   *observability.Collector
	cfg       MemoryServiceConfig

	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
	lastStamp    map[string]time.Time

	reconcileMu sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewGraphMemoryService wires the service and its breaker
func NewGraphMemoryService(
	store ports.GraphStore,
	cache *fallback.Cache,
	generator ports.TextGenerator,
	logger *zap.Logger,
	metrics *observability.Collector,
	cfg MemoryServiceConfig,
) *GraphMemoryService {
	svc := &GraphMemoryService{
		store:        store,
		cache:        cache,
		generator:    generator,
		logger:       logger,
		metrics:      metrics,
		cfg:          cfg,
		sessionLocks: make(map[string]*sync.Mutex),
		lastStamp:    make(map[string]time.Time),
		stopCh:       make(chan struct{}),
	}

	svc.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "graph-store",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     cfg.ProbeInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("graph store breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if to == gobreaker.StateOpen {
				metrics.DegradedTransitions.Inc()
			}
		},
	})

	return svc
}

// Start launches the background probe loop so a degraded store recovers
// without waiting for traffic
func (s *GraphMemoryService) Start() {
	go s.probeLoop()
}

// Stop halts the probe loop
func (s *GraphMemoryService) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *GraphMemoryService) probeLoop() {
	ticker := time.NewTicker(s.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if s.Degraded() || s.cache.Active() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				s.tryRecover(ctx)
				cancel()
			}
		}
	}
}

// tryRecover probes the store through the breaker and replays the fallback
// once the store answers again
func (s *GraphMemoryService) tryRecover(ctx context.Context) {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.store.Probe(ctx)
	})
	if err != nil {
		return
	}

	if s.cache.Active() {
		if err := s.Reconcile(ctx); err != nil {
			s.logger.Warn("fallback reconciliation incomplete", zap.Error(err))
		}
	}
}

// Degraded reports whether durable writes are currently refused
func (s *GraphMemoryService) Degraded() bool {
	return s.breaker.State() == gobreaker.StateOpen
}

func (s *GraphMemoryService) maxMessageBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.MaxMessageBytes
}

// SetMaxMessageBytes adjusts the message size cap at runtime
func (s *GraphMemoryService) SetMaxMessageBytes(max int) {
	if max < 1 {
		return
	}
	s.mu.Lock()
	s.cfg.MaxMessageBytes = max
	s.mu.Unlock()
}

// sessionLock returns the mutex serializing writes for a session
func (s *GraphMemoryService) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessionLocks[sessionID] = lock
	}
	return lock
}

// nextTimestamp returns a strictly increasing timestamp per session so the
// NEXT chain stays unambiguous when the clock ties
func (s *GraphMemoryService) nextTimestamp(sessionID string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if last, ok := s.lastStamp[sessionID]; ok && !now.After(last) {
		now = last.Add(time.Nanosecond)
	}
	s.lastStamp[sessionID] = now
	return now
}

// RecordMessage stores one utterance, falling back to the cache when the
// graph store is unreachable
func (s *GraphMemoryService) RecordMessage(ctx context.Context, sessionID string, role memory.Role, content string) (*memory.ShortTermMessage, error) {
	if max := s.maxMessageBytes(); max > 0 && len(content) > max {
		return nil, pkgerrors.NewValidation(fmt.Sprintf("message exceeds maximum size of %d bytes", max))
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	msg, err := memory.NewShortTermMessage(sessionID, role, content, s.nextTimestamp(sessionID), s.cfg.MessageTTL)
	if err != nil {
		return nil, err
	}

	_, storeErr := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.store.RecordMessage(ctx, msg)
	})
	if storeErr == nil {
		s.metrics.MessagesRecorded.WithLabelValues("store").Inc()
		return msg, nil
	}

	s.logger.Warn("graph store write failed, using fallback",
		zap.String("session_id", sessionID),
		zap.Error(storeErr),
	)

	if err := s.cache.Record(msg); err != nil {
		return nil, err
	}
	s.metrics.MessagesRecorded.WithLabelValues("fallback").Inc()
	s.metrics.FallbackSize.Set(float64(s.cache.Size()))

	return msg, nil
}

// Chat records the user message, generates a grounded reply, records it and
// returns the reply with the updated live history
func (s *GraphMemoryService) Chat(ctx context.Context, sessionID, content string) (string, []*memory.ShortTermMessage, error) {
	if _, err := s.RecordMessage(ctx, sessionID, memory.RoleUser, content); err != nil {
		return "", nil, err
	}

	history, err := s.LiveMessages(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}

	reply, err := s.generator.Generate(ctx, BuildChatPrompt(history))
	if err != nil {
		return "", nil, err
	}

	if _, err := s.RecordMessage(ctx, sessionID, memory.RoleAssistant, reply); err != nil {
		return "", nil, err
	}

	snapshot, err := s.LiveMessages(ctx, sessionID)
	if err != nil {
		return "", nil, err
	}

	return reply, snapshot, nil
}

// LiveMessages returns the ordered live history of a session, merging any
// fallback records that have not been replayed yet
func (s *GraphMemoryService) LiveMessages(ctx context.Context, sessionID string) ([]*memory.ShortTermMessage, error) {
	now := time.Now()
	cached := s.cache.Live(sessionID, now)

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.store.LiveMessages(ctx, sessionID)
	})
	if err != nil {
		// Degraded reads serve whatever the fallback holds
		return cached, nil
	}

	stored := result.([]*memory.ShortTermMessage)
	seen := make(map[string]struct{}, len(stored))
	for _, m := range stored {
		seen[m.ID] = struct{}{}
	}
	merged := stored
	for _, m := range cached {
		if _, ok := seen[m.ID]; !ok {
			merged = append(merged, m)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })

	return merged, nil
}

// Reconcile replays fallback records into the store in original order,
// reusing the IDs assigned at record time so exports never duplicate
func (s *GraphMemoryService) Reconcile(ctx context.Context) error {
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()

	pending := s.cache.All()
	if len(pending) == 0 {
		return nil
	}

	s.logger.Info("replaying fallback records", zap.Int("count", len(pending)))

	for _, msg := range pending {
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, s.store.RecordMessage(ctx, msg)
		})
		if err != nil {
			s.metrics.FallbackSize.Set(float64(s.cache.Size()))
			return pkgerrors.NewStorageUnavailable("reconciliation interrupted", err)
		}
		s.cache.Remove(msg.ID)
		s.metrics.ReconciledRecords.Inc()
	}

	s.metrics.FallbackSize.Set(float64(s.cache.Size()))
	s.logger.Info("fallback cache drained")
	return nil
}

// Consolidate summarizes a session's live history into a knowledge node.
// The fallback is flushed first: consolidation only ever runs against the
// durable store.
func (s *GraphMemoryService) Consolidate(ctx context.Context, sessionID, note string) (*memory.Knowledge, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.Reconcile(ctx); err != nil {
		return nil, err
	}

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.store.LiveMessages(ctx, sessionID)
	})
	if err != nil {
		return nil, pkgerrors.NewStorageUnavailable("cannot consolidate while the graph store is unreachable", err)
	}

	messages := result.([]*memory.ShortTermMessage)
	if len(messages) == 0 {
		return nil, pkgerrors.NewNoMessages("session has no live messages to consolidate")
	}

	summary, err := s.generator.Generate(ctx, BuildSummaryPrompt(MessageLines(messages)))
	if err != nil {
		return nil, err
	}

	knowledge, err := memory.NewKnowledge(sessionID, summary, note, messages, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.store.CreateKnowledge(ctx, knowledge)
	})
	if err != nil {
		return nil, pkgerrors.NewStorageUnavailable("failed to persist knowledge", err)
	}

	s.metrics.Consolidations.Inc()
	s.logger.Info("session consolidated",
		zap.String("session_id", sessionID),
		zap.String("knowledge_id", knowledge.ID),
		zap.Int("sources", len(knowledge.SourceIDs)),
	)

	return knowledge, nil
}

// Export returns the merged graph view. Store contents win over fallback
// mirrors when both hold the same record.
func (s *GraphMemoryService) Export(ctx context.Context, sessionID string) (memory.GraphSnapshot, error) {
	now := time.Now()

	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.store.Snapshot(ctx, sessionID)
	})
	if err != nil {
		return s.cache.Snapshot(sessionID, now), nil
	}

	snap := result.(memory.GraphSnapshot)
	snap.Merge(s.cache.Snapshot(sessionID, now))
	return snap, nil
}

// Reset irreversibly clears the graph store and the fallback cache
func (s *GraphMemoryService) Reset(ctx context.Context) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.store.Reset(ctx)
	})
	if err != nil {
		return pkgerrors.NewStorageUnavailable("cannot reset while the graph store is unreachable", err)
	}

	s.cache.Clear()
	s.metrics.FallbackSize.Set(0)
	s.metrics.GraphResets.Inc()

	s.mu.Lock()
	s.lastStamp = make(map[string]time.Time)
	s.mu.Unlock()

	return nil
}

// CommitDelta durably applies a staged simulation transcript: every message
// goes straight to the store and the summary becomes a knowledge node
func (s *GraphMemoryService) CommitDelta(ctx context.Context, delta *memory.Delta) (*memory.Knowledge, []*memory.ShortTermMessage, error) {
	lock := s.sessionLock(delta.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.Reconcile(ctx); err != nil {
		return nil, nil, err
	}

	for _, msg := range delta.Messages {
		_, err := s.breaker.Execute(func() (interface{}, error) {
			return nil, s.store.RecordMessage(ctx, msg)
		})
		if err != nil {
			return nil, nil, pkgerrors.NewStorageUnavailable("commit interrupted, graph store unreachable", err)
		}
		s.metrics.MessagesRecorded.WithLabelValues("store").Inc()
	}

	knowledge, err := memory.NewKnowledge(delta.SessionID, delta.Summary, "", delta.Messages, time.Now().UTC())
	if err != nil {
		return nil, nil, err
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.store.CreateKnowledge(ctx, knowledge)
	})
	if err != nil {
		return nil, nil, pkgerrors.NewStorageUnavailable("failed to persist committed knowledge", err)
	}

	history, err := s.LiveMessages(ctx, delta.SessionID)
	if err != nil {
		return nil, nil, err
	}

	return knowledge, history, nil
}

// Health reports the current state of the memory subsystem
func (s *GraphMemoryService) Health(ctx context.Context) HealthStatus {
	reachable := s.store.Probe(ctx) == nil
	size := s.cache.Size()

	return HealthStatus{
		StoreReachable: reachable,
		Degraded:       s.Degraded(),
		FallbackActive: size > 0,
		FallbackSize:   size,
	}
}
