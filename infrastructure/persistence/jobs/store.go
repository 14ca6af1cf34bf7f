package jobs

import (
	"context"
	"sync"
	"time"

	"graphmem-backend/domain/simulation"
	pkgerrors "graphmem-backend/pkg/errors"
)

// InMemoryJobStore provides an in-memory implementation of ports.JobStore
type InMemoryJobStore struct {
	mu        sync.RWMutex
	jobs      map[string]*simulation.Job
	retention time.Duration
	stopCh    chan struct{}
}

// NewInMemoryJobStore creates a job store that drops terminal jobs after
// the retention period
func NewInMemoryJobStore(retention time.Duration) *InMemoryJobStore {
	store := &InMemoryJobStore{
		jobs:      make(map[string]*simulation.Job),
		retention: retention,
		stopCh:    make(chan struct{}),
	}

	go store.cleanupRoutine()

	return store
}

// Store saves a new job
func (s *InMemoryJobStore) Store(ctx context.Context, job *simulation.Job) error {
	if job == nil || job.ID == "" {
		return pkgerrors.NewValidation("job must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs[job.ID] = job.Clone()
	return nil
}

// Get retrieves a job by ID
func (s *InMemoryJobStore) Get(ctx context.Context, jobID string) (*simulation.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, pkgerrors.NewNotFound("job not found: " + jobID)
	}

	return job.Clone(), nil
}

// Update replaces an existing job record. A stored terminal status is final:
// an update carrying a different status is rejected so a stale snapshot can
// never rewind or reroute a settled job.
func (s *InMemoryJobStore) Update(ctx context.Context, job *simulation.Job) error {
	if job == nil || job.ID == "" {
		return pkgerrors.NewValidation("job must have an id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.jobs[job.ID]
	if !exists {
		return pkgerrors.NewNotFound("job not found: " + job.ID)
	}
	if existing.Status.Terminal() && job.Status != existing.Status {
		return pkgerrors.NewInvalidState("job already " + string(existing.Status) + ": " + job.ID)
	}

	s.jobs[job.ID] = job.Clone()
	return nil
}

// Count returns the number of retained jobs by status
func (s *InMemoryJobStore) Count(ctx context.Context) (map[simulation.JobStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[simulation.JobStatus]int)
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts, nil
}

// CleanupExpired removes terminal jobs whose last update is older than the
// given duration. Running and queued jobs are never dropped.
func (s *InMemoryJobStore) CleanupExpired(ctx context.Context, olderThan time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	expiredIDs := []string{}

	for id, job := range s.jobs {
		if !job.Status.Terminal() {
			continue
		}
		if now.Sub(job.UpdatedAt) > olderThan {
			expiredIDs = append(expiredIDs, id)
		}
	}

	for _, id := range expiredIDs {
		delete(s.jobs, id)
	}

	return nil
}

// Close stops the cleanup goroutine
func (s *InMemoryJobStore) Close() {
	close(s.stopCh)
}

// cleanupRoutine runs periodically to drop expired terminal jobs
func (s *InMemoryJobStore) cleanupRoutine() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.CleanupExpired(context.Background(), s.retention)
		}
	}
}
