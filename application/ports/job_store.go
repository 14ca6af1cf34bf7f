package ports

import (
	"context"
	"time"

	"graphmem-backend/domain/simulation"
)

// JobStore manages simulation job records
type JobStore interface {
	// Store saves a new job
	Store(ctx context.Context, job *simulation.Job) error

	// Get retrieves a job by ID
	Get(ctx context.Context, jobID string) (*simulation.Job, error)

	// Update replaces an existing job record
	Update(ctx context.Context, job *simulation.Job) error

	// Count returns the number of retained jobs by status
	Count(ctx context.Context) (map[simulation.JobStatus]int, error)

	// CleanupExpired removes terminal jobs older than the given duration
	CleanupExpired(ctx context.Context, olderThan time.Duration) error
}
