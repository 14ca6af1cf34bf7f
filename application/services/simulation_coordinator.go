package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"graphmem-backend/application/ports"
	"graphmem-backend/domain/memory"
	"graphmem-backend/domain/simulation"
	pkgerrors "graphmem-backend/pkg/errors"
	"graphmem-backend/pkg/observability"
)

// SimulationConfig holds tunables for the coordinator
type SimulationConfig struct {
	// MaxTurns caps the accepted turn limit
	MaxTurns int
	// MessageTTL is the lifetime of committed transcript messages
	MessageTTL time.Duration
}

// SimulationCoordinator runs multi-agent dialogue jobs asynchronously and
// applies their staged output to conversational memory on operator commit
type SimulationCoordinator struct {
	jobs      ports.JobStore
	generator ports.TextGenerator
	memory    *GraphMemoryService
	logger    *zap.Logger
	metrics   *observability.Collector
	cfg       SimulationConfig

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup

	// commitMu serializes commits so the single-shot check holds
	commitMu sync.Mutex
}

// NewSimulationCoordinator wires the coordinator
func NewSimulationCoordinator(
	jobs ports.JobStore,
	generator ports.TextGenerator,
	memorySvc *GraphMemoryService,
	logger *zap.Logger,
	metrics *observability.Collector,
	cfg SimulationConfig,
) *SimulationCoordinator {
	return &SimulationCoordinator{
		jobs:      jobs,
		generator: generator,
		memory:    memorySvc,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// Submit validates the run parameters, stores a queued job and launches the
// worker goroutine. The returned job is the queued snapshot.
func (c *SimulationCoordinator) Submit(ctx context.Context, sessionID string, participants []simulation.Participant, seedContext string, turnLimit int) (*simulation.Job, error) {
	if max := c.maxTurns(); turnLimit > max {
		return nil, pkgerrors.NewValidation(fmt.Sprintf("turn limit exceeds maximum of %d", max))
	}

	job, err := simulation.NewJob(sessionID, participants, seedContext, turnLimit, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := c.jobs.Store(ctx, job); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancels[job.ID] = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run(runCtx, job.Clone())

	c.logger.Info("simulation job queued",
		zap.String("job_id", job.ID),
		zap.String("session_id", sessionID),
		zap.Int("turn_limit", turnLimit),
		zap.Int("participants", len(participants)),
	)

	return job, nil
}

// run drives one job from queued to a terminal state
func (c *SimulationCoordinator) run(ctx context.Context, job *simulation.Job) {
	defer c.wg.Done()
	defer c.dropCancel(job.ID)

	// A job cancelled while still queued takes the direct edge and never
	// reports running
	if ctx.Err() != nil {
		c.finish(job, simulation.StatusCancelled, "")
		return
	}

	if err := c.advance(ctx, job, simulation.StatusRunning); err != nil {
		return
	}

	for turn := 1; turn <= job.TurnLimit; turn++ {
		if ctx.Err() != nil {
			c.finish(job, simulation.StatusCancelled, "")
			return
		}

		speaker := job.Participants[(turn-1)%len(job.Participants)]
		prompt := BuildDialoguePrompt(job.SeedContext, speaker, job.Progress)

		line, err := c.generator.Generate(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				c.finish(job, simulation.StatusCancelled, "")
				return
			}
			c.finish(job, simulation.StatusFailed, err.Error())
			return
		}

		job.AppendProgress(simulation.ProgressRecord{
			Turn:      turn,
			Speaker:   speaker.Name,
			Content:   line,
			Timestamp: time.Now().UTC(),
		}, time.Now().UTC())

		if err := c.jobs.Update(ctx, job); err != nil {
			c.logger.Error("failed to persist job progress", zap.String("job_id", job.ID), zap.Error(err))
		}
	}

	summary, err := c.generator.Generate(ctx, BuildSummaryPrompt(ProgressLines(job.Progress)))
	if err != nil {
		if ctx.Err() != nil {
			c.finish(job, simulation.StatusCancelled, "")
			return
		}
		c.finish(job, simulation.StatusFailed, err.Error())
		return
	}

	job.Summary = summary
	c.finish(job, simulation.StatusCompleted, "")
}

// advance transitions the job and persists the new state
func (c *SimulationCoordinator) advance(ctx context.Context, job *simulation.Job, to simulation.JobStatus) error {
	if err := job.Transition(to, time.Now().UTC()); err != nil {
		return err
	}
	return c.jobs.Update(ctx, job)
}

// finish moves the job to a terminal state and records the outcome
func (c *SimulationCoordinator) finish(job *simulation.Job, status simulation.JobStatus, errMsg string) {
	job.Error = errMsg
	if err := job.Transition(status, time.Now().UTC()); err != nil {
		c.logger.Error("invalid terminal transition", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	if err := c.jobs.Update(context.Background(), job); err != nil {
		c.logger.Error("failed to persist terminal job state", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	c.metrics.SimulationJobs.WithLabelValues(string(status)).Inc()
	c.logger.Info("simulation job finished",
		zap.String("job_id", job.ID),
		zap.String("status", string(status)),
		zap.Int("turns", len(job.Progress)),
	)
}

func (c *SimulationCoordinator) dropCancel(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cancel, ok := c.cancels[jobID]; ok {
		cancel()
		delete(c.cancels, jobID)
	}
}

// Status returns the current snapshot of a job
func (c *SimulationCoordinator) Status(ctx context.Context, jobID string) (*simulation.Job, error) {
	return c.jobs.Get(ctx, jobID)
}

// Cancel requests cancellation. Cancelling a terminal job is a no-op and
// returns the unchanged snapshot.
func (c *SimulationCoordinator) Cancel(ctx context.Context, jobID string) (*simulation.Job, error) {
	job, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status.Terminal() {
		return job, nil
	}

	c.mu.Lock()
	cancel, running := c.cancels[jobID]
	c.mu.Unlock()

	if running {
		cancel()
		return job, nil
	}

	// No live worker: the job was interrupted before reaching a terminal
	// state, settle it directly
	if err := job.Transition(simulation.StatusCancelled, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := c.jobs.Update(ctx, job); err != nil {
		// The worker settled the job between our snapshot and this write
		if pkgerrors.IsInvalidState(err) {
			return c.jobs.Get(ctx, jobID)
		}
		return nil, err
	}
	c.metrics.SimulationJobs.WithLabelValues(string(simulation.StatusCancelled)).Inc()

	return job, nil
}

// CommitResult is the outcome of applying a completed simulation
type CommitResult struct {
	Job       *simulation.Job
	Knowledge *memory.Knowledge
	History   []*memory.ShortTermMessage
}

// Commit applies a completed job's transcript and summary to the target
// session. Commits are single-shot and require a reachable graph store.
func (c *SimulationCoordinator) Commit(ctx context.Context, jobID string) (*CommitResult, error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	job, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != simulation.StatusCompleted {
		return nil, pkgerrors.NewInvalidState("only completed jobs can be committed")
	}
	if job.Committed {
		return nil, pkgerrors.NewAlreadyCommitted("job has already been committed")
	}

	messages := make([]*memory.ShortTermMessage, 0, len(job.Progress))
	now := time.Now().UTC()
	for i, rec := range job.Progress {
		msg, err := memory.NewShortTermMessage(
			job.SessionID,
			memory.RoleAssistant,
			fmt.Sprintf("%s: %s", rec.Speaker, rec.Content),
			now.Add(time.Duration(i)*time.Millisecond),
			c.cfg.MessageTTL,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	knowledge, history, err := c.memory.CommitDelta(ctx, &memory.Delta{
		SessionID: job.SessionID,
		Messages:  messages,
		Summary:   job.Summary,
	})
	if err != nil {
		return nil, err
	}

	job.Committed = true
	job.UpdatedAt = time.Now().UTC()
	if err := c.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	c.logger.Info("simulation job committed",
		zap.String("job_id", job.ID),
		zap.String("session_id", job.SessionID),
		zap.Int("messages", len(messages)),
	)

	return &CommitResult{Job: job, Knowledge: knowledge, History: history}, nil
}

func (c *SimulationCoordinator) maxTurns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.MaxTurns
}

// SetMaxTurns adjusts the accepted turn limit at runtime
func (c *SimulationCoordinator) SetMaxTurns(max int) {
	if max < 1 {
		return
	}
	c.mu.Lock()
	c.cfg.MaxTurns = max
	c.mu.Unlock()
}

// Counts returns the number of retained jobs by status
func (c *SimulationCoordinator) Counts(ctx context.Context) (map[simulation.JobStatus]int, error) {
	return c.jobs.Count(ctx)
}

// Stop cancels every running job and waits for the workers to settle
func (c *SimulationCoordinator) Stop() {
	c.mu.Lock()
	for _, cancel := range c.cancels {
		cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}
