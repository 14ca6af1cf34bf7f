package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphmem-backend/domain/simulation"
	pkgerrors "graphmem-backend/pkg/errors"
)

func newTestJob(t *testing.T, at time.Time) *simulation.Job {
	t.Helper()
	job, err := simulation.NewJob("sess-1", []simulation.Participant{
		{Name: "Ada"}, {Name: "Bo"},
	}, "", 4, at)
	require.NoError(t, err)
	return job
}

func TestJobStoreStoreAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryJobStore(time.Hour)
	defer store.Close()

	now := time.Now()
	job := newTestJob(t, now)

	require.NoError(t, store.Store(ctx, job))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, simulation.StatusQueued, got.Status)

	t.Run("returned job is a copy", func(t *testing.T) {
		got.Status = simulation.StatusFailed
		again, err := store.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, simulation.StatusQueued, again.Status)
	})

	t.Run("missing job", func(t *testing.T) {
		_, err := store.Get(ctx, "absent")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("rejects job without id", func(t *testing.T) {
		err := store.Store(ctx, &simulation.Job{})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestJobStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryJobStore(time.Hour)
	defer store.Close()

	now := time.Now()
	job := newTestJob(t, now)
	require.NoError(t, store.Store(ctx, job))

	require.NoError(t, job.Transition(simulation.StatusRunning, now))
	require.NoError(t, store.Update(ctx, job))

	got, err := store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, simulation.StatusRunning, got.Status)

	t.Run("missing job", func(t *testing.T) {
		err := store.Update(ctx, newTestJob(t, now))
		require.Error(t, err)
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("stale snapshot cannot overwrite a terminal status", func(t *testing.T) {
		job := newTestJob(t, now)
		require.NoError(t, store.Store(ctx, job))
		require.NoError(t, job.Transition(simulation.StatusRunning, now))
		require.NoError(t, store.Update(ctx, job))

		stale := job.Clone()

		require.NoError(t, job.Transition(simulation.StatusCompleted, now))
		require.NoError(t, store.Update(ctx, job))

		require.NoError(t, stale.Transition(simulation.StatusCancelled, now))
		err := store.Update(ctx, stale)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsInvalidState(err))

		got, err := store.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, simulation.StatusCompleted, got.Status)
	})

	t.Run("terminal job can still be updated in place", func(t *testing.T) {
		job := newTestJob(t, now)
		require.NoError(t, store.Store(ctx, job))
		require.NoError(t, job.Transition(simulation.StatusRunning, now))
		require.NoError(t, job.Transition(simulation.StatusCompleted, now))
		require.NoError(t, store.Update(ctx, job))

		job.Committed = true
		require.NoError(t, store.Update(ctx, job))

		got, err := store.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, got.Committed)
	})
}

func TestJobStoreCount(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryJobStore(time.Hour)
	defer store.Close()

	now := time.Now()
	queued := newTestJob(t, now)
	require.NoError(t, store.Store(ctx, queued))

	running := newTestJob(t, now)
	require.NoError(t, running.Transition(simulation.StatusRunning, now))
	require.NoError(t, store.Store(ctx, running))

	counts, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[simulation.StatusQueued])
	assert.Equal(t, 1, counts[simulation.StatusRunning])
}

func TestJobStoreCleanupExpired(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryJobStore(time.Hour)
	defer store.Close()

	old := time.Now().Add(-2 * time.Hour)

	finished := newTestJob(t, old)
	require.NoError(t, finished.Transition(simulation.StatusRunning, old))
	require.NoError(t, finished.Transition(simulation.StatusCompleted, old))
	require.NoError(t, store.Store(ctx, finished))

	stillRunning := newTestJob(t, old)
	require.NoError(t, stillRunning.Transition(simulation.StatusRunning, old))
	require.NoError(t, store.Store(ctx, stillRunning))

	require.NoError(t, store.CleanupExpired(ctx, time.Hour))

	_, err := store.Get(ctx, finished.ID)
	require.Error(t, err)

	_, err = store.Get(ctx, stillRunning.ID)
	require.NoError(t, err)
}
