package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "graphmem-backend/pkg/errors"
)

func testParticipants() []Participant {
	return []Participant{
		{Name: "Ada", Persona: "curious engineer"},
		{Name: "Bo"},
	}
}

func TestNewJob(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("starts queued with empty progress", func(t *testing.T) {
		job, err := NewJob("sess-1", testParticipants(), "a town hall", 4, now)
		require.NoError(t, err)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, StatusQueued, job.Status)
		assert.Empty(t, job.Progress)
		assert.False(t, job.Committed)
		assert.Equal(t, 4, job.TurnLimit)
	})

	t.Run("requires two participants", func(t *testing.T) {
		_, err := NewJob("sess-1", []Participant{{Name: "Ada"}}, "", 4, now)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("rejects blank participant name", func(t *testing.T) {
		_, err := NewJob("sess-1", []Participant{{Name: "Ada"}, {Name: " "}}, "", 4, now)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("rejects duplicate participant names", func(t *testing.T) {
		_, err := NewJob("sess-1", []Participant{{Name: "Ada"}, {Name: "Bo"}, {Name: " ada"}}, "", 4, now)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
		assert.Contains(t, err.Error(), "distinct")
	})

	t.Run("rejects non positive turn limit", func(t *testing.T) {
		_, err := NewJob("sess-1", testParticipants(), "", 0, now)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestJobTransitions(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("queued to running to completed", func(t *testing.T) {
		job, err := NewJob("sess-1", testParticipants(), "", 2, now)
		require.NoError(t, err)

		require.NoError(t, job.Transition(StatusRunning, now.Add(time.Second)))
		require.NoError(t, job.Transition(StatusCompleted, now.Add(2*time.Second)))
		assert.Equal(t, StatusCompleted, job.Status)
		assert.Equal(t, now.Add(2*time.Second), job.UpdatedAt)
	})

	t.Run("queued can be cancelled directly", func(t *testing.T) {
		job, err := NewJob("sess-1", testParticipants(), "", 2, now)
		require.NoError(t, err)
		require.NoError(t, job.Transition(StatusCancelled, now))
	})

	t.Run("terminal states are frozen", func(t *testing.T) {
		job, err := NewJob("sess-1", testParticipants(), "", 2, now)
		require.NoError(t, err)
		require.NoError(t, job.Transition(StatusRunning, now))
		require.NoError(t, job.Transition(StatusFailed, now))

		err = job.Transition(StatusRunning, now)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsInvalidState(err))
	})

	t.Run("queued cannot complete without running", func(t *testing.T) {
		job, err := NewJob("sess-1", testParticipants(), "", 2, now)
		require.NoError(t, err)
		err = job.Transition(StatusCompleted, now)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsInvalidState(err))
	})
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestJobClone(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	job, err := NewJob("sess-1", testParticipants(), "", 2, now)
	require.NoError(t, err)
	job.AppendProgress(ProgressRecord{Turn: 1, Speaker: "Ada", Content: "hi", Timestamp: now}, now)

	cp := job.Clone()
	cp.Progress[0].Content = "mutated"
	cp.Participants[0].Name = "mutated"

	assert.Equal(t, "hi", job.Progress[0].Content)
	assert.Equal(t, "Ada", job.Participants[0].Name)
}
