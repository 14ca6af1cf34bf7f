package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeLimitsFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "limits.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewLimitsWatcher(t *testing.T) {
	defaults := Limits{MaxTurns: 50, FallbackCapacity: 500, MaxMessageBytes: 65536}

	t.Run("loads initial file over defaults", func(t *testing.T) {
		path := writeLimitsFile(t, t.TempDir(), "maxTurns: 10\n")

		w, err := NewLimitsWatcher(path, defaults, zap.NewNop())
		require.NoError(t, err)
		defer w.Stop()

		limits := w.Current()
		assert.Equal(t, 10, limits.MaxTurns)
		assert.Equal(t, 500, limits.FallbackCapacity)
		assert.Equal(t, 65536, limits.MaxMessageBytes)
	})

	t.Run("fails on missing file", func(t *testing.T) {
		_, err := NewLimitsWatcher(filepath.Join(t.TempDir(), "absent.yaml"), defaults, zap.NewNop())
		require.Error(t, err)
	})
}

func TestLimitsWatcherReload(t *testing.T) {
	defaults := Limits{MaxTurns: 50, FallbackCapacity: 500, MaxMessageBytes: 65536}
	dir := t.TempDir()
	path := writeLimitsFile(t, dir, "maxTurns: 10\n")

	w, err := NewLimitsWatcher(path, defaults, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan Limits, 1)
	w.OnChange(func(l Limits) {
		select {
		case changed <- l:
		default:
		}
	})

	w.Start()

	require.NoError(t, os.WriteFile(path, []byte("maxTurns: 20\n"), 0o644))

	select {
	case l := <-changed:
		assert.Equal(t, 20, l.MaxTurns)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for limits reload")
	}

	assert.Equal(t, 20, w.Current().MaxTurns)
}

func TestLimitsWatcherKeepsCurrentOnInvalid(t *testing.T) {
	defaults := Limits{MaxTurns: 50, FallbackCapacity: 500, MaxMessageBytes: 65536}
	dir := t.TempDir()
	path := writeLimitsFile(t, dir, "maxTurns: 10\n")

	w, err := NewLimitsWatcher(path, defaults, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	w.Start()

	require.NoError(t, os.WriteFile(path, []byte("maxTurns: -1\n"), 0o644))

	// Give the debounce and reload a moment to run
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 10, w.Current().MaxTurns)
}

func TestValidateLimits(t *testing.T) {
	valid := Limits{MaxTurns: 1, FallbackCapacity: 1, MaxMessageBytes: 1}
	require.NoError(t, validateLimits(valid))

	for name, l := range map[string]Limits{
		"zero turns":    {MaxTurns: 0, FallbackCapacity: 1, MaxMessageBytes: 1},
		"zero capacity": {MaxTurns: 1, FallbackCapacity: 0, MaxMessageBytes: 1},
		"zero bytes":    {MaxTurns: 1, FallbackCapacity: 1, MaxMessageBytes: 0},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, validateLimits(l))
		})
	}
}
