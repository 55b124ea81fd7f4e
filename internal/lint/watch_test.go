package lint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/featuresync/internal/logging"
)

func TestWatcher_FeatureChangeTriggers(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "specs")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	logger := logging.NewTestLogger()
	w, err := NewWatcher([]string{dir}, 20*time.Millisecond, logger.Logger)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) { changes <- struct{}{} })
	}()

	require.NoError(t, os.WriteFile(filepath.Join(sub, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "door.feature"), []byte("@ADS-1\n"), 0o644))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change callback for feature file write")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	logger.AssertLogged(t, zapcore.DebugLevel, "feature file changed")
}

func TestNewWatcher_MissingDir(t *testing.T) {
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "nope")}, 0, nil)
	assert.Error(t, err)
}

func TestIsFeatureEvent(t *testing.T) {
	assert.True(t, isFeatureEvent(fsnotify.Event{Name: "a.feature", Op: fsnotify.Write}))
	assert.True(t, isFeatureEvent(fsnotify.Event{Name: "a.feature", Op: fsnotify.Remove}))
	assert.False(t, isFeatureEvent(fsnotify.Event{Name: "a.feature", Op: fsnotify.Chmod}))
	assert.False(t, isFeatureEvent(fsnotify.Event{Name: "a.txt", Op: fsnotify.Write}))
}
