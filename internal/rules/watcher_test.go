package rules

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcherTriggersReload(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	reloaded := make(chan struct{}, 8)

	w, err := NewWatcher(dir, func() error {
		reloaded <- struct{}{}
		return nil
	})
	require.NoError(t, err)
	w.debounceDur = 150 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: []\n"), 0644))

	select {
	case <-reloaded:
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback not invoked after script write")
	}

	stats := w.Stats()
	require.GreaterOrEqual(t, stats.Events, 1)
	require.GreaterOrEqual(t, stats.ReloadsOK, 1)
}

// A save burst within the debounce window must produce a reload of the final
// contents, not of an intermediate write.
func TestWatcherReloadsAfterLastWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")

	var mu sync.Mutex
	var contents []string
	w, err := NewWatcher(dir, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		mu.Lock()
		contents = append(contents, string(data))
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	w.debounceDur = 200 * time.Millisecond

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("rules: [] # draft\n"), 0644))
	time.Sleep(80 * time.Millisecond) // second save lands inside the window
	require.NoError(t, os.WriteFile(path, []byte("rules: [] # final\n"), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(contents) > 0
	}, 5*time.Second, 20*time.Millisecond, "no reload after the burst settled")

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, contents[len(contents)-1], "final",
		"reload must see the last write of the burst")
}

func TestWatcherIgnoresNonScripts(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	reloaded := make(chan struct{}, 8)

	w, err := NewWatcher(dir, func() error {
		reloaded <- struct{}{}
		return nil
	})
	require.NoError(t, err)
	w.debounceDur = 100 * time.Millisecond
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	select {
	case <-reloaded:
		t.Fatal("reload invoked for non-script file")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := NewWatcher(t.TempDir(), func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
}
