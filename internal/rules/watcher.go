package rules

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"psikit/internal/logging"
)

// Watcher watches a rule script directory for changes and triggers a pool
// reload. Events are debounced on the trailing edge: a path is reloaded only
// after it has settled past the debounce window, so a burst of editor saves
// produces one reload of the final contents rather than a reload of a
// half-written file.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	dir         string
	reload      func() error
	pending     map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for debugging.
type WatcherStats struct {
	Events        int
	ReloadsOK     int
	ReloadsFailed int
	LastEventPath string
	LastEventTime time.Time
}

// NewWatcher creates a watcher over dir. reload is invoked after each settled
// script change; it should re-run LoadDir and Replace the pool.
func NewWatcher(dir string, reload func() error) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:     fw,
		dir:         dir,
		reload:      reload,
		pending:     make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the watch loop runs in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil // Already running
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		return err
	}
	logging.Watcher("watching rule scripts in %s", w.dir)

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	settleTicker := time.NewTicker(100 * time.Millisecond)
	defer settleTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.noteEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatcher).Warn("watch error: %v", err)
		case <-settleTicker.C:
			w.processSettled()
		}
	}
}

// noteEvent records a script change for later processing. Each new event on
// a path restarts its debounce window.
func (w *Watcher) noteEvent(event fsnotify.Event) {
	if !isScript(event.Name) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	now := time.Now()
	w.pending[event.Name] = now
	w.stats.Events++
	w.stats.LastEventPath = event.Name
	w.stats.LastEventTime = now
	w.mu.Unlock()

	logging.Watcher("script change: %s (%s)", event.Name, event.Op)
}

// processSettled reloads once any pending paths have settled past the
// debounce window.
func (w *Watcher) processSettled() {
	w.mu.Lock()
	now := time.Now()
	settled := 0
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounceDur {
			delete(w.pending, path)
			settled++
		}
	}
	w.mu.Unlock()

	if settled == 0 {
		return
	}
	logging.Watcher("reloading scripts: %d settled change(s)", settled)

	if err := w.reload(); err != nil {
		logging.Get(logging.CategoryWatcher).Error("reload failed: %v", err)
		w.mu.Lock()
		w.stats.ReloadsFailed++
		w.mu.Unlock()
		return
	}
	w.mu.Lock()
	w.stats.ReloadsOK++
	w.mu.Unlock()
}

func isScript(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}
