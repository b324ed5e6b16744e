package tasks

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openecglab/ECGAnnotator/src/logging"
)

// Watcher reports new subject folders appearing under the data directory, so
// a running session can pick up freshly exported records without reimporting.
type Watcher struct {
	root     string
	onChange func()

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	debounceMu  sync.Mutex
	debounceMap map[string]*time.Timer
	debounceDur time.Duration
}

// NewWatcher watches root for new folders. onChange runs off the UI goroutine
// once activity on a folder has settled; it may fire once per new folder.
func NewWatcher(root string, onChange func()) *Watcher {
	return &Watcher{
		root:        root,
		onChange:    onChange,
		debounceMap: make(map[string]*time.Timer),
		debounceDur: 500 * time.Millisecond,
	}
}

// SetDebounce overrides the settle delay before onChange fires.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounceDur = d
	}
}

// Start begins watching in the background. Stop or ctx cancellation ends it.
// Starting a running watcher is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.root); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true
	go w.run(ctx, fw)
	logging.Infof("watcher: observing %s", w.root)
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	defer close(w.doneCh)
	defer fw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			info, err := os.Stat(ev.Name)
			if err != nil || !info.IsDir() {
				continue
			}
			w.debounce(ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logging.Warnf("watcher: %v", err)
		}
	}
}

// debounce coalesces the burst of events a folder copy produces into one
// onChange call per folder.
func (w *Watcher) debounce(name string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()
	if t, ok := w.debounceMap[name]; ok {
		t.Stop()
	}
	w.debounceMap[name] = time.AfterFunc(w.debounceDur, func() {
		w.debounceMu.Lock()
		delete(w.debounceMap, name)
		w.debounceMu.Unlock()
		logging.Debugf("watcher: new folder settled at %s", name)
		w.onChange()
	})
}

// Stop ends the watcher and waits for its goroutine to exit. Pending debounce
// timers are cancelled. Stopping a stopped watcher is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()
	<-w.doneCh

	w.debounceMu.Lock()
	for name, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, name)
	}
	w.debounceMu.Unlock()
}
