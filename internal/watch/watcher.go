// Package watch re-runs an action when workspace documents change on disk.
//
// A Watcher observes a set of directories with fsnotify, collects events
// for files that match its filter and calls the handler once the changes
// have settled for the debounce window. Rapid saves of the same file, or an
// editor's write-rename sequence, produce one handler call.
package watch

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period after the last event before the
// handler runs.
const DefaultDebounce = 500 * time.Millisecond

// Handler is called with the settled paths, sorted. A returned error is
// logged and counted; watching continues.
type Handler func(ctx context.Context, changed []string) error

// Stats tracks watcher activity.
type Stats struct {
	Events        int
	Runs          int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// WithFilter restricts events to paths for which match returns true.
func WithFilter(match func(path string) bool) Option {
	return func(w *Watcher) { w.match = match }
}

// WithIgnore drops events for the given files. The import output must be
// ignored when it lives in a watched directory, or every write would
// trigger another run.
func WithIgnore(paths ...string) Option {
	return func(w *Watcher) {
		for _, p := range paths {
			w.ignore[clean(p)] = true
		}
	}
}

// Watcher watches directories and calls a Handler on settled changes.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dirs     []string
	handler  Handler
	logger   *zap.Logger
	match    func(path string) bool
	ignore   map[string]bool
	debounce time.Duration
	pending  map[string]time.Time
	stats    Stats
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// New creates a Watcher for dirs. Nothing is watched until Start.
func New(dirs []string, handler Handler, opts ...Option) (*Watcher, error) {
	if len(dirs) == 0 {
		return nil, errors.New("watch: no directories to watch")
	}
	if handler == nil {
		return nil, errors.New("watch: nil handler")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		dirs:     dirs,
		handler:  handler,
		logger:   zap.NewNop(),
		match:    func(string) bool { return true },
		ignore:   make(map[string]bool),
		debounce: DefaultDebounce,
		pending:  make(map[string]time.Time),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start adds the directories and begins the event loop in a goroutine.
// A directory that cannot be watched fails Start and releases the
// underlying watcher.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range w.dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			_ = w.watcher.Close()
			return err
		}
		w.logger.Info("watching directory", zap.String("dir", dir))
	}

	go w.run(ctx)
	return nil
}

// Stop ends the event loop and waits for it to exit. Stop is safe to call
// more than once.
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

	if err := w.watcher.Close(); err != nil {
		w.logger.Warn("error closing watcher", zap.Error(err))
	}
	w.logger.Debug("watcher stopped")
}

// Run starts the watcher and blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounce / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

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
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			w.flush(ctx)
		}
	}
}

// handleEvent records a relevant event for the next flush.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	path := clean(event.Name)
	if w.ignore[path] || !w.match(path) {
		return
	}

	w.logger.Debug("file event", zap.String("path", path), zap.String("op", event.Op.String()))

	w.mu.Lock()
	now := time.Now()
	w.pending[path] = now
	w.stats.Events++
	w.stats.LastEventPath = path
	w.stats.LastEventTime = now
	w.mu.Unlock()
}

// flush calls the handler when every pending path has been quiet for the
// debounce window. One recent event holds back the whole batch so that a
// multi-file save triggers a single run.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	now := time.Now()
	for _, at := range w.pending {
		if now.Sub(at) < w.debounce {
			w.mu.Unlock()
			return
		}
	}
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	w.pending = make(map[string]time.Time)
	w.stats.Runs++
	w.mu.Unlock()

	sort.Strings(changed)
	w.logger.Info("changes settled, running", zap.Strings("changed", changed))
	if err := w.handler(ctx, changed); err != nil {
		w.logger.Error("run failed", zap.Error(err))
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
	}
}

func clean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
